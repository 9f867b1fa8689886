package market

import (
	"context"
	"errors"

	"github.com/coinhatch/coinhatch/internal/domain"
)

var (
	ErrUpstream        = errors.New("market data provider failed")
	ErrUpstreamTimeout = errors.New("market data provider timed out")
	ErrCoinNotFound    = errors.New("coin not found")
)

// Upstream is the raw market-data provider. Implemented by Client;
// tests substitute a counting fake.
type Upstream interface {
	Trending(ctx context.Context) ([]domain.TrendingCoin, error)
	Markets(ctx context.Context, ids []string, vsCurrency string, page, perPage int) ([]domain.MarketCoin, error)
	Detail(ctx context.Context, coinID, vsCurrency string) (*domain.CoinDetail, error)
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
}

// MarketService serves reshaped market data through the response cache.
type MarketService interface {
	Trending(ctx context.Context) (*domain.MarketEnvelope, error)
	Markets(ctx context.Context, ids []string, vsCurrency string, page, perPage int) (*domain.MarketEnvelope, error)
	Detail(ctx context.Context, coinID, vsCurrency string) (*domain.MarketEnvelope, error)
	Search(ctx context.Context, query string) (*domain.MarketEnvelope, error)
	// CoinExists reports whether coinID names a real coin upstream.
	CoinExists(ctx context.Context, coinID string) (bool, error)
}
