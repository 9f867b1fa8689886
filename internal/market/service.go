package market

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/coinhatch/coinhatch/internal/cache"
	"github.com/coinhatch/coinhatch/internal/config"
	"github.com/coinhatch/coinhatch/internal/domain"
	"github.com/coinhatch/coinhatch/internal/repository"
	"github.com/coinhatch/coinhatch/pkg/log"
)

// cachedPayload is the value stored in the response cache: the reshaped
// payload plus the moment it was fetched upstream.
type cachedPayload struct {
	Data        json.RawMessage `json:"data"`
	LastUpdated time.Time       `json:"lastUpdated"`
}

type marketService struct {
	upstream Upstream
	cache    cache.Cache
	prices   repository.PriceRepository
	cfg      config.MarketConfig
	sf       singleflight.Group
}

// NewMarketService creates the gateway in front of the upstream
// provider. prices may be nil to disable snapshot write-back.
func NewMarketService(upstream Upstream, responseCache cache.Cache, prices repository.PriceRepository, cfg config.MarketConfig) MarketService {
	return &marketService{
		upstream: upstream,
		cache:    responseCache,
		prices:   prices,
		cfg:      cfg,
	}
}

func (s *marketService) Trending(ctx context.Context) (*domain.MarketEnvelope, error) {
	key := cache.BuildKey("trending")
	return s.fetch(ctx, key, s.cfg.TrendingTTL, func(ctx context.Context) (interface{}, error) {
		return s.upstream.Trending(ctx)
	})
}

func (s *marketService) Markets(ctx context.Context, ids []string, vsCurrency string, page, perPage int) (*domain.MarketEnvelope, error) {
	vsCurrency = normalizeCurrency(vsCurrency)
	key := cache.BuildKey("markets", strings.Join(ids, ","), vsCurrency, strconv.Itoa(page), strconv.Itoa(perPage))

	return s.fetch(ctx, key, s.cfg.MarketsTTL, func(ctx context.Context) (interface{}, error) {
		coins, err := s.upstream.Markets(ctx, ids, vsCurrency, page, perPage)
		if err != nil {
			return nil, err
		}
		s.snapshotMarkets(coins, vsCurrency)
		return coins, nil
	})
}

func (s *marketService) Detail(ctx context.Context, coinID, vsCurrency string) (*domain.MarketEnvelope, error) {
	vsCurrency = normalizeCurrency(vsCurrency)
	key := cache.BuildKey("detail", coinID, vsCurrency)

	return s.fetch(ctx, key, s.cfg.DetailTTL, func(ctx context.Context) (interface{}, error) {
		detail, err := s.upstream.Detail(ctx, coinID, vsCurrency)
		if err != nil {
			return nil, err
		}
		s.snapshotDetail(detail, vsCurrency)
		return detail, nil
	})
}

func (s *marketService) Search(ctx context.Context, query string) (*domain.MarketEnvelope, error) {
	key := cache.BuildKey("search", strings.ToLower(strings.TrimSpace(query)))
	return s.fetch(ctx, key, s.cfg.SearchTTL, func(ctx context.Context) (interface{}, error) {
		return s.upstream.Search(ctx, query)
	})
}

// CoinExists resolves through the cached detail lookup, so repeated
// existence checks for the same coin cost one upstream call per TTL.
func (s *marketService) CoinExists(ctx context.Context, coinID string) (bool, error) {
	_, err := s.Detail(ctx, coinID, "")
	if err != nil {
		if errors.Is(err, ErrCoinNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// fetch serves key from the cache, collapsing concurrent misses onto a
// single upstream call per key.
func (s *marketService) fetch(ctx context.Context, key string, ttl time.Duration, load func(context.Context) (interface{}, error)) (*domain.MarketEnvelope, error) {
	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		if data, ok := s.cache.Get(ctx, key); ok {
			var payload cachedPayload
			if err := json.Unmarshal(data, &payload); err == nil {
				return &payload, nil
			}
			l := log.Ctx(ctx)
			l.Warn().Str(log.FieldCacheKey, key).Msg("discarding undecodable cache entry")
		}

		value, err := load(ctx)
		if err != nil {
			return nil, err
		}

		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}

		payload := &cachedPayload{
			Data:        raw,
			LastUpdated: time.Now().UTC(),
		}

		if stored, err := json.Marshal(payload); err == nil {
			s.cache.Set(ctx, key, stored, ttl)
		}

		return payload, nil
	})
	if err != nil {
		return nil, err
	}

	payload := result.(*cachedPayload)
	return &domain.MarketEnvelope{
		Data:        payload.Data,
		LastUpdated: payload.LastUpdated,
		CacheExpiry: int(ttl / time.Second),
	}, nil
}

// snapshotMarkets writes observed prices back to durable storage.
// Fire and forget: a failed write only logs.
func (s *marketService) snapshotMarkets(coins []domain.MarketCoin, vsCurrency string) {
	if s.prices == nil || !s.cfg.SnapshotEnabled || len(coins) == 0 {
		return
	}

	snapshots := make([]domain.PriceSnapshotModel, 0, len(coins))
	now := time.Now().UTC()
	for _, coin := range coins {
		snapshots = append(snapshots, domain.PriceSnapshotModel{
			CoinID:     coin.ID,
			VsCurrency: vsCurrency,
			Price:      coin.CurrentPrice,
			ObservedAt: now,
		})
	}

	s.insertSnapshots(snapshots)
}

func (s *marketService) snapshotDetail(detail *domain.CoinDetail, vsCurrency string) {
	if s.prices == nil || !s.cfg.SnapshotEnabled || detail == nil {
		return
	}

	s.insertSnapshots([]domain.PriceSnapshotModel{{
		CoinID:     detail.ID,
		VsCurrency: vsCurrency,
		Price:      detail.CurrentPrice,
		ObservedAt: time.Now().UTC(),
	}})
}

func (s *marketService) insertSnapshots(snapshots []domain.PriceSnapshotModel) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.prices.Insert(ctx, snapshots); err != nil {
			l := log.L()
			l.Warn().Err(err).Int("count", len(snapshots)).Msg("price snapshot write failed")
		}
	}()
}

func normalizeCurrency(vsCurrency string) string {
	vsCurrency = strings.ToLower(strings.TrimSpace(vsCurrency))
	if vsCurrency == "" {
		return "usd"
	}
	return vsCurrency
}
