package market

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinhatch/coinhatch/internal/cache"
	"github.com/coinhatch/coinhatch/internal/config"
	"github.com/coinhatch/coinhatch/internal/domain"
)

// countingUpstream counts calls per operation so cache tests can assert
// how often the provider was actually hit.
type countingUpstream struct {
	trendingCalls atomic.Int32
	marketsCalls  atomic.Int32
	detailCalls   atomic.Int32
	searchCalls   atomic.Int32

	detailErr error
}

func (u *countingUpstream) Trending(context.Context) ([]domain.TrendingCoin, error) {
	u.trendingCalls.Add(1)
	return []domain.TrendingCoin{{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", MarketCapRank: 1}}, nil
}

func (u *countingUpstream) Markets(_ context.Context, ids []string, vsCurrency string, page, perPage int) ([]domain.MarketCoin, error) {
	u.marketsCalls.Add(1)
	return []domain.MarketCoin{{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: 65000}}, nil
}

func (u *countingUpstream) Detail(_ context.Context, coinID, vsCurrency string) (*domain.CoinDetail, error) {
	u.detailCalls.Add(1)
	if u.detailErr != nil {
		return nil, u.detailErr
	}
	return &domain.CoinDetail{ID: coinID, Symbol: "btc", Name: "Bitcoin", CurrentPrice: 65000}, nil
}

func (u *countingUpstream) Search(_ context.Context, query string) ([]domain.SearchResult, error) {
	u.searchCalls.Add(1)
	return []domain.SearchResult{{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin"}}, nil
}

// recordingPriceRepo captures snapshot writes.
type recordingPriceRepo struct {
	mu        sync.Mutex
	snapshots []domain.PriceSnapshotModel
	inserted  chan struct{}
}

func newRecordingPriceRepo() *recordingPriceRepo {
	return &recordingPriceRepo{inserted: make(chan struct{}, 16)}
}

func (r *recordingPriceRepo) Insert(_ context.Context, snapshots []domain.PriceSnapshotModel) error {
	r.mu.Lock()
	r.snapshots = append(r.snapshots, snapshots...)
	r.mu.Unlock()
	r.inserted <- struct{}{}
	return nil
}

func (r *recordingPriceRepo) waitForInsert(t *testing.T) {
	t.Helper()
	select {
	case <-r.inserted:
	case <-time.After(time.Second):
		t.Fatal("no snapshot write happened")
	}
}

func testMarketConfig() config.MarketConfig {
	return config.MarketConfig{
		TrendingTTL:     5 * time.Minute,
		MarketsTTL:      time.Minute,
		DetailTTL:       2 * time.Minute,
		SearchTTL:       5 * time.Minute,
		SnapshotEnabled: true,
	}
}

func TestTrendingSecondCallServedFromCache(t *testing.T) {
	upstream := &countingUpstream{}
	svc := NewMarketService(upstream, cache.NewMemoryCache(0), nil, testMarketConfig())
	ctx := context.Background()

	first, err := svc.Trending(ctx)
	require.NoError(t, err)

	second, err := svc.Trending(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(1), upstream.trendingCalls.Load(), "second call must not reach the upstream")
	assert.Equal(t, first.LastUpdated, second.LastUpdated, "cached responses share the original fetch time")
	assert.Equal(t, int((5 * time.Minute).Seconds()), second.CacheExpiry)

	var coins []domain.TrendingCoin
	raw, err := json.Marshal(second.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &coins))
	require.Len(t, coins, 1)
	assert.Equal(t, "bitcoin", coins[0].ID)
}

func TestMarketsDistinctParamsDistinctEntries(t *testing.T) {
	upstream := &countingUpstream{}
	svc := NewMarketService(upstream, cache.NewMemoryCache(0), nil, testMarketConfig())
	ctx := context.Background()

	_, err := svc.Markets(ctx, nil, "usd", 1, 10)
	require.NoError(t, err)
	_, err = svc.Markets(ctx, nil, "eur", 1, 10)
	require.NoError(t, err)
	_, err = svc.Markets(ctx, nil, "usd", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(3), upstream.marketsCalls.Load(), "distinct parameters must not share a cache entry")

	_, err = svc.Markets(ctx, nil, "usd", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(3), upstream.marketsCalls.Load(), "identical parameters must share one")
}

func TestDetailCurrencyDefaultsToUSD(t *testing.T) {
	upstream := &countingUpstream{}
	svc := NewMarketService(upstream, cache.NewMemoryCache(0), nil, testMarketConfig())
	ctx := context.Background()

	_, err := svc.Detail(ctx, "bitcoin", "")
	require.NoError(t, err)
	_, err = svc.Detail(ctx, "bitcoin", "usd")
	require.NoError(t, err)

	assert.Equal(t, int32(1), upstream.detailCalls.Load(), "blank currency and usd are the same entry")
}

func TestConcurrentMissesCollapseOntoOneCall(t *testing.T) {
	upstream := &countingUpstream{}
	svc := NewMarketService(upstream, cache.NewMemoryCache(0), nil, testMarketConfig())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Trending(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), upstream.trendingCalls.Load())
}

func TestUpstreamErrorIsNotCached(t *testing.T) {
	upstream := &countingUpstream{detailErr: ErrUpstream}
	svc := NewMarketService(upstream, cache.NewMemoryCache(0), nil, testMarketConfig())
	ctx := context.Background()

	_, err := svc.Detail(ctx, "bitcoin", "usd")
	require.ErrorIs(t, err, ErrUpstream)

	// Once the upstream recovers the next call goes through.
	upstream.detailErr = nil
	_, err = svc.Detail(ctx, "bitcoin", "usd")
	require.NoError(t, err)
	assert.Equal(t, int32(2), upstream.detailCalls.Load())
}

func TestCoinExists(t *testing.T) {
	upstream := &countingUpstream{}
	svc := NewMarketService(upstream, cache.NewMemoryCache(0), nil, testMarketConfig())
	ctx := context.Background()

	exists, err := svc.CoinExists(ctx, "bitcoin")
	require.NoError(t, err)
	assert.True(t, exists)

	// Existence rides the detail cache.
	exists, err = svc.CoinExists(ctx, "bitcoin")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int32(1), upstream.detailCalls.Load())
}

func TestCoinExistsUnknownCoin(t *testing.T) {
	upstream := &countingUpstream{detailErr: ErrCoinNotFound}
	svc := NewMarketService(upstream, cache.NewMemoryCache(0), nil, testMarketConfig())

	exists, err := svc.CoinExists(context.Background(), "dogelonmoon")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMarketsWriteBackPriceSnapshots(t *testing.T) {
	upstream := &countingUpstream{}
	prices := newRecordingPriceRepo()
	svc := NewMarketService(upstream, cache.NewMemoryCache(0), prices, testMarketConfig())

	_, err := svc.Markets(context.Background(), nil, "usd", 1, 10)
	require.NoError(t, err)

	prices.waitForInsert(t)
	prices.mu.Lock()
	defer prices.mu.Unlock()
	require.Len(t, prices.snapshots, 1)
	assert.Equal(t, "bitcoin", prices.snapshots[0].CoinID)
	assert.Equal(t, "usd", prices.snapshots[0].VsCurrency)
	assert.Equal(t, 65000.0, prices.snapshots[0].Price)
}

func TestSnapshotsDisabledByConfig(t *testing.T) {
	upstream := &countingUpstream{}
	prices := newRecordingPriceRepo()
	cfg := testMarketConfig()
	cfg.SnapshotEnabled = false
	svc := NewMarketService(upstream, cache.NewMemoryCache(0), prices, cfg)

	_, err := svc.Markets(context.Background(), nil, "usd", 1, 10)
	require.NoError(t, err)

	select {
	case <-prices.inserted:
		t.Fatal("snapshot write happened with snapshots disabled")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSearchCachesByNormalizedQuery(t *testing.T) {
	upstream := &countingUpstream{}
	svc := NewMarketService(upstream, cache.NewMemoryCache(0), nil, testMarketConfig())
	ctx := context.Background()

	_, err := svc.Search(ctx, "Bitcoin")
	require.NoError(t, err)
	_, err = svc.Search(ctx, "  bitcoin ")
	require.NoError(t, err)

	assert.Equal(t, int32(1), upstream.searchCalls.Load(), "case and surrounding space do not change the query")
}
