package fx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/currency"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/metrics"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/storage"
)

type countingStore struct {
	calls     atomic.Int32
	release   chan struct{}
	snapshots map[string]*models.RateSnapshot
}

func (s *countingStore) LatestRateSnapshot(_ context.Context, base string) (*models.RateSnapshot, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	snapshot, ok := s.snapshots[base]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, base)
	}
	return snapshot, nil
}

// missCache never holds anything, so every lookup reaches the store.
type missCache struct {
	gets sync.WaitGroup
}

func (c *missCache) Get(context.Context, string) (*models.RateSnapshot, error) {
	c.gets.Done()
	return nil, nil
}
func (c *missCache) Set(context.Context, *models.RateSnapshot, time.Duration) error { return nil }
func (c *missCache) Delete(context.Context, string) error                         { return nil }

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) (*models.RateSnapshot, error) {
	return nil, errors.New("connection refused")
}
func (brokenCache) Set(context.Context, *models.RateSnapshot, time.Duration) error {
	return errors.New("connection refused")
}
func (brokenCache) Delete(context.Context, string) error { return errors.New("connection refused") }

func TestCachedSource_FillsCache(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{snapshots: map[string]*models.RateSnapshot{"INR": testSnapshot("INR")}}
	m := metrics.New(prometheus.NewRegistry())
	source := NewCachedSource(store, NewMemoryCache(), time.Minute, m)

	for range 3 {
		got, err := source.LatestRateSnapshot(ctx, "INR")
		require.NoError(t, err)
		assert.Equal(t, "snap-INR", got.ID)
	}

	assert.Equal(t, int32(1), store.calls.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FXCacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FXCacheLookups.WithLabelValues("miss")))
}

func TestCachedSource_MissingSnapshot(t *testing.T) {
	store := &countingStore{snapshots: map[string]*models.RateSnapshot{}}
	source := NewCachedSource(store, NewMemoryCache(), time.Minute, nil)

	_, err := source.LatestRateSnapshot(context.Background(), "JPY")
	assert.ErrorIs(t, err, currency.ErrRateUnavailable)
}

func TestCachedSource_BrokenCacheFallsBackToStore(t *testing.T) {
	store := &countingStore{snapshots: map[string]*models.RateSnapshot{"INR": testSnapshot("INR")}}
	source := NewCachedSource(store, brokenCache{}, time.Minute, nil)

	got, err := source.LatestRateSnapshot(context.Background(), "INR")
	require.NoError(t, err)
	assert.Equal(t, "INR", got.Base)
}

func TestCachedSource_SharesConcurrentStoreReads(t *testing.T) {
	const n = 10

	store := &countingStore{
		release:   make(chan struct{}),
		snapshots: map[string]*models.RateSnapshot{"INR": testSnapshot("INR")},
	}
	cache := &missCache{}
	cache.gets.Add(n)
	source := NewCachedSource(store, cache, time.Minute, nil)

	var wg sync.WaitGroup
	results := make([]*models.RateSnapshot, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := source.LatestRateSnapshot(context.Background(), "INR")
			assert.NoError(t, err)
			results[i] = got
		}()
	}

	cache.gets.Wait()
	time.Sleep(50 * time.Millisecond)
	close(store.release)
	wg.Wait()

	assert.Less(t, store.calls.Load(), int32(n))
	for _, got := range results {
		require.NotNil(t, got)
		assert.Equal(t, "snap-INR", got.ID)
	}
}

func TestCachedSource_Put(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{snapshots: map[string]*models.RateSnapshot{}}
	source := NewCachedSource(store, NewMemoryCache(), time.Minute, nil)

	require.NoError(t, source.Put(ctx, testSnapshot("EUR")))

	got, err := source.LatestRateSnapshot(ctx, "EUR")
	require.NoError(t, err)
	assert.Equal(t, "snap-EUR", got.ID)
	assert.Zero(t, store.calls.Load())
}

// ctxStore fails reads whose context is already done.
type ctxStore struct {
	snapshot *models.RateSnapshot
}

func (s ctxStore) LatestRateSnapshot(ctx context.Context, _ string) (*models.RateSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.snapshot, nil
}

func TestCachedSource_SharedLoadIgnoresCallerCancellation(t *testing.T) {
	source := NewCachedSource(ctxStore{snapshot: testSnapshot("INR")}, NewMemoryCache(), time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := source.LatestRateSnapshot(ctx, "INR")
	require.NoError(t, err)
	assert.Equal(t, "snap-INR", got.ID)

	cached, err := source.LatestRateSnapshot(context.Background(), "INR")
	require.NoError(t, err)
	assert.Same(t, got, cached)
}
