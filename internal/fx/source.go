package fx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/currency"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/metrics"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/storage"
)

// SnapshotStore reads persisted snapshots.
type SnapshotStore interface {
	LatestRateSnapshot(ctx context.Context, base string) (*models.RateSnapshot, error)
}

// CachedSource implements currency.RateSource on top of a Cache and the store.
// Concurrent misses for the same base share one store read.
type CachedSource struct {
	store   SnapshotStore
	cache   Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	group   singleflight.Group
}

var _ currency.RateSource = (*CachedSource)(nil)

// NewCachedSource creates a source. m may be nil.
func NewCachedSource(store SnapshotStore, cache Cache, ttl time.Duration, m *metrics.Metrics) *CachedSource {
	return &CachedSource{store: store, cache: cache, ttl: ttl, metrics: m}
}

// LatestRateSnapshot returns the newest snapshot for base, or
// currency.ErrRateUnavailable when none has been stored.
func (s *CachedSource) LatestRateSnapshot(ctx context.Context, base string) (*models.RateSnapshot, error) {
	cached, err := s.cache.Get(ctx, base)
	if err != nil {
		// A broken cache degrades to store reads.
		slog.Warn("Rate cache read failed", "base", base, "error", err)
	}
	if cached != nil {
		s.metrics.ObserveFXCache(true)
		return cached, nil
	}
	s.metrics.ObserveFXCache(false)

	v, err, _ := s.group.Do(base, func() (any, error) {
		// The load is shared by every waiter on base, so one caller's
		// cancellation must not fail the others.
		ctx := context.WithoutCancel(ctx)
		snapshot, err := s.store.LatestRateSnapshot(ctx, base)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: no snapshot for %s", currency.ErrRateUnavailable, base)
		}
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, snapshot, s.ttl); err != nil {
			slog.Warn("Rate cache write failed", "base", base, "error", err)
		}
		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.RateSnapshot), nil
}

// Put replaces the cached snapshot for its base.
func (s *CachedSource) Put(ctx context.Context, snapshot *models.RateSnapshot) error {
	return s.cache.Set(ctx, snapshot, s.ttl)
}
