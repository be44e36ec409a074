package fx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/metrics"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
)

// SnapshotWriter persists fetched snapshots.
type SnapshotWriter interface {
	SaveRateSnapshot(ctx context.Context, snapshot *models.RateSnapshot) error
}

// Syncer periodically fetches snapshots for a fixed set of base currencies.
type Syncer struct {
	provider Provider
	store    SnapshotWriter
	source   *CachedSource
	bases    []string
	interval time.Duration
	metrics  *metrics.Metrics
}

// NewSyncer creates a syncer. source, when non-nil, is refreshed with every
// saved snapshot. m may be nil.
func NewSyncer(provider Provider, store SnapshotWriter, source *CachedSource, bases []string, interval time.Duration, m *metrics.Metrics) *Syncer {
	return &Syncer{
		provider: provider,
		store:    store,
		source:   source,
		bases:    bases,
		interval: interval,
		metrics:  m,
	}
}

// Run syncs once immediately and then every interval until ctx is done.
// Sync failures are logged; Run only returns on cancellation.
func (s *Syncer) Run(ctx context.Context) {
	s.syncLogged(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("FX syncer stopped")
			return
		case <-ticker.C:
			s.syncLogged(ctx)
		}
	}
}

func (s *Syncer) syncLogged(ctx context.Context) {
	if err := s.SyncOnce(ctx); err != nil {
		slog.Error("FX sync failed", "error", err)
	}
}

// SyncOnce fetches and stores a snapshot for every base. A failing base does
// not stop the others; all failures are returned joined.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	var errs []error
	for _, base := range s.bases {
		err := s.syncBase(ctx, base)
		s.metrics.ObserveFXSync(base, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", base, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Syncer) syncBase(ctx context.Context, base string) error {
	snapshot, err := s.provider.Fetch(ctx, base)
	if err != nil {
		return err
	}

	if err := s.store.SaveRateSnapshot(ctx, snapshot); err != nil {
		return err
	}

	if s.source != nil {
		if err := s.source.Put(ctx, snapshot); err != nil {
			slog.Warn("Failed to refresh rate cache", "base", base, "error", err)
		}
	}

	slog.Info("FX snapshot saved", "base", base, "provider", snapshot.Provider, "rates", len(snapshot.Rates))
	return nil
}
