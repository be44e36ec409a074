package fx

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mehulsingh1010/travelBud-sub000/internal/metrics"
	"github.com/Mehulsingh1010/travelBud-sub000/internal/models"
)

type fakeProvider struct {
	failing map[string]bool
}

func (p *fakeProvider) Fetch(_ context.Context, base string) (*models.RateSnapshot, error) {
	if p.failing[base] {
		return nil, errors.New("provider down")
	}
	return testSnapshot(base), nil
}

type recordingWriter struct {
	mu    sync.Mutex
	saved []string
}

func (w *recordingWriter) SaveRateSnapshot(_ context.Context, snapshot *models.RateSnapshot) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.saved = append(w.saved, snapshot.Base)
	return nil
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.saved)
}

func TestSyncer_SyncOnce(t *testing.T) {
	ctx := context.Background()
	writer := &recordingWriter{}
	m := metrics.New(prometheus.NewRegistry())
	source := NewCachedSource(&countingStore{}, NewMemoryCache(), time.Minute, nil)

	syncer := NewSyncer(
		&fakeProvider{failing: map[string]bool{"USD": true}},
		writer, source, []string{"INR", "USD", "EUR"}, time.Hour, m,
	)

	err := syncer.SyncOnce(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "USD")

	assert.Equal(t, []string{"INR", "EUR"}, writer.saved)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FXSyncs.WithLabelValues("INR", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FXSyncs.WithLabelValues("USD", "error")))

	cached, err := source.LatestRateSnapshot(ctx, "EUR")
	require.NoError(t, err)
	assert.Equal(t, "snap-EUR", cached.ID)
}

func TestSyncer_RunStopsOnCancel(t *testing.T) {
	writer := &recordingWriter{}
	syncer := NewSyncer(&fakeProvider{}, writer, nil, []string{"INR"}, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		syncer.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return writer.count() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
