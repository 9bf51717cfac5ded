package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/road-event-map/internal/domain"
	"github.com/couchcryptid/road-event-map/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type stubSource struct {
	mu      sync.Mutex
	batches [][]domain.RawEventRecord
	err     error
	calls   int
}

func (s *stubSource) Load(_ context.Context) ([]domain.RawEventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.batches) == 0 {
		return nil, nil
	}
	b := s.batches[0]
	if len(s.batches) > 1 {
		s.batches = s.batches[1:]
	}
	return b, nil
}

func (s *stubSource) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(title string, lat, lon domain.Coordinate) domain.RawEventRecord {
	return domain.RawEventRecord{Title: title, Latitude: lat, Longitude: lon}
}

func mixedRecords() []domain.RawEventRecord {
	return []domain.RawEventRecord{
		record("Highway 1", domain.NumberCoordinate(49.38), domain.NumberCoordinate(-121.44)),
		record("Admin notice", domain.Coordinate{}, domain.Coordinate{}),
		record("Highway 97", domain.NumberCoordinate(math.NaN()), domain.NumberCoordinate(-119.5)),
		record("Highway 5", domain.NumberCoordinate(50.67), domain.NumberCoordinate(-120.33)),
	}
}

// --- tests ---

func TestCatalog_NotReadyBeforeLoad(t *testing.T) {
	c := New(&stubSource{}, discardLogger(), observability.NewMetricsForTesting())

	require.ErrorIs(t, c.CheckReadiness(context.Background()), ErrNoSnapshot)
	_, err := c.Snapshot()
	require.ErrorIs(t, err, ErrNoSnapshot)
	_, err = c.Events()
	require.ErrorIs(t, err, ErrNoSnapshot)
}

func TestCatalog_Refresh(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	c := New(&stubSource{batches: [][]domain.RawEventRecord{mixedRecords()}}, discardLogger(), metrics)

	require.NoError(t, c.Refresh(context.Background()))
	require.NoError(t, c.CheckReadiness(context.Background()))

	snap, err := c.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap.Records, 4)
	assert.Equal(t, int64(1), snap.Version)

	events, err := c.Events()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Highway 1", events[0].Title)
	assert.Equal(t, "Highway 5", events[1].Title)

	assert.InDelta(t, 4, testutil.ToFloat64(metrics.SnapshotRecords), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.DisplayableEvents), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RejectedRecords.WithLabelValues(domain.ReasonMissing)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RejectedRecords.WithLabelValues(domain.ReasonNaN)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SnapshotRefreshes.WithLabelValues("success")), 0)
}

func TestCatalog_FailedRefreshKeepsPreviousSnapshot(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	src := &stubSource{batches: [][]domain.RawEventRecord{mixedRecords()}}
	c := New(src, discardLogger(), metrics)
	require.NoError(t, c.Refresh(context.Background()))

	src.setErr(errors.New("file vanished"))
	err := c.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load snapshot")

	snap, err := c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version)
	assert.Len(t, snap.Records, 4)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.SnapshotRefreshes.WithLabelValues("error")), 0)
}

func TestCatalog_RefreshReplacesSnapshotNotOldSlices(t *testing.T) {
	first := mixedRecords()
	second := []domain.RawEventRecord{
		record("Highway 16", domain.NumberCoordinate(54.0), domain.NumberCoordinate(-128.6)),
	}
	c := New(&stubSource{batches: [][]domain.RawEventRecord{first, second}}, discardLogger(), observability.NewMetricsForTesting())

	require.NoError(t, c.Refresh(context.Background()))
	old, err := c.Snapshot()
	require.NoError(t, err)

	require.NoError(t, c.Refresh(context.Background()))
	cur, err := c.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, int64(2), cur.Version)
	assert.Len(t, cur.Records, 1)
	assert.Len(t, old.Records, 4, "holders of the old snapshot are unaffected")
}

func TestCatalog_EmptySnapshotIsReady(t *testing.T) {
	c := New(&stubSource{batches: [][]domain.RawEventRecord{{}}}, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, c.Refresh(context.Background()))

	require.NoError(t, c.CheckReadiness(context.Background()))
	events, err := c.Events()
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCatalog_StartRefresh(t *testing.T) {
	src := &stubSource{batches: [][]domain.RawEventRecord{mixedRecords()}}
	c := New(src, discardLogger(), observability.NewMetricsForTesting())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop, err := c.StartRefresh(ctx, "@every 1s")
	require.NoError(t, err)
	defer stop()

	assert.Eventually(t, func() bool { return c.CheckReadiness(ctx) == nil }, 5*time.Second, 50*time.Millisecond)
	assert.GreaterOrEqual(t, src.callCount(), 1)
}

func TestCatalog_StartRefreshInvalidSchedule(t *testing.T) {
	c := New(&stubSource{}, discardLogger(), observability.NewMetricsForTesting())

	_, err := c.StartRefresh(context.Background(), "whenever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse refresh schedule")
}
