package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/road-event-map/internal/domain"
	"github.com/couchcryptid/road-event-map/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
)

// ErrNoSnapshot is returned before the first successful load.
var ErrNoSnapshot = errors.New("no event snapshot loaded yet")

// Source produces the raw event records of one snapshot.
type Source interface {
	Load(ctx context.Context) ([]domain.RawEventRecord, error)
}

// Snapshot is an immutable set of records. Sessions keep the snapshot they
// mounted with even after the catalog moves on.
type Snapshot struct {
	Records []domain.RawEventRecord
	Version int64
}

// Catalog holds the current snapshot and reloads it on demand or on a schedule.
type Catalog struct {
	source  Source
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock

	current atomic.Pointer[Snapshot]
	version atomic.Int64

	// Serializes loads so a slow scheduled refresh cannot race a manual one.
	loadMu sync.Mutex
}

// New creates a Catalog. Nothing is loaded until Refresh is called.
func New(source Source, logger *slog.Logger, metrics *observability.Metrics) *Catalog {
	return &Catalog{
		source:  source,
		logger:  logger,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
	}
}

// Refresh loads a new snapshot. On failure the previous snapshot stays in place.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	start := c.clock.Now()
	records, err := c.source.Load(ctx)
	if err != nil {
		c.metrics.SnapshotRefreshes.WithLabelValues("error").Inc()
		return fmt.Errorf("load snapshot: %w", err)
	}

	events, rejected := domain.ParseRecords(records)
	for _, r := range rejected {
		c.metrics.RejectedRecords.WithLabelValues(r.Reason).Inc()
		c.logger.Debug("record not displayable", "index", r.Index, "field", r.Field, "reason", r.Reason)
	}

	snap := &Snapshot{Records: records, Version: c.version.Add(1)}
	c.current.Store(snap)

	c.metrics.SnapshotRecords.Set(float64(len(records)))
	c.metrics.DisplayableEvents.Set(float64(len(events)))
	c.metrics.SnapshotRefreshes.WithLabelValues("success").Inc()

	c.logger.Info("event snapshot loaded",
		"version", snap.Version,
		"records", len(records),
		"displayable", len(events),
		"rejected", len(rejected),
		"duration", c.clock.Since(start),
	)
	return nil
}

// Snapshot returns the current snapshot.
func (c *Catalog) Snapshot() (*Snapshot, error) {
	snap := c.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

// Events returns the displayable events of the current snapshot.
func (c *Catalog) Events() ([]domain.Event, error) {
	snap, err := c.Snapshot()
	if err != nil {
		return nil, err
	}
	return domain.FilterDisplayable(snap.Records), nil
}

// CheckReadiness reports ready once a snapshot has been loaded.
func (c *Catalog) CheckReadiness(_ context.Context) error {
	if c.current.Load() == nil {
		return ErrNoSnapshot
	}
	return nil
}

// StartRefresh reloads the snapshot on a standard cron schedule until ctx is
// cancelled. The returned function stops the scheduler and waits for a
// running refresh to finish.
func (c *Catalog) StartRefresh(ctx context.Context, schedule string) (func(), error) {
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("parse refresh schedule: %w", err)
	}

	cr := cron.New()
	cr.Schedule(sched, cron.FuncJob(func() {
		if err := c.Refresh(ctx); err != nil {
			c.logger.Warn("scheduled snapshot refresh failed, keeping previous snapshot", "error", err)
		}
	}))
	cr.Start()
	c.logger.Info("snapshot refresh scheduled", "schedule", schedule)

	var once sync.Once
	stop := func() {
		once.Do(func() { <-cr.Stop().Done() })
	}
	go func() {
		<-ctx.Done()
		stop()
	}()
	return stop, nil
}
