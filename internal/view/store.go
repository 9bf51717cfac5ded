package view

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/road-event-map/internal/catalog"
	"github.com/couchcryptid/road-event-map/internal/config"
	"github.com/couchcryptid/road-event-map/internal/domain"
	"github.com/couchcryptid/road-event-map/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Selection origins, used as metric labels.
const (
	OriginSidebar = "sidebar"
	OriginMarker  = "marker"
)

// SnapshotProvider supplies the records a new session mounts with.
type SnapshotProvider interface {
	Snapshot() (*catalog.Snapshot, error)
}

// StoreConfig holds the Store dependencies.
type StoreConfig struct {
	Snapshots   SnapshotProvider
	Highlighter Highlighter
	Profile     config.MapProfile
	TTL         time.Duration
	Clock       clockwork.Clock
	Logger      *slog.Logger
	Metrics     *observability.Metrics
}

// Store owns the mounted sessions and unmounts the ones left idle past TTL.
type Store struct {
	snapshots   SnapshotProvider
	highlighter Highlighter
	profile     config.MapProfile
	ttl         time.Duration
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *observability.Metrics

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty Store. A nil Clock means the real clock and a nil
// Highlighter means domain.Highlight.
func NewStore(cfg StoreConfig) *Store {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Highlighter == nil {
		cfg.Highlighter = HighlightFunc(domain.Highlight)
	}
	return &Store{
		snapshots:   cfg.Snapshots,
		highlighter: cfg.Highlighter,
		profile:     cfg.Profile,
		ttl:         cfg.TTL,
		clock:       cfg.Clock,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		sessions:    make(map[string]*Session),
	}
}

// Mount starts a session against the current snapshot.
func (st *Store) Mount(initial domain.ViewportSignal) (*Session, error) {
	snap, err := st.snapshots.Snapshot()
	if err != nil {
		return nil, err
	}

	s := Mount(uuid.NewString(), snap.Records, NewMonitor(), initial)
	s.snapshotVersion = snap.Version
	s.touch(st.clock.Now())

	st.mu.Lock()
	st.sessions[s.ID()] = s
	active := len(st.sessions)
	st.mu.Unlock()

	st.metrics.SessionsMounted.Inc()
	st.metrics.ActiveSessions.Set(float64(active))
	st.metrics.ViewportUpdates.WithLabelValues(s.Layout().Mode.String()).Inc()
	st.logger.Debug("session mounted",
		"session_id", s.ID(),
		"snapshot_version", snap.Version,
		"events", len(s.Events()),
		"layout", s.Layout().Mode.String(),
	)
	return s, nil
}

// Get returns a live session and marks it as recently used.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(st.clock.Now())
	return s, nil
}

// State renders the session.
func (st *Store) State(id string) (RenderState, error) {
	s, err := st.Get(id)
	if err != nil {
		return RenderState{}, err
	}
	return BuildState(s, st.highlighter, st.profile), nil
}

// Select sets the session's selection from either view.
func (st *Store) Select(id, eventID, origin string) (RenderState, error) {
	s, err := st.Get(id)
	if err != nil {
		return RenderState{}, err
	}
	if _, err := s.Select(eventID); err != nil {
		return RenderState{}, err
	}
	if origin != OriginMarker {
		origin = OriginSidebar
	}
	st.metrics.Selections.WithLabelValues(origin).Inc()
	return BuildState(s, st.highlighter, st.profile), nil
}

// Resize publishes a viewport signal to the session's monitor.
func (st *Store) Resize(id string, sig domain.ViewportSignal) (domain.Layout, error) {
	s, err := st.Get(id)
	if err != nil {
		return domain.Layout{}, err
	}
	s.Monitor().Publish(sig)
	layout := s.Layout()
	st.metrics.ViewportUpdates.WithLabelValues(layout.Mode.String()).Inc()
	return layout, nil
}

// Unmount tears a session down.
func (st *Store) Unmount(id string) error {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	active := len(st.sessions)
	st.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.Unmount()
	st.metrics.SessionsUnmounted.WithLabelValues("explicit").Inc()
	st.metrics.ActiveSessions.Set(float64(active))
	st.logger.Debug("session unmounted", "session_id", id)
	return nil
}

// Sweep unmounts sessions idle for longer than the TTL and returns how many
// it removed.
func (st *Store) Sweep() int {
	cutoff := st.clock.Now().Add(-st.ttl)

	st.mu.Lock()
	var expired []*Session
	for id, s := range st.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	active := len(st.sessions)
	st.mu.Unlock()

	for _, s := range expired {
		s.Unmount()
	}
	if len(expired) > 0 {
		st.metrics.SessionsUnmounted.WithLabelValues("expired").Add(float64(len(expired)))
		st.metrics.ActiveSessions.Set(float64(active))
		st.logger.Info("expired idle sessions", "count", len(expired), "active", active)
	}
	return len(expired)
}

// Len reports the number of mounted sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Run sweeps on an interval of half the TTL until ctx is cancelled, then
// unmounts whatever is left.
func (st *Store) Run(ctx context.Context) {
	interval := st.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := st.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			st.closeAll()
			return
		case <-ticker.Chan():
			st.Sweep()
		}
	}
}

func (st *Store) closeAll() {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()

	for _, s := range sessions {
		s.Unmount()
	}
	st.metrics.ActiveSessions.Set(0)
}
