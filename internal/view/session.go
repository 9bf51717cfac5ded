package view

import (
	"errors"
	"sync"
	"time"

	"github.com/couchcryptid/road-event-map/internal/domain"
)

var (
	// ErrUnknownEvent is returned when a selection names an event the
	// session does not display.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrSessionClosed is returned by operations on an unmounted session.
	ErrSessionClosed = errors.New("session unmounted")
)

// Session is the state of one mounted view: the displayable events, the
// shared selection and the current layout.
type Session struct {
	id              string
	snapshotVersion int64
	monitor         *Monitor

	mu          sync.Mutex
	events      []domain.Event
	byID        map[string]int
	selected    *domain.Event
	viewport    domain.ViewportSignal
	layout      domain.Layout
	unsubscribe func()
	mounted     bool
	lastSeen    time.Time
}

// Mount filters records once, subscribes to monitor for resize signals and
// applies the initial viewport.
func Mount(id string, records []domain.RawEventRecord, monitor *Monitor, initial domain.ViewportSignal) *Session {
	events := domain.FilterDisplayable(records)
	byID := make(map[string]int, len(events))
	for i, ev := range events {
		byID[ev.ID] = i
	}

	s := &Session{
		id:      id,
		monitor: monitor,
		events:  events,
		byID:    byID,
		mounted: true,
	}
	s.applyViewport(initial)
	s.unsubscribe = monitor.Subscribe(s.applyViewport)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// SnapshotVersion is the catalog version the session mounted with.
func (s *Session) SnapshotVersion() int64 { return s.snapshotVersion }

// Monitor returns the viewport monitor the session listens to.
func (s *Session) Monitor() *Monitor { return s.monitor }

func (s *Session) applyViewport(sig domain.ViewportSignal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.mounted {
		return
	}
	s.viewport = sig
	s.layout = domain.DecideLayout(sig)
}

// Select makes the event with the given ID the selection. Selecting the
// current selection again keeps it selected.
func (s *Session) Select(eventID string) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mounted {
		return domain.Event{}, ErrSessionClosed
	}
	i, ok := s.byID[eventID]
	if !ok {
		return domain.Event{}, ErrUnknownEvent
	}
	s.selected = &s.events[i]
	return *s.selected, nil
}

// Selected returns the current selection, if any.
func (s *Session) Selected() (domain.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return domain.Event{}, false
	}
	return *s.selected, true
}

// Events returns the displayable events in source order.
func (s *Session) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Layout returns the layout derived from the latest viewport signal.
func (s *Session) Layout() domain.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}

// Viewport returns the latest viewport signal.
func (s *Session) Viewport() domain.ViewportSignal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// Mounted reports whether the session is still live.
func (s *Session) Mounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted
}

// Unmount releases the resize subscription. Later calls are no-ops.
func (s *Session) Unmount() {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}
	s.mounted = false
	unsubscribe := s.unsubscribe
	s.mu.Unlock()

	unsubscribe()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// frame is a consistent copy of the session state for rendering.
type frame struct {
	events   []domain.Event
	selected *domain.Event
	layout   domain.Layout
}

func (s *Session) frame() frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return frame{events: s.events, selected: s.selected, layout: s.layout}
}
