package view

import (
	"sync"

	"github.com/couchcryptid/road-event-map/internal/domain"
)

// Monitor fans viewport signals out to its subscribers. Delivery is
// synchronous and undebounced: Publish returns after every subscriber ran.
type Monitor struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(domain.ViewportSignal)
	last   domain.ViewportSignal
	seen   bool
}

// NewMonitor creates a Monitor with no subscribers.
func NewMonitor() *Monitor {
	return &Monitor{subs: make(map[int]func(domain.ViewportSignal))}
}

// Subscribe registers fn for every later Publish. The returned function
// removes the subscription and is safe to call more than once.
func (m *Monitor) Subscribe(fn func(domain.ViewportSignal)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Publish delivers sig to every current subscriber. Subscribers run without
// the monitor lock held, so they may unsubscribe themselves.
func (m *Monitor) Publish(sig domain.ViewportSignal) {
	m.mu.Lock()
	m.last = sig
	m.seen = true
	fns := make([]func(domain.ViewportSignal), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(sig)
	}
}

// Last returns the most recently published signal.
func (m *Monitor) Last() (domain.ViewportSignal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.seen
}

// Subscribers reports how many listeners are registered.
func (m *Monitor) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
