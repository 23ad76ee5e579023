// Package health tracks whether the dashboard API is reachable.
//
// State is a passive oracle: the request client records every success and
// every network-class failure, and readers get a non-blocking answer.
package health

import (
	"sync"
	"time"
)

// StaleAfter is how long a recorded result is trusted. Older results are
// ignored and the server is assumed reachable until a real request says otherwise.
const StaleAfter = 30 * time.Second

// Status is a point-in-time view of State.
type Status struct {
	Healthy     bool      `json:"healthy"`
	LastChecked time.Time `json:"last_checked"`
}

// State holds the reachability flag and the time it was last written.
// The zero value is not usable; call NewState.
type State struct {
	mu          sync.RWMutex
	healthy     bool
	lastChecked time.Time
	now         func() time.Time
	onChange    func(healthy bool)
}

// Option configures a State.
type Option func(*State)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *State) { s.now = now }
}

// WithOnChange registers a callback fired when the flag flips. It runs
// after the lock is released.
func WithOnChange(fn func(healthy bool)) Option {
	return func(s *State) { s.onChange = fn }
}

// NewState returns an optimistic state: healthy, never checked.
func NewState(opts ...Option) *State {
	s := &State{healthy: true, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MarkHealthy records a successful contact with the server.
func (s *State) MarkHealthy() { s.record(true) }

// MarkUnhealthy records that the server could not be reached.
func (s *State) MarkUnhealthy() { s.record(false) }

func (s *State) record(healthy bool) {
	s.mu.Lock()
	changed := s.healthy != healthy
	s.healthy = healthy
	s.lastChecked = s.now()
	s.mu.Unlock()

	if changed && s.onChange != nil {
		s.onChange(healthy)
	}
}

// IsHealthy never does I/O. A result older than StaleAfter is treated as healthy.
func (s *State) IsHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastChecked.IsZero() || s.now().Sub(s.lastChecked) > StaleAfter {
		return true
	}
	return s.healthy
}

// Snapshot returns the stored flag and timestamp without applying staleness.
func (s *State) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{Healthy: s.healthy, LastChecked: s.lastChecked}
}
