// Package clock supplies the time source used for entity timestamps and
// identifiers.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// Func adapts a function to a Clock.
type Func func() time.Time

// Now implements Clock.
func (f Func) Now() time.Time { return f() }

// System is the wall clock, in UTC with the monotonic reading stripped so
// timestamps survive a JSON round trip unchanged.
var System Clock = Func(func() time.Time { return time.Now().UTC() })

// Manual is a settable clock for tests. The zero value reads as the zero time.
//
// Thread-safety: all methods are safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a clock fixed at t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t.UTC()}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t. Moving backwards is allowed; Sequence is what
// guards monotonicity.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t.UTC()
}

// Advance moves the clock forward by d and returns the new time.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

// Sequence issues strictly increasing millisecond stamps derived from a
// Clock. When the clock has not advanced past the last stamp (same
// millisecond, or the clock moved backwards) the previous stamp plus one is
// returned instead.
type Sequence struct {
	mu    sync.Mutex
	clock Clock
	last  int64
}

// NewSequence creates a sequence over c.
func NewSequence(c Clock) *Sequence {
	return &Sequence{clock: c}
}

// Observe raises the floor so later stamps are greater than ms. Stores call
// it with identifiers loaded from persistence.
func (s *Sequence) Observe(ms int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ms > s.last {
		s.last = ms
	}
}

// Next returns the next stamp.
func (s *Sequence) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms := s.clock.Now().UnixMilli()
	if ms <= s.last {
		ms = s.last + 1
	}
	s.last = ms
	return ms
}

// Later returns now, or prev when the clock reads earlier than prev. Used for
// updatedAt fields that must never move backwards.
func Later(now, prev time.Time) time.Time {
	if now.Before(prev) {
		return prev
	}
	return now
}
