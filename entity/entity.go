// Package entity implements the write-through store every storefront
// collection is built on.
//
// A Store[S] owns one value of state S (usually a slice of records) and one
// key on the durable medium. Mutations run under a lock that spans
// read-modify-write-persist; the new state is written to the medium before
// Mutate returns, then every observer receives a copy of it.
//
// Observers may read the store and may even mutate it while being notified.
// Such a nested mutation is applied and persisted at once, but its
// notification is queued behind the round in progress, so observers see
// snapshots in mutation order and nothing recurses.
package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/stevemurr/storefront/fault"
	"github.com/stevemurr/storefront/store"
)

// Config describes how a state value is defaulted, copied and stored.
type Config[S any] struct {
	// Key is the durable key, e.g. "cart".
	Key string
	// Default builds the state used when the key is absent or unreadable.
	Default func() S
	// Clone returns a deep copy. Snapshots handed out are always clones.
	Clone func(S) S
	// Vacant reports states that are stored by deleting the key instead of
	// writing it. Optional.
	Vacant func(S) bool

	Logger          *slog.Logger
	Instrumentation Instrumentation
}

// Observer receives the state after each mutation. It must not block for long:
// the mutating goroutine delivers notifications.
type Observer[S any] func(S)

type subscription[S any] struct {
	id uint64
	fn Observer[S]
}

// Store is a persisted, observable state value. Safe for concurrent use.
type Store[S any] struct {
	medium store.Store
	cfg    Config[S]
	log    *slog.Logger
	inst   Instrumentation

	// mu serializes mutations, including the durable write.
	mu     sync.Mutex
	state  S
	loaded bool // set once by Open

	subMu  sync.Mutex
	subs   []subscription[S]
	nextID uint64

	// queue holds snapshots awaiting delivery; draining marks an active
	// deliverer.
	queueMu  sync.Mutex
	queue    []S
	draining bool
}

// Open loads cfg.Key from medium. A missing key or a stored null yields
// cfg.Default(); an unreadable or corrupt one does too, after a warning is logged. Open never
// fails.
func Open[S any](medium store.Store, cfg Config[S]) *Store[S] {
	if cfg.Clone == nil {
		cfg.Clone = func(s S) S { return s }
	}
	if cfg.Default == nil {
		cfg.Default = func() S { var zero S; return zero }
	}
	s := &Store[S]{
		medium: medium,
		cfg:    cfg,
		log:    cfg.Logger,
		inst:   cfg.Instrumentation,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With("key", cfg.Key)
	if s.inst == nil {
		s.inst = Nop{}
	}
	s.state, s.loaded = s.load()
	return s
}

func (s *Store[S]) load() (S, bool) {
	raw, err := s.medium.Get(s.cfg.Key)
	if err != nil {
		s.log.Warn("read failed, using default", "err", err)
		return s.cfg.Default(), false
	}
	// A stored null is treated like a missing key.
	if raw == nil || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return s.cfg.Default(), false
	}
	var v S
	if err := json.Unmarshal(raw, &v); err != nil {
		s.log.Warn("corrupt value, using default", "err", err)
		return s.cfg.Default(), false
	}
	return v, true
}

// Key returns the durable key.
func (s *Store[S]) Key() string {
	return s.cfg.Key
}

// Loaded reports whether Open found a readable value on the medium.
func (s *Store[S]) Loaded() bool {
	return s.loaded
}

// Snapshot returns a copy of the current state.
func (s *Store[S]) Snapshot() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone(s.state)
}

// Mutate applies fn to a copy of the state. If fn fails nothing changes and
// its error is returned as is. Otherwise the result becomes the state, is
// persisted and is broadcast to observers.
//
// A failed durable write does not roll the state back: memory stays
// authoritative for the life of the process, observers are still notified,
// and the returned error has kind fault.KindPersistence.
func (s *Store[S]) Mutate(op string, fn func(S) (S, error)) (err error) {
	done := s.inst.Begin(s.cfg.Key, op)
	defer func() { done(err) }()

	s.mu.Lock()
	next, err := fn(s.cfg.Clone(s.state))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	perr := s.persist(next)
	// Enqueue under mu so delivery order matches mutation order.
	s.enqueue(s.cfg.Clone(next))
	s.mu.Unlock()

	s.drain()

	if perr != nil {
		s.log.Error("persist failed", "op", op, "err", perr)
		return fault.Persistence(op, s.cfg.Key, perr)
	}
	return nil
}

func (s *Store[S]) persist(v S) error {
	if s.cfg.Vacant != nil && s.cfg.Vacant(v) {
		_, err := s.medium.Delete(s.cfg.Key)
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return s.medium.Put(s.cfg.Key, data)
}

// Subscribe registers fn and returns a function that removes it. The
// returned function is idempotent.
func (s *Store[S]) Subscribe(fn Observer[S]) (unsubscribe func()) {
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription[S]{id: id, fn: fn})
	n := len(s.subs)
	s.subMu.Unlock()
	s.inst.Observers(s.cfg.Key, n)

	return func() {
		s.subMu.Lock()
		removed := false
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				removed = true
				break
			}
		}
		n := len(s.subs)
		s.subMu.Unlock()
		if removed {
			s.inst.Observers(s.cfg.Key, n)
		}
	}
}

// Observers returns the number of registered observers.
func (s *Store[S]) Observers() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subs)
}

func (s *Store[S]) observers() []Observer[S] {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	out := make([]Observer[S], len(s.subs))
	for i, sub := range s.subs {
		out[i] = sub.fn
	}
	return out
}

func (s *Store[S]) enqueue(v S) {
	s.queueMu.Lock()
	s.queue = append(s.queue, v)
	s.queueMu.Unlock()
}

// drain delivers queued snapshots until the queue is empty. If another call
// is already delivering (an observer mutating the store, or a concurrent
// mutation) it returns at once and the active deliverer picks the snapshot up.
func (s *Store[S]) drain() {
	s.queueMu.Lock()
	if s.draining {
		s.queueMu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 {
		next := s.queue[0]
		var zero S
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.queueMu.Unlock()

		for _, fn := range s.observers() {
			s.notify(fn, s.cfg.Clone(next))
		}

		s.queueMu.Lock()
	}
	s.queue = nil
	s.draining = false
	s.queueMu.Unlock()
}

func (s *Store[S]) notify(fn Observer[S], v S) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("observer panicked", "panic", r)
		}
	}()
	fn(v)
}
