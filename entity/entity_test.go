package entity_test

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/storefront/entity"
	"github.com/stevemurr/storefront/fault"
	"github.com/stevemurr/storefront/store"
)

func names(medium store.Store, opts ...func(*entity.Config[[]string])) *entity.Store[[]string] {
	cfg := entity.Config[[]string]{
		Key:     "names",
		Default: func() []string { return []string{} },
		Clone:   func(v []string) []string { return slices.Clone(v) },
	}
	for _, o := range opts {
		o(&cfg)
	}
	return entity.Open(medium, cfg)
}

func appendName(n string) func([]string) ([]string, error) {
	return func(s []string) ([]string, error) { return append(s, n), nil }
}

func TestOpenMissingKeyUsesDefault(t *testing.T) {
	s := names(store.NewMemoryStore())
	assert.Equal(t, []string{}, s.Snapshot())
	assert.False(t, s.Loaded())
	assert.Equal(t, "names", s.Key())
}

func TestOpenCorruptValueUsesDefault(t *testing.T) {
	medium := store.NewMemoryStore()
	require.NoError(t, medium.Put("names", []byte("{not json")))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	s := names(medium, func(c *entity.Config[[]string]) { c.Logger = logger })

	assert.Equal(t, []string{}, s.Snapshot())
	assert.False(t, s.Loaded())
	assert.Contains(t, logs.String(), "corrupt value")
	assert.Contains(t, logs.String(), "key=names")
}

func TestOpenStoredNullUsesDefault(t *testing.T) {
	medium := store.NewMemoryStore()
	require.NoError(t, medium.Put("names", []byte(" null\n")))

	s := names(medium)
	assert.NotNil(t, s.Snapshot())
	assert.Equal(t, []string{}, s.Snapshot())
	assert.False(t, s.Loaded())
}

func TestMutateWritesThrough(t *testing.T) {
	medium := store.NewMemoryStore()
	s := names(medium)

	require.NoError(t, s.Mutate("add", appendName("ada")))

	raw, err := medium.Get("names")
	require.NoError(t, err)
	assert.JSONEq(t, `["ada"]`, string(raw))
}

func TestReopenRoundTrip(t *testing.T) {
	medium := store.NewMemoryStore()
	s := names(medium)
	require.NoError(t, s.Mutate("add", appendName("ada")))
	require.NoError(t, s.Mutate("add", appendName("grace")))

	again := names(medium)
	assert.True(t, again.Loaded())
	assert.Equal(t, s.Snapshot(), again.Snapshot())
}

func TestMutateErrorLeavesStateUntouched(t *testing.T) {
	medium := store.NewMemoryStore()
	s := names(medium)
	require.NoError(t, s.Mutate("add", appendName("ada")))

	notified := 0
	s.Subscribe(func([]string) { notified++ })

	boom := errors.New("boom")
	err := s.Mutate("bad", func(cur []string) ([]string, error) {
		cur[0] = "changed"
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"ada"}, s.Snapshot())
	assert.Zero(t, notified)
}

func TestPersistFailureKeepsMemoryAndNotifies(t *testing.T) {
	medium, err := store.NewQuota(store.NewMemoryStore(), 10)
	require.NoError(t, err)
	s := names(medium)

	var seen [][]string
	s.Subscribe(func(v []string) { seen = append(seen, v) })

	err = s.Mutate("add", appendName("a-name-longer-than-the-quota"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrPersistence)
	assert.ErrorIs(t, err, store.ErrQuotaExceeded)
	assert.Equal(t, fault.KindPersistence, fault.KindOf(err))

	assert.Equal(t, []string{"a-name-longer-than-the-quota"}, s.Snapshot())
	assert.Equal(t, [][]string{{"a-name-longer-than-the-quota"}}, seen)

	raw, _ := medium.Get("names")
	assert.Nil(t, raw)
}

func TestVacantStateDeletesKey(t *testing.T) {
	medium := store.NewMemoryStore()
	s := names(medium, func(c *entity.Config[[]string]) {
		c.Vacant = func(v []string) bool { return len(v) == 0 }
	})
	require.NoError(t, s.Mutate("add", appendName("ada")))
	raw, _ := medium.Get("names")
	require.NotNil(t, raw)

	require.NoError(t, s.Mutate("clear", func([]string) ([]string, error) { return []string{}, nil }))
	raw, _ = medium.Get("names")
	assert.Nil(t, raw)
}

func TestSnapshotsAreCopies(t *testing.T) {
	s := names(store.NewMemoryStore())
	require.NoError(t, s.Mutate("add", appendName("ada")))

	s.Subscribe(func(v []string) { v[0] = "mutated by observer" })
	require.NoError(t, s.Mutate("add", appendName("grace")))

	snap := s.Snapshot()
	snap[1] = "mutated by caller"
	assert.Equal(t, []string{"ada", "grace"}, s.Snapshot())
}

func TestObserversReceiveEveryMutationInOrder(t *testing.T) {
	s := names(store.NewMemoryStore())
	var a, b [][]string
	s.Subscribe(func(v []string) { a = append(a, v) })
	s.Subscribe(func(v []string) { b = append(b, v) })

	require.NoError(t, s.Mutate("add", appendName("x")))
	require.NoError(t, s.Mutate("add", appendName("y")))

	want := [][]string{{"x"}, {"x", "y"}}
	assert.Equal(t, want, a)
	assert.Equal(t, want, b)
}

func TestReentrantMutationIsQueued(t *testing.T) {
	medium := store.NewMemoryStore()
	s := names(medium)

	var first, second [][]string
	s.Subscribe(func(v []string) {
		first = append(first, v)
		if len(v) == 1 {
			// Nested mutation: persisted now, delivered after this round.
			require.NoError(t, s.Mutate("echo", appendName(v[0]+"-echo")))
			raw, _ := medium.Get("names")
			assert.JSONEq(t, `["x","x-echo"]`, string(raw))
			// Reads see the nested result immediately.
			assert.Len(t, s.Snapshot(), 2)
		}
	})
	s.Subscribe(func(v []string) { second = append(second, v) })

	require.NoError(t, s.Mutate("add", appendName("x")))

	want := [][]string{{"x"}, {"x", "x-echo"}}
	assert.Equal(t, want, first)
	assert.Equal(t, want, second, "second observer finishes round one before round two starts")
}

func TestUnsubscribeIsIdempotentAndLeakFree(t *testing.T) {
	s := names(store.NewMemoryStore())
	keep := 0
	s.Subscribe(func([]string) { keep++ })

	for i := 0; i < 100; i++ {
		unsub := s.Subscribe(func([]string) { t.Fatal("removed observer called") })
		unsub()
		unsub()
	}
	assert.Equal(t, 1, s.Observers())

	require.NoError(t, s.Mutate("add", appendName("x")))
	assert.Equal(t, 1, keep)
}

func TestUnsubscribeDuringNotification(t *testing.T) {
	s := names(store.NewMemoryStore())
	calls := 0
	var unsub func()
	unsub = s.Subscribe(func([]string) {
		calls++
		unsub()
	})
	require.NoError(t, s.Mutate("add", appendName("x")))
	require.NoError(t, s.Mutate("add", appendName("y")))
	assert.Equal(t, 1, calls)
	assert.Zero(t, s.Observers())
}

func TestObserverPanicIsContained(t *testing.T) {
	var logs bytes.Buffer
	s := names(store.NewMemoryStore(), func(c *entity.Config[[]string]) {
		c.Logger = slog.New(slog.NewTextHandler(&logs, nil))
	})
	s.Subscribe(func([]string) { panic("observer bug") })
	got := 0
	s.Subscribe(func([]string) { got++ })

	require.NoError(t, s.Mutate("add", appendName("x")))
	assert.Equal(t, 1, got)
	assert.Contains(t, logs.String(), "observer panicked")

	// The store keeps delivering afterwards.
	require.NoError(t, s.Mutate("add", appendName("y")))
	assert.Equal(t, 2, got)
}

func TestConcurrentMutations(t *testing.T) {
	medium := store.NewMemoryStore()
	s := names(medium)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Mutate("add", appendName(fmt.Sprint(i))))
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Snapshot(), 50)
	again := names(medium)
	assert.Len(t, again.Snapshot(), 50)
}

type recorder struct {
	mu        sync.Mutex
	ops       []string
	outcomes  []error
	observers []int
}

func (r *recorder) Begin(key, op string) func(error) {
	r.mu.Lock()
	r.ops = append(r.ops, key+"."+op)
	r.mu.Unlock()
	return func(err error) {
		r.mu.Lock()
		r.outcomes = append(r.outcomes, err)
		r.mu.Unlock()
	}
}

func (r *recorder) Observers(_ string, n int) {
	r.mu.Lock()
	r.observers = append(r.observers, n)
	r.mu.Unlock()
}

func TestInstrumentation(t *testing.T) {
	rec := &recorder{}
	s := names(store.NewMemoryStore(), func(c *entity.Config[[]string]) { c.Instrumentation = rec })

	unsub := s.Subscribe(func([]string) {})
	require.NoError(t, s.Mutate("add", appendName("x")))
	boom := errors.New("boom")
	_ = s.Mutate("fail", func([]string) ([]string, error) { return nil, boom })
	unsub()

	assert.Equal(t, []string{"names.add", "names.fail"}, rec.ops)
	assert.Equal(t, []error{nil, boom}, rec.outcomes)
	assert.Equal(t, []int{1, 0}, rec.observers)
}
