package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
)

// QuotaStore caps the total size of all values held by an inner Store, the
// way browser storage refuses writes past its budget. A rejected Put leaves
// the inner store untouched and returns an error wrapping ErrQuotaExceeded.
type QuotaStore struct {
	mu    sync.Mutex
	inner Store
	limit int64
	sizes map[string]int64
	total int64
}

// NewQuota wraps inner with a limit in bytes. Existing values count against
// the limit.
func NewQuota(inner Store, limit int64) (*QuotaStore, error) {
	q := &QuotaStore{inner: inner, limit: limit, sizes: make(map[string]int64)}
	keys, err := inner.Keys()
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		v, err := inner.Get(k)
		if err != nil {
			return nil, err
		}
		size := measure(v)
		q.sizes[k] = size
		q.total += size
	}
	return q, nil
}

// measure counts JSON values in compact form so a backend that reformats
// on write is charged the same before and after a reopen.
func measure(value []byte) int64 {
	var buf bytes.Buffer
	if err := json.Compact(&buf, value); err == nil {
		return int64(buf.Len())
	}
	return int64(len(value))
}

// Used returns the bytes currently counted against the limit.
func (q *QuotaStore) Used() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.total
}

func (q *QuotaStore) Get(key string) ([]byte, error) {
	return q.inner.Get(key)
}

func (q *QuotaStore) Put(key string, value []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	size := measure(value)
	next := q.total - q.sizes[key] + size
	if next > q.limit {
		return fmt.Errorf("put %q (%d bytes, %d/%d used): %w", key, size, q.total, q.limit, ErrQuotaExceeded)
	}
	if err := q.inner.Put(key, value); err != nil {
		return err
	}
	q.sizes[key] = size
	q.total = next
	return nil
}

func (q *QuotaStore) Delete(key string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	existed, err := q.inner.Delete(key)
	if err != nil {
		return false, err
	}
	q.total -= q.sizes[key]
	delete(q.sizes, key)
	return existed, nil
}

func (q *QuotaStore) Keys() ([]string, error) {
	return q.inner.Keys()
}

func (q *QuotaStore) Close() error {
	return q.inner.Close()
}
