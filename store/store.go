// Package store defines the durable key-value medium and its backends.
//
// The entity stores persist each collection as one JSON value under a fixed
// key ("cart", "demo_products", ...). A backend only has to keep bytes per
// key; it never interprets them.
package store

import (
	"errors"
	"fmt"
	"strings"
)

// Store is the interface that all backing stores must implement.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value stored under key, or (nil, nil) if absent.
	Get(key string) ([]byte, error)

	// Put inserts or replaces the value under key.
	Put(key string, value []byte) error

	// Delete removes key. Returns true if it existed.
	Delete(key string) (bool, error)

	// Keys returns every key that holds a value, sorted.
	Keys() ([]string, error)

	// Close releases resources held by the backend.
	Close() error
}

var (
	// ErrQuotaExceeded is returned by Put when the write would take the
	// medium past its size limit.
	ErrQuotaExceeded = errors.New("store: quota exceeded")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store: closed")
)

// ValidateKey rejects keys that cannot be stored portably: empty keys, keys
// with path separators, and keys starting with "_" or "." (reserved for
// backend bookkeeping).
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("store: empty key")
	case strings.ContainsAny(key, `/\`):
		return fmt.Errorf("store: invalid key %q", key)
	case strings.HasPrefix(key, "_"), strings.HasPrefix(key, "."):
		return fmt.Errorf("store: reserved key %q", key)
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
