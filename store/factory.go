package store

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string
	DataDir     string
	PostgresDSN string
	S3          S3Config
	Timeout     time.Duration // network backends only
	QuotaBytes  int64         // 0 disables the quota
}

// New creates a Store based on the backend name.
//
// Supported backends:
//
//	"json"     - JSON files in DataDir (default)
//	"sqlite"   - SQLite database at DataDir/storefront.db
//	"memory"   - In-memory (ephemeral, for testing)
//	"postgres" - PostgreSQL at PostgresDSN
//	"s3"       - objects in an S3-compatible bucket
//
// A positive QuotaBytes wraps the backend in a QuotaStore.
func New(ctx context.Context, opts Options) (Store, error) {
	s, err := open(ctx, opts)
	if err != nil {
		return nil, err
	}
	if opts.QuotaBytes <= 0 {
		return s, nil
	}
	q, err := NewQuota(s, opts.QuotaBytes)
	if err != nil {
		s.Close()
		return nil, err
	}
	return q, nil
}

func open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "json", "":
		return NewJsonFileStore(opts.DataDir)
	case "sqlite":
		return NewSqliteStore(filepath.Join(opts.DataDir, "storefront.db"))
	case "memory":
		return NewMemoryStore(), nil
	case "postgres":
		return NewPostgresStore(opts.PostgresDSN, opts.Timeout)
	case "s3":
		cfg := opts.S3
		if cfg.Timeout == 0 {
			cfg.Timeout = opts.Timeout
		}
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: json, sqlite, memory, postgres, s3)", opts.Backend)
	}
}
