package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DefaultTimeout bounds each round trip to a network backend.
const DefaultTimeout = 5 * time.Second

// NewPostgresStore connects to dsn through the pgx database/sql driver.
// Every statement runs under timeout (DefaultTimeout when zero).
func NewPostgresStore(dsn string, timeout time.Duration) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	s, err := newSQLStore(db, DialectPostgres, timeout)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
