package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// SQLDialect selects placeholder syntax and column types.
type SQLDialect int

const (
	// DialectSQLite uses ? placeholders and TEXT values.
	DialectSQLite SQLDialect = iota
	// DialectPostgres uses $n placeholders and JSONB values.
	DialectPostgres
)

func (d SQLDialect) String() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// SQLStore keeps every key as one row of a single table.
//
// Table:
//
//	records(key, value, updated_at)  PRIMARY KEY (key)
//
// SqliteStore and PostgresStore are thin constructors around it.
type SQLStore struct {
	mu      sync.RWMutex
	db      *sql.DB
	dialect SQLDialect
	table   string
	timeout time.Duration
}

const defaultTable = "records"

func newSQLStore(db *sql.DB, dialect SQLDialect, timeout time.Duration) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialect, table: defaultTable, timeout: timeout}
	valueType, stampType := "TEXT", "TEXT"
	if dialect == DialectPostgres {
		valueType, stampType = "JSONB", "TIMESTAMPTZ"
	}
	ctx, cancel := s.context()
	defer cancel()
	_, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key TEXT PRIMARY KEY,
		value %s NOT NULL,
		updated_at %s NOT NULL
	)`, s.table, valueType, stampType))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Dialect reports which SQL flavour the store speaks.
func (s *SQLStore) Dialect() SQLDialect {
	return s.dialect
}

func (s *SQLStore) context() (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), s.timeout)
}

// placeholder returns the n-th (1-based) bind parameter for the dialect.
func (s *SQLStore) placeholder(n int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctx, cancel := s.context()
	defer cancel()
	var raw string
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT value FROM %s WHERE key = %s", s.table, s.placeholder(1)),
		key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(raw), nil
}

func (s *SQLStore) Put(key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := s.context()
	defer cancel()
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (key, value, updated_at) VALUES (%s, %s, %s)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.table, s.placeholder(1), s.placeholder(2), s.placeholder(3)),
		key, string(value), time.Now().UTC(),
	)
	return err
}

func (s *SQLStore) Delete(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, cancel := s.context()
	defer cancel()
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE key = %s", s.table, s.placeholder(1)),
		key,
	)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctx, cancel := s.context()
	defer cancel()
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT key FROM %s ORDER BY key", s.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
