package store

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// NewSqliteStore opens (or creates) a SQLite database at dbPath in WAL mode.
// SQLite is local, so no per-query timeout is applied.
func NewSqliteStore(dbPath string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	s, err := newSQLStore(db, DialectSQLite, 0)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
