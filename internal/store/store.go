package store

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// SchemaVersion is stamped into PRAGMA user_version of every session store.
const SchemaVersion = 1

// ErrSchemaVersion is returned when a database carries a user_version this
// build does not write.
var ErrSchemaVersion = errors.New("unsupported session store schema")

// Store persists solver sessions in one SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens the session store at path, creating it on first use.
// Connection settings travel in the DSN so every pooled connection
// gets WAL journaling, NORMAL sync, a 5s busy timeout and foreign keys.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open session store %s: %w", path, err)
	}
	// One writer; item seqs are allocated inside a transaction.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func dsn(path string) string {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_synchronous", "NORMAL")
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "on")
	return "file:" + path + "?" + q.Encode()
}

// initSchema creates missing tables on a fresh or current-version file and
// stamps user_version. Files written under another version are refused.
func initSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != 0 && version != SchemaVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrSchemaVersion, version, SchemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if version == 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			return fmt.Errorf("stamp schema version: %w", err)
		}
	}
	return nil
}
