package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	zlog "github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Open opens (creating if needed) the dayflow SQLite database at dbPath and
// runs migrations.
func Open(dbPath string) (*Storage, error) {
	zlog.Debug().Str("path", dbPath).Msg("Initializing SQLite storage")

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	storage := NewStorage(db)
	if err := Migrate(db, "dayflow"); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	zlog.Debug().Msg("SQLite storage initialized successfully")
	return storage, nil
}

// Close closes the underlying database handle.
func (s *Storage) Close() error {
	zlog.Debug().Msg("Closing SQLite connection")
	return s.db.Close()
}

// CheckConnection verifies the database handle is usable.
func (s *Storage) CheckConnection(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
