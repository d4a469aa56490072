package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the ArtifactStore interface
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore creates a new SQLite artifact store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// One writer at a time; sqlite would otherwise report SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS model_artifacts (
			name TEXT PRIMARY KEY,
			format TEXT NOT NULL,
			data BLOB NOT NULL,
			updated_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteStore{sqlStore{
		db:     db,
		logger: logger,
		upsert: `INSERT OR REPLACE INTO model_artifacts (name, format, data, updated_at) VALUES (?, ?, ?, ?)`,
	}}, nil
}
