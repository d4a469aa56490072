package store

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the ArtifactStore interface
type MySQLStore struct {
	sqlStore
}

// NewMySQLStore creates a new MySQL artifact store
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS model_artifacts (
			name VARCHAR(64) PRIMARY KEY,
			format VARCHAR(16) NOT NULL,
			data LONGBLOB NOT NULL,
			updated_at TIMESTAMP NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLStore{sqlStore{
		db:     db,
		logger: logger,
		upsert: `INSERT INTO model_artifacts (name, format, data, updated_at) VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE format = VALUES(format), data = VALUES(data), updated_at = VALUES(updated_at)`,
	}}, nil
}
