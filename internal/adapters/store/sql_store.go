package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/ml-spam-filter/internal/core"
)

// sqlStore keeps artifacts as rows of one table. A save replaces all rows in
// a single transaction.
type sqlStore struct {
	db     *sql.DB
	logger *zap.Logger
	upsert string
}

func (s *sqlStore) Save(ctx context.Context, set core.ArtifactSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM model_artifacts`); err != nil {
		return fmt.Errorf("failed to clear artifacts: %w", err)
	}

	now := time.Now().UTC()
	for _, a := range set {
		if _, err := tx.ExecContext(ctx, s.upsert, a.Name, a.Format, a.Data, now); err != nil {
			return fmt.Errorf("failed to store artifact %s: %w", a.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit artifacts: %w", err)
	}
	s.logger.Info("Saved artifacts", zap.Int("count", len(set)))
	return nil
}

func (s *sqlStore) Load(ctx context.Context) (core.ArtifactSet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, format, data FROM model_artifacts`)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	set := core.ArtifactSet{}
	for rows.Next() {
		var a core.Artifact
		if err := rows.Scan(&a.Name, &a.Format, &a.Data); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		set.Add(a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read artifacts: %w", err)
	}
	return set, nil
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	return s.db.Close()
}
