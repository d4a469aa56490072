package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mikey/ml-spam-filter/internal/adapters/store"
	"github.com/mikey/ml-spam-filter/internal/config"
	"github.com/mikey/ml-spam-filter/internal/core"
)

// StoreFactory creates artifact stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateArtifactStore creates the artifact store named by artifacts.type
func (f *StoreFactory) CreateArtifactStore() (core.ArtifactStore, error) {
	cfg := f.cfg.GetArtifacts()

	switch cfg.Type {
	case "file", "":
		return store.NewFileStore(cfg.Dir, f.logger)
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return store.NewSQLiteStore(cfg.SQLitePath, f.logger)
	case "mysql":
		return store.NewMySQLStore(cfg.MySQLDSN, f.logger)
	default:
		return nil, fmt.Errorf("unsupported artifact store type: %s", cfg.Type)
	}
}
