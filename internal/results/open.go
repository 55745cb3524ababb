package results

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rbg-research/SMM4H-2025/internal/database"
	"github.com/rbg-research/SMM4H-2025/internal/domain"
)

// Open returns the store selected by cfg.Driver. For postgres, pending
// migrations are applied first.
func Open(ctx context.Context, cfg domain.StorageConfig, logger *logrus.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, ErrStorageDisabled
	case "sqlite":
		store, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.WithField("path", cfg.SQLitePath).Info("Using SQLite result store")
		return store, nil
	case "postgres":
		if err := database.Migrate(ctx, cfg.PostgresURL, cfg.MigrationsPath, logger); err != nil {
			return nil, fmt.Errorf("failed to migrate result store: %w", err)
		}
		store, err := NewPostgresStoreFromURL(cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		logger.Info("Using PostgreSQL result store")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}
