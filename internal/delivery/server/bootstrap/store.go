package bootstrap

import (
	"context"
	"fmt"

	"blobvault/internal/domain/blob"
	"blobvault/internal/infra/memory"
	"blobvault/internal/infra/postgres"
	"blobvault/internal/shared/config"
	"blobvault/internal/shared/logging"
)

// BuildStore opens the store selected by store.driver. For postgres the
// Metadata Index table is created when database.auto_migrate is set.
func BuildStore(ctx context.Context, cfg config.Config, logger logging.Logger) (blob.Store, error) {
	logger = logging.OrNop(logger)

	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory store: data is lost on exit")
		return memory.New(), nil
	case config.DriverPostgres:
		store, err := openPostgres(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				store.Close()
				return nil, fmt.Errorf("auto migrate: %w", err)
			}
			logger.Info("Metadata index table %q ready", cfg.Database.Table)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// Migrate creates the Metadata Index table and exits.
func Migrate(ctx context.Context, cfg config.Config, logger logging.Logger) error {
	if cfg.Store.Driver != config.DriverPostgres {
		return fmt.Errorf("migrate requires the %s driver, got %q", config.DriverPostgres, cfg.Store.Driver)
	}
	store, err := openPostgres(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Migrate(ctx)
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig, logger logging.Logger) (*postgres.Store, error) {
	pool, err := postgres.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := postgres.New(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}
