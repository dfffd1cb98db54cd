package cli

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/config"
	"github.com/ekaya-inc/ekaya-migrate/pkg/database"
	"github.com/ekaya-inc/ekaya-migrate/pkg/logging"
	"github.com/ekaya-inc/ekaya-migrate/pkg/repositories"
)

// openStore connects the configured storage backend. The returned close
// function releases any connection and is never nil.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repositories.StateRepository, func(), error) {
	noop := func() {}

	switch cfg.Storage.Backend {
	case config.StorageBackendFile:
		logger.Info("Using file storage",
			zap.String("dir", cfg.Storage.FileDir),
			zap.String("key", cfg.Storage.Key))
		return repositories.NewFileStateRepository(cfg.Storage.FileDir, cfg.Storage.Key), noop, nil

	case config.StorageBackendRedis:
		client, err := database.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to redis at %s: %s", cfg.Redis.Addr(), logging.SanitizeError(err))
		}
		logger.Info("Using redis storage",
			zap.String("addr", cfg.Redis.Addr()),
			zap.Int("db", cfg.Redis.DB),
			zap.String("key", cfg.Storage.Key))
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close redis client", zap.Error(err))
			}
		}
		return repositories.NewRedisStateRepository(client, cfg.Storage.Key), closeFn, nil

	case config.StorageBackendPostgres:
		connStr := cfg.Database.ConnectionString()
		safeConnStr := logging.SanitizeConnectionString(connStr)

		if err := migrate(connStr, logger); err != nil {
			return nil, noop, fmt.Errorf("failed to migrate %s: %s", safeConnStr, logging.SanitizeError(err))
		}

		db, err := database.NewConnection(ctx, &database.Config{
			URL:            connStr,
			MaxConnections: cfg.Database.MaxConnections,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to %s: %s", safeConnStr, logging.SanitizeError(err))
		}
		logger.Info("Using postgres storage",
			zap.String("database", safeConnStr),
			zap.String("key", cfg.Storage.Key))
		return repositories.NewPostgresStateRepository(db, cfg.Storage.Key), db.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// migrate applies the embedded schema migrations over a database/sql handle,
// which golang-migrate requires.
func migrate(connStr string, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open sql connection: %w", err)
	}
	defer sqlDB.Close()

	return database.RunMigrations(sqlDB, logger)
}
