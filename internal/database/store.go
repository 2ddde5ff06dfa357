package database

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"bidforecast/server/config"
	"bidforecast/server/internal/history"
)

// OpenStore opens the history backend selected by the configuration. The
// returned closer releases the underlying connection.
func OpenStore(cfg *config.Config, logger *logrus.Logger) (history.Store, io.Closer, error) {
	switch cfg.History.Backend {
	case "redis":
		logger.WithField("addr", cfg.History.RedisAddr).Info("Using redis history store")
		store, err := NewRedisStore(RedisConfig{
			Addr:     cfg.History.RedisAddr,
			Password: cfg.History.RedisPassword,
			DB:       cfg.History.RedisDB,
			Prefix:   cfg.History.RedisPrefix,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return store, store, nil

	case "sqlite":
		logger.Infof("Using database at: %s", cfg.History.SQLitePath)
		db, err := NewDatabase(cfg.History.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}

		logger.Info("Running database migrations...")
		if err := db.RunMigrations(); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		return db, db, nil

	default:
		return nil, nil, fmt.Errorf("unsupported history backend %q", cfg.History.Backend)
	}
}
