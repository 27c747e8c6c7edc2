package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/router-ingest/internal/common"
	repo "github.com/joseph-ayodele/router-ingest/internal/repository"
)

// ConnectDB opens the durable queue store (schema included) and pings it.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger, timeout time.Duration) (*repo.DB, error) {
	db, err := repo.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.Driver, "error", err)
		return nil, err
	}
	if err := PingDB(ctx, db, logger, timeout); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, db *repo.DB, logger *slog.Logger, timeout time.Duration) error {
	logger.Debug("pinging database")
	if err := db.HealthCheck(ctx, timeout); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	logger.Debug("database ping successful")
	return nil
}
