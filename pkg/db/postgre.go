package db

import (
	"context"
	"fmt"
	"time"

	"rideshare/pkg/config"
	"rideshare/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	maxRetries    = 5
	retryInterval = 3 * time.Second
)

// NewConnection opens a pgx pool and keeps retrying until the database
// answers a ping or ctx is cancelled.
func NewConnection(ctx context.Context, cfg *config.Config, log logger.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if cfg.DB.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.DB.MaxConns)
	}

	log.WithFields(logger.LogFields{
		"host":     cfg.DB.Host,
		"database": cfg.DB.Database,
	}).Info("db_connect", "Connecting to database...")

	var pool *pgxpool.Pool
	for i := 0; i < maxRetries; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			err = pool.Ping(ctx)
			if err == nil {
				log.Info("db_connected_success", "Successfully connected to database")
				return pool, nil
			}
			pool.Close()
		}

		log.Error("db_connect_failed", fmt.Errorf("connect to database (attempt %d/%d): %w", i+1, maxRetries, err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}
