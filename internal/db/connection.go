/*-------------------------------------------------------------------------
 *
 * connection.go
 *    Database connection management
 *
 * Opens PostgreSQL (pgx stdlib driver) or embedded SQLite connections with
 * retry, exponential backoff and jitter.
 *
 * Copyright (c) 2024-2026, neurondb, Inc. <support@neurondb.ai>
 *
 * IDENTIFICATION
 *    NeuronApprovals/internal/db/connection.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/neurondb/NeuronApprovals/internal/logging"
)

/* PoolConfig holds connection pool settings */
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

/* DriverName normalizes configured driver names to registered database/sql drivers */
func DriverName(driver string) string {
	switch driver {
	case "postgres", "pgx", "":
		return "pgx"
	default:
		return driver
	}
}

/* Connect opens a database with three attempts and a 2s initial backoff */
func Connect(ctx context.Context, driver, dsn string, pool PoolConfig, logger *logging.Logger) (*sqlx.DB, error) {
	return ConnectWithRetry(ctx, driver, dsn, pool, logger, 3, 2*time.Second)
}

/* ConnectWithRetry opens a database, retrying failed pings with jittered backoff */
func ConnectWithRetry(ctx context.Context, driver, dsn string, pool PoolConfig, logger *logging.Logger, maxRetries int, retryDelay time.Duration) (*sqlx.DB, error) {
	driverName := DriverName(driver)

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		db, err := sqlx.Open(driverName, dsn)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = db.PingContext(pingCtx)
			cancel()
			if err == nil {
				configurePool(db, pool)
				logger.Info("Database connection established", map[string]interface{}{
					"driver":  driverName,
					"attempt": attempt + 1,
				})
				return db, nil
			}
			db.Close()
		}
		lastErr = err

		if attempt < maxRetries-1 {
			/* ±25% jitter */
			jitter := float64(retryDelay) * 0.25
			delay := retryDelay + time.Duration(jitter*(rand.Float64()*2-1))

			logger.Warn("Database connection failed, retrying", map[string]interface{}{
				"driver":      driverName,
				"attempt":     attempt + 1,
				"max_retries": maxRetries,
				"retry_delay": delay.String(),
				"error":       err.Error(),
			})

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			retryDelay *= 2
		}
	}

	return nil, fmt.Errorf("database connection failed after %d attempts: driver='%s', error=%w", maxRetries, driverName, lastErr)
}

func configurePool(db *sqlx.DB, pool PoolConfig) {
	if DialectFor(db.DriverName()) == DialectSQLite {
		/* SQLite allows one writer; a single connection also keeps :memory: databases shared */
		db.SetMaxOpenConns(1)
		return
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
}
