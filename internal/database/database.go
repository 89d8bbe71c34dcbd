// Package database provides connection management for the two supported
// relational stores: PostgreSQL through pgx and an embedded SQLite file.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const connectAttempts = 5

// NewPool creates and validates a pgxpool connection pool.
// It retries a few times to accommodate containers starting up.
func NewPool(ctx context.Context, dsn string, log *zap.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	poolCfg.MaxConns = 20
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		log.Warn("db connect attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("of", connectAttempts),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("connect to postgres: %w", err)
}

// postgresSchema has no foreign keys: owner and member handles are advisory
// references and an event may outlive or predate its owner's identity row.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	handle       VARCHAR(50) PRIMARY KEY,
	display_name VARCHAR(50) NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
	id          BIGSERIAL PRIMARY KEY,
	user_handle VARCHAR(50) NOT NULL,
	eventname   VARCHAR(50) NOT NULL,
	starttime   TEXT NOT NULL,
	endtime     TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
);
CREATE INDEX IF NOT EXISTS events_created_at_idx ON events (created_at DESC);

CREATE TABLE IF NOT EXISTS joins (
	id          BIGSERIAL PRIMARY KEY,
	event_id    BIGINT NOT NULL,
	user_handle VARCHAR(50) NOT NULL
);
CREATE INDEX IF NOT EXISTS joins_event_user_idx ON joins (event_id, user_handle);

CREATE TABLE IF NOT EXISTS replies (
	id                BIGSERIAL PRIMARY KEY,
	content           TEXT NOT NULL,
	user_handle       VARCHAR(50) NOT NULL,
	reply_to_event_id BIGINT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
);
CREATE INDEX IF NOT EXISTS replies_event_idx ON replies (reply_to_event_id, created_at);
`

// MigratePostgres creates the tables when they do not exist yet.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}
