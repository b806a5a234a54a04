package db

import (
	"context"
	"fmt"

	xdb "tableflow/internal/xpkg/db"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		order_id      UUID PRIMARY KEY,
		order_number  TEXT NOT NULL,
		restaurant_id TEXT NOT NULL,
		table_id      TEXT NOT NULL,
		status        TEXT NOT NULL,
		subtotal      NUMERIC(10,2) NOT NULL DEFAULT 0,
		tax           NUMERIC(10,2) NOT NULL DEFAULT 0,
		discount      NUMERIC(10,2) NOT NULL DEFAULT 0,
		total         NUMERIC(10,2) NOT NULL DEFAULT 0,
		last_seq      BIGINT NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		closed_at     TIMESTAMPTZ,
		UNIQUE (restaurant_id, order_number)
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		item_id  UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(order_id),
		name     TEXT NOT NULL,
		quantity INT NOT NULL,
		price    NUMERIC(10,2) NOT NULL,
		station  TEXT NOT NULL DEFAULT 'main',
		status   TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_events (
		order_id      UUID NOT NULL,
		sequence_no   BIGINT NOT NULL,
		event_id      UUID NOT NULL,
		order_number  TEXT NOT NULL,
		restaurant_id TEXT NOT NULL,
		table_id      TEXT NOT NULL,
		station       TEXT NOT NULL,
		item_id       UUID,
		from_status   TEXT NOT NULL,
		to_status     TEXT NOT NULL,
		order_status  TEXT NOT NULL,
		actor_id      TEXT NOT NULL,
		actor_role    TEXT NOT NULL,
		occurred_at   TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (order_id, sequence_no)
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		session_id    TEXT PRIMARY KEY,
		restaurant_id TEXT NOT NULL,
		table_id      TEXT NOT NULL,
		token_hash    TEXT UNIQUE,
		legacy        BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS restaurant_tables (
		table_id      TEXT PRIMARY KEY,
		restaurant_id TEXT NOT NULL,
		number        INT NOT NULL,
		is_open       BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS shifts (
		shift_id      UUID PRIMARY KEY,
		restaurant_id TEXT NOT NULL,
		qr_token_hash TEXT NOT NULL,
		qr_expires_at TIMESTAMPTZ NOT NULL,
		opened_at     TIMESTAMPTZ NOT NULL,
		closed_at     TIMESTAMPTZ,
		opened_cash   NUMERIC(10,2) NOT NULL DEFAULT 0,
		opened_by     TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_shifts_open
		ON shifts (restaurant_id) WHERE closed_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS staff_tokens (
		token_id      UUID PRIMARY KEY,
		token_hash    TEXT NOT NULL UNIQUE,
		shift_id      UUID NOT NULL REFERENCES shifts(shift_id),
		restaurant_id TEXT NOT NULL,
		staff_name    TEXT NOT NULL,
		role          TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		expires_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS staff_users (
		user_id       UUID PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL,
		restaurant_id TEXT NOT NULL
	)`,
}

// InitSchema bootstraps the tables on startup.
func InitSchema(ctx context.Context, pool *xdb.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Get().Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
