package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"tableflow/internal/xpkg/config"
)

// Pool wraps a pgx connection pool so repositories can check liveness
// without reaching into pgx directly.
type Pool struct {
	pool *pgxpool.Pool
}

// Connect opens a pgx pool against the configured database and verifies it
// with a ping before returning.
func Connect(ctx context.Context, cfg *config.Postgres) (*Pool, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
	)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(pingCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Pool{pool: pool}, nil
}

func (p *Pool) Get() *pgxpool.Pool { return p.pool }

func (p *Pool) IsAlive(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.pool.Ping(pingCtx)
}

func (p *Pool) Close() error {
	p.pool.Close()
	return nil
}
