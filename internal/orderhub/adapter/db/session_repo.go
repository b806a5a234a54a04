package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"tableflow/internal/orderhub/app/core"
	"tableflow/internal/orderhub/domain/models"
	xdb "tableflow/internal/xpkg/db"
)

type SessionRepo struct {
	pool *xdb.Pool
}

func NewSessionRepo(pool *xdb.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) Create(ctx context.Context, s models.Session) error {
	var hash *string
	if s.TokenHash != "" {
		hash = &s.TokenHash
	}
	_, err := r.pool.Get().Exec(ctx, `
		INSERT INTO sessions (session_id, restaurant_id, table_id, token_hash, legacy, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.SessionID, s.RestaurantID, s.TableID, hash, s.Legacy, s.CreatedAt, s.ExpiresAt)
	return err
}

func (r *SessionRepo) GetByID(ctx context.Context, sessionID string) (models.Session, error) {
	return r.get(ctx, `WHERE session_id = $1`, sessionID)
}

func (r *SessionRepo) GetByTokenHash(ctx context.Context, hash string) (models.Session, error) {
	return r.get(ctx, `WHERE token_hash = $1`, hash)
}

func (r *SessionRepo) get(ctx context.Context, where, arg string) (models.Session, error) {
	var (
		s    models.Session
		hash *string
	)
	err := r.pool.Get().QueryRow(ctx, `
		SELECT session_id, restaurant_id, table_id, token_hash, legacy, created_at, expires_at
		FROM sessions `+where, arg).Scan(
		&s.SessionID, &s.RestaurantID, &s.TableID, &hash, &s.Legacy, &s.CreatedAt, &s.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, core.ErrSessionNotFound
		}
		return models.Session{}, err
	}
	if hash != nil {
		s.TokenHash = *hash
	}
	return s, nil
}

type TableRepo struct {
	pool *xdb.Pool
}

func NewTableRepo(pool *xdb.Pool) *TableRepo {
	return &TableRepo{pool: pool}
}

func (r *TableRepo) Get(ctx context.Context, tableID string) (models.Table, error) {
	var t models.Table
	err := r.pool.Get().QueryRow(ctx, `
		SELECT table_id, restaurant_id, number, is_open
		FROM restaurant_tables
		WHERE table_id = $1
	`, tableID).Scan(&t.TableID, &t.RestaurantID, &t.Number, &t.IsOpen)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Table{}, core.ErrTableNotFound
		}
		return models.Table{}, err
	}
	return t, nil
}
