package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tableflow/internal/orderhub/app/core"
	"tableflow/internal/orderhub/domain/models"
	xdb "tableflow/internal/xpkg/db"
)

type ShiftRepo struct {
	pool *xdb.Pool
}

func NewShiftRepo(pool *xdb.Pool) *ShiftRepo {
	return &ShiftRepo{pool: pool}
}

func (r *ShiftRepo) OpenShift(ctx context.Context, s models.Shift) error {
	_, err := r.pool.Get().Exec(ctx, `
		INSERT INTO shifts (shift_id, restaurant_id, qr_token_hash, qr_expires_at, opened_at, opened_cash, opened_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.ShiftID, s.RestaurantID, s.QRTokenHash, s.QRExpiresAt, s.OpenedAt, s.OpenedCash, s.OpenedBy)
	if err != nil {
		// The partial unique index on open shifts turns a double open into
		// a constraint violation.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return core.ErrShiftConflict
		}
		return fmt.Errorf("open shift: %w", err)
	}
	return nil
}

func (r *ShiftRepo) GetOpen(ctx context.Context, restaurantID string) (models.Shift, error) {
	return r.get(ctx, `WHERE restaurant_id = $1 AND closed_at IS NULL`, restaurantID)
}

func (r *ShiftRepo) GetByID(ctx context.Context, shiftID string) (models.Shift, error) {
	return r.get(ctx, `WHERE shift_id = $1`, shiftID)
}

func (r *ShiftRepo) GetByQRHash(ctx context.Context, hash string) (models.Shift, error) {
	s, err := r.get(ctx, `WHERE qr_token_hash = $1 AND closed_at IS NULL`, hash)
	if errors.Is(err, core.ErrShiftNotOpen) {
		return models.Shift{}, core.ErrTokenNotFound
	}
	return s, err
}

func (r *ShiftRepo) get(ctx context.Context, where, arg string) (models.Shift, error) {
	var s models.Shift
	err := r.pool.Get().QueryRow(ctx, `
		SELECT shift_id, restaurant_id, qr_token_hash, qr_expires_at,
		       opened_at, closed_at, opened_cash, opened_by
		FROM shifts `+where, arg).Scan(
		&s.ShiftID, &s.RestaurantID, &s.QRTokenHash, &s.QRExpiresAt,
		&s.OpenedAt, &s.ClosedAt, &s.OpenedCash, &s.OpenedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Shift{}, core.ErrShiftNotOpen
		}
		return models.Shift{}, err
	}
	return s, nil
}

// SwapQR replaces the QR hash in a single conditional update, so the old
// token stops resolving the instant the new one is active.
func (r *ShiftRepo) SwapQR(ctx context.Context, shiftID, oldHash, newHash string, expiresAt time.Time) error {
	tag, err := r.pool.Get().Exec(ctx, `
		UPDATE shifts SET qr_token_hash = $1, qr_expires_at = $2
		WHERE shift_id = $3 AND qr_token_hash = $4 AND closed_at IS NULL
	`, newHash, expiresAt, shiftID, oldHash)
	if err != nil {
		return fmt.Errorf("swap qr: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrConflict
	}
	return nil
}

func (r *ShiftRepo) Close(ctx context.Context, shiftID string, closedAt time.Time) error {
	tag, err := r.pool.Get().Exec(ctx, `
		UPDATE shifts SET closed_at = $1
		WHERE shift_id = $2 AND closed_at IS NULL
	`, closedAt, shiftID)
	if err != nil {
		return fmt.Errorf("close shift: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrShiftNotOpen
	}
	return nil
}

type StaffRepo struct {
	pool *xdb.Pool
}

func NewStaffRepo(pool *xdb.Pool) *StaffRepo {
	return &StaffRepo{pool: pool}
}

func (r *StaffRepo) CreateToken(ctx context.Context, t models.StaffToken) error {
	_, err := r.pool.Get().Exec(ctx, `
		INSERT INTO staff_tokens (token_id, token_hash, shift_id, restaurant_id, staff_name, role, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, t.TokenID, t.TokenHash, t.ShiftID, t.RestaurantID, t.StaffName, t.Role, t.CreatedAt, t.ExpiresAt)
	return err
}

func (r *StaffRepo) GetTokenByHash(ctx context.Context, hash string) (models.StaffToken, error) {
	var t models.StaffToken
	err := r.pool.Get().QueryRow(ctx, `
		SELECT token_id, token_hash, shift_id, restaurant_id, staff_name, role, created_at, expires_at
		FROM staff_tokens
		WHERE token_hash = $1
	`, hash).Scan(&t.TokenID, &t.TokenHash, &t.ShiftID, &t.RestaurantID,
		&t.StaffName, &t.Role, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.StaffToken{}, core.ErrTokenNotFound
		}
		return models.StaffToken{}, err
	}
	return t, nil
}

func (r *StaffRepo) GetUserByUsername(ctx context.Context, username string) (models.StaffUser, error) {
	var u models.StaffUser
	err := r.pool.Get().QueryRow(ctx, `
		SELECT user_id, username, password_hash, role, restaurant_id
		FROM staff_users
		WHERE username = $1
	`, username).Scan(&u.UserID, &u.Username, &u.PasswordHash, &u.Role, &u.RestaurantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.StaffUser{}, core.ErrUserNotFound
		}
		return models.StaffUser{}, err
	}
	return u, nil
}
