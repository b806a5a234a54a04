package memory

import (
	"context"
	"sync"
	"time"

	"tableflow/internal/orderhub/app/core"
	"tableflow/internal/orderhub/domain/models"
)

type ShiftRepo struct {
	mu     sync.Mutex
	shifts map[string]models.Shift // key shiftID
}

func NewShiftRepo() *ShiftRepo {
	return &ShiftRepo{shifts: make(map[string]models.Shift)}
}

func (r *ShiftRepo) OpenShift(ctx context.Context, shift models.Shift) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.shifts {
		if s.RestaurantID == shift.RestaurantID && s.Open() {
			return core.ErrShiftConflict
		}
	}
	r.shifts[shift.ShiftID] = shift
	return nil
}

func (r *ShiftRepo) GetOpen(ctx context.Context, restaurantID string) (models.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.shifts {
		if s.RestaurantID == restaurantID && s.Open() {
			return s, nil
		}
	}
	return models.Shift{}, core.ErrShiftNotOpen
}

func (r *ShiftRepo) GetByID(ctx context.Context, shiftID string) (models.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.shifts[shiftID]
	if !ok {
		return models.Shift{}, core.ErrShiftNotOpen
	}
	return s, nil
}

func (r *ShiftRepo) GetByQRHash(ctx context.Context, hash string) (models.Shift, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.shifts {
		if s.Open() && s.QRTokenHash == hash {
			return s, nil
		}
	}
	return models.Shift{}, core.ErrTokenNotFound
}

func (r *ShiftRepo) SwapQR(ctx context.Context, shiftID, oldHash, newHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.shifts[shiftID]
	if !ok || !s.Open() {
		return core.ErrShiftNotOpen
	}
	if s.QRTokenHash != oldHash {
		return core.ErrConflict
	}

	s.QRTokenHash = newHash
	s.QRExpiresAt = expiresAt
	r.shifts[shiftID] = s
	return nil
}

func (r *ShiftRepo) Close(ctx context.Context, shiftID string, closedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.shifts[shiftID]
	if !ok {
		return core.ErrShiftNotOpen
	}
	if !s.Open() {
		return core.ErrShiftNotOpen
	}

	s.ClosedAt = &closedAt
	r.shifts[shiftID] = s
	return nil
}

type StaffRepo struct {
	mu     sync.RWMutex
	tokens map[string]models.StaffToken // key token hash
	users  map[string]models.StaffUser  // key username
}

func NewStaffRepo() *StaffRepo {
	return &StaffRepo{
		tokens: make(map[string]models.StaffToken),
		users:  make(map[string]models.StaffUser),
	}
}

func (r *StaffRepo) CreateToken(ctx context.Context, token models.StaffToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.TokenHash] = token
	return nil
}

func (r *StaffRepo) GetTokenByHash(ctx context.Context, hash string) (models.StaffToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tokens[hash]
	if !ok {
		return models.StaffToken{}, core.ErrTokenNotFound
	}
	return t, nil
}

func (r *StaffRepo) GetUserByUsername(ctx context.Context, username string) (models.StaffUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[username]
	if !ok {
		return models.StaffUser{}, core.ErrUserNotFound
	}
	return u, nil
}

// SeedUser registers a password-backed account.
func (r *StaffRepo) SeedUser(user models.StaffUser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.Username] = user
}
