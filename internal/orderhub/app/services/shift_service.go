package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tableflow/internal/orderhub/app/core"
	"tableflow/internal/orderhub/auth"
	"tableflow/internal/orderhub/domain/models"
	"tableflow/internal/xpkg/logger"
)

// ShiftService manages the staff-login window per restaurant: open it, keep
// the QR credential rotating while it lasts, close it. QR rotation and shift
// closure are conditional writes, never held locks.
type ShiftService struct {
	shifts core.IShiftRepo
	qrTTL  time.Duration
	mylog  logger.Logger
}

func NewShiftService(shifts core.IShiftRepo, qrTTL time.Duration, mylog logger.Logger) *ShiftService {
	return &ShiftService{shifts: shifts, qrTTL: qrTTL, mylog: mylog}
}

// Open starts a shift for the actor's restaurant and mints the first QR
// token. At most one shift may be open per restaurant.
func (s *ShiftService) Open(ctx context.Context, actor models.Principal, openedCash float64) (models.Shift, string, error) {
	mylog := s.mylog.Action("open_shift")

	if !actor.Role.Managerial() {
		return models.Shift{}, "", core.ErrForbidden
	}

	rawQR, qrHash, err := auth.NewOpaqueToken()
	if err != nil {
		return models.Shift{}, "", err
	}

	now := time.Now().UTC()
	shift := models.Shift{
		ShiftID:      uuid.New().String(),
		RestaurantID: actor.RestaurantID,
		QRTokenHash:  qrHash,
		QRExpiresAt:  now.Add(s.qrTTL),
		OpenedAt:     now,
		OpenedCash:   openedCash,
		OpenedBy:     actor.ActorID,
	}
	if err := s.shifts.OpenShift(ctx, shift); err != nil {
		if err == core.ErrShiftConflict {
			mylog.Warn("shift already open", "restaurant_id", actor.RestaurantID)
		} else {
			mylog.Error("failed to open shift", err)
		}
		return models.Shift{}, "", err
	}

	mylog.Info("shift opened", "restaurant_id", actor.RestaurantID, "shift_id", shift.ShiftID)
	return shift, rawQR, nil
}

// RefreshQR rotates the QR credential of the open shift. The swap is atomic:
// the old token stops resolving the instant the new one is active.
func (s *ShiftService) RefreshQR(ctx context.Context, actor models.Principal) (models.Shift, string, error) {
	mylog := s.mylog.Action("refresh_qr")

	if !actor.Role.Managerial() {
		return models.Shift{}, "", core.ErrForbidden
	}

	shift, err := s.shifts.GetOpen(ctx, actor.RestaurantID)
	if err != nil {
		return models.Shift{}, "", err
	}

	rawQR, qrHash, err := auth.NewOpaqueToken()
	if err != nil {
		return models.Shift{}, "", err
	}

	expiresAt := time.Now().UTC().Add(s.qrTTL)
	if err := s.shifts.SwapQR(ctx, shift.ShiftID, shift.QRTokenHash, qrHash, expiresAt); err != nil {
		return models.Shift{}, "", err
	}

	shift.QRTokenHash = qrHash
	shift.QRExpiresAt = expiresAt
	mylog.Info("qr rotated", "shift_id", shift.ShiftID)
	return shift, rawQR, nil
}

// Close ends the open shift. Every staff credential minted under it stops
// resolving immediately (see AuthService.staffPrincipal).
func (s *ShiftService) Close(ctx context.Context, actor models.Principal) (models.Shift, error) {
	mylog := s.mylog.Action("close_shift")

	if !actor.Role.Managerial() {
		return models.Shift{}, core.ErrForbidden
	}

	shift, err := s.shifts.GetOpen(ctx, actor.RestaurantID)
	if err != nil {
		return models.Shift{}, err
	}

	closedAt := time.Now().UTC()
	if err := s.shifts.Close(ctx, shift.ShiftID, closedAt); err != nil {
		return models.Shift{}, err
	}

	shift.ClosedAt = &closedAt
	mylog.Info("shift closed", "shift_id", shift.ShiftID, "restaurant_id", actor.RestaurantID)
	return shift, nil
}

// Current returns the open shift for staff displays.
func (s *ShiftService) Current(ctx context.Context, actor models.Principal) (models.Shift, error) {
	if actor.Role == models.RoleCustomer {
		return models.Shift{}, core.ErrForbidden
	}
	return s.shifts.GetOpen(ctx, actor.RestaurantID)
}
