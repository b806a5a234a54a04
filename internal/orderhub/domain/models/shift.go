package models

import "time"

// Shift is a bounded staff-login window. At most one open shift exists per
// restaurant; the QR token rotates within it and expires on its own clock.
type Shift struct {
	ShiftID      string     `json:"shift_id"`
	RestaurantID string     `json:"restaurant_id"`
	QRTokenHash  string     `json:"-"`
	QRExpiresAt  time.Time  `json:"qr_expires_at"`
	OpenedAt     time.Time  `json:"opened_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	OpenedCash   float64    `json:"opened_cash"`
	OpenedBy     string     `json:"opened_by"`
}

func (s Shift) Open() bool { return s.ClosedAt == nil }

func (s Shift) QRExpired(now time.Time) bool {
	return now.After(s.QRExpiresAt)
}

// StaffToken is an opaque credential minted from a valid QR scan. It lives
// and dies with its shift: closing the shift invalidates it regardless of
// ExpiresAt.
type StaffToken struct {
	TokenID      string    `json:"token_id"`
	TokenHash    string    `json:"-"`
	ShiftID      string    `json:"shift_id"`
	RestaurantID string    `json:"restaurant_id"`
	StaffName    string    `json:"staff_name"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (t StaffToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// StaffUser is a password-backed account (managers and admins); they
// authenticate with a JWT instead of a shift token.
type StaffUser struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	RestaurantID string `json:"restaurant_id"`
}
