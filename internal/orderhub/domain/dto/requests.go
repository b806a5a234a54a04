package dto

import (
	"time"

	"tableflow/internal/orderhub/domain/models"
)

type JoinTableRequest struct {
	TableID string `json:"table_id"`
}

type JoinTableResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	TableID   string    `json:"table_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ManagerLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ManagerLoginResponse struct {
	Token string      `json:"token"`
	Role  models.Role `json:"role"`
}

type StaffLoginRequest struct {
	QRToken   string      `json:"qr_token"`
	StaffName string      `json:"staff_name"`
	Role      models.Role `json:"role"`
}

type StaffLoginResponse struct {
	Token     string      `json:"token"`
	StaffName string      `json:"staff_name"`
	Role      models.Role `json:"role"`
	ShiftID   string      `json:"shift_id"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type OpenShiftRequest struct {
	OpenedCash float64 `json:"opened_cash"`
}

// ShiftResponse carries the raw QR token only on the calls that mint one
// (open and refresh).
type ShiftResponse struct {
	ShiftID     string    `json:"shift_id"`
	QRToken     string    `json:"qr_token,omitempty"`
	QRExpiresAt time.Time `json:"qr_expires_at"`
	OpenedAt    time.Time `json:"opened_at"`
	OpenedCash  float64   `json:"opened_cash"`
}

type OrderItemRequest struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Station  string  `json:"station,omitempty"`
}

type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items"`
}

type ItemStatusRequest struct {
	Status models.ItemStatus `json:"status"`
}

// TransitionResponse returns the post-transition order and item so callers
// can render without re-fetching.
type TransitionResponse struct {
	Order models.Order     `json:"order"`
	Item  models.OrderItem `json:"item"`
	// NoOp marks an idempotent re-apply that committed nothing.
	NoOp bool `json:"no_op,omitempty"`
}

// OrderDetailResponse is the reconciliation snapshot pulled on reconnect.
type OrderDetailResponse struct {
	Order  models.Order             `json:"order"`
	Events []models.TransitionEvent `json:"events"`
}
