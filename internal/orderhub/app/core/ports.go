package core

import (
	"context"
	"time"

	"tableflow/internal/orderhub/domain/models"
)

// IOrderRepo is the durable home of orders, items and the transition event
// log. It is the only writer of order state.
type IOrderRepo interface {
	// Create persists a new order, assigning OrderID and a per-restaurant
	// monotonic order number.
	Create(ctx context.Context, order models.Order) (models.Order, error)

	GetByNumber(ctx context.Context, restaurantID, orderNumber string) (models.Order, error)

	// ListActive returns non-archived orders for a restaurant, optionally
	// filtered to items of one kitchen station.
	ListActive(ctx context.Context, restaurantID, station string) ([]models.Order, error)

	// CommitTransition writes the updated order state and appends the event
	// atomically, conditioned on the order's previous sequence number.
	// Returns ErrConflict when another writer got there first.
	CommitTransition(ctx context.Context, order models.Order, ev models.TransitionEvent, expectedSeq uint64) error

	// Archive closes the order out (billing), removing it from the active
	// set. Conditioned on LastSeq like any other write.
	Archive(ctx context.Context, restaurantID, orderNumber string, expectedSeq uint64, closedAt time.Time) error

	ListEvents(ctx context.Context, orderID string) ([]models.TransitionEvent, error)
}

type ISessionRepo interface {
	Create(ctx context.Context, session models.Session) error
	// GetByID serves the legacy fixed-length token path.
	GetByID(ctx context.Context, sessionID string) (models.Session, error)
	GetByTokenHash(ctx context.Context, hash string) (models.Session, error)
}

type ITableRepo interface {
	Get(ctx context.Context, tableID string) (models.Table, error)
}

type IShiftRepo interface {
	// OpenShift persists a new open shift; fails with ErrShiftConflict when
	// one is already open for the restaurant.
	OpenShift(ctx context.Context, shift models.Shift) error
	GetOpen(ctx context.Context, restaurantID string) (models.Shift, error)
	GetByID(ctx context.Context, shiftID string) (models.Shift, error)
	// GetByQRHash resolves an open shift from the hash of a presented QR
	// token.
	GetByQRHash(ctx context.Context, hash string) (models.Shift, error)
	// SwapQR atomically replaces the QR hash, conditioned on the hash it is
	// replacing; there is no window where both tokens resolve.
	SwapQR(ctx context.Context, shiftID, oldHash, newHash string, expiresAt time.Time) error
	Close(ctx context.Context, shiftID string, closedAt time.Time) error
}

type IStaffRepo interface {
	CreateToken(ctx context.Context, token models.StaffToken) error
	GetTokenByHash(ctx context.Context, hash string) (models.StaffToken, error)
	GetUserByUsername(ctx context.Context, username string) (models.StaffUser, error)
}

// IEventSink receives committed transition events for in-process fan-out.
type IEventSink interface {
	Publish(ev models.TransitionEvent)
}

// IEventBridge forwards committed events to the message broker for
// out-of-process subscribers. Delivery is best-effort; failures never fail
// the originating mutation.
type IEventBridge interface {
	PublishEvent(ctx context.Context, ev models.TransitionEvent) error
}

// ISessionCache is an optional read-through cache in front of customer
// session lookups. Implementations must never extend effective expiry.
type ISessionCache interface {
	Get(ctx context.Context, key string) (models.Session, bool)
	Put(ctx context.Context, key string, session models.Session, ttl time.Duration)
	Delete(ctx context.Context, key string)
}
