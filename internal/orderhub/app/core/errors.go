package core

import "errors"

// Authentication errors surfaced by the credential resolver.
var (
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenNotFound  = errors.New("token not found")
	ErrTokenExpired   = errors.New("token expired")
	ErrShiftClosed    = errors.New("shift is closed")
	ErrForbidden      = errors.New("forbidden")
)

// Transition errors surfaced by the fulfillment state machine and the
// aggregate store.
var (
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrConflict          = errors.New("concurrent update conflict")
)

// ErrHelp signals that the command printed usage and should exit cleanly.
var ErrHelp = errors.New("help requested")

// Shift registry errors.
var (
	ErrShiftConflict = errors.New("a shift is already open for this restaurant")
	ErrShiftNotOpen  = errors.New("no open shift for this restaurant")
)

var (
	ErrValidation      = errors.New("request validation failed")
	ErrOrderNotFound   = errors.New("order not found")
	ErrItemNotFound    = errors.New("order item not found")
	ErrOrderClosed     = errors.New("order is closed")
	ErrTableNotFound   = errors.New("table not found")
	ErrTableClosed     = errors.New("table is closed")
	ErrSessionNotFound = errors.New("session not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrDBConn          = errors.New("db connection failure")
)

// Code returns the stable API error code for err, so transition-legality and
// auth failures are never silently downgraded on the wire.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrTokenMalformed):
		return "TOKEN_MALFORMED"
	case errors.Is(err, ErrTokenNotFound):
		return "TOKEN_NOT_FOUND"
	case errors.Is(err, ErrTokenExpired):
		return "TOKEN_EXPIRED"
	case errors.Is(err, ErrShiftClosed):
		return "SHIFT_CLOSED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, ErrIllegalTransition):
		return "ILLEGAL_TRANSITION"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_FAILED"
	case errors.Is(err, ErrConflict), errors.Is(err, ErrShiftConflict):
		return "CONFLICT"
	case errors.Is(err, ErrShiftNotOpen):
		return "SHIFT_NOT_OPEN"
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrTableNotFound), errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrUserNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrOrderClosed), errors.Is(err, ErrTableClosed):
		return "GONE"
	default:
		return "INTERNAL"
	}
}
