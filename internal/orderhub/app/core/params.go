package core

import "time"

// HubParams are the order-hub runtime parameters taken from the command line.
type HubParams struct {
	Port       int
	ConfigPath string
}

const (
	// WaitTime bounds request-scoped DB work and graceful shutdown.
	WaitTime = 10 * time.Second

	// TransitionRetries bounds internal retries after an optimistic
	// concurrency conflict before surfacing it to the caller.
	TransitionRetries = 3

	// SubscriberBuffer is the per-subscriber event queue size; a full queue
	// drops events for that subscriber only.
	SubscriberBuffer = 64

	// RecentEventsCap bounds the per-connection ring of delivered events.
	RecentEventsCap = 32

	// TokenBytes is the entropy of minted session and staff tokens.
	TokenBytes = 32

	// LegacyTokenLen is the fixed length of legacy session identifiers,
	// resolved by direct primary-key lookup.
	LegacyTokenLen = 24

	// SessionCacheTTL caps how long a resolved customer session may be
	// served from cache; the effective TTL never exceeds the remaining
	// session life.
	SessionCacheTTL = 30 * time.Second

	MinItems = 1
	MaxItems = 20

	MinItemNameLen = 1
	MaxItemNameLen = 64

	MinItemQuantity = 1
	MaxItemQuantity = 20

	MinItemPrice = 0.01
	MaxItemPrice = 999.99
)
