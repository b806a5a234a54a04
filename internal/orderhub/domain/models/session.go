package models

import "time"

// Session is a customer's table-scoped authentication context. New sessions
// carry only a token hash; legacy sessions (24-hex object IDs handed out by
// the previous system) are looked up by SessionID directly.
type Session struct {
	SessionID    string    `json:"session_id"`
	RestaurantID string    `json:"restaurant_id"`
	TableID      string    `json:"table_id"`
	TokenHash    string    `json:"-"`
	Legacy       bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Table is a physical table; closing it invalidates its sessions on the next
// resolution attempt.
type Table struct {
	TableID      string `json:"table_id"`
	RestaurantID string `json:"restaurant_id"`
	Number       int    `json:"number"`
	IsOpen       bool   `json:"is_open"`
}
