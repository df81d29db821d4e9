package session

import (
	"context"
	"time"
)

// Access modes for a stored token.
const (
	AccessModeOffline = "offline"
	AccessModeOnline  = "online"
)

// Session is the long-lived credential obtained for a shop through the
// OAuth handshake. At most one session exists per shop; a re-auth replaces it.
type Session struct {
	Shop        string    `json:"shop"`
	AccessToken string    `json:"-"`
	Scope       string    `json:"scope"`
	AccessMode  string    `json:"access_mode"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repository defines durable storage for shop sessions.
type Repository interface {
	// Health is a simple check to verify repository works.
	Health() error
	// Disconnect gracefully closes resources. Should be safe to call on shutdown.
	Disconnect()
	// Put stores a session, replacing any existing session for the same shop.
	Put(ctx context.Context, s *Session) error
	// Get returns the session for a shop, or nil if the shop has none.
	Get(ctx context.Context, shop string) (*Session, error)
}
