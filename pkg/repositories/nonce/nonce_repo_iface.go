package nonce

import (
	"context"
	"time"
)

// Repository defines storage for one-time OAuth state nonces. A nonce binds
// an authorization redirect to its eventual callback and may be validated at
// most once, even if that validation fails.
type Repository interface {
	// Health is a simple check to verify repository works.
	Health() error
	// Disconnect gracefully closes resources. Should be safe to call on shutdown.
	Disconnect()
	// Issue generates a cryptographically random nonce bound to the shop and
	// persists it with the given TTL. The returned value goes into the
	// outbound authorize URL's state parameter.
	Issue(ctx context.Context, shop string, ttl time.Duration) (string, error)
	// Consume looks up the nonce and deletes it regardless of outcome.
	// It returns true only if the nonce existed, was bound to shop, and had
	// not expired.
	Consume(ctx context.Context, nonce string, shop string) (bool, error)
}
