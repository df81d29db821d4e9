package shopify

import (
	"errors"
	"fmt"
)

// ErrSessionMissing means the shop has no stored access token; the merchant
// has to go through the OAuth handshake (again) before API calls can be made.
var ErrSessionMissing = errors.New("shopify: no session for shop")

// UpstreamError is a non-2xx Admin API response after retry exhaustion.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("shopify: upstream returned %d: %s", e.StatusCode, e.Body)
}
