// Package shopify holds the outbound side of the integration: a retrying
// Admin API client, the OAuth authorize/exchange calls, paginated catalog
// reads, and webhook subscription registration.
package shopify

import (
	"fmt"
	"strings"

	sessionRepo "github.com/quipper/poc/shopify/be/pkg/repositories/session"
)

// Config is the app-level configuration the API calls depend on.
type Config struct {
	ClientID     string
	ClientSecret string
	// AppBaseURL is this service's public base URL; the OAuth redirect and
	// webhook addresses are derived from it.
	AppBaseURL string
	// Scopes is the comma-separated scope list requested during the handshake.
	Scopes     string
	AccessMode string
	APIVersion string
}

// API issues authenticated calls against a shop's Admin API.
type API struct {
	cfg      Config
	client   *Client
	sessions sessionRepo.Repository
	scheme   string
}

// APIOption customizes an API.
type APIOption func(*API)

// WithClient swaps the resilient transport (custom retry policy, tests).
func WithClient(c *Client) APIOption {
	return func(a *API) {
		if c != nil {
			a.client = c
		}
	}
}

// WithScheme overrides the https scheme used for shop URLs, for tests
// against a local fake upstream.
func WithScheme(scheme string) APIOption {
	return func(a *API) {
		if scheme != "" {
			a.scheme = scheme
		}
	}
}

func NewAPI(cfg Config, sessions sessionRepo.Repository, opts ...APIOption) *API {
	a := &API{
		cfg:      cfg,
		client:   NewClient(),
		sessions: sessions,
		scheme:   "https",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *API) shopURL(shop, path string) string {
	return fmt.Sprintf("%s://%s%s", a.scheme, shop, path)
}

func (a *API) adminPath(resource string) string {
	version := strings.TrimSpace(a.cfg.APIVersion)
	if version == "" {
		version = "2024-07"
	}
	return fmt.Sprintf("/admin/api/%s/%s", version, resource)
}
