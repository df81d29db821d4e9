// Package sessiontoken validates App Bridge session tokens for embedded
// requests. Shopify signs these as HS256 JWTs with the app secret; the `dest`
// claim names the shop the request acts on behalf of.
package sessiontoken

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/quipper/poc/shopify/be/pkg/common/shopdomain"
)

const defaultClockSkew = 30 * time.Second

// Claims is the subset of session token claims the app acts on.
type Claims struct {
	Shop      string
	UserID    string
	ExpiresAt time.Time
}

// Validator verifies session tokens signed with the shared app secret.
type Validator struct {
	secret    []byte
	clientID  string
	clockSkew time.Duration
}

// New returns a Validator for tokens issued to the given client id.
func New(secret, clientID string) *Validator {
	return &Validator{
		secret:    []byte(secret),
		clientID:  clientID,
		clockSkew: defaultClockSkew,
	}
}

// Validate parses and verifies a raw session token. The signature, exp/nbf
// (with a small clock skew), and aud are checked by the JWT library; the
// shop is derived from the `dest` claim and must be a canonical shop domain.
func (v *Validator) Validate(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("session token is empty")
	}
	if len(v.secret) == 0 || v.clientID == "" {
		return nil, fmt.Errorf("session token validator is not configured")
	}

	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, v.secret),
		jwt.WithValidate(true),
		jwt.WithAudience(v.clientID),
		jwt.WithAcceptableSkew(v.clockSkew),
	)
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}

	destRaw, ok := tok.Get("dest")
	if !ok {
		return nil, fmt.Errorf("session token missing dest claim")
	}
	dest, _ := destRaw.(string)
	destURL, err := url.Parse(dest)
	if err != nil || destURL.Hostname() == "" {
		return nil, fmt.Errorf("session token dest claim is not a URL: %q", dest)
	}
	shop, err := shopdomain.Validate(destURL.Hostname())
	if err != nil {
		return nil, fmt.Errorf("session token dest: %w", err)
	}

	return &Claims{
		Shop:      shop,
		UserID:    tok.Subject(),
		ExpiresAt: tok.Expiration(),
	}, nil
}
