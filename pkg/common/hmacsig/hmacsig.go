// Package hmacsig verifies the two signature schemes Shopify uses to
// authenticate traffic towards the app: a hex HMAC over the sorted query
// string of the OAuth callback, and a base64 HMAC over the raw body of a
// webhook delivery. Both are keyed by the shared app secret.
package hmacsig

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Verifier checks inbound signatures with the shared app secret.
type Verifier struct {
	secret string
}

// New returns a Verifier for the given app secret.
func New(secret string) Verifier {
	return Verifier{secret: secret}
}

// VerifyCallback checks the `hmac` parameter of an OAuth callback against a
// recomputed HMAC-SHA256 of the remaining query parameters. The message is
// the lexicographically sorted `key=value` pairs joined by `&`, with the
// `hmac` and legacy `signature` parameters excluded and multi-valued
// parameters joined by comma. A missing secret or hmac parameter fails
// verification rather than erroring.
func (v Verifier) VerifyCallback(params url.Values) bool {
	if v.secret == "" {
		return false
	}
	received := params.Get("hmac")
	if received == "" {
		return false
	}

	keys := make([]string, 0, len(params))
	for key := range params {
		if key == "hmac" || key == "signature" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+strings.Join(params[key], ","))
	}
	message := strings.Join(pairs, "&")

	mac := hmac.New(sha256.New, []byte(v.secret))
	_, _ = mac.Write([]byte(message))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(received))
}

// VerifyWebhook checks the X-Shopify-Hmac-Sha256 header value against an
// HMAC-SHA256 over the raw, unparsed body bytes. The body must be hashed
// exactly as delivered; re-serializing parsed JSON would break equality.
func (v Verifier) VerifyWebhook(rawBody []byte, header string) bool {
	if v.secret == "" {
		return false
	}
	received, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header))
	if err != nil || len(received) == 0 {
		return false
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	_, _ = mac.Write(rawBody)
	expected := mac.Sum(nil)

	return subtle.ConstantTimeCompare(received, expected) == 1
}
