package shopdomain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalid is returned for anything that is not a *.myshopify.com shop domain.
var ErrInvalid = errors.New("invalid shop domain")

// Shops live on a per-tenant subdomain of myshopify.com. Anything else
// (bare domains, paths, schemes, foreign hosts) is rejected outright.
var shopPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]*\.myshopify\.com$`)

// Validate trims surrounding whitespace and checks raw against the canonical
// shop domain form. The trimmed input is returned unchanged on success.
func Validate(raw string) (string, error) {
	shop := strings.TrimSpace(raw)
	if shop == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalid)
	}
	if !shopPattern.MatchString(shop) {
		return "", fmt.Errorf("%w: %q", ErrInvalid, shop)
	}
	return shop, nil
}
