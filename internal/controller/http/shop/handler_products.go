package shop

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/quipper/poc/shopify/be/internal/shopify"
	"github.com/quipper/poc/shopify/be/pkg/common/logger"
	"github.com/quipper/poc/shopify/be/pkg/common/shopdomain"
)

const defaultPageSize = 50

// resolveShop identifies the shop a catalog request acts on: either an
// embedded-app session token in the Authorization header, or an explicit
// shop query parameter. The returned status is the rejection status to use
// when the error is non-nil.
func (h *Handler) resolveShop(r *http.Request) (string, int, error) {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		claims, err := h.tokens.Validate(strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			return "", http.StatusUnauthorized, err
		}
		return claims.Shop, 0, nil
	}
	shop, err := shopdomain.Validate(r.URL.Query().Get("shop"))
	if err != nil {
		return "", http.StatusBadRequest, err
	}
	return shop, 0, nil
}

func (h *Handler) products(w http.ResponseWriter, r *http.Request) {
	shop, status, err := h.resolveShop(r)
	if err != nil {
		writeError(w, status, "invalid_shop", err.Error())
		return
	}

	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}

	page, err := h.api.FetchPage(r.Context(), shop, r.URL.Query().Get("page_info"), limit)
	if err != nil {
		h.writeCatalogError(w, shop, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) productsAll(w http.ResponseWriter, r *http.Request) {
	shop, status, err := h.resolveShop(r)
	if err != nil {
		writeError(w, status, "invalid_shop", err.Error())
		return
	}

	// r.Context() is cancelled on client disconnect, which stops the
	// page-following loop between pages.
	records, err := h.api.FetchAll(r.Context(), shop)
	if err != nil {
		h.writeCatalogError(w, shop, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products": records,
		"count":    len(records),
	})
}

func (h *Handler) writeCatalogError(w http.ResponseWriter, shop string, err error) {
	if errors.Is(err, shopify.ErrSessionMissing) {
		writeError(w, http.StatusUnauthorized, "session_missing", "shop has no installed session; complete the OAuth handshake first")
		return
	}
	var upstream *shopify.UpstreamError
	if errors.As(err, &upstream) {
		logger.Warn("catalog fetch for %s failed upstream: %v", shop, err)
		writeError(w, http.StatusBadGateway, "upstream_error", upstream.Error())
		return
	}
	logger.Error("catalog fetch for %s: %v", shop, err)
	writeError(w, http.StatusInternalServerError, "server_error", "catalog fetch failed")
}
