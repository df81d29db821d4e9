package shop

import (
	"errors"
	"net/http"
	"time"

	"github.com/quipper/poc/shopify/be/internal/shopify"
	"github.com/quipper/poc/shopify/be/pkg/common/logger"
	"github.com/quipper/poc/shopify/be/pkg/common/shopdomain"
	sessionRepo "github.com/quipper/poc/shopify/be/pkg/repositories/session"
)

// authBegin starts the OAuth handshake: validate the shop domain, issue a
// one-time state nonce, and redirect the merchant to Shopify's authorize page.
func (h *Handler) authBegin(w http.ResponseWriter, r *http.Request) {
	shop, err := shopdomain.Validate(r.URL.Query().Get("shop"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_shop", err.Error())
		return
	}

	state, err := h.nonces.Issue(r.Context(), shop, h.cfg.NonceTTL)
	if err != nil {
		logger.Error("authBegin: issue nonce for %s: %v", shop, err)
		writeError(w, http.StatusInternalServerError, "server_error", "failed to persist handshake state")
		return
	}

	redirect := h.api.AuthorizeURL(shop, state)
	logger.Debug("authBegin: redirecting %s to authorize endpoint", shop)
	http.Redirect(w, r, redirect, http.StatusFound)
}

// authCallback completes the handshake. Order matters: domain validation,
// nonce consumption (anti-replay, burns the state even on later failures),
// HMAC verification, then the code exchange. Only after the session persists
// do we register webhook subscriptions.
func (h *Handler) authCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	shop, err := shopdomain.Validate(q.Get("shop"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_shop", err.Error())
		return
	}
	code := q.Get("code")
	state := q.Get("state")
	if code == "" || state == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing code or state")
		return
	}

	ok, err := h.nonces.Consume(r.Context(), state, shop)
	if err != nil {
		logger.Error("authCallback: consume nonce for %s: %v", shop, err)
		writeError(w, http.StatusInternalServerError, "server_error", "failed to check handshake state")
		return
	}
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_state", "state is unknown, expired, or already used")
		return
	}

	if !h.verifier.VerifyCallback(q) {
		writeError(w, http.StatusUnauthorized, "invalid_hmac", "callback hmac verification failed")
		return
	}

	token, scope, err := h.api.ExchangeCode(r.Context(), shop, code)
	if err != nil {
		var upstream *shopify.UpstreamError
		if errors.As(err, &upstream) {
			logger.Warn("authCallback: token exchange for %s failed upstream: %v", shop, err)
			writeError(w, http.StatusBadGateway, "upstream_error", upstream.Error())
			return
		}
		logger.Error("authCallback: token exchange for %s: %v", shop, err)
		writeError(w, http.StatusBadGateway, "upstream_error", "token exchange failed")
		return
	}

	sess := &sessionRepo.Session{
		Shop:        shop,
		AccessToken: token,
		Scope:       scope,
		AccessMode:  h.cfg.AccessMode,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.sessions.Put(r.Context(), sess); err != nil {
		logger.Error("authCallback: persist session for %s: %v", shop, err)
		writeError(w, http.StatusInternalServerError, "server_error", "failed to persist session")
		return
	}
	logger.Info("authCallback: installed %s scope=%q mode=%s", shop, scope, h.cfg.AccessMode)

	// Registrations are idempotent upstream; partial failure is reported but
	// the install itself already succeeded.
	resp := map[string]any{"shop": shop, "scope": scope}
	if err := h.api.RegisterAll(r.Context(), shop, token); err != nil {
		logger.Warn("authCallback: webhook registration for %s incomplete: %v", shop, err)
		resp["webhook_registration_error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
