package shop

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quipper/poc/shopify/be/internal/shopify"
	"github.com/quipper/poc/shopify/be/pkg/common/config"
	"github.com/quipper/poc/shopify/be/pkg/common/hmacsig"
	"github.com/quipper/poc/shopify/be/pkg/common/logger"
	"github.com/quipper/poc/shopify/be/pkg/common/sessiontoken"
	nonceRepo "github.com/quipper/poc/shopify/be/pkg/repositories/nonce"
	sessionRepo "github.com/quipper/poc/shopify/be/pkg/repositories/session"
	webhookRepo "github.com/quipper/poc/shopify/be/pkg/repositories/webhook"
)

type Handler struct {
	cfg      *config.Config
	sessions sessionRepo.Repository
	nonces   nonceRepo.Repository
	events   webhookRepo.Repository
	api      *shopify.API
	verifier hmacsig.Verifier
	tokens   *sessiontoken.Validator
}

// NewHandler constructs a Handler with explicit session, nonce and webhook
// repositories. Useful when these come from different backends or databases.
func NewHandler(cfg *config.Config, sessions sessionRepo.Repository, nonces nonceRepo.Repository, events webhookRepo.Repository, api *shopify.API) *Handler {
	return &Handler{
		cfg:      cfg,
		sessions: sessions,
		nonces:   nonces,
		events:   events,
		api:      api,
		verifier: hmacsig.New(cfg.APISecret),
		tokens:   sessiontoken.New(cfg.APISecret, cfg.APIKey),
	}
}

// Router returns a chi-based router for the /api endpoints.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/health", h.health)

	// OAuth handshake
	r.Get("/api/auth/begin", h.authBegin)
	r.Get("/api/auth/callback", h.authCallback)

	// Catalog reads
	r.Get("/api/products", h.products)
	r.Get("/api/products/all", h.productsAll)

	// Webhook ingestion + audit log
	r.Post("/api/webhooks/receive", h.webhookReceive)
	r.Get("/api/webhooks", h.webhookList)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	for name, repo := range map[string]interface{ Health() error }{
		"sessions": h.sessions,
		"nonces":   h.nonces,
		"webhooks": h.events,
	} {
		if err := repo.Health(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "unhealthy", "store": name, "error": err.Error()})
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// writeError writes a JSON error response with a machine-readable code.
func writeError(w http.ResponseWriter, status int, code, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":             code,
		"error_description": desc,
	})
	logger.Debug("request rejected: status=%d error=%s desc=%s", status, code, desc)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
