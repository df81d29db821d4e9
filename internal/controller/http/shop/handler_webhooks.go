package shop

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/quipper/poc/shopify/be/pkg/common/logger"
	"github.com/quipper/poc/shopify/be/pkg/common/shopdomain"
	webhookRepo "github.com/quipper/poc/shopify/be/pkg/repositories/webhook"
)

const (
	hmacHeader  = "X-Shopify-Hmac-Sha256"
	topicHeader = "X-Shopify-Topic"
	shopHeader  = "X-Shopify-Shop-Domain"
)

// webhookReceive verifies and records one change notification. Verification
// fails closed: a delivery that does not authenticate is never persisted,
// and the body is only parsed after the signature is accepted.
func (h *Handler) webhookReceive(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "failed to read body")
		return
	}

	shop, err := shopdomain.Validate(r.Header.Get(shopHeader))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_shop", err.Error())
		return
	}
	topic := r.Header.Get(topicHeader)
	if topic == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing "+topicHeader+" header")
		return
	}

	if !h.verifier.VerifyWebhook(rawBody, r.Header.Get(hmacHeader)) {
		logger.Warn("webhookReceive: rejected delivery for %s topic=%s: bad signature", shop, topic)
		writeError(w, http.StatusUnauthorized, "invalid_hmac", "webhook hmac verification failed")
		return
	}

	receivedAt := time.Now().UTC()
	ev := &webhookRepo.Event{
		ReceiptID:  uuid.NewString(),
		EventID:    eventID(rawBody, receivedAt),
		Shop:       shop,
		Topic:      topic,
		Payload:    rawBody,
		ReceivedAt: receivedAt,
	}
	if err := h.events.Append(r.Context(), ev); err != nil {
		logger.Error("webhookReceive: append event for %s: %v", shop, err)
		writeError(w, http.StatusInternalServerError, "server_error", "failed to persist event")
		return
	}

	logger.Debug("webhookReceive: recorded %s topic=%s event_id=%s", shop, topic, ev.EventID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) webhookList(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.List(r.Context())
	if err != nil {
		logger.Error("webhookList: %v", err)
		writeError(w, http.StatusInternalServerError, "server_error", "failed to load events")
		return
	}
	if events == nil {
		events = []*webhookRepo.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// eventID derives a best-effort identity for a delivery from the payload's
// own id field. Payloads without one fall back to the receipt timestamp,
// which is a deliberately weak dedup key.
func eventID(rawBody []byte, receivedAt time.Time) string {
	var payload map[string]any
	if err := json.Unmarshal(rawBody, &payload); err == nil {
		switch id := payload["id"].(type) {
		case string:
			if id != "" {
				return id
			}
		case float64:
			return strconv.FormatInt(int64(id), 10)
		}
	}
	return strconv.FormatInt(receivedAt.UnixMilli(), 10)
}
