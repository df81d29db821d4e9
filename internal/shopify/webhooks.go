package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/quipper/poc/shopify/be/pkg/common/logger"
)

// WebhookTopics are the catalog change notifications this app subscribes to.
var WebhookTopics = []string{
	"products/create",
	"products/update",
	"products/delete",
}

// RegisterAll declares one webhook subscription per topic, pointing at this
// service's ingestion endpoint. Registrations are independent: a failure on
// one topic does not roll back the others, and an already-existing
// subscription (422 from Shopify) is not an error.
func (a *API) RegisterAll(ctx context.Context, shop, accessToken string) error {
	address := a.cfg.AppBaseURL + "/api/webhooks/receive"

	var errs []error
	for _, topic := range WebhookTopics {
		payload, err := json.Marshal(map[string]any{
			"webhook": map[string]string{
				"topic":   topic,
				"address": address,
				"format":  "json",
			},
		})
		if err != nil {
			return err
		}

		_, err = a.client.Do(ctx, Request{
			Method: "POST",
			URL:    a.shopURL(shop, a.adminPath("webhooks.json")),
			Headers: map[string]string{
				accessTokenHeader: accessToken,
				"Content-Type":    "application/json",
			},
			Body: payload,
		})
		if err != nil {
			var upstream *UpstreamError
			if errors.As(err, &upstream) && upstream.StatusCode == http.StatusUnprocessableEntity {
				// Shopify rejects duplicate subscriptions with a 422.
				logger.Debug("shopify: webhook %s already registered for %s", topic, shop)
				continue
			}
			errs = append(errs, fmt.Errorf("register %s: %w", topic, err))
			continue
		}
		logger.Debug("shopify: registered webhook %s for %s", topic, shop)
	}
	return errors.Join(errs...)
}
