package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"shopmetrics/internal/application"
	"shopmetrics/internal/domain"
	"shopmetrics/internal/infrastructure/pubsub"
	"shopmetrics/internal/infrastructure/shopify"
	"shopmetrics/internal/ports"
)

// dispatchTimeout bounds one webhook dispatch end to end. On expiry the
// response is retryable so Shopify redelivers.
const dispatchTimeout = 15 * time.Second

// WebhookHandler is the single POST endpoint Shopify delivers to. It is
// the authentication gate the dispatcher trusts: only envelopes whose
// HMAC signature verifies are handed on.
type WebhookHandler struct {
	verifier   *shopify.WebhookVerifier
	dispatcher *application.WebhookDispatcher
	audit      ports.AuditRepository
	pubsub     *pubsub.DispatchPubSub
	logger     zerolog.Logger
}

// NewWebhookHandler creates the webhook HTTP handler.
func NewWebhookHandler(
	verifier *shopify.WebhookVerifier,
	dispatcher *application.WebhookDispatcher,
	audit ports.AuditRepository,
	ps *pubsub.DispatchPubSub,
	logger zerolog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		verifier:   verifier,
		dispatcher: dispatcher,
		audit:      audit,
		pubsub:     ps,
		logger:     logger,
	}
}

// ServeHTTP handles POST /webhooks/shopify.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), dispatchTimeout)
	defer cancel()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read webhook payload")
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	hmacHeader := r.Header.Get("X-Shopify-Hmac-SHA256")
	if err := h.verifier.Verify(payload, hmacHeader); err != nil {
		h.logger.Warn().Err(err).Msg("Webhook signature verification failed")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	topic := r.Header.Get("X-Shopify-Topic")
	if topic == "" {
		h.logger.Warn().Msg("Missing X-Shopify-Topic header")
		http.Error(w, "Missing X-Shopify-Topic header", http.StatusBadRequest)
		return
	}

	event := &domain.WebhookEvent{
		Topic:      topic,
		Shop:       r.Header.Get("X-Shopify-Shop-Domain"),
		DeliveryID: r.Header.Get("X-Shopify-Webhook-Id"),
		Payload:    payload,
		Verified:   true,
		ReceivedAt: time.Now().UTC(),
	}

	outcome, dispatchErr := h.dispatcher.Dispatch(ctx, event)

	if err := h.audit.LogWebhook(ctx, event, string(outcome)); err != nil {
		h.logger.Error().Err(err).Str("topic", topic).Msg("Failed to log webhook event")
		// Continue: the audit log is observability, not the dedup record.
	}

	h.pubsub.Publish(&pubsub.DispatchResult{
		Event:   event,
		Outcome: string(outcome),
		Err:     dispatchErr,
	})

	if dispatchErr != nil {
		h.logger.Error().Err(dispatchErr).
			Str("topic", topic).
			Str("deliveryId", event.DeliveryID).
			Msg("Webhook dispatch failed, requesting redelivery")
		http.Error(w, "Failed to process webhook event", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"received": "true"})
}
