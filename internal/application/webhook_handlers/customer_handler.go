package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"shopmetrics/internal/domain"
	"shopmetrics/internal/infrastructure/repository"
	"shopmetrics/internal/ports"
)

const exportQueueKeyPrefix = "compliance:export:"

// CustomerHandler handles the customer compliance topics. Their contract
// is stricter than domain events: the export must be durably queued and
// the erasure completed before the webhook may be acknowledged, so every
// I/O failure here is returned instead of swallowed.
type CustomerHandler struct {
	logger   zerolog.Logger
	kv       ports.KV
	kpiCache *repository.KPICache
}

// NewCustomerHandler creates a new customer compliance handler.
func NewCustomerHandler(logger zerolog.Logger, kv ports.KV, kpiCache *repository.KPICache) *CustomerHandler {
	return &CustomerHandler{
		logger:   logger,
		kv:       kv,
		kpiCache: kpiCache,
	}
}

// exportRequest is the durably queued unit of work for a data request.
type exportRequest struct {
	Shop       string `json:"shop"`
	DeliveryID string `json:"delivery_id"`
	CustomerID int64  `json:"customer_id"`
	Email      string `json:"email,omitempty"`
}

// HandleDataRequest queues a customer data export. The export itself is
// produced by an operator-facing process within the platform SLA; this
// handler only guarantees the request cannot be lost once acknowledged.
func (h *CustomerHandler) HandleDataRequest(ctx context.Context, event *domain.WebhookEvent) error {
	customerID, email, err := parseCustomerPayload(event.Payload)
	if err != nil {
		return err
	}

	req := exportRequest{
		Shop:       event.Shop,
		DeliveryID: event.DeliveryID,
		CustomerID: customerID,
		Email:      email,
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal export request: %w", err)
	}

	// No TTL: the record must survive until an operator completes the
	// export and removes it.
	if err := h.kv.Set(ctx, exportQueueKeyPrefix+event.DeliveryID, data, 0); err != nil {
		return fmt.Errorf("failed to queue customer data export: %w", err)
	}

	h.logger.Info().
		Str("shop", event.Shop).
		Int64("customerId", customerID).
		Str("deliveryId", event.DeliveryID).
		Msg("Customer data request queued for export")
	return nil
}

// HandleRedact erases the personal data this app holds for the named
// customer. Sessions hold no customer data; what remains is the cached
// KPI report, which embeds customer-derived order aggregates.
func (h *CustomerHandler) HandleRedact(ctx context.Context, event *domain.WebhookEvent) error {
	customerID, _, err := parseCustomerPayload(event.Payload)
	if err != nil {
		return err
	}

	if err := h.kpiCache.Invalidate(ctx, event.Shop); err != nil {
		return fmt.Errorf("failed to erase cached aggregates for %s: %w", event.Shop, err)
	}

	h.logger.Info().
		Str("shop", event.Shop).
		Int64("customerId", customerID).
		Msg("Customer data redacted")
	return nil
}

func parseCustomerPayload(payload []byte) (customerID int64, email string, err error) {
	var body struct {
		Customer struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		} `json:"customer"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return 0, "", fmt.Errorf("failed to parse customer compliance payload: %w", err)
	}
	return body.Customer.ID, body.Customer.Email, nil
}
