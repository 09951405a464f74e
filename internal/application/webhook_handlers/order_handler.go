package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"shopmetrics/internal/domain"
	"shopmetrics/internal/infrastructure/repository"
)

// OrderHandler handles order webhook events. A new order changes every
// revenue KPI, so the shop's cached report is dropped immediately.
type OrderHandler struct {
	logger   zerolog.Logger
	kpiCache *repository.KPICache
}

// NewOrderHandler creates a new order webhook handler.
func NewOrderHandler(logger zerolog.Logger, kpiCache *repository.KPICache) *OrderHandler {
	return &OrderHandler{
		logger:   logger,
		kpiCache: kpiCache,
	}
}

// Handle processes an order webhook event.
func (h *OrderHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var orderData map[string]interface{}
	if err := json.Unmarshal(event.Payload, &orderData); err != nil {
		return fmt.Errorf("failed to parse order webhook payload: %w", err)
	}

	orderID, _ := orderData["id"].(float64)
	orderNumber, _ := orderData["order_number"].(float64)
	totalPrice, _ := orderData["total_price"].(string)

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Float64("orderId", orderID).
		Float64("orderNumber", orderNumber).
		Str("totalPrice", totalPrice).
		Msg("New order created")

	if err := h.kpiCache.Invalidate(ctx, event.Shop); err != nil {
		h.logger.Warn().Err(err).Str("shop", event.Shop).Msg("Failed to invalidate KPI cache")
	}

	return nil
}
