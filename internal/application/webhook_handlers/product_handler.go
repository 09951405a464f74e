package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"shopmetrics/internal/domain"
	"shopmetrics/internal/infrastructure/repository"
)

// ProductHandler handles product webhook events by invalidating the
// shop's cached KPI report so the top-products list reflects the change.
type ProductHandler struct {
	logger   zerolog.Logger
	kpiCache *repository.KPICache
}

// NewProductHandler creates a new product webhook handler.
func NewProductHandler(logger zerolog.Logger, kpiCache *repository.KPICache) *ProductHandler {
	return &ProductHandler{
		logger:   logger,
		kpiCache: kpiCache,
	}
}

// Handle processes a product webhook event.
func (h *ProductHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var productData map[string]interface{}
	if err := json.Unmarshal(event.Payload, &productData); err != nil {
		return fmt.Errorf("failed to parse product webhook payload: %w", err)
	}

	productID, _ := productData["id"].(float64)
	title, _ := productData["title"].(string)

	h.logger.Info().
		Str("topic", event.Topic).
		Str("shop", event.Shop).
		Float64("productId", productID).
		Str("title", title).
		Msg("New product created")

	// Cache invalidation is best effort; a stale report self-heals when
	// the cache TTL expires.
	if err := h.kpiCache.Invalidate(ctx, event.Shop); err != nil {
		h.logger.Warn().Err(err).Str("shop", event.Shop).Msg("Failed to invalidate KPI cache")
	}

	return nil
}
