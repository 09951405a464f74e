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

// ShopRedactHandler erases everything this app stores for a shop: its
// sessions (with their access tokens) and its cached KPI report. This is
// a compliance topic; partial failure must surface as an error so the
// dispatcher records it for remediation.
type ShopRedactHandler struct {
	logger   zerolog.Logger
	sessions ports.SessionRepository
	kpiCache *repository.KPICache
}

// NewShopRedactHandler creates a new shop redact handler.
func NewShopRedactHandler(logger zerolog.Logger, sessions ports.SessionRepository, kpiCache *repository.KPICache) *ShopRedactHandler {
	return &ShopRedactHandler{
		logger:   logger,
		sessions: sessions,
		kpiCache: kpiCache,
	}
}

// Handle processes a shop/redact webhook event.
func (h *ShopRedactHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	shop := event.Shop
	if shop == "" {
		var body struct {
			ShopDomain string `json:"shop_domain"`
		}
		if err := json.Unmarshal(event.Payload, &body); err != nil {
			return fmt.Errorf("failed to parse shop redact payload: %w", err)
		}
		shop = body.ShopDomain
	}
	if shop == "" {
		return fmt.Errorf("shop redact event names no shop")
	}

	// FindByShop is empty without the secondary index; the deterministic
	// offline session id covers that configuration.
	ids := []string{domain.OfflineSessionID(shop)}
	found, err := h.sessions.FindByShop(ctx, shop)
	if err != nil {
		return fmt.Errorf("failed to enumerate sessions for %s: %w", shop, err)
	}
	for _, s := range found {
		if s.ID != ids[0] {
			ids = append(ids, s.ID)
		}
	}

	if err := h.sessions.DeleteMany(ctx, ids); err != nil {
		return fmt.Errorf("failed to delete sessions for %s: %w", shop, err)
	}

	if err := h.kpiCache.Invalidate(ctx, shop); err != nil {
		return fmt.Errorf("failed to erase cached aggregates for %s: %w", shop, err)
	}

	h.logger.Info().
		Str("shop", shop).
		Int("sessions", len(ids)).
		Msg("Shop data redacted")
	return nil
}
