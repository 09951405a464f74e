package webhook_handlers

import (
	"context"

	"github.com/rs/zerolog"

	"shopmetrics/internal/application"
	"shopmetrics/internal/domain"
	"shopmetrics/internal/infrastructure/repository"
	"shopmetrics/internal/ports"
)

// AppUninstalledHandler revokes the shop's sessions as soon as the app
// is uninstalled. The access token is dead at that point; keeping the
// session around would only let the read API hand out 500s instead of
// a clean 401. The later shop/redact webhook erases the rest.
type AppUninstalledHandler struct {
	logger   zerolog.Logger
	sessions ports.SessionRepository
	kpiCache *repository.KPICache
}

// NewAppUninstalledHandler creates a new app uninstalled handler.
func NewAppUninstalledHandler(logger zerolog.Logger, sessions ports.SessionRepository, kpiCache *repository.KPICache) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		logger:   logger,
		sessions: sessions,
		kpiCache: kpiCache,
	}
}

// Handle processes an app/uninstalled webhook event.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	if event.Shop == "" {
		h.logger.Warn().Str("deliveryId", event.DeliveryID).Msg("App uninstalled event names no shop")
		return nil
	}

	ids := []string{domain.OfflineSessionID(event.Shop)}
	found, err := h.sessions.FindByShop(ctx, event.Shop)
	if err == nil {
		for _, s := range found {
			if s.ID != ids[0] {
				ids = append(ids, s.ID)
			}
		}
	} else {
		h.logger.Warn().Err(err).Str("shop", event.Shop).Msg("Failed to enumerate sessions, deleting offline session only")
	}

	if err := h.sessions.DeleteMany(ctx, ids); err != nil {
		// Transient store trouble: ask Shopify to redeliver rather than
		// leave a dead token resolvable.
		return application.Retryable(err)
	}

	if err := h.kpiCache.Invalidate(ctx, event.Shop); err != nil {
		h.logger.Warn().Err(err).Str("shop", event.Shop).Msg("Failed to invalidate KPI cache")
	}

	h.logger.Info().
		Str("shop", event.Shop).
		Int("sessions", len(ids)).
		Msg("App uninstalled, sessions deleted")
	return nil
}
