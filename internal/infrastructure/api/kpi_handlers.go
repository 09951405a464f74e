package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"shopmetrics/internal/application"
	"shopmetrics/internal/domain"
	"shopmetrics/internal/ports"
)

// APIHandlers serves the authenticated read endpoints. Every handler
// receives the session resolved by RequireSession through the request
// context; there is no other authentication state.
type APIHandlers struct {
	kpis   *application.KPIService
	client ports.ShopifyClient
	apiKey string
	logger zerolog.Logger
}

// NewAPIHandlers creates the read API handlers.
func NewAPIHandlers(kpis *application.KPIService, client ports.ShopifyClient, apiKey string, logger zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		kpis:   kpis,
		client: client,
		apiKey: apiKey,
		logger: logger,
	}
}

// ShopKPIs handles GET /api/shop-kpis.
func (h *APIHandlers) ShopKPIs(w http.ResponseWriter, r *http.Request) {
	session, ok := domain.SessionFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	report, err := h.kpis.ShopKPIs(r.Context(), session)
	if err != nil {
		h.logger.Error().Err(err).Str("shop", session.Shop).Msg("Failed to assemble shop KPIs")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Failed to fetch shop KPIs",
		})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// TestShopify handles GET /api/test-shopify, a connectivity check that
// fetches the shop record with the session's token.
func (h *APIHandlers) TestShopify(w http.ResponseWriter, r *http.Request) {
	session, ok := domain.SessionFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	shop, err := h.client.GetShop(r.Context(), session.Shop, session.AccessToken)
	if err != nil {
		h.logger.Error().Err(err).Str("shop", session.Shop).Msg("Shopify API test failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Shopify API test failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"shop": map[string]string{
			"name":            shop.Name,
			"email":           shop.Email,
			"myshopifyDomain": shop.MyshopifyDomain,
		},
	})
}

// APIKey handles GET /api/shopify/api-key, used by the embedded frontend
// to initialize app-bridge.
func (h *APIHandlers) APIKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"apiKey": h.apiKey})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
