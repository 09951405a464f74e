package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"shopmetrics/internal/domain"
	"shopmetrics/internal/ports"
)

// RequireSession resolves the shop's offline session and injects it into
// the request context. Requests naming no shop, or a shop without a
// stored session, get a 401; a store failure degrades to the same 401
// rather than crashing the request.
func RequireSession(sessions ports.SessionRepository, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			shop := r.URL.Query().Get("shop")
			if shop == "" {
				shop = r.Header.Get("X-Shopify-Shop-Domain")
			}
			if shop == "" {
				unauthorized(w)
				return
			}

			session, err := sessions.Load(r.Context(), domain.OfflineSessionID(shop))
			if err != nil {
				logger.Error().Err(err).Str("shop", shop).Msg("Failed to load session")
				unauthorized(w)
				return
			}
			if session == nil {
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(domain.WithSession(r.Context(), session)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "No authenticated session found"})
}
