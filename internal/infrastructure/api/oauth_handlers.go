package api

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"

	"shopmetrics/internal/application"
)

// OAuthHandlers serves the install begin and callback endpoints. Only
// the callback's session write affects state; the rest is redirect
// plumbing around the Shopify admin's embedded iframe.
type OAuthHandlers struct {
	installs *application.InstallService
	apiKey   string
	logger   zerolog.Logger
}

// NewOAuthHandlers creates the OAuth HTTP handlers.
func NewOAuthHandlers(installs *application.InstallService, apiKey string, logger zerolog.Logger) *OAuthHandlers {
	return &OAuthHandlers{
		installs: installs,
		apiKey:   apiKey,
		logger:   logger,
	}
}

// Begin handles GET /auth/shopify: it stores the CSRF state and sends
// the merchant's browser to Shopify's authorization page.
func (h *OAuthHandlers) Begin(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		http.Error(w, "shop parameter is required", http.StatusBadRequest)
		return
	}

	authURL, err := h.installs.BeginInstall(r.Context(), shop)
	if err != nil {
		h.logger.Error().Err(err).Str("shop", shop).Msg("Failed to begin install")
		http.Error(w, "Failed to start installation, please retry", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// redirectPage escapes the Shopify admin iframe via app-bridge before
// falling back to a top-level redirect.
var redirectPage = template.Must(template.New("redirect").Parse(`<!DOCTYPE html>
<html>
<head>
  <title>Redirecting...</title>
  <script src="https://cdn.shopify.com/shopifycloud/app-bridge.js"></script>
</head>
<body>
  <script>
    document.addEventListener('DOMContentLoaded', function() {
      var target = {{.RedirectURL}};
      if (window.top === window) {
        window.location.href = target;
      } else {
        try {
          window.top.location.href = target;
        } catch (e) {
          window.parent.location.href = target;
        }
      }
    });
  </script>
  <div style="text-align: center; padding: 50px; font-family: sans-serif;">
    <h2>Redirecting to your Shopify App...</h2>
    <p>If you are not redirected automatically, <a href="{{.RedirectURL}}">click here</a>.</p>
  </div>
</body>
</html>
`))

// Callback handles GET /auth/callback after the merchant approves the
// install. The session write happens before any redirect is issued; a
// failed write shows a retry message instead.
func (h *OAuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	shop := query.Get("shop")
	code := query.Get("code")
	state := query.Get("state")

	if shop == "" || code == "" || state == "" {
		http.Error(w, "Missing required parameters", http.StatusBadRequest)
		return
	}

	session, err := h.installs.CompleteInstall(r.Context(), shop, code, state)
	if err != nil {
		h.logger.Error().Err(err).Str("shop", shop).Msg("Failed to complete install")
		http.Error(w, "Installation failed, please retry the install", http.StatusInternalServerError)
		return
	}

	h.logger.Info().
		Str("shop", session.Shop).
		Msg("OAuth completed, redirecting into Shopify admin")

	redirectURL := fmt.Sprintf("https://%s/admin/apps/%s", session.Shop, h.apiKey)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := redirectPage.Execute(w, map[string]string{"RedirectURL": redirectURL}); err != nil {
		h.logger.Error().Err(err).Msg("Failed to render redirect page")
	}
}
