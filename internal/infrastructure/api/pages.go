package api

import (
	"net/http"
	"net/url"
)

const embeddedPage = `<!DOCTYPE html>
<html>
<head>
  <title>Shop Metrics</title>
  <script src="https://cdn.shopify.com/shopifycloud/app-bridge.js"></script>
</head>
<body>
  <div id="app" style="font-family: sans-serif; padding: 24px;">
    <h1>Shop Metrics</h1>
    <p>Loading your dashboard...</p>
  </div>
  <script>
    fetch('/api/shop-kpis' + window.location.search)
      .then(function(res) { return res.json(); })
      .then(function(kpis) {
        document.getElementById('app').innerHTML =
          '<h1>' + (kpis.shop ? kpis.shop.name : 'Shop Metrics') + '</h1>' +
          '<pre>' + JSON.stringify(kpis, null, 2) + '</pre>';
      })
      .catch(function() {
        document.getElementById('app').innerHTML =
          '<h1>Shop Metrics</h1><p>Please install the app to see your dashboard.</p>';
      });
  </script>
</body>
</html>
`

// Embedded handles GET /embedded, the app's entry point inside the
// Shopify admin iframe.
func Embedded(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(embeddedPage))
}

// Root handles GET /. Shopify opens the app at the root with its query
// parameters; they are forwarded verbatim to the embedded entry point.
func Root(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := url.Values{}
	for _, key := range []string{"shop", "host", "embedded", "hmac"} {
		if v := query.Get(key); v != "" {
			params.Set(key, v)
		}
	}

	target := "/embedded"
	if encoded := params.Encode(); encoded != "" {
		target += "?" + encoded
	}
	http.Redirect(w, r, target, http.StatusFound)
}
