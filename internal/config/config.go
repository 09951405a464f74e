package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds the process-wide settings, resolved once at startup.
// Nothing reloads these at runtime.
type Config struct {
	Port   string
	AppURL string

	ShopifyAPIKey        string
	ShopifyAPISecret     string
	ShopifyWebhookSecret string
	ShopifyScopes        []string

	RedisAddr     string
	RedisPassword string

	MongoURI      string
	MongoDatabase string

	// SessionShopIndex enables the secondary shop -> session-ids index
	// so shop-scoped session lookup works. Off by default because the
	// index costs extra compensating writes per session mutation.
	SessionShopIndex bool
}

const defaultScopes = "read_products,read_orders"

// Load reads configuration from the environment. Only the Shopify API
// credentials are mandatory; everything else has a local-dev default.
func Load() (Config, error) {
	cfg := Config{
		Port:   envOr("PORT", "8080"),
		AppURL: envOr("APP_URL", "http://localhost:8080"),

		ShopifyAPIKey:        os.Getenv("SHOPIFY_API_KEY"),
		ShopifyAPISecret:     os.Getenv("SHOPIFY_API_SECRET"),
		ShopifyWebhookSecret: os.Getenv("SHOPIFY_WEBHOOK_SECRET"),
		ShopifyScopes:        strings.Split(envOr("SHOPIFY_SCOPES", defaultScopes), ","),

		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		MongoURI:      envOr("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: envOr("MONGODB_DATABASE", "shopmetrics"),

		SessionShopIndex: os.Getenv("SESSION_SHOP_INDEX") == "true",
	}

	if cfg.ShopifyAPIKey == "" {
		return Config{}, fmt.Errorf("SHOPIFY_API_KEY environment variable is required")
	}
	if cfg.ShopifyAPISecret == "" {
		return Config{}, fmt.Errorf("SHOPIFY_API_SECRET environment variable is required")
	}
	if cfg.ShopifyWebhookSecret == "" {
		// The API secret doubles as the webhook secret for apps that
		// have not configured a dedicated one.
		cfg.ShopifyWebhookSecret = cfg.ShopifyAPISecret
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
