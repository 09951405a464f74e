package ports

import (
	"context"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// ShopifyClient defines the Shopify Admin API operations this app uses.
type ShopifyClient interface {
	// Authentication
	GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error)
	ExchangeToken(ctx context.Context, shop string, code string, redirectURI string) (string, error)

	// Shop API
	GetShop(ctx context.Context, shop string, accessToken string) (*shopify.Shop, error)

	// Order API
	GetOrders(ctx context.Context, shop string, accessToken string, options interface{}) ([]shopify.Order, error)

	// Product API
	GetProducts(ctx context.Context, shop string, accessToken string, options interface{}) ([]shopify.Product, error)
}
