package shopify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"

	"shopmetrics/internal/ports"
)

type client struct {
	apiKey    string
	apiSecret string
	app       goshopify.App
	logger    zerolog.Logger
}

// NewClient creates a Shopify Admin API client adapter.
func NewClient(apiKey, apiSecret string, logger zerolog.Logger) ports.ShopifyClient {
	app := goshopify.App{
		ApiKey:    apiKey,
		ApiSecret: apiSecret,
	}
	return &client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		app:       app,
		logger:    logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	cl, err := goshopify.NewClient(c.app, shopDomain, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return cl, nil
}

func (c *client) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	// Shopify expects scopes comma-separated with no spaces. The
	// go-shopify AuthorizeUrl helper does not carry redirect_uri and
	// state, so the URL is assembled by hand.
	scopesStr := strings.Join(scopes, ",")

	authURL := fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		shop,
		c.apiKey,
		url.QueryEscape(scopesStr),
		url.QueryEscape(redirectURI),
		url.QueryEscape(state),
	)

	c.logger.Debug().
		Str("shop", shop).
		Strs("scopes", scopes).
		Msg("Generated OAuth authorization URL")

	return authURL, nil
}

func (c *client) ExchangeToken(ctx context.Context, shop string, code string, redirectURI string) (string, error) {
	token, err := c.app.GetAccessToken(ctx, shop, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange token: %w", err)
	}
	return token, nil
}

func (c *client) GetShop(ctx context.Context, shopDomain string, accessToken string) (*goshopify.Shop, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	shop, err := cl.Shop.Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	return shop, nil
}

func (c *client) GetOrders(ctx context.Context, shopDomain string, accessToken string, options interface{}) ([]goshopify.Order, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	orders, err := cl.Order.List(ctx, options)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (c *client) GetProducts(ctx context.Context, shopDomain string, accessToken string, options interface{}) ([]goshopify.Product, error) {
	cl, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	products, err := cl.Product.List(ctx, options)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}
