package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	shopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopmetrics/internal/domain"
	"shopmetrics/internal/infrastructure/kv"
	"shopmetrics/internal/infrastructure/repository"
)

// fakeKPIClient serves canned Shopify API responses and counts calls so
// tests can assert the cache short-circuits the API.
type fakeKPIClient struct {
	mu       sync.Mutex
	shop     *shopify.Shop
	orders   []shopify.Order
	products []shopify.Product
	apiCalls int
	shopErr  error
}

func (f *fakeKPIClient) GenerateAuthURL(shop string, scopes []string, redirectURI, state string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeKPIClient) ExchangeToken(ctx context.Context, shop, code, redirectURI string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeKPIClient) GetShop(ctx context.Context, shop, accessToken string) (*shopify.Shop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiCalls++
	if f.shopErr != nil {
		return nil, f.shopErr
	}
	return f.shop, nil
}

func (f *fakeKPIClient) GetOrders(ctx context.Context, shop, accessToken string, options interface{}) ([]shopify.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiCalls++
	return f.orders, nil
}

func (f *fakeKPIClient) GetProducts(ctx context.Context, shop, accessToken string, options interface{}) ([]shopify.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiCalls++
	return f.products, nil
}

func (f *fakeKPIClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.apiCalls
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func tp(t time.Time) *time.Time { return &t }

// Fixed "now" for the reporting windows: Saturday noon UTC.
var kpiNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newKPIFixture(t *testing.T, client *fakeKPIClient) (*KPIService, *repository.KPICache) {
	t.Helper()
	cache := repository.NewKPICache(kv.NewMemoryKV())
	svc := NewKPIService(client, cache, zerolog.Nop())
	svc.now = func() time.Time { return kpiNow }
	return svc, cache
}

func kpiSession() *domain.Session {
	return domain.NewOfflineSession("a.myshop.com", "shpat_test", []string{"read_products", "read_orders"})
}

func kpiClientFixture() *fakeKPIClient {
	shopCreated := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return &fakeKPIClient{
		shop: &shopify.Shop{
			Name:            "Test Shop",
			Email:           "owner@example.com",
			MyshopifyDomain: "a.myshop.com",
			Currency:        "EUR",
			CreatedAt:       &shopCreated,
		},
		orders: []shopify.Order{
			// Today.
			{Id: 1, TotalPrice: dec("40.00"), CreatedAt: tp(kpiNow.Add(-2 * time.Hour))},
			// Earlier this week.
			{Id: 2, TotalPrice: dec("30.25"), CreatedAt: tp(kpiNow.AddDate(0, 0, -3))},
			// Older than a week.
			{Id: 3, TotalPrice: dec("50.25"), CreatedAt: tp(kpiNow.AddDate(0, 0, -20))},
			// No timestamp; counted in totals only.
			{Id: 4, TotalPrice: dec("10.00")},
		},
		products: []shopify.Product{
			{
				Id:    100,
				Title: "Widget",
				Image: shopify.Image{Src: "https://cdn.example.com/widget.png"},
				Variants: []shopify.Variant{
					{Price: dec("19.9"), InventoryQuantity: 7},
				},
			},
			{
				Id:    101,
				Title: "Gadget",
			},
		},
	}
}

func TestShopKPIsAggregates(t *testing.T) {
	client := kpiClientFixture()
	svc, _ := newKPIFixture(t, client)

	report, err := svc.ShopKPIs(context.Background(), kpiSession())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, "Test Shop", report.Shop.Name)
	assert.Equal(t, "a.myshop.com", report.Shop.Domain)
	assert.Equal(t, "EUR", report.Shop.Currency)

	assert.Equal(t, 1, report.Orders.Today)
	assert.Equal(t, 2, report.Orders.ThisWeek)
	assert.Equal(t, 4, report.Orders.Total)

	assert.Equal(t, "40.00", report.Revenue.Today)
	assert.Equal(t, "70.25", report.Revenue.ThisWeek)
	assert.Equal(t, "130.50", report.Revenue.Total)

	assert.Equal(t, kpiNow, report.GeneratedAt)
}

func TestShopKPIsTopProducts(t *testing.T) {
	client := kpiClientFixture()
	svc, _ := newKPIFixture(t, client)

	report, err := svc.ShopKPIs(context.Background(), kpiSession())
	require.NoError(t, err)
	require.Len(t, report.TopProducts, 2)

	widget := report.TopProducts[0]
	assert.Equal(t, uint64(100), widget.ID)
	assert.Equal(t, "Widget", widget.Title)
	assert.Equal(t, "https://cdn.example.com/widget.png", widget.Image)
	assert.Equal(t, "19.90", widget.Price)
	assert.Equal(t, 7, widget.Inventory)

	// No image and no variants fall back to placeholders.
	gadget := report.TopProducts[1]
	assert.Equal(t, "https://placehold.co/100x100", gadget.Image)
	assert.Equal(t, "0.00", gadget.Price)
	assert.Equal(t, 0, gadget.Inventory)
}

func TestShopKPIsServedFromCache(t *testing.T) {
	client := kpiClientFixture()
	svc, _ := newKPIFixture(t, client)
	ctx := context.Background()

	first, err := svc.ShopKPIs(ctx, kpiSession())
	require.NoError(t, err)
	callsAfterFirst := client.calls()
	require.Equal(t, 3, callsAfterFirst, "shop, orders and products fetched once")

	second, err := svc.ShopKPIs(ctx, kpiSession())
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, client.calls(), "cached report must not hit the API")
	assert.Equal(t, first, second)
}

func TestShopKPIsRefetchesAfterInvalidation(t *testing.T) {
	client := kpiClientFixture()
	svc, cache := newKPIFixture(t, client)
	ctx := context.Background()

	_, err := svc.ShopKPIs(ctx, kpiSession())
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, "a.myshop.com"))

	_, err = svc.ShopKPIs(ctx, kpiSession())
	require.NoError(t, err)
	assert.Equal(t, 6, client.calls())
}

func TestShopKPIsRequiresSession(t *testing.T) {
	svc, _ := newKPIFixture(t, kpiClientFixture())

	_, err := svc.ShopKPIs(context.Background(), nil)
	require.Error(t, err)
}

func TestShopKPIsSurfacesAPIFailure(t *testing.T) {
	client := kpiClientFixture()
	client.shopErr = errors.New("shopify 503")
	svc, _ := newKPIFixture(t, client)

	_, err := svc.ShopKPIs(context.Background(), kpiSession())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch shop")
}

func TestShopKPIsCapsOrdersLoaded(t *testing.T) {
	client := kpiClientFixture()
	client.orders = nil
	for i := 0; i < maxOrdersLoaded+20; i++ {
		client.orders = append(client.orders, shopify.Order{
			Id:         uint64(i + 1),
			TotalPrice: dec("1.00"),
			CreatedAt:  tp(kpiNow.AddDate(0, 0, -30)),
		})
	}
	svc, _ := newKPIFixture(t, client)

	report, err := svc.ShopKPIs(context.Background(), kpiSession())
	require.NoError(t, err)
	assert.Equal(t, maxOrdersLoaded, report.Orders.Total)
	assert.Equal(t, "50.00", report.Revenue.Total)
}
