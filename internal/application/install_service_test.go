package application

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	shopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopmetrics/internal/domain"
	"shopmetrics/internal/infrastructure/kv"
	"shopmetrics/internal/infrastructure/repository"
	"shopmetrics/internal/ports"
)

// fakeShopifyClient satisfies ports.ShopifyClient for install tests.
type fakeShopifyClient struct {
	exchangeErr   error
	exchangedShop string
	exchangedCode string
}

func (f *fakeShopifyClient) GenerateAuthURL(shop string, scopes []string, redirectURI string, state string) (string, error) {
	q := url.Values{}
	q.Set("client_id", "test-key")
	q.Set("scope", strings.Join(scopes, ","))
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	return "https://" + shop + "/admin/oauth/authorize?" + q.Encode(), nil
}

func (f *fakeShopifyClient) ExchangeToken(ctx context.Context, shop, code, redirectURI string) (string, error) {
	if f.exchangeErr != nil {
		return "", f.exchangeErr
	}
	f.exchangedShop = shop
	f.exchangedCode = code
	return "shpat_test_token", nil
}

func (f *fakeShopifyClient) GetShop(ctx context.Context, shop, accessToken string) (*shopify.Shop, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeShopifyClient) GetOrders(ctx context.Context, shop, accessToken string, options interface{}) ([]shopify.Order, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeShopifyClient) GetProducts(ctx context.Context, shop, accessToken string, options interface{}) ([]shopify.Product, error) {
	return nil, errors.New("not implemented")
}

var _ ports.ShopifyClient = (*fakeShopifyClient)(nil)

func newInstallFixture(t *testing.T) (*InstallService, *fakeShopifyClient, ports.SessionRepository, ports.KV) {
	t.Helper()
	store := kv.NewMemoryKV()
	sessions := repository.NewSessionRepository(store, zerolog.Nop())
	client := &fakeShopifyClient{}
	svc := NewInstallService(client, sessions, store,
		[]string{"read_products", "read_orders"}, "https://app.example.com", zerolog.Nop())
	return svc, client, sessions, store
}

// stateFromAuthURL pulls the nonce back out of the authorization URL,
// the same way the merchant's browser would carry it to the callback.
func stateFromAuthURL(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestBeginInstallBuildsAuthURL(t *testing.T) {
	svc, _, _, _ := newInstallFixture(t)

	authURL, err := svc.BeginInstall(context.Background(), "a.myshop.com")
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "a.myshop.com", u.Host)
	assert.Equal(t, "/admin/oauth/authorize", u.Path)
	assert.Equal(t, "read_products,read_orders", u.Query().Get("scope"))
	assert.Equal(t, "https://app.example.com/auth/callback", u.Query().Get("redirect_uri"))
	assert.NotEmpty(t, u.Query().Get("state"))
}

func TestBeginInstallRequiresShop(t *testing.T) {
	svc, _, _, _ := newInstallFixture(t)

	_, err := svc.BeginInstall(context.Background(), "")
	require.Error(t, err)
}

func TestCompleteInstallStoresOfflineSession(t *testing.T) {
	svc, client, sessions, _ := newInstallFixture(t)
	ctx := context.Background()

	authURL, err := svc.BeginInstall(ctx, "a.myshop.com")
	require.NoError(t, err)
	state := stateFromAuthURL(t, authURL)

	session, err := svc.CompleteInstall(ctx, "a.myshop.com", "auth-code", state)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, domain.OfflineSessionID("a.myshop.com"), session.ID)
	assert.Equal(t, "shpat_test_token", session.AccessToken)
	assert.False(t, session.IsOnline)
	assert.Equal(t, "a.myshop.com", client.exchangedShop)
	assert.Equal(t, "auth-code", client.exchangedCode)

	stored, err := sessions.Load(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, session.AccessToken, stored.AccessToken)
}

func TestCompleteInstallRejectsUnknownState(t *testing.T) {
	svc, _, _, _ := newInstallFixture(t)

	_, err := svc.CompleteInstall(context.Background(), "a.myshop.com", "auth-code", "forged-state")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state")
}

func TestCompleteInstallRejectsShopMismatch(t *testing.T) {
	svc, _, _, _ := newInstallFixture(t)
	ctx := context.Background()

	authURL, err := svc.BeginInstall(ctx, "a.myshop.com")
	require.NoError(t, err)
	state := stateFromAuthURL(t, authURL)

	_, err = svc.CompleteInstall(ctx, "b.myshop.com", "auth-code", state)
	require.Error(t, err)
}

func TestCompleteInstallConsumesState(t *testing.T) {
	svc, _, _, _ := newInstallFixture(t)
	ctx := context.Background()

	authURL, err := svc.BeginInstall(ctx, "a.myshop.com")
	require.NoError(t, err)
	state := stateFromAuthURL(t, authURL)

	_, err = svc.CompleteInstall(ctx, "a.myshop.com", "auth-code", state)
	require.NoError(t, err)

	// A replayed callback with the same state must fail.
	_, err = svc.CompleteInstall(ctx, "a.myshop.com", "auth-code", state)
	require.Error(t, err)
}

func TestCompleteInstallAbortsWhenExchangeFails(t *testing.T) {
	svc, client, sessions, _ := newInstallFixture(t)
	client.exchangeErr = errors.New("shopify rejected the code")
	ctx := context.Background()

	authURL, err := svc.BeginInstall(ctx, "a.myshop.com")
	require.NoError(t, err)

	_, err = svc.CompleteInstall(ctx, "a.myshop.com", "bad-code", stateFromAuthURL(t, authURL))
	require.Error(t, err)

	stored, err := sessions.Load(ctx, domain.OfflineSessionID("a.myshop.com"))
	require.NoError(t, err)
	assert.Nil(t, stored, "no session may exist after a failed exchange")
}

func TestCompleteInstallAbortsWhenSessionStoreFails(t *testing.T) {
	store := kv.NewMemoryKV()
	failing := repository.NewSessionRepository(brokenWriteKV{KV: store}, zerolog.Nop())
	client := &fakeShopifyClient{}
	svc := NewInstallService(client, failing, store,
		[]string{"read_products"}, "https://app.example.com", zerolog.Nop())
	ctx := context.Background()

	authURL, err := svc.BeginInstall(ctx, "a.myshop.com")
	require.NoError(t, err)

	_, err = svc.CompleteInstall(ctx, "a.myshop.com", "auth-code", stateFromAuthURL(t, authURL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store session")
}

// brokenWriteKV rejects writes but leaves reads working, simulating a
// partial store outage mid-install.
type brokenWriteKV struct {
	ports.KV
}

func (b brokenWriteKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("write refused")
}
