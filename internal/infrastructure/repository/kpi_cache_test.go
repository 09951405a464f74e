package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopmetrics/internal/domain"
	"shopmetrics/internal/infrastructure/kv"
)

func testReport(shop string) *domain.KPIReport {
	return &domain.KPIReport{
		Shop: domain.ShopInfo{
			Name:   "Test Shop",
			Domain: shop,
		},
		Orders: domain.OrderKPIs{
			Total: 3,
			Today: 1,
		},
		Revenue: domain.RevenueKPIs{
			Total: "120.50",
			Today: "40.00",
		},
		GeneratedAt: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

func TestKPICacheMiss(t *testing.T) {
	cache := NewKPICache(kv.NewMemoryKV())

	report, err := cache.Get(context.Background(), "a.myshop.com")
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestKPICachePutGet(t *testing.T) {
	cache := NewKPICache(kv.NewMemoryKV())
	ctx := context.Background()

	stored := testReport("a.myshop.com")
	require.NoError(t, cache.Put(ctx, "a.myshop.com", stored))

	loaded, err := cache.Get(ctx, "a.myshop.com")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, stored, loaded)
}

func TestKPICacheIsPerShop(t *testing.T) {
	cache := NewKPICache(kv.NewMemoryKV())
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "a.myshop.com", testReport("a.myshop.com")))

	report, err := cache.Get(ctx, "b.myshop.com")
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestKPICacheInvalidate(t *testing.T) {
	cache := NewKPICache(kv.NewMemoryKV())
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "a.myshop.com", testReport("a.myshop.com")))
	require.NoError(t, cache.Invalidate(ctx, "a.myshop.com"))

	report, err := cache.Get(ctx, "a.myshop.com")
	require.NoError(t, err)
	assert.Nil(t, report)

	// Invalidating a shop with no cached report is fine.
	require.NoError(t, cache.Invalidate(ctx, "a.myshop.com"))
}

func TestKPICacheExpires(t *testing.T) {
	clock := newTestClock()
	cache := NewKPICache(kv.NewMemoryKVWithClock(clock.Now))
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, "a.myshop.com", testReport("a.myshop.com")))
	clock.Advance(KPICacheTTL + time.Second)

	report, err := cache.Get(ctx, "a.myshop.com")
	require.NoError(t, err)
	assert.Nil(t, report)
}
