package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shopmetrics/internal/domain"
	"shopmetrics/internal/ports"
)

const (
	// KPICacheTTL keeps reports fresh enough for a dashboard while
	// sparing the Shopify API; webhook handlers invalidate eagerly on
	// order and product changes anyway.
	KPICacheTTL = 5 * time.Minute

	kpiCacheKeyPrefix = "kpi:"
)

// KPICache caches assembled KPI reports per shop in the KV store.
type KPICache struct {
	kv  ports.KV
	ttl time.Duration
}

// NewKPICache creates a KV-backed KPI report cache.
func NewKPICache(kv ports.KV) *KPICache {
	return &KPICache{kv: kv, ttl: KPICacheTTL}
}

func kpiCacheKey(shop string) string {
	return kpiCacheKeyPrefix + shop
}

// Get returns the cached report for a shop, or (nil, nil) on a miss.
func (c *KPICache) Get(ctx context.Context, shop string) (*domain.KPIReport, error) {
	data, err := c.kv.Get(ctx, kpiCacheKey(shop))
	if err == ports.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read kpi cache for %s: %w", shop, err)
	}

	var report domain.KPIReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("corrupt kpi cache for %s: %w", shop, err)
	}
	return &report, nil
}

// Put stores a report for a shop.
func (c *KPICache) Put(ctx context.Context, shop string, report *domain.KPIReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal kpi report for %s: %w", shop, err)
	}
	if err := c.kv.Set(ctx, kpiCacheKey(shop), data, c.ttl); err != nil {
		return fmt.Errorf("failed to cache kpi report for %s: %w", shop, err)
	}
	return nil
}

// Invalidate drops the cached report for a shop.
func (c *KPICache) Invalidate(ctx context.Context, shop string) error {
	if err := c.kv.Del(ctx, kpiCacheKey(shop)); err != nil {
		return fmt.Errorf("failed to invalidate kpi cache for %s: %w", shop, err)
	}
	return nil
}
