package application

import (
	"context"
	"fmt"
	"time"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"shopmetrics/internal/domain"
	"shopmetrics/internal/infrastructure/repository"
	"shopmetrics/internal/ports"
)

const (
	maxOrdersLoaded = 50
	maxTopProducts  = 10

	placeholderImage = "https://placehold.co/100x100"
)

// KPIService assembles the shop KPI aggregate from the Shopify Admin
// API, caching the result per shop. Webhook handlers invalidate the
// cache when orders or products change.
type KPIService struct {
	client ports.ShopifyClient
	cache  *repository.KPICache
	logger zerolog.Logger
	now    func() time.Time
}

// NewKPIService creates a new KPI service.
func NewKPIService(client ports.ShopifyClient, cache *repository.KPICache, logger zerolog.Logger) *KPIService {
	return &KPIService{
		client: client,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// ShopKPIs returns the KPI report for the session's shop.
func (s *KPIService) ShopKPIs(ctx context.Context, session *domain.Session) (*domain.KPIReport, error) {
	if session == nil {
		return nil, fmt.Errorf("session is required")
	}

	if cached, err := s.cache.Get(ctx, session.Shop); err != nil {
		s.logger.Warn().Err(err).Str("shop", session.Shop).Msg("KPI cache read failed, fetching fresh")
	} else if cached != nil {
		return cached, nil
	}

	shop, err := s.client.GetShop(ctx, session.Shop, session.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch shop: %w", err)
	}

	orders, err := s.client.GetOrders(ctx, session.Shop, session.AccessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	if len(orders) > maxOrdersLoaded {
		orders = orders[:maxOrdersLoaded]
	}

	products, err := s.client.GetProducts(ctx, session.Shop, session.AccessToken, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	if len(products) > maxTopProducts {
		products = products[:maxTopProducts]
	}

	report := s.aggregate(shop, orders, products)

	if err := s.cache.Put(ctx, session.Shop, report); err != nil {
		s.logger.Warn().Err(err).Str("shop", session.Shop).Msg("Failed to cache KPI report")
	}

	return report, nil
}

func (s *KPIService) aggregate(
	shop *goshopify.Shop,
	orders []goshopify.Order,
	products []goshopify.Product,
) *domain.KPIReport {
	now := s.now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := now.AddDate(0, 0, -7)

	var ordersToday, ordersWeek int
	revToday, revWeek, revTotal := decimal.Zero, decimal.Zero, decimal.Zero

	for _, order := range orders {
		amount := decimal.Zero
		if order.TotalPrice != nil {
			amount = *order.TotalPrice
		}
		revTotal = revTotal.Add(amount)

		if order.CreatedAt == nil {
			continue
		}
		created := order.CreatedAt.UTC()
		if !created.Before(todayStart) {
			ordersToday++
			revToday = revToday.Add(amount)
		}
		if !created.Before(weekStart) {
			ordersWeek++
			revWeek = revWeek.Add(amount)
		}
	}

	top := make([]domain.ProductKPI, 0, len(products))
	for _, product := range products {
		kpi := domain.ProductKPI{
			ID:    product.Id,
			Title: product.Title,
			Image: placeholderImage,
			Price: "0.00",
		}
		if product.Image.Src != "" {
			kpi.Image = product.Image.Src
		}
		if len(product.Variants) > 0 {
			variant := product.Variants[0]
			kpi.Inventory = variant.InventoryQuantity
			if variant.Price != nil {
				kpi.Price = variant.Price.StringFixed(2)
			}
		}
		top = append(top, kpi)
	}

	info := domain.ShopInfo{}
	if shop != nil {
		info = domain.ShopInfo{
			Name:      shop.Name,
			Email:     shop.Email,
			Domain:    shop.MyshopifyDomain,
			CreatedAt: shop.CreatedAt,
			Currency:  shop.Currency,
		}
	}

	return &domain.KPIReport{
		Shop: info,
		Orders: domain.OrderKPIs{
			Today:     ordersToday,
			ThisWeek:  ordersWeek,
			ThisMonth: len(orders),
			Total:     len(orders),
		},
		Revenue: domain.RevenueKPIs{
			Today:     revToday.StringFixed(2),
			ThisWeek:  revWeek.StringFixed(2),
			ThisMonth: revTotal.StringFixed(2),
			Total:     revTotal.StringFixed(2),
		},
		TopProducts: top,
		GeneratedAt: now,
	}
}
