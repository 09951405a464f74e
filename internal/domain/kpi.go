package domain

import "time"

// KPIReport is the aggregate returned by the shop KPI endpoint.
// Monetary amounts are formatted with two decimal places, matching what
// the dashboard renders.
type KPIReport struct {
	Shop        ShopInfo     `json:"shop"`
	Orders      OrderKPIs    `json:"orders"`
	Revenue     RevenueKPIs  `json:"revenue"`
	TopProducts []ProductKPI `json:"topProducts"`
	GeneratedAt time.Time    `json:"generatedAt"`
}

// ShopInfo is the shop header of a KPI report.
type ShopInfo struct {
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Domain    string     `json:"domain"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	Currency  string     `json:"currency"`
}

// OrderKPIs counts orders per reporting window.
type OrderKPIs struct {
	Today     int `json:"today"`
	ThisWeek  int `json:"thisWeek"`
	ThisMonth int `json:"thisMonth"`
	Total     int `json:"total"`
}

// RevenueKPIs sums order totals per reporting window.
type RevenueKPIs struct {
	Today     string `json:"today"`
	ThisWeek  string `json:"thisWeek"`
	ThisMonth string `json:"thisMonth"`
	Total     string `json:"total"`
}

// ProductKPI is one entry of the top-products list.
type ProductKPI struct {
	ID        uint64 `json:"id"`
	Title     string `json:"title"`
	Inventory int    `json:"inventory"`
	Image     string `json:"image"`
	Price     string `json:"price"`
}
