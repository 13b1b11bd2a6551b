package application

import "context"

// MonthlySales is one year-month bucket of order activity.
type MonthlySales struct {
	Month       string  `json:"_id"` // "YYYY-MM"
	TotalSales  float64 `json:"totalSales"`
	TotalOrders int64   `json:"totalOrders"`
}

type StatsRepository interface {
	TotalOrders(ctx context.Context) (int64, error)
	TotalSales(ctx context.Context) (float64, error)
	TrendingBooks(ctx context.Context) (int64, error)
	TotalBooks(ctx context.Context) (int64, error)
	// MonthlySales returns buckets ascending by year-month.
	MonthlySales(ctx context.Context) ([]MonthlySales, error)
}
