package application

import "context"

// AdminStats is the dashboard aggregate. The five figures are computed by
// independent queries, not one snapshot.
type AdminStats struct {
	TotalOrders   int64          `json:"totalOrders"`
	TotalSales    float64        `json:"totalSales"`
	TrendingBooks int64          `json:"trendingBooks"`
	TotalBooks    int64          `json:"totalBooks"`
	MonthlySales  []MonthlySales `json:"monthlySales"`
}

type Service struct {
	repo StatsRepository
}

func NewService(repo StatsRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Collect(ctx context.Context) (AdminStats, error) {
	var (
		stats AdminStats
		err   error
	)
	if stats.TotalOrders, err = s.repo.TotalOrders(ctx); err != nil {
		return AdminStats{}, err
	}
	if stats.TotalSales, err = s.repo.TotalSales(ctx); err != nil {
		return AdminStats{}, err
	}
	if stats.TrendingBooks, err = s.repo.TrendingBooks(ctx); err != nil {
		return AdminStats{}, err
	}
	if stats.TotalBooks, err = s.repo.TotalBooks(ctx); err != nil {
		return AdminStats{}, err
	}
	if stats.MonthlySales, err = s.repo.MonthlySales(ctx); err != nil {
		return AdminStats{}, err
	}
	if stats.MonthlySales == nil {
		stats.MonthlySales = []MonthlySales{}
	}
	return stats, nil
}
