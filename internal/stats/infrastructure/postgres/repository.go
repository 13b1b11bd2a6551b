package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookverse/bookverse/internal/stats/application"
)

// Repository aggregates over the orders and books tables owned by the order
// and catalog contexts. Read-only.
type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) TotalOrders(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&n)
	return n, err
}

func (r *Repository) TotalSales(ctx context.Context) (float64, error) {
	var sum float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(sum(total_price), 0) FROM orders`).Scan(&sum)
	return sum, err
}

func (r *Repository) TrendingBooks(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM books WHERE trending`).Scan(&n)
	return n, err
}

func (r *Repository) TotalBooks(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM books`).Scan(&n)
	return n, err
}

func (r *Repository) MonthlySales(ctx context.Context) ([]application.MonthlySales, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(created_at, 'YYYY-MM') AS month,
			COALESCE(sum(total_price), 0),
			count(*)
		FROM orders
		GROUP BY month
		ORDER BY month ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []application.MonthlySales
	for rows.Next() {
		var m application.MonthlySales
		if err := rows.Scan(&m.Month, &m.TotalSales, &m.TotalOrders); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
