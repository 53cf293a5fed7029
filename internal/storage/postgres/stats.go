package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/jersey-orders/internal/domain/order"
	"github.com/xenking/jersey-orders/internal/domain/stats"
)

var _ stats.Repository = (*StatsRepository)(nil)

// StatsRepository implements stats.Repository backed by PostgreSQL.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository returns a StatsRepository that uses the given pool.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

func windowed(w stats.Window) *queryBuilder {
	b := &queryBuilder{}
	if w.Bounded() {
		b.since("created_at", w.Since)
	}
	return b
}

// Totals returns the number of orders and their summed price.
func (r *StatsRepository) Totals(ctx context.Context, w stats.Window) (stats.Totals, error) {
	b := windowed(w)
	var t stats.Totals
	err := r.pool.QueryRow(ctx,
		`SELECT count(*), COALESCE(sum(total_price), 0) FROM orders`+b.where(),
		b.args...,
	).Scan(&t.Orders, &t.Revenue)
	if err != nil {
		return stats.Totals{}, fmt.Errorf("summing orders: %w", err)
	}
	return t, nil
}

// CountByStatus returns the number of orders per status.
func (r *StatsRepository) CountByStatus(ctx context.Context, w stats.Window) (map[string]int, error) {
	return r.countBy(ctx, "status", w)
}

// CountByColor returns the number of orders per jersey color.
func (r *StatsRepository) CountByColor(ctx context.Context, w stats.Window) (map[string]int, error) {
	return r.countBy(ctx, "jersey_color", w)
}

func (r *StatsRepository) countBy(ctx context.Context, col string, w stats.Window) (map[string]int, error) {
	b := windowed(w)
	rows, err := r.pool.Query(ctx,
		`SELECT `+col+`, count(*) FROM orders`+b.where()+` GROUP BY `+col,
		b.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("counting orders by %s: %w", col, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("scanning %s count: %w", col, err)
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

// Daily returns per-day order counts and revenue, most recent day first.
func (r *StatsRepository) Daily(ctx context.Context, w stats.Window) ([]stats.DailyStat, error) {
	b := windowed(w)
	day := b.localDay("created_at", w.Zone())
	rows, err := r.pool.Query(ctx,
		`SELECT `+day+` AS day, count(*), COALESCE(sum(total_price), 0)
		FROM orders`+b.where()+`
		GROUP BY day
		ORDER BY day DESC`,
		b.args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying daily stats: %w", err)
	}

	days, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (stats.DailyStat, error) {
		var (
			d   stats.DailyStat
			day pgtype.Date
		)
		if err := row.Scan(&day, &d.Orders, &d.Revenue); err != nil {
			return d, err
		}
		d.Date = dayIn(day, w.Zone())
		return d, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning daily stats: %w", err)
	}
	return days, nil
}

// dayIn returns midnight of the calendar day d in loc.
func dayIn(d pgtype.Date, loc *time.Location) time.Time {
	y, m, dd := d.Time.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, loc)
}

// TopCustomers returns the customers with the most orders. Orders without
// a customer name are ignored.
func (r *StatsRepository) TopCustomers(ctx context.Context, limit int) ([]stats.CustomerStat, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT customer_name, customer_phone, count(*) AS orders, COALESCE(sum(total_price), 0)
		FROM orders
		WHERE customer_name <> ''
		GROUP BY customer_name, customer_phone
		ORDER BY orders DESC, customer_name
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying top customers: %w", err)
	}

	customers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (stats.CustomerStat, error) {
		var c stats.CustomerStat
		err := row.Scan(&c.Name, &c.Phone, &c.Orders, &c.TotalSpent)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning top customers: %w", err)
	}
	return customers, nil
}

// Adoption counts orders using each personalization element.
func (r *StatsRepository) Adoption(ctx context.Context) (stats.Adoption, error) {
	var a stats.Adoption
	err := r.pool.QueryRow(ctx,
		`SELECT
			count(*) FILTER (WHERE name_enabled),
			count(*) FILTER (WHERE number_enabled),
			count(*) FILTER (WHERE slogan_enabled)
		FROM orders`,
	).Scan(&a.WithName, &a.WithNumber, &a.WithSlogan)
	if err != nil {
		return stats.Adoption{}, fmt.Errorf("counting personalization adoption: %w", err)
	}
	return a, nil
}

// QuickSearch matches term against customer name, phone and order number.
func (r *StatsRepository) QuickSearch(ctx context.Context, term string, limit int) ([]stats.OrderSummary, error) {
	var b queryBuilder
	b.containsAny(term, "customer_name", "customer_phone", "order_number")
	query := `SELECT id, order_number, customer_name, customer_phone, total_price, status
		FROM orders` + b.where() + `
		ORDER BY created_at DESC, id DESC
		LIMIT ` + b.arg(limit)

	rows, err := r.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("searching orders: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (stats.OrderSummary, error) {
		var (
			s      stats.OrderSummary
			status string
		)
		err := row.Scan(&s.ID, &s.OrderNumber, &s.CustomerName, &s.CustomerPhone, &s.TotalPrice, &status)
		s.Status = order.Status(status)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning search results: %w", err)
	}
	return results, nil
}
