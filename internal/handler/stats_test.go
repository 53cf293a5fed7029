package handler

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/jersey-orders/internal/domain/stats"
)

// statsRepo serves fixed aggregates to a real stats.Service.
type statsRepo struct {
	totals   stats.Totals
	byStatus map[string]int
	byColor  map[string]int
	daily    []stats.DailyStat
	top      []stats.CustomerStat
	adoption stats.Adoption

	mu      sync.Mutex
	windows []stats.Window
}

func (r *statsRepo) seen(w stats.Window) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows = append(r.windows, w)
}

func (r *statsRepo) Totals(_ context.Context, w stats.Window) (stats.Totals, error) {
	r.seen(w)
	return r.totals, nil
}

func (r *statsRepo) CountByStatus(context.Context, stats.Window) (map[string]int, error) {
	return r.byStatus, nil
}

func (r *statsRepo) CountByColor(context.Context, stats.Window) (map[string]int, error) {
	return r.byColor, nil
}

func (r *statsRepo) Daily(_ context.Context, w stats.Window) ([]stats.DailyStat, error) {
	r.seen(w)
	return r.daily, nil
}

func (r *statsRepo) TopCustomers(context.Context, int) ([]stats.CustomerStat, error) {
	return r.top, nil
}

func (r *statsRepo) Adoption(context.Context) (stats.Adoption, error) {
	return r.adoption, nil
}

func (r *statsRepo) QuickSearch(context.Context, string, int) ([]stats.OrderSummary, error) {
	return nil, nil
}

// serverZone stands in for a server running east of UTC.
var serverZone = time.FixedZone("+01", 3600)

func newStatsService(repo *statsRepo, now time.Time) *stats.Service {
	return stats.NewService(repo, noop.NewTracerProvider(),
		stats.WithClock(func() time.Time { return now }),
		stats.WithLocation(serverZone),
	)
}

func TestStats_Service(t *testing.T) {
	repo := &statsRepo{
		totals:   stats.Totals{Orders: 3, Revenue: decimal.RequireFromString("690.00")},
		byStatus: map[string]int{"pending": 1, "in_production": 1, "delivered": 1},
		byColor:  map[string]int{"red": 2, "white": 1},
	}
	// 23:30 UTC is already the next day in the server zone.
	now := time.Date(2026, 10, 15, 23, 30, 0, 0, time.UTC)
	srv := newTestServer(t, nil, newStatsService(repo, now), nil)

	code, body := do(t, srv, http.MethodGet, "/api/admin/stats?period=today", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "today", body["period"])

	s := body["stats"].(map[string]any)
	assert.Equal(t, float64(3), s["total_orders"])
	assert.Equal(t, float64(690), s["total_revenue"])
	assert.Equal(t, float64(230), s["average_order"])
	assert.Equal(t, float64(2), s["in_progress"])
	assert.Equal(t, float64(1), s["delivered"])
	assert.Equal(t, float64(0), s["shipped"])
	assert.Equal(t, map[string]any{"red": float64(2), "white": float64(1)}, s["by_color"])

	require.Len(t, repo.windows, 1)
	w := repo.windows[0]
	assert.True(t, time.Date(2026, 10, 16, 0, 0, 0, 0, serverZone).Equal(w.Since), "since %s", w.Since)
	assert.Equal(t, serverZone, w.Zone())
}

func TestStats_ServiceNoOrders(t *testing.T) {
	repo := &statsRepo{totals: stats.Totals{Revenue: decimal.Zero}}
	srv := newTestServer(t, nil, newStatsService(repo, time.Now()), nil)

	code, body := do(t, srv, http.MethodGet, "/api/admin/stats?period=all", "")
	require.Equal(t, http.StatusOK, code)

	s := body["stats"].(map[string]any)
	assert.Equal(t, float64(0), s["total_orders"])
	assert.Equal(t, float64(0), s["total_revenue"])
	assert.Equal(t, float64(0), s["average_order"])
	assert.Equal(t, map[string]any{}, s["by_status"])
	assert.False(t, repo.windows[0].Bounded())
}

func TestAdvancedStats_Service(t *testing.T) {
	repo := &statsRepo{
		daily: []stats.DailyStat{
			{Date: time.Date(2026, 10, 16, 0, 0, 0, 0, serverZone), Orders: 2, Revenue: decimal.RequireFromString("460")},
			{Date: time.Date(2026, 10, 14, 0, 0, 0, 0, serverZone), Orders: 1, Revenue: decimal.RequireFromString("180")},
		},
		top: []stats.CustomerStat{
			{Name: "Youssef", Phone: "0611", Orders: 2, TotalSpent: decimal.RequireFromString("460")},
		},
		adoption: stats.Adoption{WithName: 1, WithNumber: 2, WithSlogan: 1},
	}
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	srv := newTestServer(t, nil, newStatsService(repo, now), nil)

	code, body := do(t, srv, http.MethodGet, "/api/admin/stats/advanced", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])

	s := body["stats"].(map[string]any)
	daily := s["daily"].([]any)
	require.Len(t, daily, 2)
	assert.Equal(t, "2026-10-16", daily[0].(map[string]any)["date"])
	assert.Equal(t, float64(460), daily[0].(map[string]any)["revenue"])
	assert.Equal(t, "2026-10-14", daily[1].(map[string]any)["date"])

	top := s["top_customers"].([]any)
	require.Len(t, top, 1)
	assert.Equal(t, "Youssef", top[0].(map[string]any)["name"])

	assert.Equal(t, map[string]any{
		"with_name":   float64(1),
		"with_number": float64(2),
		"with_slogan": float64(1),
	}, s["personalization"])

	require.Len(t, repo.windows, 1)
	assert.True(t, now.Add(-stats.DailyWindow).Equal(repo.windows[0].Since))
	assert.Equal(t, serverZone, repo.windows[0].Zone())
}
