// Package handler exposes the order and stats services over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/xenking/jersey-orders/internal/domain/order"
	"github.com/xenking/jersey-orders/internal/domain/stats"
)

// MaxBodySize bounds request bodies. Create requests embed the preview
// image, so the limit is generous.
const MaxBodySize = 16 << 20

// OrderService is the order lifecycle used by the handlers.
type OrderService interface {
	Create(ctx context.Context, req order.CreateRequest) (*order.CreateResult, error)
	Get(ctx context.Context, id int64) (*order.Order, error)
	List(ctx context.Context, params order.ListParams) (*order.ListResult, error)
	Update(ctx context.Context, id int64, patch order.Patch) (*order.Order, error)
	Delete(ctx context.Context, id int64) error
}

// StatsService is the reporting engine used by the handlers.
type StatsService interface {
	Basic(ctx context.Context, p stats.Period) (*stats.Summary, error)
	Advanced(ctx context.Context) (*stats.AdvancedSummary, error)
	QuickSearch(ctx context.Context, term string, limit int) ([]stats.OrderSummary, error)
}

// Pinger checks that the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

// Ping calls f(ctx).
func (f PingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	Name    string
	Version string
}

// Handler serves the public order endpoint and the admin endpoints.
type Handler struct {
	orders  OrderService
	stats   StatsService
	db      Pinger
	name    string
	version string
}

// New constructs a Handler with the required domain dependencies.
func New(cfg Config, orders OrderService, stats StatsService, db Pinger) *Handler {
	return &Handler{
		orders:  orders,
		stats:   stats,
		db:      db,
		name:    cfg.Name,
		version: cfg.Version,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Info)
	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("POST /api/orders", h.CreateOrder)

	mux.HandleFunc("GET /api/admin/orders", h.ListOrders)
	mux.HandleFunc("GET /api/admin/orders/{id}", h.GetOrder)
	mux.HandleFunc("PUT /api/admin/orders/{id}", h.UpdateOrder)
	mux.HandleFunc("DELETE /api/admin/orders/{id}", h.DeleteOrder)

	mux.HandleFunc("GET /api/admin/stats", h.Stats)
	mux.HandleFunc("GET /api/admin/stats/advanced", h.AdvancedStats)
	mux.HandleFunc("GET /api/admin/search", h.Search)
}
