// Package stats computes the dashboard aggregates over stored orders.
package stats

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/jersey-orders/internal/domain/order"
)

// Period names a relative window of order creation times.
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
	PeriodAll   Period = "all"
)

// Periods lists every Period a summary can be computed for.
var Periods = []Period{PeriodToday, PeriodWeek, PeriodMonth, PeriodYear, PeriodAll}

// ParsePeriod maps a period name to a Period. An empty name means today;
// unknown names cover all orders.
func ParsePeriod(s string) Period {
	switch p := Period(s); p {
	case "":
		return PeriodToday
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodYear:
		return p
	default:
		return PeriodAll
	}
}

// Since returns the lower creation-time bound of the period relative to
// now, and false when the period is unbounded.
func (p Period) Since(now time.Time) (time.Time, bool) {
	switch p {
	case PeriodToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), true
	case PeriodWeek:
		return now.AddDate(0, 0, -7), true
	case PeriodMonth:
		return now.AddDate(0, 0, -30), true
	case PeriodYear:
		return now.AddDate(0, 0, -365), true
	default:
		return time.Time{}, false
	}
}

// Window bounds aggregate queries. A zero Since means no bound. Location
// is the zone calendar days are counted in; nil means UTC.
type Window struct {
	Since    time.Time
	Location *time.Location
}

// Zone returns the window's location, defaulting to UTC.
func (w Window) Zone() *time.Location {
	if w.Location == nil {
		return time.UTC
	}
	return w.Location
}

// Bounded reports whether the window has a lower bound.
func (w Window) Bounded() bool {
	return !w.Since.IsZero()
}

// Totals is the order count and revenue within a window.
type Totals struct {
	Orders  int
	Revenue decimal.Decimal
}

// Summary is the basic dashboard summary for a period.
type Summary struct {
	Period       Period
	TotalOrders  int
	TotalRevenue decimal.Decimal
	ByStatus     map[string]int
	InProgress   int
	Delivered    int
	Shipped      int
	AverageOrder decimal.Decimal
	ByColor      map[string]int
}

// DailyStat is the order count and revenue of one calendar day. Date is
// midnight of that day in the window's location.
type DailyStat struct {
	Date    time.Time
	Orders  int
	Revenue decimal.Decimal
}

// CustomerStat aggregates the orders of one (name, phone) pair.
type CustomerStat struct {
	Name       string
	Phone      string
	Orders     int
	TotalSpent decimal.Decimal
}

// Adoption counts orders using each personalization element.
type Adoption struct {
	WithName   int
	WithNumber int
	WithSlogan int
}

// AdvancedSummary is the extended dashboard summary.
type AdvancedSummary struct {
	Daily           []DailyStat
	TopCustomers    []CustomerStat
	Personalization Adoption
}

// OrderSummary is the reduced order projection returned by quick search.
type OrderSummary struct {
	ID            int64
	OrderNumber   string
	CustomerName  string
	CustomerPhone string
	TotalPrice    decimal.Decimal
	Status        order.Status
}

// Repository runs the aggregate queries.
type Repository interface {
	Totals(ctx context.Context, w Window) (Totals, error)
	CountByStatus(ctx context.Context, w Window) (map[string]int, error)
	CountByColor(ctx context.Context, w Window) (map[string]int, error)
	// Daily returns per-day aggregates for days with orders in the window,
	// most recent day first.
	Daily(ctx context.Context, w Window) ([]DailyStat, error)
	TopCustomers(ctx context.Context, limit int) ([]CustomerStat, error)
	Adoption(ctx context.Context) (Adoption, error)
	QuickSearch(ctx context.Context, term string, limit int) ([]OrderSummary, error)
}

// Cache keeps recently computed summaries. Implementations report a miss
// with false and a nil error.
type Cache interface {
	GetSummary(ctx context.Context, p Period) (*Summary, bool, error)
	SetSummary(ctx context.Context, s *Summary) error
	GetAdvanced(ctx context.Context) (*AdvancedSummary, bool, error)
	SetAdvanced(ctx context.Context, s *AdvancedSummary) error
	// Invalidate drops every cached summary.
	Invalidate(ctx context.Context) error
}
