package stats

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/jersey-orders/internal/domain/order"
)

const (
	// DailyWindow is the span of the daily series in AdvancedSummary.
	DailyWindow = 7 * 24 * time.Hour
	// TopCustomersLimit bounds AdvancedSummary.TopCustomers.
	TopCustomersLimit = 10
	// DefaultSearchLimit applies when QuickSearch gets no positive limit.
	DefaultSearchLimit = 10
)

// inProgressStatuses are the statuses counted as work in progress.
var inProgressStatuses = []order.Status{
	order.StatusPending,
	order.StatusConfirmed,
	order.StatusInProduction,
}

// Option configures a Service.
type Option func(*Service)

// WithCache caches computed summaries.
func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithLocation sets the zone that "today" and the daily series are
// computed in. The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock overrides the time source used to resolve periods.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service computes dashboard statistics.
type Service struct {
	repo   Repository
	tracer trace.Tracer
	cache  Cache
	now    func() time.Time
	loc    *time.Location
}

// NewService returns a Service reading from repo.
func NewService(repo Repository, tp trace.TracerProvider, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		tracer: tp.Tracer("github.com/xenking/jersey-orders/internal/domain/stats"),
		now:    time.Now,
		loc:    time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Basic returns the summary of orders created within the period.
func (s *Service) Basic(ctx context.Context, p Period) (*Summary, error) {
	ctx, span := s.tracer.Start(ctx, "stats.Basic",
		trace.WithAttributes(attribute.String("period", string(p))),
	)
	defer span.End()

	if cached, ok := s.cachedSummary(ctx, p); ok {
		return cached, nil
	}

	w := Window{Location: s.loc}
	if since, ok := p.Since(s.now().In(s.loc)); ok {
		w.Since = since
	}

	var (
		totals   Totals
		byStatus map[string]int
		byColor  map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totals, err = s.repo.Totals(gctx, w)
		if err != nil {
			return errors.Wrap(err, "totals")
		}
		return nil
	})
	g.Go(func() (err error) {
		byStatus, err = s.repo.CountByStatus(gctx, w)
		if err != nil {
			return errors.Wrap(err, "count by status")
		}
		return nil
	})
	g.Go(func() (err error) {
		byColor, err = s.repo.CountByColor(gctx, w)
		if err != nil {
			return errors.Wrap(err, "count by color")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	sum := Summarize(p, totals, byStatus, byColor)
	s.storeSummary(ctx, sum)
	return sum, nil
}

// Summarize derives the summary fields from the raw aggregates.
func Summarize(p Period, totals Totals, byStatus, byColor map[string]int) *Summary {
	if byStatus == nil {
		byStatus = map[string]int{}
	}
	if byColor == nil {
		byColor = map[string]int{}
	}

	sum := &Summary{
		Period:       p,
		TotalOrders:  totals.Orders,
		TotalRevenue: totals.Revenue,
		ByStatus:     byStatus,
		Delivered:    byStatus[string(order.StatusDelivered)],
		Shipped:      byStatus[string(order.StatusShipped)],
		AverageOrder: decimal.Zero,
		ByColor:      byColor,
	}
	for _, st := range inProgressStatuses {
		sum.InProgress += byStatus[string(st)]
	}
	if totals.Orders > 0 {
		sum.AverageOrder = totals.Revenue.Div(decimal.NewFromInt(int64(totals.Orders))).Round(2)
	}
	return sum
}

// Advanced returns the daily series for the trailing week, the top
// customers and personalization adoption across all orders.
func (s *Service) Advanced(ctx context.Context) (*AdvancedSummary, error) {
	ctx, span := s.tracer.Start(ctx, "stats.Advanced")
	defer span.End()

	if s.cache != nil {
		cached, ok, err := s.cache.GetAdvanced(ctx)
		if err != nil {
			zctx.From(ctx).Warn("Stats cache read failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	w := Window{Since: s.now().Add(-DailyWindow), Location: s.loc}

	var res AdvancedSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		res.Daily, err = s.repo.Daily(gctx, w)
		if err != nil {
			return errors.Wrap(err, "daily")
		}
		return nil
	})
	g.Go(func() (err error) {
		res.TopCustomers, err = s.repo.TopCustomers(gctx, TopCustomersLimit)
		if err != nil {
			return errors.Wrap(err, "top customers")
		}
		return nil
	})
	g.Go(func() (err error) {
		res.Personalization, err = s.repo.Adoption(gctx)
		if err != nil {
			return errors.Wrap(err, "adoption")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetAdvanced(ctx, &res); err != nil {
			zctx.From(ctx).Warn("Stats cache write failed", zap.Error(err))
		}
	}
	return &res, nil
}

// QuickSearch finds orders whose customer name, phone or order number
// contains term, newest first.
func (s *Service) QuickSearch(ctx context.Context, term string, limit int) ([]OrderSummary, error) {
	ctx, span := s.tracer.Start(ctx, "stats.QuickSearch")
	defer span.End()

	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	res, err := s.repo.QuickSearch(ctx, term, limit)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "quick search")
	}
	return res, nil
}

// Invalidate drops cached summaries after orders change. Cache failures
// are logged; entries then expire with their TTL.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		zctx.From(ctx).Warn("Stats cache invalidation failed", zap.Error(err))
	}
}

func (s *Service) cachedSummary(ctx context.Context, p Period) (*Summary, bool) {
	if s.cache == nil {
		return nil, false
	}
	sum, ok, err := s.cache.GetSummary(ctx, p)
	if err != nil {
		zctx.From(ctx).Warn("Stats cache read failed", zap.Error(err))
		return nil, false
	}
	return sum, ok
}

func (s *Service) storeSummary(ctx context.Context, sum *Summary) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetSummary(ctx, sum); err != nil {
		zctx.From(ctx).Warn("Stats cache write failed", zap.Error(err))
	}
}
