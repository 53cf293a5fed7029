package stats

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

// --- Mock implementations ---

type mockRepo struct {
	mu sync.Mutex

	totals   Totals
	byStatus map[string]int
	byColor  map[string]int
	daily    []DailyStat
	top      []CustomerStat
	adoption Adoption
	results  []OrderSummary
	err      error

	windows     []Window
	topLimit    int
	searchTerm  string
	searchLimit int
	calls       int
}

func (m *mockRepo) record(w Window) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows = append(m.windows, w)
	m.calls++
}

func (m *mockRepo) Totals(_ context.Context, w Window) (Totals, error) {
	m.record(w)
	return m.totals, m.err
}

func (m *mockRepo) CountByStatus(_ context.Context, w Window) (map[string]int, error) {
	m.record(w)
	return m.byStatus, nil
}

func (m *mockRepo) CountByColor(_ context.Context, w Window) (map[string]int, error) {
	m.record(w)
	return m.byColor, nil
}

func (m *mockRepo) Daily(_ context.Context, w Window) ([]DailyStat, error) {
	m.record(w)
	return m.daily, m.err
}

func (m *mockRepo) TopCustomers(_ context.Context, limit int) ([]CustomerStat, error) {
	m.mu.Lock()
	m.topLimit = limit
	m.mu.Unlock()
	return m.top, nil
}

func (m *mockRepo) Adoption(_ context.Context) (Adoption, error) {
	return m.adoption, nil
}

func (m *mockRepo) QuickSearch(_ context.Context, term string, limit int) ([]OrderSummary, error) {
	m.searchTerm = term
	m.searchLimit = limit
	return m.results, m.err
}

type mockCache struct {
	summaries   map[Period]*Summary
	advanced    *AdvancedSummary
	err         error
	invalidated int
}

func (m *mockCache) Invalidate(context.Context) error {
	m.invalidated++
	m.summaries = nil
	m.advanced = nil
	return m.err
}

func (m *mockCache) GetSummary(_ context.Context, p Period) (*Summary, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	s, ok := m.summaries[p]
	return s, ok, nil
}

func (m *mockCache) SetSummary(_ context.Context, s *Summary) error {
	if m.summaries == nil {
		m.summaries = make(map[Period]*Summary)
	}
	m.summaries[s.Period] = s
	return m.err
}

func (m *mockCache) GetAdvanced(_ context.Context) (*AdvancedSummary, bool, error) {
	return m.advanced, m.advanced != nil, m.err
}

func (m *mockCache) SetAdvanced(_ context.Context, s *AdvancedSummary) error {
	m.advanced = s
	return m.err
}

// --- Helpers ---

var fixedNow = time.Date(2025, time.December, 21, 15, 30, 45, 123, time.Local)

func newTestService(repo Repository, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(repo, noop.NewTracerProvider(), opts...)
}

// --- Tests ---

func TestParsePeriod(t *testing.T) {
	assert.Equal(t, PeriodToday, ParsePeriod(""))
	assert.Equal(t, PeriodToday, ParsePeriod("today"))
	assert.Equal(t, PeriodWeek, ParsePeriod("week"))
	assert.Equal(t, PeriodMonth, ParsePeriod("month"))
	assert.Equal(t, PeriodYear, ParsePeriod("year"))
	assert.Equal(t, PeriodAll, ParsePeriod("all"))
	assert.Equal(t, PeriodAll, ParsePeriod("decade"))
}

func TestPeriod_Since(t *testing.T) {
	tests := []struct {
		period Period
		want   time.Time
		ok     bool
	}{
		{period: PeriodToday, want: time.Date(2025, time.December, 21, 0, 0, 0, 0, time.Local), ok: true},
		{period: PeriodWeek, want: fixedNow.AddDate(0, 0, -7), ok: true},
		{period: PeriodMonth, want: fixedNow.AddDate(0, 0, -30), ok: true},
		{period: PeriodYear, want: fixedNow.AddDate(0, 0, -365), ok: true},
		{period: PeriodAll},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			got, ok := tt.period.Since(fixedNow)
			assert.Equal(t, tt.ok, ok)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestBasic_DerivesFields(t *testing.T) {
	repo := &mockRepo{
		totals: Totals{Orders: 6, Revenue: decimal.RequireFromString("1380.00")},
		byStatus: map[string]int{
			"pending":       2,
			"confirmed":     1,
			"in_production": 1,
			"delivered":     1,
			"returned":      1,
		},
		byColor: map[string]int{"red": 4, "white": 2},
	}
	svc := newTestService(repo)

	sum, err := svc.Basic(context.Background(), PeriodWeek)
	require.NoError(t, err)

	assert.Equal(t, PeriodWeek, sum.Period)
	assert.Equal(t, 6, sum.TotalOrders)
	assert.True(t, decimal.RequireFromString("1380").Equal(sum.TotalRevenue))
	assert.Equal(t, 4, sum.InProgress)
	assert.Equal(t, 1, sum.Delivered)
	assert.Equal(t, 0, sum.Shipped)
	assert.Equal(t, 1, sum.ByStatus["returned"])
	assert.True(t, decimal.RequireFromString("230").Equal(sum.AverageOrder))
	assert.Equal(t, map[string]int{"red": 4, "white": 2}, sum.ByColor)

	require.Len(t, repo.windows, 3)
	for _, w := range repo.windows {
		assert.True(t, fixedNow.AddDate(0, 0, -7).Equal(w.Since))
	}
}

func TestBasic_TodayInLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 20:00 UTC on the 20th is already the 21st in Tokyo.
	now := time.Date(2025, time.December, 20, 20, 0, 0, 0, time.UTC)
	repo := &mockRepo{}
	svc := NewService(repo, noop.NewTracerProvider(),
		WithClock(func() time.Time { return now }),
		WithLocation(tokyo),
	)

	_, err := svc.Basic(context.Background(), PeriodToday)
	require.NoError(t, err)

	want := time.Date(2025, time.December, 21, 0, 0, 0, 0, tokyo)
	require.Len(t, repo.windows, 3)
	for _, w := range repo.windows {
		assert.True(t, want.Equal(w.Since), "since %s", w.Since)
		assert.Equal(t, tokyo, w.Zone())
	}
}

func TestWithLocation_DefaultsToUTC(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo, WithLocation(nil))

	_, err := svc.Advanced(context.Background())
	require.NoError(t, err)

	require.Len(t, repo.windows, 1)
	assert.Equal(t, time.UTC, repo.windows[0].Zone())
}

func TestBasic_AllIsUnbounded(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo)

	_, err := svc.Basic(context.Background(), PeriodAll)
	require.NoError(t, err)

	for _, w := range repo.windows {
		assert.False(t, w.Bounded())
	}
}

func TestBasic_NoOrders(t *testing.T) {
	svc := newTestService(&mockRepo{totals: Totals{Revenue: decimal.Zero}})

	sum, err := svc.Basic(context.Background(), PeriodToday)
	require.NoError(t, err)

	assert.Zero(t, sum.TotalOrders)
	assert.True(t, sum.TotalRevenue.IsZero())
	assert.True(t, sum.AverageOrder.IsZero())
	assert.Zero(t, sum.InProgress)
	assert.NotNil(t, sum.ByStatus)
	assert.NotNil(t, sum.ByColor)
}

func TestBasic_RepositoryError(t *testing.T) {
	svc := newTestService(&mockRepo{err: errors.New("connection reset")})

	_, err := svc.Basic(context.Background(), PeriodAll)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "totals")
}

func TestBasic_UsesCache(t *testing.T) {
	repo := &mockRepo{totals: Totals{Orders: 1, Revenue: decimal.NewFromInt(180)}}
	cache := &mockCache{}
	svc := newTestService(repo, WithCache(cache))
	ctx := context.Background()

	first, err := svc.Basic(ctx, PeriodMonth)
	require.NoError(t, err)
	calls := repo.calls

	second, err := svc.Basic(ctx, PeriodMonth)
	require.NoError(t, err)

	assert.Equal(t, calls, repo.calls, "second call is served from cache")
	assert.Equal(t, first, second)
}

func TestInvalidate_RecomputesAfterOrdersChange(t *testing.T) {
	repo := &mockRepo{totals: Totals{Orders: 1, Revenue: decimal.NewFromInt(230)}}
	cache := &mockCache{}
	svc := newTestService(repo, WithCache(cache))
	ctx := context.Background()

	sum, err := svc.Basic(ctx, PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.TotalOrders)
	_, err = svc.Advanced(ctx)
	require.NoError(t, err)

	repo.totals = Totals{Orders: 2, Revenue: decimal.NewFromInt(410)}
	svc.Invalidate(ctx)
	assert.Equal(t, 1, cache.invalidated)
	assert.Nil(t, cache.advanced)

	sum, err = svc.Basic(ctx, PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalOrders)
	assert.True(t, decimal.NewFromInt(410).Equal(sum.TotalRevenue))
}

func TestInvalidate_WithoutCache(t *testing.T) {
	svc := newTestService(&mockRepo{})
	assert.NotPanics(t, func() { svc.Invalidate(context.Background()) })
}

func TestBasic_CacheErrorFallsBackToRepository(t *testing.T) {
	repo := &mockRepo{totals: Totals{Orders: 2, Revenue: decimal.NewFromInt(400)}}
	svc := newTestService(repo, WithCache(&mockCache{err: errors.New("redis down")}))

	sum, err := svc.Basic(context.Background(), PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalOrders)
}

func TestAdvanced(t *testing.T) {
	repo := &mockRepo{
		daily: []DailyStat{
			{Date: time.Date(2025, 12, 21, 0, 0, 0, 0, time.UTC), Orders: 2, Revenue: decimal.NewFromInt(410)},
			{Date: time.Date(2025, 12, 19, 0, 0, 0, 0, time.UTC), Orders: 1, Revenue: decimal.NewFromInt(180)},
		},
		top: []CustomerStat{
			{Name: "Youssef", Phone: "0600000000", Orders: 2, TotalSpent: decimal.NewFromInt(410)},
		},
		adoption: Adoption{WithName: 2, WithNumber: 1, WithSlogan: 0},
	}
	svc := newTestService(repo)

	res, err := svc.Advanced(context.Background())
	require.NoError(t, err)

	assert.Len(t, res.Daily, 2)
	assert.Len(t, res.TopCustomers, 1)
	assert.Equal(t, Adoption{WithName: 2, WithNumber: 1}, res.Personalization)
	assert.Equal(t, TopCustomersLimit, repo.topLimit)
	require.Len(t, repo.windows, 1)
	assert.True(t, fixedNow.Add(-DailyWindow).Equal(repo.windows[0].Since))
}

func TestAdvanced_RepositoryError(t *testing.T) {
	svc := newTestService(&mockRepo{err: errors.New("connection reset")})

	_, err := svc.Advanced(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily")
}

func TestQuickSearch_DefaultLimit(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(repo)

	_, err := svc.QuickSearch(context.Background(), "CMD", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSearchLimit, repo.searchLimit)

	_, err = svc.QuickSearch(context.Background(), "CMD", 500)
	require.NoError(t, err)
	assert.Equal(t, 500, repo.searchLimit, "caller limit is trusted")
	assert.Equal(t, "CMD", repo.searchTerm)
}
