package postgres

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/jersey-orders/internal/domain/order"
	"github.com/xenking/jersey-orders/internal/domain/stats"
)

func TestQueryBuilder_Where(t *testing.T) {
	var b queryBuilder
	assert.Equal(t, "", b.where())

	since := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	b.eq("status", "pending")
	b.since("created_at", since)
	b.containsAny("kooma", "customer_name", "order_number")

	assert.Equal(t,
		" WHERE status = $1 AND created_at >= $2 AND (customer_name ILIKE $3 OR order_number ILIKE $3)",
		b.where(),
	)
	assert.Equal(t, []any{"pending", since, "%kooma%"}, b.args)
}

func TestQueryBuilder_InjectionStaysInArgs(t *testing.T) {
	var b queryBuilder
	b.containsAny("'; DROP TABLE orders; --", "customer_name")

	assert.NotContains(t, b.where(), "DROP")
	assert.Equal(t, []any{"%'; DROP TABLE orders; --%"}, b.args)
}

func TestQueryBuilder_Assignments(t *testing.T) {
	var b queryBuilder
	b.set("status", "shipped")
	b.set("notes", "")
	b.setExpr("updated_at", "now()")
	id := b.arg(int64(7))

	assert.Equal(t, "status = $1, notes = $2, updated_at = now()", b.assignments())
	assert.Equal(t, "$3", id)
	assert.Equal(t, []any{"shipped", "", int64(7)}, b.args)
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"CMD-0001", "CMD-0001"},
		{"100%", `100\%`},
		{"a_b", `a\_b`},
		{`c:\path`, `c:\\path`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeLike(tt.in), tt.in)
	}
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, " ORDER BY created_at DESC, id DESC", orderBy(order.SortCreatedAt, false))
	assert.Equal(t, " ORDER BY total_price ASC, id ASC", orderBy(order.SortTotalPrice, true))
	assert.Equal(t, " ORDER BY created_at DESC, id DESC", orderBy(order.SortField("id; DROP"), false))
}

func TestQueryBuilder_LocalDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	since := time.Date(2026, 10, 9, 0, 0, 0, 0, ny)
	b := windowed(stats.Window{Since: since, Location: ny})
	day := b.localDay("created_at", ny)

	assert.Equal(t, "(created_at AT TIME ZONE $2)::date", day)
	assert.Equal(t, " WHERE created_at >= $1", b.where())
	assert.Equal(t, []any{since, "America/New_York"}, b.args)
}

func TestDayIn(t *testing.T) {
	loc := time.FixedZone("+01", 3600)
	d := pgtype.Date{Time: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), Valid: true}

	got := dayIn(d, loc)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, loc), got)
	assert.Equal(t, "2026-10-16", got.Format(time.DateOnly))
	// Read back in UTC it is still the previous evening.
	assert.Equal(t, 15, got.UTC().Day())
}
