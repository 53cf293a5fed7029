package postgres

import (
	"strconv"
	"strings"
	"time"

	"github.com/xenking/jersey-orders/internal/domain/order"
)

// queryBuilder collects positional arguments and the predicates or
// assignments that reference them. Values never appear in the SQL text.
type queryBuilder struct {
	args  []any
	conds []string
	sets  []string
}

// arg binds v and returns its placeholder.
func (b *queryBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// eq adds "col = v".
func (b *queryBuilder) eq(col string, v any) {
	b.conds = append(b.conds, col+" = "+b.arg(v))
}

// since adds "col >= t".
func (b *queryBuilder) since(col string, t time.Time) {
	b.conds = append(b.conds, col+" >= "+b.arg(t))
}

// containsAny adds a case-insensitive substring match of term against any
// of cols. LIKE wildcards in term match literally.
func (b *queryBuilder) containsAny(term string, cols ...string) {
	p := b.arg("%" + escapeLike(term) + "%")
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = col + " ILIKE " + p
	}
	b.conds = append(b.conds, "("+strings.Join(parts, " OR ")+")")
}

// localDay renders the calendar date of the timestamp column col in loc.
func (b *queryBuilder) localDay(col string, loc *time.Location) string {
	return "(" + col + " AT TIME ZONE " + b.arg(loc.String()) + ")::date"
}

// set adds the assignment "col = v".
func (b *queryBuilder) set(col string, v any) {
	b.sets = append(b.sets, col+" = "+b.arg(v))
}

// setExpr adds an assignment of a raw SQL expression.
func (b *queryBuilder) setExpr(col, expr string) {
	b.sets = append(b.sets, col+" = "+expr)
}

// where renders the collected predicates, or "" when there are none.
func (b *queryBuilder) where() string {
	if len(b.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conds, " AND ")
}

// assignments renders the collected SET list.
func (b *queryBuilder) assignments() string {
	return strings.Join(b.sets, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var sortColumns = map[order.SortField]string{
	order.SortCreatedAt:   "created_at",
	order.SortOrderNumber: "order_number",
	order.SortTotalPrice:  "total_price",
	order.SortUpdatedAt:   "updated_at",
}

// orderBy renders the ORDER BY clause for a sort field with id as the
// tiebreaker. Unknown fields sort by creation time.
func orderBy(field order.SortField, ascending bool) string {
	col, ok := sortColumns[field]
	if !ok {
		col = sortColumns[order.SortCreatedAt]
	}
	dir := "DESC"
	if ascending {
		dir = "ASC"
	}
	return " ORDER BY " + col + " " + dir + ", id " + dir
}
