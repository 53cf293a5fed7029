package order

import "strings"

// Pagination limits for List.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// SortField is a column orders can be sorted by.
type SortField string

const (
	SortCreatedAt   SortField = "created_at"
	SortOrderNumber SortField = "order_number"
	SortTotalPrice  SortField = "total_price"
	SortUpdatedAt   SortField = "updated_at"
)

// ParseSortField maps a requested sort key to a SortField. Unknown keys
// fall back to SortCreatedAt.
func ParseSortField(s string) SortField {
	switch f := SortField(s); f {
	case SortCreatedAt, SortOrderNumber, SortTotalPrice, SortUpdatedAt:
		return f
	default:
		return SortCreatedAt
	}
}

// ListParams selects a page of orders.
type ListParams struct {
	// Status filters on exact status when non-empty.
	Status Status
	// Search is a case-insensitive substring matched against customer
	// name and phone, order number, and name and number texts.
	Search    string
	Limit     int
	Offset    int
	SortBy    SortField
	Ascending bool
}

// NewListParams builds ListParams from raw query values.
func NewListParams(status, search string, limit, offset int, sortBy, direction string) ListParams {
	p := ListParams{
		Status:    Status(status),
		Search:    search,
		Limit:     limit,
		Offset:    offset,
		SortBy:    ParseSortField(sortBy),
		Ascending: strings.EqualFold(direction, "asc"),
	}
	return p.Normalize()
}

// Normalize clamps the limit to (0, MaxListLimit], defaults a non-positive
// limit, clears a negative offset and validates the sort field.
func (p ListParams) Normalize() ListParams {
	if p.Limit <= 0 {
		p.Limit = DefaultListLimit
	}
	if p.Limit > MaxListLimit {
		p.Limit = MaxListLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	p.SortBy = ParseSortField(string(p.SortBy))
	return p
}

// ListResult is one page of orders plus the number of matches overall.
type ListResult struct {
	Orders []Order
	// Total counts orders matching the filter and search, ignoring
	// limit and offset.
	Total  int
	Limit  int
	Offset int
}

// Pages returns the number of pages of Limit orders needed for Total.
func (r *ListResult) Pages() int {
	if r.Limit <= 0 {
		return 0
	}
	return (r.Total + r.Limit - 1) / r.Limit
}
