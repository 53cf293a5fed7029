package order

import "github.com/shopspring/decimal"

// Price components in the store currency.
var (
	BasePrice       = decimal.RequireFromString("180.00")
	NameSurcharge   = decimal.RequireFromString("30.00")
	NumberSurcharge = decimal.RequireFromString("20.00")
	SloganSurcharge = decimal.RequireFromString("50.00")
)

// ComputePrice returns the total price of a personalized jersey. Each
// element adds its surcharge only when it is enabled and has text.
func ComputePrice(sel Selection) decimal.Decimal {
	total := BasePrice
	if sel.Name.HasText() {
		total = total.Add(NameSurcharge)
	}
	if sel.Number.HasText() {
		total = total.Add(NumberSurcharge)
	}
	if sel.Slogan.HasText() {
		total = total.Add(SloganSurcharge)
	}
	return total.Round(2)
}
