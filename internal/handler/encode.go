package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/jersey-orders/internal/domain/order"
	"github.com/xenking/jersey-orders/internal/domain/stats"
)

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeOK writes a success envelope with the fields added by fn.
func writeOK(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
			fn(e)
		})
	})
}

// encodeMoney writes an amount as a JSON number with two decimals.
func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(2)))
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.Format(time.RFC3339Nano))
}

func encodeOptStr(e *jx.Encoder, s *string) {
	if s == nil {
		e.Null()
		return
	}
	e.Str(*s)
}

func strField(e *jx.Encoder, name, v string) {
	e.Field(name, func(e *jx.Encoder) { e.Str(v) })
}

func intField(e *jx.Encoder, name string, v int) {
	e.Field(name, func(e *jx.Encoder) { e.Int(v) })
}

func boolField(e *jx.Encoder, name string, v bool) {
	e.Field(name, func(e *jx.Encoder) { e.Bool(v) })
}

func floatField(e *jx.Encoder, name string, v float64) {
	e.Field(name, func(e *jx.Encoder) { e.Float64(v) })
}

func moneyField(e *jx.Encoder, name string, d decimal.Decimal) {
	e.Field(name, func(e *jx.Encoder) { encodeMoney(e, d) })
}

// encodeOrder writes the full order record with snake_case column names.
func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(o.ID) })
		strField(e, "order_number", o.OrderNumber)
		e.Field("personalization_id", func(e *jx.Encoder) { encodeOptStr(e, o.PersonalizationID) })

		strField(e, "customer_name", o.Customer.Name)
		strField(e, "customer_phone", o.Customer.Phone)
		strField(e, "customer_address", o.Customer.Address)
		strField(e, "customer_city", o.Customer.City)
		strField(e, "customer_postal_code", o.Customer.PostalCode)

		strField(e, "jersey_color", o.JerseyColor)
		encodeElementFields(e, "name", o.Name)
		encodeElementFields(e, "number", o.Number)
		encodeElementFields(e, "slogan", o.Slogan.Element)
		strField(e, "slogan_size", o.Slogan.Size)
		strField(e, "selected_position", o.SelectedPosition)
		e.Field("preview_image_url", func(e *jx.Encoder) { encodeOptStr(e, o.PreviewURL) })

		moneyField(e, "total_price", o.TotalPrice)
		strField(e, "status", string(o.Status))
		strField(e, "notes", o.Notes)
		e.Field("created_at", func(e *jx.Encoder) { encodeTime(e, o.CreatedAt) })
		e.Field("updated_at", func(e *jx.Encoder) { encodeTime(e, o.UpdatedAt) })
	})
}

func encodeElementFields(e *jx.Encoder, prefix string, el order.Element) {
	boolField(e, prefix+"_enabled", el.Enabled)
	strField(e, prefix+"_text", el.Text)
	strField(e, prefix+"_font", el.Font)
	strField(e, prefix+"_color", el.Color)
	floatField(e, prefix+"_position_x", el.Position.X)
	floatField(e, prefix+"_position_y", el.Position.Y)
}

func encodeCounts(e *jx.Encoder, counts map[string]int) {
	e.Obj(func(e *jx.Encoder) {
		for k, v := range counts {
			intField(e, k, v)
		}
	})
}

func encodeSummary(e *jx.Encoder, s *stats.Summary) {
	e.Obj(func(e *jx.Encoder) {
		intField(e, "total_orders", s.TotalOrders)
		moneyField(e, "total_revenue", s.TotalRevenue)
		e.Field("by_status", func(e *jx.Encoder) { encodeCounts(e, s.ByStatus) })
		intField(e, "in_progress", s.InProgress)
		intField(e, "delivered", s.Delivered)
		intField(e, "shipped", s.Shipped)
		moneyField(e, "average_order", s.AverageOrder)
		e.Field("by_color", func(e *jx.Encoder) { encodeCounts(e, s.ByColor) })
	})
}

func encodeAdvanced(e *jx.Encoder, s *stats.AdvancedSummary) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("daily", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, d := range s.Daily {
					e.Obj(func(e *jx.Encoder) {
						strField(e, "date", d.Date.Format(time.DateOnly))
						intField(e, "orders", d.Orders)
						moneyField(e, "revenue", d.Revenue)
					})
				}
			})
		})
		e.Field("top_customers", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, c := range s.TopCustomers {
					e.Obj(func(e *jx.Encoder) {
						strField(e, "name", c.Name)
						strField(e, "phone", c.Phone)
						intField(e, "orders", c.Orders)
						moneyField(e, "totalSpent", c.TotalSpent)
					})
				}
			})
		})
		e.Field("personalization", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				intField(e, "with_name", s.Personalization.WithName)
				intField(e, "with_number", s.Personalization.WithNumber)
				intField(e, "with_slogan", s.Personalization.WithSlogan)
			})
		})
	})
}

func encodeOrderSummary(e *jx.Encoder, s stats.OrderSummary) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(s.ID) })
		strField(e, "order_number", s.OrderNumber)
		strField(e, "customer_name", s.CustomerName)
		strField(e, "customer_phone", s.CustomerPhone)
		moneyField(e, "total_price", s.TotalPrice)
		strField(e, "status", string(s.Status))
	})
}
