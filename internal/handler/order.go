package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/xenking/jersey-orders/internal/domain/order"
)

// CreateOrder prices and stores a new order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := decodeCreate(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.orders.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	o := res.Order
	writeOK(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("orderId", func(e *jx.Encoder) { e.Int64(o.ID) })
		strField(e, "orderNumber", o.OrderNumber)
		moneyField(e, "totalPrice", o.TotalPrice)
		e.Field("previewUrl", func(e *jx.Encoder) { encodeOptStr(e, o.PreviewURL) })
		strField(e, "message", "Order created")
	})
}

// ListOrders returns a filtered, sorted page of orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), order.DefaultListLimit)
	if err != nil {
		writeError(w, r, badRequest("invalid limit", err))
		return
	}
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		writeError(w, r, badRequest("invalid offset", err))
		return
	}

	params := order.NewListParams(
		q.Get("status"),
		q.Get("search"),
		limit,
		offset,
		q.Get("sortBy"),
		q.Get("order"),
	)
	res, err := h.orders.List(r.Context(), params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeOK(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("orders", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range res.Orders {
					encodeOrder(e, &res.Orders[i])
				}
			})
		})
		e.Field("pagination", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				intField(e, "total", res.Total)
				intField(e, "limit", res.Limit)
				intField(e, "offset", res.Offset)
				intField(e, "pages", res.Pages())
			})
		})
	})
}

// GetOrder returns the full order record.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("order", func(e *jx.Encoder) { encodeOrder(e, o) })
	})
}

// UpdateOrder applies a partial update to status, notes or customer fields.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := decodePatch(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, func(e *jx.Encoder) {
		strField(e, "message", "Order updated")
		e.Field("order", func(e *jx.Encoder) { encodeOrder(e, o) })
	})
}

// DeleteOrder removes an order permanently.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.orders.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, func(e *jx.Encoder) {
		strField(e, "message", "Order deleted")
	})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, badRequest("invalid order id", err)
	}
	return id, nil
}

// intParam parses an optional integer query parameter.
func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
