package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/jersey-orders/internal/domain/stats"
)

// Stats returns the dashboard summary for the requested period.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("period")
	p := stats.ParsePeriod(name)
	if name == "" {
		name = string(p)
	}

	sum, err := h.stats.Basic(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, func(e *jx.Encoder) {
		strField(e, "period", name)
		e.Field("stats", func(e *jx.Encoder) { encodeSummary(e, sum) })
	})
}

// AdvancedStats returns the daily series, top customers and
// personalization adoption.
func (h *Handler) AdvancedStats(w http.ResponseWriter, r *http.Request) {
	res, err := h.stats.Advanced(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("stats", func(e *jx.Encoder) { encodeAdvanced(e, res) })
	})
}

// Search runs the quick search over customer name, phone and order number.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("q") {
		writeError(w, r, badRequest("missing query parameter q", nil))
		return
	}
	limit, err := intParam(q.Get("limit"), stats.DefaultSearchLimit)
	if err != nil {
		writeError(w, r, badRequest("invalid limit", err))
		return
	}

	results, err := h.stats.QuickSearch(r.Context(), q.Get("q"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, func(e *jx.Encoder) {
		e.Field("results", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, s := range results {
					encodeOrderSummary(e, s)
				}
			})
		})
	})
}
