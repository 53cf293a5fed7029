package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// Info describes the service and its main endpoints.
func (h *Handler) Info(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			strField(e, "message", h.name)
			strField(e, "version", h.version)
			e.Field("endpoints", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					strField(e, "orders", "/api/orders")
					strField(e, "admin", "/api/admin/orders")
					strField(e, "stats", "/api/admin/stats")
					strField(e, "search", "/api/admin/search")
				})
			})
		})
	})
}

// Health reports whether the database is reachable. It answers 503 when
// it is not.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				strField(e, "status", "unhealthy")
				strField(e, "database", "disconnected")
				strField(e, "error", err.Error())
			})
		})
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			strField(e, "status", "healthy")
			strField(e, "database", "connected")
		})
	})
}
