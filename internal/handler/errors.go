package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/jersey-orders/internal/domain/order"
	"github.com/xenking/jersey-orders/pkg/httpmiddleware"
)

// badRequestError reports malformed input: unparsable bodies, path ids or
// query parameters.
type badRequestError struct {
	msg string
	err error
}

func (e *badRequestError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(msg string, err error) error {
	return &badRequestError{msg: msg, err: err}
}

// writeError maps err to a status code and writes the error body. Server
// errors also carry the request id so a failed order can be traced in logs.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := classify(err)
	var requestID string
	if status >= http.StatusInternalServerError {
		requestID = httpmiddleware.RequestIDFromContext(r.Context())
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("success", func(e *jx.Encoder) { e.Bool(false) })
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("detail", func(e *jx.Encoder) { e.Str(detail) })
			if requestID != "" {
				e.Field("request_id", func(e *jx.Encoder) { e.Str(requestID) })
			}
		})
	})
}

func classify(err error) (int, string) {
	var (
		badReq   *badRequestError
		invalid  *order.ValidationError
		conflict *order.ConflictError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "request body too large"
	case errors.As(err, &badReq):
		return http.StatusBadRequest, badReq.Error()
	case errors.As(err, &invalid):
		return http.StatusBadRequest, invalid.Error()
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound, order.ErrNotFound.Error()
	case errors.As(err, &conflict):
		return http.StatusConflict, conflict.Error()
	default:
		return http.StatusInternalServerError, "internal server error: " + err.Error()
	}
}
