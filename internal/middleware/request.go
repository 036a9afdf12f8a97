package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"

	"ihp-inventory/internal/utils"
)

const RequestIDHeader = "X-Request-ID"

// JSONMiddleware defaults the response content type to JSON. Handlers that
// answer with plain text override it.
func JSONMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// RequestLogger tags the request with an ID (reusing an incoming
// X-Request-ID), puts a scoped logger into the context, and writes one access
// log line plus the HTTP metrics once the handler returns.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			log := base.With(slog.String("request_id", id))
			ctx := utils.WithRequestID(r.Context(), id)
			ctx = utils.WithLogger(ctx, log)
			r = r.WithContext(ctx)

			m := httpsnoop.CaptureMetrics(next, w, r)

			observe(r, m.Code, m.Duration.Seconds())
			log.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", m.Code),
				slog.Int64("bytes", m.Written),
				slog.Duration("duration", m.Duration))
		})
	}
}

// Recover turns handler panics into a 500 response.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				panicRecoveries.WithLabelValues(routeName(r)).Inc()
				utils.LoggerFrom(r.Context(), nil).Error("handler panic",
					"panic", rec,
					"stack", string(debug.Stack()))
				utils.JSONError(w, "Internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
