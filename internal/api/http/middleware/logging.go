package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	apictx "github.com/docpilot/portal/internal/api/http/context"
	"github.com/docpilot/portal/internal/logger"
)

// Logging puts a request-scoped logger into the context and logs every
// completed request.
func Logging(l *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLogger := l
			if rid := apictx.RequestID(r.Context()); rid != "" {
				reqLogger = l.With("request_id", rid)
			}
			r = r.WithContext(apictx.WithLogger(r.Context(), reqLogger))

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes", ww.BytesWritten(),
			}
			if status >= http.StatusInternalServerError {
				reqLogger.Error("HTTP request failed", args...)
				return
			}
			reqLogger.Info("HTTP request completed", args...)
		})
	}
}
