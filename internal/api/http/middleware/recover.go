package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/docpilot/portal/internal/api/http/apierror"
	apictx "github.com/docpilot/portal/internal/api/http/context"
	"github.com/docpilot/portal/internal/logger"
)

// Recover turns a panic into a 500 without leaking its details.
func Recover(l *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				apictx.Logger(r.Context(), l).Error("HTTP handler panicked",
					"path", r.URL.Path,
					"reason", rec,
					"stack", string(debug.Stack()))
				apierror.WriteError(w, r, errors.New("panic"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
