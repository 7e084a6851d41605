package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	apictx "github.com/docpilot/portal/internal/api/http/context"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-Id"

const maxRequestIDLen = 128

// RequestID reuses the caller's X-Request-Id or generates one, echoes it in
// the response and stores it in the request context.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" || len(id) > maxRequestIDLen {
				id = genID()
			}
			w.Header().Set(RequestIDHeader, id)

			next.ServeHTTP(w, r.WithContext(apictx.WithRequestID(r.Context(), id)))
		})
	}
}

func genID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
