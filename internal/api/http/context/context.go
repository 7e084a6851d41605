package context

import (
	"context"

	"github.com/docpilot/portal/internal/logger"
	"github.com/docpilot/portal/internal/model"
)

type ctxKey int

const (
	identityKey ctxKey = iota
	requestIDKey
	loggerKey
)

// Manager stores the authenticated caller in request context.
type Manager struct{}

// NewManager creates a new context manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetIdentityToContext returns a copy of ctx carrying identity.
func (m *Manager) SetIdentityToContext(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// GetIdentityFromContext returns the identity set by SetIdentityToContext.
func (m *Manager) GetIdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(model.Identity)
	return identity, ok
}

// WithRequestID returns a copy of ctx carrying the request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request ID, or an empty string.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithLogger returns a copy of ctx carrying a request-scoped logger.
func WithLogger(ctx context.Context, l *logger.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// Logger returns the request-scoped logger, falling back to fallback.
func Logger(ctx context.Context, fallback *logger.Logger) *logger.Logger {
	if l, ok := ctx.Value(loggerKey).(*logger.Logger); ok && l != nil {
		return l
	}
	return fallback
}
