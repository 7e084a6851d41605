package middleware

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/docpilot/portal/internal/logger"
)

// Logging adapts the application logger to the gRPC logging interceptors.
type Logging struct {
	logger *logger.Logger
}

// NewLogging creates a new Logging middleware.
func NewLogging(logger *logger.Logger) *Logging {
	return &Logging{logger: logger}
}

// Log forwards an interceptor record to the application logger.
func (l *Logging) Log(ctx context.Context, lvl logging.Level, msg string, fields ...any) {
	l.logger.Log(ctx, slog.Level(lvl), "gRPC "+msg, fields...)
}

// UnaryInterceptor logs finished unary calls.
func (l *Logging) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return logging.UnaryServerInterceptor(logging.LoggerFunc(l.Log),
		logging.WithLogOnEvents(logging.FinishCall))
}

// StreamInterceptor logs finished streaming calls, such as health watches.
func (l *Logging) StreamInterceptor() grpc.StreamServerInterceptor {
	return logging.StreamServerInterceptor(logging.LoggerFunc(l.Log),
		logging.WithLogOnEvents(logging.FinishCall))
}

// RecoveryHandler turns a handler panic into codes.Internal.
func (l *Logging) RecoveryHandler() recovery.Option {
	return recovery.WithRecoveryHandlerContext(func(ctx context.Context, p any) error {
		l.logger.ErrorContext(ctx, "gRPC handler panicked",
			"reason", fmt.Sprint(p))
		return status.Error(codes.Internal, "internal error")
	})
}
