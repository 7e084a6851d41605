package router

import (
	"context"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/docpilot/portal/internal/api/grpc/middleware"
	"github.com/docpilot/portal/internal/logger"
	"github.com/docpilot/portal/internal/model"
)

// ServiceName is the health service name reported for the portal.
const ServiceName = "docpilot.portal"

// Router builds the ops gRPC server: health checking and reflection.
type Router struct {
	checks map[string]model.Pinger
	health *health.Server
	logger *logger.Logger
}

// New creates new gRPC Router instance. checks are probed by Watch.
func New(checks map[string]model.Pinger, logger *logger.Logger) *Router {
	return &Router{
		checks: checks,
		health: health.NewServer(),
		logger: logger,
	}
}

// Register registers the services and interceptors and returns the server.
func (r *Router) Register() *grpc.Server {
	logging := middleware.NewLogging(r.logger)

	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			recovery.UnaryServerInterceptor(logging.RecoveryHandler()),
			logging.UnaryInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			recovery.StreamServerInterceptor(logging.RecoveryHandler()),
			logging.StreamInterceptor(),
		),
	)

	healthpb.RegisterHealthServer(s, r.health)
	reflection.Register(s)

	r.setStatus(healthpb.HealthCheckResponse_SERVING)
	return s
}

// Probe pings every dependency once and updates the health status.
func (r *Router) Probe(ctx context.Context) {
	next := healthpb.HealthCheckResponse_SERVING
	for name, p := range r.checks {
		if err := p.Ping(ctx); err != nil {
			r.logger.Warn("gRPC health: dependency down",
				"dependency", name,
				"error", err.Error())
			next = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	r.setStatus(next)
}

// Watch probes dependencies every interval until ctx is done.
func (r *Router) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, interval/2)
			r.Probe(probeCtx)
			cancel()
		}
	}
}

// Shutdown reports NOT_SERVING to every watcher ahead of a graceful stop.
func (r *Router) Shutdown() {
	r.health.Shutdown()
}

func (r *Router) setStatus(s healthpb.HealthCheckResponse_ServingStatus) {
	r.health.SetServingStatus("", s)
	r.health.SetServingStatus(ServiceName, s)
}
