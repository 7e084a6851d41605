package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/docpilot/portal/internal/api/http/handler"
	"github.com/docpilot/portal/internal/api/http/middleware"
	"github.com/docpilot/portal/internal/logger"
	"github.com/docpilot/portal/internal/model"
	"github.com/docpilot/portal/internal/telemetry"
)

// BasePath prefixes every API route.
const BasePath = "/api"

// Services are the application services behind the HTTP API.
type Services struct {
	Auth     handler.AuthService
	Recovery handler.RecoveryService
	Settings handler.SettingsService
}

// Options tune the HTTP layer.
type Options struct {
	RequestTimeout time.Duration
	AllowedOrigins []string
	SecureCookies  bool
	MaxAvatarSize  int64
	HealthChecks   map[string]model.Pinger
}

// Router builds the portal's HTTP handler.
type Router struct {
	services       Services
	verifier       model.TokenVerifier
	contextManager model.ContextManager
	metrics        *telemetry.Metrics
	opts           Options
	logger         *logger.Logger
}

// New creates new HTTP Router instance.
func New(
	services Services,
	verifier model.TokenVerifier,
	contextManager model.ContextManager,
	metrics *telemetry.Metrics,
	opts Options,
	logger *logger.Logger,
) *Router {
	return &Router{
		services:       services,
		verifier:       verifier,
		contextManager: contextManager,
		metrics:        metrics,
		opts:           opts,
		logger:         logger,
	}
}

// Register wires middleware and routes and returns the root handler.
func (r *Router) Register() http.Handler {
	root := chi.NewRouter()

	root.Use(
		middleware.RequestID(),
		middleware.Recover(r.logger),
		middleware.Logging(r.logger),
		r.metrics.Middleware,
		cors.Handler(cors.Options{
			AllowedOrigins:   r.opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.Timeout(r.opts.RequestTimeout),
	)

	health := handler.NewHealth(r.opts.HealthChecks, r.logger)
	root.Get("/healthz", health.Check)
	root.Method(http.MethodGet, "/metrics", r.metrics.Handler())

	root.Route(BasePath, func(api chi.Router) {
		r.registerAuthRoutes(api)
		r.registerRecoveryRoutes(api)
		r.registerAccountRoutes(api)
	})

	return otelhttp.NewHandler(root, "portal.http",
		otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
			return req.Method + " " + req.URL.Path
		}),
	)
}

func (r *Router) authenticated() func(http.Handler) http.Handler {
	return middleware.NewAuthenticate(r.verifier, r.contextManager, r.logger).Handle
}

func (r *Router) registerAuthRoutes(api chi.Router) {
	h := handler.NewAuth(r.services.Auth, r.logger)

	api.Post("/auth/signin", h.SignIn)
	api.Post("/auth/signup", h.SignUp)
	api.Post("/auth/recover", h.Recover)
	api.With(r.authenticated()).Post("/auth/signout", h.SignOut)
}

func (r *Router) registerRecoveryRoutes(api chi.Router) {
	h := handler.NewRecovery(r.services.Recovery, r.opts.SecureCookies, r.logger)

	api.Post("/auth/recovery", h.Begin)
	api.Get("/auth/recovery/attempts", h.Attempts)
	api.Post("/auth/recovery/password", h.UpdatePassword)
}

func (r *Router) registerAccountRoutes(api chi.Router) {
	h := handler.NewSettings(r.services.Settings, r.contextManager, r.opts.MaxAvatarSize, r.logger)

	api.Group(func(g chi.Router) {
		g.Use(r.authenticated())
		g.Get("/account/settings", h.Get)
		g.Patch("/account/settings", h.Update)
		g.Put("/account/avatar", h.UploadAvatar)
		g.Get("/account/avatar", h.Avatar)
	})
}
