package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apictx "github.com/docpilot/portal/internal/api/http/context"
	httpRouter "github.com/docpilot/portal/internal/api/http/router"
	grpcRouter "github.com/docpilot/portal/internal/api/grpc/router"
	grpcServer "github.com/docpilot/portal/internal/api/grpc/server"
	redisstore "github.com/docpilot/portal/internal/cache/redis"
	"github.com/docpilot/portal/internal/config"
	"github.com/docpilot/portal/internal/gotrue"
	"github.com/docpilot/portal/internal/logger"
	"github.com/docpilot/portal/internal/model"
	"github.com/docpilot/portal/internal/ratelimit"
	"github.com/docpilot/portal/internal/repository/postgres"
	"github.com/docpilot/portal/internal/repository/sqlite"
	"github.com/docpilot/portal/internal/server"
	"github.com/docpilot/portal/internal/service"
	"github.com/docpilot/portal/internal/session"
	storage "github.com/docpilot/portal/internal/storage/minio"
	"github.com/docpilot/portal/internal/telemetry"
	"github.com/docpilot/portal/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

const (
	sweepInterval   = time.Minute
	probeInterval   = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel, cfg.LogFormat)

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		logger.Fatal("failed to set up tracing", "error", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("failed to flush traces", "error", err)
		}
	}()

	checks := map[string]model.Pinger{}

	settingsStore, closeDB, err := openSettingsStore(ctx, cfg.Database, checks)
	if err != nil {
		logger.Fatal("failed to initialize settings store", "error", err)
	}
	defer closeDB()

	attempts, sessions, closeCache, err := openFlowStores(ctx, cfg.Redis, checks)
	if err != nil {
		logger.Fatal("failed to initialize flow stores", "error", err)
	}
	defer closeCache()

	minioClient, err := storage.Dial(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.UseSSL)
	if err != nil {
		logger.Fatal("failed to create minio client", "error", err)
	}
	storageClient, err := storage.NewClient(ctx, minioClient, cfg.Storage.Bucket)
	if err != nil {
		logger.Fatal("failed to initialize storage client", "error", err)
	}

	authClient := gotrue.NewClient(cfg.Auth.URL, cfg.Auth.APIKey, &http.Client{
		Timeout:   cfg.Auth.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})

	metrics := telemetry.NewMetrics()
	limiter := ratelimit.New(attempts)

	authService := service.NewAuth(authClient, settingsStore, cfg.Site.URL, logger)
	recoveryService := service.NewRecovery(limiter, authClient, sessions, metrics, logger)
	settingsService := service.NewSettings(settingsStore, storageClient, logger)

	apiRouter := httpRouter.New(
		httpRouter.Services{
			Auth:     authService,
			Recovery: recoveryService,
			Settings: settingsService,
		},
		token.NewJWT(cfg.JWT.Secret, cfg.JWT.Audience),
		apictx.NewManager(),
		metrics,
		httpRouter.Options{
			RequestTimeout: cfg.HTTP.RequestTimeout,
			AllowedOrigins: cfg.Site.AllowedOrigins,
			SecureCookies:  cfg.HTTP.SecureCookies,
			MaxAvatarSize:  service.MaxAvatarSize,
			HealthChecks:   checks,
		},
		logger,
	)
	httpSrv := server.NewHTTPServer(apiRouter.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))

	opsRouter := grpcRouter.New(checks, logger)
	opsSrv := grpcServer.NewGRPCServer(opsRouter.Register(), fmt.Sprintf(":%s", cfg.GRPC.Port))
	go opsRouter.Watch(ctx, probeInterval)

	var sl model.SecurityLayer = server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	plain := server.NewSecurityLayer(false, "", "")

	var wg sync.WaitGroup
	start := func(s model.Server, layer model.SecurityLayer) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(layer); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
				stop()
			}
		}()
	}
	start(httpSrv, sl)
	start(opsSrv, plain)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")
	opsRouter.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	for _, s := range []model.Server{httpSrv, opsSrv} {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}

// openSettingsStore opens the configured settings database and registers its
// health check.
func openSettingsStore(ctx context.Context, cfg config.Database, checks map[string]model.Pinger) (model.SettingsStore, func(), error) {
	switch cfg.Driver {
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		checks["database"] = model.PingFunc(db.PingContext)
		return sqlite.NewSettingsRepository(db), closer(db), nil
	default:
		conn, err := postgres.NewConnection(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		checks["database"] = conn
		return postgres.NewSettingsRepository(conn), func() { _ = conn.Close() }, nil
	}
}

// openFlowStores returns the attempt and recovery session stores: Redis when
// configured, process memory otherwise.
func openFlowStores(ctx context.Context, cfg config.Redis, checks map[string]model.Pinger) (model.AttemptStore, model.SessionStore, func(), error) {
	if cfg.URL == "" {
		attempts := ratelimit.NewMemoryStore(ratelimit.Window)
		sessions := session.NewMemoryStore()
		go attempts.Run(ctx, sweepInterval)
		go sessions.Run(ctx, sweepInterval)
		return attempts, sessions, func() {}, nil
	}

	rdb, err := redisstore.NewClient(ctx, cfg.URL)
	if err != nil {
		return nil, nil, nil, err
	}
	checks["redis"] = model.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

	return redisstore.NewAttemptStore(rdb, cfg.Prefix, ratelimit.Window),
		redisstore.NewSessionStore(rdb, cfg.Prefix),
		func() { _ = rdb.Close() },
		nil
}

func closer(db *sql.DB) func() {
	return func() { _ = db.Close() }
}
