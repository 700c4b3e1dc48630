package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"marksboard/backend/internal/analysis"
	"marksboard/backend/internal/auth"
	"marksboard/backend/internal/branch"
	"marksboard/backend/internal/catalog"
	"marksboard/backend/internal/events"
	"marksboard/backend/internal/gateway"
	"marksboard/backend/internal/logger"
	"marksboard/backend/internal/marks"
	"marksboard/backend/internal/metrics"
	"marksboard/backend/internal/shared"
	"marksboard/backend/internal/telemetry"
)

const serviceName = "marksboard"

func main() {
	// 1. Load Configuration
	// A missing .env is fine; LoadEnv already logs it
	_ = shared.LoadEnv("")

	cfg, err := shared.LoadServiceConfig(serviceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(cfg.ServiceName, cfg.Version, cfg.Environment, cfg.LogLevel)

	if err := shared.ValidateServiceConfig(cfg); err != nil {
		appLogger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.IsDevelopment() {
		shared.PrintConfig(cfg)
	}

	ctx := context.Background()

	// 2. Telemetry
	meterProvider, err := telemetry.InitMeterProvider(ctx, cfg.ServiceName, cfg.Version, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.Interval, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx, meterProvider, appLogger)
	}()

	appMetrics, err := metrics.New(meterProvider.Meter(serviceName))
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to create metrics")
	}

	// 3. Catalog
	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to load catalog")
	}
	appLogger.Info().
		Int("subjects", len(cat.Subjects)).
		Int("tas", len(cat.TAs)).
		Int("branch_codes", len(cat.Branches)).
		Msg("catalog loaded")

	svc := &gateway.Services{
		Catalog:        cat,
		Version:        cfg.Version,
		CookieSecure:   cfg.Security.CookieSecure,
		CORS:           cfg.CORS,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	}
	defer svc.Close()

	// 4. Marks Store
	store, closeStore, err := marks.Open(ctx, cfg)
	if err != nil {
		appLogger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open marks store")
	}
	svc.OnClose("marks store", closerFunc(closeStore))
	appLogger.Info().Str("driver", cfg.StoreDriver).Msg("marks store ready")

	// 5. Optional NATS and Redis
	var publisher marks.EventPublisher = events.NopPublisher{}
	if cfg.NATS.URL != "" {
		natsPublisher, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject, appLogger)
		if err != nil {
			appLogger.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		svc.OnClose("nats", natsPublisher)
		publisher = natsPublisher
	}

	var revoker auth.Revoker = auth.NewMemoryRevoker()
	redisClient, err := shared.ConnectRedis(&cfg.Redis)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	if redisClient != nil {
		svc.OnClose("redis", redisClient)
		revoker = auth.NewRedisRevoker(redisClient)
	}

	// 6. Services
	svc.Store = store
	svc.Marks = marks.NewMarksService(store, cat, publisher, appMetrics, appLogger)
	svc.Engine = analysis.NewEngine(store, branch.NewClassifier(cat.Branches), appMetrics, appLogger)
	svc.Auth = auth.NewAuthService(
		auth.NewCASClient(cfg.CAS.BaseURL, cfg.CAS.ServiceURL, cfg.CAS.Timeout),
		revoker,
		cfg.Security,
		appMetrics,
		appLogger,
	)

	// 7. Configure Server
	server := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      gateway.SetupRoutes(svc),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		appLogger.Info().Str("port", cfg.HTTP.Port).Msg("marks server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// 8. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info().Msg("shutting down marks server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info().Msg("marks server stopped")
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
