package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sitewrap/sitewrap-backend/api/controllers"
	"github.com/sitewrap/sitewrap-backend/api/routes"
	"github.com/sitewrap/sitewrap-backend/internal/auth"
	"github.com/sitewrap/sitewrap-backend/internal/builds"
	"github.com/sitewrap/sitewrap-backend/internal/captcha"
	"github.com/sitewrap/sitewrap-backend/internal/downloads"
	"github.com/sitewrap/sitewrap-backend/internal/ledger"
	"github.com/sitewrap/sitewrap-backend/internal/users"
	"github.com/sitewrap/sitewrap-backend/pkg/config"
	"github.com/sitewrap/sitewrap-backend/pkg/db"
	"github.com/sitewrap/sitewrap-backend/pkg/logger"
	"github.com/sitewrap/sitewrap-backend/pkg/metrics"
	"github.com/sitewrap/sitewrap-backend/pkg/migrate"
	"github.com/sitewrap/sitewrap-backend/pkg/redis"
	"github.com/sitewrap/sitewrap-backend/pkg/storage/s3"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	s3Client, err := s3.New(ctx, cfg.S3, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap object storage", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	userRepo := users.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		PasswordConfig: cfg.Password,
		JWTConfig:      cfg.JWT,
		Bootstrap:      cfg.Bootstrap,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}
	if err := authService.SeedBootstrapAdmin(ctx); err != nil {
		logg.Error(ctx, "failed to seed bootstrap admin", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.ServiceParams{
		Tx:         dbClient,
		Generates:  ledger.NewGenerateRepository(dbClient.DB()),
		Payments:   ledger.NewPaymentRepository(dbClient.DB()),
		Users:      userRepo,
		Storage:    s3Client,
		Captcha:    captcha.NewVerifier(cfg.Captcha),
		Trigger:    builds.NewTrigger(cfg.Build, cfg.App.BaseURL+"/webhook/build-complete"),
		Metrics:    ledgerMetrics,
		Logger:     logg,
		Billing:    cfg.Billing,
		Generation: cfg.Generation,
	})
	if err != nil {
		logg.Error(ctx, "failed to create ledger service", err)
		os.Exit(1)
	}

	downloadService, err := downloads.NewService(downloads.ServiceParams{
		Generates: ledger.NewGenerateRepository(dbClient.DB()),
		Storage:   s3Client,
		Logger:    logg,
		Download:  cfg.Download,
		BaseURL:   cfg.App.BaseURL,
	})
	if err != nil {
		logg.Error(ctx, "failed to create download service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:   cfg,
			Logger:   logg,
			Registry: registry,
			Metrics:  ledgerMetrics,
			Redis:    redisClient,
			Pingers: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
				"storage":  s3Client,
			},
			Auth:      authService,
			Ledger:    ledgerService,
			Downloads: downloadService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(startCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
