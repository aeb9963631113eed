package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/sitewrap/sitewrap-backend/internal/bot"
	"github.com/sitewrap/sitewrap-backend/internal/builds"
	"github.com/sitewrap/sitewrap-backend/internal/captcha"
	"github.com/sitewrap/sitewrap-backend/internal/ledger"
	"github.com/sitewrap/sitewrap-backend/internal/users"
	"github.com/sitewrap/sitewrap-backend/pkg/config"
	"github.com/sitewrap/sitewrap-backend/pkg/db"
	"github.com/sitewrap/sitewrap-backend/pkg/logger"
	"github.com/sitewrap/sitewrap-backend/pkg/metrics"
	"github.com/sitewrap/sitewrap-backend/pkg/storage/s3"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "bot"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "bot",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if cfg.Bot.Token == "" {
		logg.Error(context.Background(), "bot token is not configured", nil)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	s3Client, err := s3.New(ctx, cfg.S3, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap object storage", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())

	// Payments resolved from the bot are attributed to the bootstrap admin.
	operator, err := userRepo.FindByEmail(ctx, cfg.Bootstrap.AdminEmail)
	if err != nil {
		logg.Error(ctx, "failed to resolve operator account", err)
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
		Metrics:    metrics.NewLedgerMetrics(nil),
		Logger:     logg,
		Billing:    cfg.Billing,
		Generation: cfg.Generation,
	})
	if err != nil {
		logg.Error(ctx, "failed to create ledger service", err)
		os.Exit(1)
	}

	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		logg.Error(ctx, "failed to connect to telegram", err)
		os.Exit(1)
	}

	operatorBot, err := bot.New(bot.Params{
		API:        api,
		Ledger:     ledgerService,
		Logger:     logg,
		Config:     cfg.Bot,
		OperatorID: operator.ID,
	})
	if err != nil {
		logg.Error(ctx, "failed to create bot", err)
		os.Exit(1)
	}

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30

	logg.Info(ctx, "operator bot started")
	operatorBot.Run(ctx, api.GetUpdatesChan(updateCfg))
	api.StopReceivingUpdates()
	logg.Info(ctx, "operator bot stopped")
}
