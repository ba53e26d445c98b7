package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"

	"github.com/Freeeeeet/servicejobs/internal/app"
	"github.com/Freeeeeet/servicejobs/internal/config"
	"github.com/Freeeeeet/servicejobs/internal/controller"
	"github.com/Freeeeeet/servicejobs/internal/controller/handlers"
	"github.com/Freeeeeet/servicejobs/internal/recurrence"
	"github.com/Freeeeeet/servicejobs/internal/repository"
	"github.com/Freeeeeet/servicejobs/internal/repository/base"
	"github.com/Freeeeeet/servicejobs/internal/service"
	"github.com/Freeeeeet/servicejobs/internal/timezone"
)

const previewCacheSize = 256

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Sugar().Infow("Starting service jobs",
		"environment", cfg.Environment,
		"bot_enabled", cfg.TelegramToken != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("❌ Service stopped with error", zap.Error(err))
	}
	logger.Info("👋 Service stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pool, err := app.NewPool(ctx, cfg.GetDBDSN(), logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsDir, logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		migrator.Close()
		return err
	}
	migrator.Close()

	// Репозитории
	baseRepo := base.NewRepository(pool)
	customerRepo := repository.NewCustomerRepository(baseRepo)
	seriesRepo := repository.NewSeriesRepository(baseRepo, logger)
	occurrenceRepo := repository.NewOccurrenceRepository(baseRepo, logger)

	// Сервисы
	tz := timezone.NewConverter()
	materializer := service.NewMaterializer(seriesRepo, occurrenceRepo, tz, logger)
	seriesService := service.NewSeriesService(seriesRepo, customerRepo, materializer, tz, service.Options{
		GenerationMonthsAhead:    cfg.Generation.MonthsAhead,
		GenerationMaxOccurrences: cfg.Generation.MaxOccurrences,
		MutationMonthsAhead:      cfg.Generation.MutationMonthsAhead,
		GenerationTimeout:        cfg.Generation.Timeout,
		Workers:                  cfg.Generation.Workers,
	}, logger)
	occurrenceService := service.NewOccurrenceService(occurrenceRepo, seriesRepo, logger)

	scheduler, err := app.NewScheduler(seriesService, cfg.Generation.SweepCron, cfg.Generation.SweepTimezone, logger)
	if err != nil {
		return err
	}
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	if cfg.TelegramToken == "" {
		logger.Warn("⚠️ TELEGRAM_TOKEN is not set, running the generation scheduler only")
		<-ctx.Done()
		return nil
	}

	previewer, err := recurrence.NewPreviewer(previewCacheSize)
	if err != nil {
		return err
	}

	displayLoc, err := tz.Location(cfg.BotTimezone)
	if err != nil {
		return err
	}

	cmdHandlers := handlers.NewHandlers(
		seriesService,
		occurrenceService,
		previewer,
		tz,
		cfg.IsAdmin,
		displayLoc,
		logger,
	)

	b, err := bot.New(cfg.TelegramToken, bot.WithDefaultHandler(cmdHandlers.HandleHelp))
	if err != nil {
		return err
	}

	botController := controller.NewBotController(b, cmdHandlers, logger)

	setupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = botController.RegisterHandlers(setupCtx)
	cancel()
	if err != nil {
		// меню команд не критично
		logger.Warn("⚠️ Bot commands menu not set", zap.Error(err))
	}

	return botController.Start(ctx)
}
