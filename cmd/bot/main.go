package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"relaybot/internal/config"
	"relaybot/internal/handler"
	"relaybot/internal/health"
	"relaybot/internal/metrics"
	"relaybot/internal/repository"
	"relaybot/internal/repository/memory"
	"relaybot/internal/repository/postgres"
	"relaybot/internal/service"
	"relaybot/internal/session"
	"relaybot/internal/translator"

	"github.com/golang-migrate/migrate/v4"
	postgresdb "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting relay bot")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Configuration loaded successfully",
		zap.String("store", cfg.StoreDriver),
		zap.Bool("reset_on_end_chat", cfg.ResetOnEndChat),
		zap.Duration("code_ttl", cfg.CodeTTL),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer closeStore()

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	err = store.Ping(pingCtx)
	pingCancel()
	if err != nil {
		logger.Fatal("Store is not reachable", zap.Error(err))
	}

	metrics.Init()

	// Translation backend
	translatorClient := translator.NewClient(translator.Config{
		Endpoint:       cfg.Translator.Endpoint,
		APIKey:         cfg.Translator.APIKey,
		Deployment:     cfg.Translator.Deployment,
		APIVersion:     cfg.Translator.APIVersion,
		MaxTokens:      cfg.Translator.MaxTokens,
		TimeoutSeconds: cfg.Translator.TimeoutSeconds,
	})
	checkCtx, checkCancel := context.WithTimeout(ctx, cfg.TranslateTimeout())
	if err := translatorClient.HealthCheck(checkCtx); err != nil {
		logger.Warn("Translator health check failed", zap.Error(err))
	}
	checkCancel()

	sessions := session.NewStore()

	// Initialize Telegram bot
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			logger.Error("Unhandled bot error", zap.Error(err))
		},
	})
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	logger.Info("Telegram bot initialized")

	sender := handler.NewSender(bot, sessions, cfg.ClearHistoryWindow)

	// Initialize services
	pairingService := service.NewPairingService(store, service.PairingConfig{
		CodeTTL:    cfg.CodeTTL,
		ResetOnEnd: cfg.ResetOnEndChat,
	}, logger)
	services := handler.Services{
		Directory: service.NewDirectoryService(store),
		Pairing:   pairingService,
		Relay:     service.NewRelayService(store, translatorClient, sender, cfg.TranslateTimeout(), logger),
		Access:    service.NewAccessService(cfg.AdminUserIDs),
	}
	maintenanceService := service.NewMaintenanceService(pairingService, logger)
	if !services.Access.HasAdmins() {
		logger.Warn("ADMIN_USER_IDS is empty, /kill is disabled for everyone")
	}

	// Initialize handler
	h := handler.NewHandler(ctx, bot, services, sessions, sender, logger)
	h.RegisterHandlers()

	logger.Info("Handlers registered")

	go func() {
		if err := health.Start(ctx, store, cfg.HTTPAddr(), logger); err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	go runCleanupJob(ctx, maintenanceService, cfg.CleanupInterval, logger)

	// Start bot in background
	go func() {
		logger.Info("Bot started successfully")
		bot.Start()
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	logger.Info("Shutdown signal received, stopping bot...")

	// Graceful shutdown
	bot.Stop()
	cancel()

	logger.Info("Bot stopped gracefully")
}

// openStore builds the configured store and returns its closer
func openStore(cfg *config.Config, logger *zap.Logger) (repository.Store, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("Using in-memory store, state is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	// Connect to database with retries
	db, err := connectDatabase(cfg.DSN(), logger)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Database connection established")

	// Run migrations
	if err := runMigrations(db, logger); err != nil {
		db.Close()
		return nil, nil, err
	}

	logger.Info("Database migrations completed")

	return postgres.NewStore(db), func() { db.Close() }, nil
}

// connectDatabase connects to PostgreSQL with retries
func connectDatabase(dsn string, logger *zap.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Warn("Failed to open database connection",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			time.Sleep(retryDelay)
			continue
		}

		if err = db.Ping(); err != nil {
			logger.Warn("Failed to ping database",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			db.Close()
			time.Sleep(retryDelay)
			continue
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB, logger *zap.Logger) error {
	driver, err := postgresdb.WithInstance(db, &postgresdb.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("No new migrations to apply")
	case err != nil:
		return fmt.Errorf("failed to run migrations: %w", err)
	default:
		logger.Info("Migrations applied successfully")
	}

	return nil
}

// runCleanupJob clears expired connection codes on a fixed interval
func runCleanupJob(ctx context.Context, maintenance *service.MaintenanceService, interval time.Duration, logger *zap.Logger) {
	if err := maintenance.CleanupExpiredCodes(ctx); err != nil {
		logger.Error("Failed to run initial cleanup", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Cleanup job stopped")
			return
		case <-ticker.C:
			if err := maintenance.CleanupExpiredCodes(ctx); err != nil {
				logger.Error("Failed to run scheduled cleanup", zap.Error(err))
			}
		}
	}
}
