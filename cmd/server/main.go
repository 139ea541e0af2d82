package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/finexa/fxarb/internal/api"
	"github.com/finexa/fxarb/internal/cache"
	"github.com/finexa/fxarb/internal/config"
	"github.com/finexa/fxarb/internal/credentials"
	"github.com/finexa/fxarb/internal/database"
	"github.com/finexa/fxarb/internal/logging"
	"github.com/finexa/fxarb/internal/market"
	"github.com/finexa/fxarb/internal/services"
	"github.com/finexa/fxarb/internal/store"
	"github.com/finexa/fxarb/internal/telemetry"
	"github.com/finexa/fxarb/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logging.New(cfg.LogLevel, cfg.Environment)

	telemetryProvider, err := telemetry.Init(cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetryProvider.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("Failed to shut down telemetry")
		}
	}()

	// Storage: Postgres when enabled, otherwise the in-memory store that
	// backs pure simulation runs.
	var (
		engineStore store.Store = store.NewMemory()
		db          *database.PostgresDB
	)
	if cfg.Database.Enabled {
		db, err = database.NewPostgresConnection(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		engineStore = store.NewPostgres(db.Pool)
	}

	var (
		redis    *database.RedisClient
		oppCache *cache.OpportunityCache
	)
	if cfg.Redis.Enabled {
		redis, err = database.NewRedisConnection(cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redis.Close()
		oppCache = cache.NewOpportunityCache(redis.Client, 30*time.Second)
	}

	simulator := market.NewSimulator()
	book := services.NewBook()
	governors := services.NewGovernors(engineStore, cfg.Governor.CountOpenPositions)
	executor := services.NewExecutor(engineStore, book, simulator, log)
	analysis := services.NewAnalysisService(simulator.History())
	advisor := services.NewAdvisor(
		cfg.Advisor.APIKey,
		cfg.Advisor.BaseURL,
		cfg.Advisor.Model,
		config.Duration(cfg.Advisor.Timeout),
		log,
	)
	if !advisor.Configured() {
		log.Warn("Advisor API key not set, advisory features run on deterministic mocks")
	}

	var cipher *credentials.Cipher
	if cfg.Security.CredentialKey != "" {
		cipher, err = credentials.NewCipher(cfg.Security.CredentialKey)
		if err != nil {
			return fmt.Errorf("failed to initialize credential cipher: %w", err)
		}
	} else {
		log.Warn("Credential key not set, broker credential storage disabled")
	}
	credentialService := services.NewCredentialService(engineStore, cipher, simulator, log)

	hub := ws.NewHub(log)
	defer hub.Close()

	notifier := services.NewNotificationService(
		cfg.Telegram.BotToken,
		cfg.Telegram.ChatID,
		cfg.Telegram.MinProfitPct,
		log,
	)

	var schedulerCache services.OpportunityCache
	if oppCache != nil {
		schedulerCache = oppCache
	}
	scheduler := services.NewScheduler(
		simulator, book, engineStore, executor, advisor, governors, notifier,
		schedulerCache, hub,
		config.Duration(cfg.Scheduler.CycleInterval),
		config.Duration(cfg.Scheduler.ErrorBackoff),
		log,
	)
	if cfg.Scheduler.Enabled {
		scheduler.Start(context.Background())
		defer scheduler.Stop()
	}

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(telemetry.ServiceName))

	api.SetupRoutes(router, api.Dependencies{
		Store:       engineStore,
		Book:        book,
		Rates:       simulator,
		Executor:    executor,
		Advisor:     advisor,
		Governors:   governors,
		Analysis:    analysis,
		Credentials: credentialService,
		Scheduler:   scheduler,
		Hub:         hub,
		DB:          db,
		Redis:       redis,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"port":        cfg.Server.Port,
			"environment": cfg.Environment,
		}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited gracefully")
	return nil
}
