package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/sumii/sumii-core/internal/cache"
	"github.com/sumii/sumii-core/internal/config"
	"github.com/sumii/sumii-core/internal/gcpclient"
	"github.com/sumii/sumii-core/internal/handler"
	"github.com/sumii/sumii-core/internal/middleware"
	"github.com/sumii/sumii-core/internal/repository"
	"github.com/sumii/sumii-core/internal/router"
	"github.com/sumii/sumii-core/internal/service"
)

const Version = "0.1.0"

func getPort(cfg *config.Config) string {
	if cfg.Port > 0 {
		return fmt.Sprintf("%d", cfg.Port)
	}
	return "8080"
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	urlExpiry, err := time.ParseDuration(cfg.SignedURLExpiry)
	if err != nil {
		urlExpiry = 168 * time.Hour
	}

	users := repository.NewUserRepo(pool)
	conversations := repository.NewConversationRepo(pool)
	messages := repository.NewMessageRepo(pool)
	documents := repository.NewDocumentRepo(pool)
	summaries := repository.NewSummaryRepo(pool)
	lawyerConnections := repository.NewLawyerConnectionRepo(pool)
	notifications := repository.NewNotificationRepo(pool)

	storage, err := gcpclient.NewStorageAdapter(ctx)
	if err != nil {
		return fmt.Errorf("init storage adapter: %w", err)
	}
	defer storage.Close()

	docAI, err := gcpclient.NewDocAIAdapter(ctx, cfg.DocAILocation, cfg.DocAIProcessorName)
	if err != nil {
		return fmt.Errorf("init document ai adapter: %w", err)
	}
	defer docAI.Close()

	genAI, err := gcpclient.NewGenAIAdapter(ctx, cfg.GCPProject, cfg.DocAILocation, "gemini-2.0-flash")
	if err != nil {
		return fmt.Errorf("init remote agent adapter: %w", err)
	}
	defer genAI.Close()

	authService := service.NewAuthService(cfg.BearerSigningSecret)
	orchestrator := service.NewConversationOrchestrator(cfg.RemoteAgentInitialAgentID, cfg.RemoteAgentWrapupLabel)
	docService := service.NewDocumentService(documents, conversations, storage, docAI, cfg.BlobBucket, cfg.MaxDocumentBytes, urlExpiry)
	summaryService := service.NewSummaryService(summaries, conversations, messages, storage, genAI, cfg.BlobBucket, urlExpiry)
	syncService := service.NewSyncService(conversations, messages, documents, summaries, lawyerConnections, notifications)
	anwaltService := service.NewAnwaltService(cfg.DirectoryBaseURL, cfg.DirectorySharedSecret)
	var emailSender service.EmailSender = service.LoggingEmailSender{}

	chatHandler := handler.NewChatHandler(conversations, messages, docService, users, genAI, orchestrator, summaryService, authService)
	eventsHandler := handler.NewEventsHandler(notifications, authService)
	syncHandler := handler.NewSyncHandler(syncService)
	conversationHandler := handler.NewConversationHandler(conversations, messages, orchestrator)
	documentHandler := handler.NewDocumentHandler(docService)
	summaryHandler := handler.NewSummaryHandler(summaryService, summaries, conversations)
	anwaltHandler := handler.NewAnwaltHandler(anwaltService, lawyerConnections, conversations, summaries)
	userHandler := handler.NewUserHandler(users)
	statusHandler := handler.NewStatusHandler(conversations, cfg.RemoteAgentInitialAgentID, cfg.RemoteAgentWrapupLabel, Version, cfg.GCPProject != "")

	webhookDeps := handler.WebhookDeps{
		Users:             users,
		Conversations:     conversations,
		LawyerConnections: lawyerConnections,
		Notifications:     notifications,
		Email:             emailSender,
		FrontendBaseURL:   cfg.FrontendBaseURL,
		SharedSecret:      cfg.DirectorySharedSecret,
	}

	metricsReg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(metricsReg)

	var rateStore service.RateStore
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		rateStore = cache.NewRedisRateStore(rdb)
	} else {
		rateStore = service.NewInMemoryRateStore()
	}
	generalLimiter := middleware.NewRateLimiter(rateStore, middleware.RateLimiterConfig{MaxRequests: 120, Window: time.Minute})

	deps := &router.Dependencies{
		DB:                 pool,
		AuthService:        authService,
		FrontendURL:        cfg.FrontendBaseURL,
		Version:            Version,
		Metrics:            metrics,
		MetricsReg:         metricsReg,
		InternalAuthSecret: os.Getenv("INTERNAL_AUTH_SECRET"),

		Chat:          chatHandler,
		Events:        eventsHandler,
		Webhooks:      webhookDeps,
		Sync:          syncHandler,
		Conversations: conversationHandler,
		Documents:     documentHandler,
		Summaries:     summaryHandler,
		Anwalt:        anwaltHandler,
		Users:         userHandler,
		Status:        statusHandler,

		AdminMigrateDeps: handler.AdminMigrateDeps{
			RunSQL: func(ctx context.Context, sql string) error {
				_, err := pool.Exec(ctx, sql)
				return err
			},
			MigrationsDir: envOr("MIGRATIONS_DIR", "/migrations"),
		},

		GeneralRateLimiter: generalLimiter,
	}

	r := router.New(deps)

	srv := &http.Server{
		Addr:         ":" + getPort(cfg),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket/SSE handlers manage their own lifetimes
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("sumii-core starting", "version", Version, "port", getPort(cfg))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received signal, shutting down gracefully", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
