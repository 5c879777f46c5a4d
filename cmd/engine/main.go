// cmd/engine/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"opsdesk-engine/internal/api"
	"opsdesk-engine/internal/common/config"
	"opsdesk-engine/internal/common/database"
	"opsdesk-engine/internal/common/errors"
	"opsdesk-engine/internal/common/logger"
	"opsdesk-engine/internal/common/observability"
	"opsdesk-engine/internal/engine/alerts"
	"opsdesk-engine/internal/engine/bus"
	"opsdesk-engine/internal/engine/conversation"
	"opsdesk-engine/internal/engine/executor"
	"opsdesk-engine/internal/engine/matcher"
	"opsdesk-engine/internal/gateway"
	"opsdesk-engine/internal/store/audit"
	"opsdesk-engine/internal/store/dedup"
	"opsdesk-engine/internal/store/postgres"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting automation engine...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New("engine")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Messaging Gateway ---
	gw, err := gateway.NewAWS(ctx, cfg.Gateway, log)
	if err != nil {
		zapLog.Fatal("gateway init failed", zap.Error(err))
	}
	zapLog.Info("Messaging gateway initialized")

	// --- Stores ---
	ruleStore := postgres.NewRuleStore(pg.DB)
	templateStore := postgres.NewTemplateStore(pg.DB)
	contactStore := postgres.NewContactStore(pg.DB)
	submissionStore := postgres.NewSubmissionStore(pg.DB)
	bookingStore := postgres.NewBookingStore(pg.DB)
	conversationStore := postgres.NewConversationStore(pg.DB)
	messageStore := postgres.NewMessageStore(pg.DB)
	inventoryStore := postgres.NewInventoryStore(pg.DB)
	alertStore := postgres.NewAlertStore(pg.DB)
	statsStore := postgres.NewStatsStore(pg.DB)

	dedupStore := dedup.New(redis.Client, config.GetDuration(cfg.Engine.DedupTTL), log)
	auditStore := audit.New(esClient.Client, cfg.Database.Elasticsearch.AuditIndex, log)

	// --- Engine Components ---
	eventBus := bus.New(log, cfg.Engine.QueueSize)
	eventBus.Instrument(obs)
	defer eventBus.Close()

	tracker := conversation.NewTracker(conversationStore, messageStore, log)
	ruleMatcher := matcher.New(ruleStore, log)

	exec := executor.New(
		executor.Config{
			MaxSendAttempts: cfg.Engine.MaxSendAttempts,
			InitialBackoff:  config.GetDuration(cfg.Engine.InitialBackoff),
		},
		ruleMatcher, dedupStore, contactStore, tracker, gw, alertStore, auditStore, log,
	)
	exec.Register(eventBus)

	aggregator := alerts.New(
		alerts.Config{
			PendingFormMaxAge:         config.GetDuration(cfg.Alerts.PendingFormMaxAge),
			StalledConversationMaxAge: config.GetDuration(cfg.Alerts.StalledConversationMaxAge),
		},
		inventoryStore, submissionStore, conversationStore, alertStore, statsStore, log,
	)
	aggregator.Register(eventBus)

	scanCtx, stopScans := context.WithCancel(ctx)
	defer stopScans()
	go aggregator.Run(scanCtx, config.GetDuration(cfg.Alerts.ScanInterval), statsStore.Workspaces)

	// --- HTTP API ---
	errHandler := errors.NewErrorHandler(log)
	router := api.NewRouter(api.Handlers{
		Rules:         api.NewRuleHandler(ruleStore, templateStore, errHandler, log),
		Templates:     api.NewTemplateHandler(templateStore, errHandler, log),
		Submissions:   api.NewSubmissionHandler(templateStore, contactStore, submissionStore, eventBus, errHandler, log),
		Bookings:      api.NewBookingHandler(bookingStore, contactStore, eventBus, errHandler, log),
		Conversations: api.NewConversationHandler(conversationStore, messageStore, tracker, eventBus, errHandler, log),
		Inventory:     api.NewInventoryHandler(inventoryStore, eventBus, errHandler, log),
		Dashboard:     api.NewDashboardHandler(aggregator, alertStore, errHandler, log),
	}, []api.ReadyCheck{
		{Name: "postgres", Check: pg.Ping},
		{Name: "redis", Check: redis.Ping},
		{Name: "elasticsearch", Check: func(context.Context) error { return esClient.Ping() }},
	}, log)

	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.HTTP.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.HTTP.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("Shutting down...")
	stopScans()

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown error", zap.Error(err))
	}

	zapLog.Info("Shutdown complete")
}
