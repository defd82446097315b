// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"talent-platform/internal/billing"
	"talent-platform/internal/classify"
	"talent-platform/internal/common/auth"
	"talent-platform/internal/common/aws"
	"talent-platform/internal/common/config"
	"talent-platform/internal/common/database"
	"talent-platform/internal/common/logger"
	"talent-platform/internal/documents"
	"talent-platform/internal/letters"
	"talent-platform/internal/notify"
	"talent-platform/internal/scoresync"
	"talent-platform/internal/scoring"
	"talent-platform/internal/search"
	"talent-platform/internal/server"
	"talent-platform/internal/signature"
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
		panic(fmt.Sprintf("config load failed: %v", err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.Wrap(zapLog)

	zapLog.Info("Starting talent platform API server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

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

	// --- Init AWS messaging clients ---
	var sesClient notify.SESService
	var snsClient notify.SNSService
	if cfg.Integrations.AWS.SES.Enabled {
		sesClient, err = aws.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
	}
	if cfg.Integrations.AWS.SNS.Enabled {
		snsClient, err = aws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
	}

	// --- Init external service clients ---
	authService := auth.NewService(
		cfg.Auth.BaseURL,
		cfg.Auth.ClientID,
		cfg.Auth.ClientSecret,
		redis,
		time.Duration(cfg.Auth.CacheTTL)*time.Second,
		log,
	)

	classifierOpts := []classify.Option{
		classify.WithCache(redis, time.Duration(cfg.Integrations.Classifier.CacheTTL)*time.Second),
	}
	classifierTimeout := time.Duration(cfg.Integrations.Classifier.Timeout) * time.Millisecond
	if cfg.Integrations.Classifier.FallbackBaseURL != "" {
		classifierOpts = append(classifierOpts, classify.WithFallback(
			classify.NewCompatibleClient(cfg.Integrations.Classifier.FallbackAPIKey, cfg.Integrations.Classifier.FallbackBaseURL, classifierTimeout),
			cfg.Integrations.Classifier.FallbackModel,
		))
	}
	classifier := classify.New(
		classify.NewOpenAIClient(cfg.Integrations.Classifier.APIKey, classifierTimeout),
		cfg.Integrations.Classifier.Model,
		log,
		classifierOpts...,
	)

	signatureClient := signature.NewClient(cfg.Integrations.Signature.APIKey, cfg.Integrations.Signature.BaseURL,
		time.Duration(cfg.Integrations.Signature.Timeout)*time.Millisecond)
	webhookVerifier := signature.NewWebhookVerifier(cfg.Integrations.Signature.WebhookSecret)
	paymentsClient := billing.NewPaymentsClient(cfg.Integrations.Payments.APIKey, cfg.Integrations.Payments.BaseURL,
		time.Duration(cfg.Integrations.Payments.Timeout)*time.Millisecond)
	scoreClient := scoresync.NewClient(cfg.Scoring.Service.APIKey, cfg.Scoring.Service.BaseURL,
		time.Duration(cfg.Scoring.Service.Timeout)*time.Millisecond)

	zapLog.Info("All external service clients initialized")

	// --- Assemble core services ---
	searchIndex := search.NewIndex(esClient, cfg.Database.Elasticsearch.Index, log)
	engine := scoring.NewEngine(pg.DB, searchIndex, log)

	dispatcher := notify.NewDispatcher(notify.Config{
		FromEmail:    cfg.Notifications.Email.FromEmail,
		EmailEnabled: cfg.Notifications.Email.Enabled && sesClient != nil,
		SMSEnabled:   cfg.Notifications.SMS.Enabled && snsClient != nil,
		SMSPriority:  cfg.Notifications.SMS.PriorityThreshold,
		SMSSenderID:  cfg.Integrations.AWS.SNS.DefaultSMSSenderID,
		AdminEmail:   cfg.Notifications.AdminEmail,
		AdminPhone:   cfg.Notifications.AdminPhone,
	}, pg.DB, sesClient, snsClient, log)

	documentService := documents.NewService(pg.DB, classifier, engine, log)
	letterService := letters.NewService(pg.DB, signatureClient, dispatcher, log)
	promoService := billing.NewPromoService(pg.DB, paymentsClient, log)
	sessionService := scoresync.NewSessions(pg.DB, scoreClient, log)

	srv := server.New(
		authService,
		documentService,
		engine,
		letterService,
		webhookVerifier,
		promoService,
		paymentsClient,
		sessionService,
		searchIndex,
		log,
	)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      srv.Router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	stopCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-stopCtx.Done()

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("Server stopped")
}
