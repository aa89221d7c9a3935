package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TrollHead15/AstroLiana/cmd/mainconfig"
	"github.com/TrollHead15/AstroLiana/internal/analytics"
	"github.com/TrollHead15/AstroLiana/internal/api/router"
	appconfig "github.com/TrollHead15/AstroLiana/internal/config"
	"github.com/TrollHead15/AstroLiana/internal/fulfillment"
	"github.com/TrollHead15/AstroLiana/internal/i18n"
	"github.com/TrollHead15/AstroLiana/internal/leads"
	"github.com/TrollHead15/AstroLiana/internal/notify"
	"github.com/TrollHead15/AstroLiana/internal/observability/metrics"
	"github.com/TrollHead15/AstroLiana/internal/pipeline"
	"github.com/TrollHead15/AstroLiana/internal/ratelimit"
	"github.com/TrollHead15/AstroLiana/pkg/logging"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting astroliana lead API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var awsCfg *aws.Config
	if cfg.NeedsAWS() {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}

	metricsHandler, leadMetrics := setupMetrics()

	limiter := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{
		Window:        cfg.RateLimitWindow,
		MaxRequests:   cfg.RateLimitMaxRequests,
		IdleTTL:       cfg.RateLimitIdleTTL,
		SweepInterval: cfg.RateLimitSweepInterval,
	})
	limiter.StartJanitor(ctx)

	notifier := setupNotifier(cfg, logger)
	dispatcher := fulfillment.NewDispatcher(
		setupEmailSender(cfg, awsCfg, logger),
		setupAttachmentSource(cfg, awsCfg),
		nil,
		logger,
	)
	for _, kind := range leads.Kinds() {
		if !dispatcher.Has(kind) {
			logger.Error("no email material for lead kind", "lead_type", kind.String())
			os.Exit(1)
		}
	}
	emitter, err := setupAnalytics(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize analytics", "error", err)
		os.Exit(1)
	}

	p, err := pipeline.New(pipeline.Deps{
		Limiter:   limiter,
		Notifier:  notifier,
		Fulfiller: dispatcher,
		Tracker:   emitter,
		Metrics:   leadMetrics,
		Logger:    logger,
	}, pipeline.Config{
		ChatTimeout:   cfg.ChatTimeout,
		EmailTimeout:  cfg.EmailTimeout,
		DefaultLocale: i18n.Parse(cfg.DefaultLocale, i18n.Russian),
	})
	if err != nil {
		logger.Error("failed to build lead pipeline", "error", err)
		os.Exit(1)
	}

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		Pipeline:           p,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ChatTimeout + cfg.EmailTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	if err := emitter.Close(shutdownCtx); err != nil {
		logger.Warn("analytics did not drain", "error", err)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics registers the lead collectors on a private registry and
// returns the handler that serves it.
func setupMetrics() (http.Handler, *metrics.LeadMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewLeadMetrics(reg)
}

func setupNotifier(cfg *appconfig.Config, logger *logging.Logger) *notify.Notifier {
	locale := i18n.Parse(cfg.OwnerLocale, i18n.Russian)
	if cfg.TelegramDryRun {
		logger.Warn("telegram dry run enabled, lead notifications are only logged")
		chatID := cfg.TelegramChatID
		if chatID == "" {
			chatID = "dry-run"
		}
		return notify.NewNotifier(notify.NewLogChatSender(logger), chatID, locale, logger)
	}

	client, err := notify.NewTelegramClient(notify.TelegramConfig{
		BotToken: cfg.TelegramBotToken,
		BaseURL:  cfg.TelegramAPIBaseURL,
		Timeout:  cfg.ChatTimeout,
		Logger:   logger,
	})
	if err != nil {
		// Every submission will fail with 500 until the bot is configured.
		logger.Error("telegram not configured", "error", err)
		return notify.NewNotifier(nil, cfg.TelegramChatID, locale, logger)
	}
	if cfg.TelegramChatID == "" {
		logger.Error("TELEGRAM_CHAT_ID is empty")
	}
	return notify.NewNotifier(client, cfg.TelegramChatID, locale, logger)
}

func setupEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	switch {
	case cfg.EmailProvider == "stub":
		return notify.NewStubEmailSender(logger)
	case cfg.UsesSES():
		if awsCfg == nil {
			logger.Error("SES selected but AWS config is unavailable")
			return nil
		}
		logger.Info("email provider: ses")
		return notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
	case cfg.SendGridAPIKey != "" && (cfg.EmailProvider == "sendgrid" || cfg.EmailProvider == "auto"):
		logger.Info("email provider: sendgrid")
		return notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
	case cfg.Env == "development":
		logger.Warn("no email provider configured, using stub sender")
		return notify.NewStubEmailSender(logger)
	default:
		logger.Warn("no email provider configured, lead materials will not be sent")
		return nil
	}
}

func setupAttachmentSource(cfg *appconfig.Config, awsCfg *aws.Config) fulfillment.AttachmentSource {
	if cfg.AssetsS3Bucket != "" && awsCfg != nil {
		client := s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
			o.UsePathStyle = cfg.AWSEndpointOverride != ""
		})
		return fulfillment.NewCachedSource(fulfillment.NewS3Source(client, cfg.AssetsS3Bucket, cfg.AssetsS3Prefix))
	}
	return fulfillment.NewCachedSource(fulfillment.DirSource{Dir: cfg.AssetsDir})
}

func setupAnalytics(cfg *appconfig.Config, logger *logging.Logger) (*analytics.Emitter, error) {
	emitterCfg := analytics.EmitterConfig{
		QueueSize: cfg.AnalyticsQueueSize,
		Timeout:   cfg.AnalyticsTimeout,
		Logger:    logger,
	}
	capturer, err := analytics.NewPostHogCapturer(analytics.PostHogConfig{
		APIKey: cfg.PostHogAPIKey,
		Host:   cfg.PostHogHost,
	})
	if err != nil {
		return nil, err
	}
	if capturer == nil {
		logger.Info("posthog not configured, analytics disabled")
		return analytics.NewEmitter(nil, emitterCfg), nil
	}
	return analytics.NewEmitter(capturer, emitterCfg), nil
}
