package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/seedleaf/store_backend/config"
	"github.com/seedleaf/store_backend/models"
	"github.com/seedleaf/store_backend/notify"
	"github.com/seedleaf/store_backend/webhook"
	"github.com/seedleaf/store_backend/workflow"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// instrumentedProcessor wraps the pipeline with the webhook_events_total
// counter so metrics stay out of the webhook package itself.
type instrumentedProcessor struct {
	inner webhook.Processor
}

func (ip instrumentedProcessor) Process(ctx context.Context, evt *webhook.PaymentEvent) (webhook.Outcome, error) {
	outcome, err := ip.inner.Process(ctx, evt)
	switch {
	case err != nil:
		webhookEventsTotal.WithLabelValues("failed").Inc()
	case outcome == webhook.OutcomeDuplicate:
		webhookEventsTotal.WithLabelValues("duplicate").Inc()
	default:
		webhookEventsTotal.WithLabelValues("processed").Inc()
	}
	return outcome, err
}

// customErrorLogger logs only requests that accumulated gin errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()
	registerMetrics()

	// The signing secret is the trust boundary for everything this service
	// does, so a misconfigured deployment must die at boot.
	webhookCfg, err := config.LoadWebhookConfig()
	if err != nil {
		logger.Fatal(err.Error())
	}

	// Shutdown coordination.
	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until the DB is ready, webhook deliveries get 503 and the provider retries.
	r := gin.New()
	r.Use(metricsMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	corsConfig := cors.DefaultConfig()
	// Production requires an explicit allowlist; anything else allows all for
	// developer convenience.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if webhookCfg.Environment == "production" {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", webhook.SignatureHeader)
	r.Use(cors.New(corsConfig))

	store := workflow.NewStore(nil)
	dispatcher := notify.NewDispatcher(nil, logger)
	pipeline := webhook.NewPipeline(webhook.Pipeline{
		Orders:      store,
		Conversions: store,
		Referrals:   store,
		Affiliates:  store,
		Ledger:      store,
		Notifier:    dispatcher,
		Logger:      logger,
	})
	handler := webhook.NewHandler(webhookCfg, instrumentedProcessor{inner: pipeline}, logger)

	r.POST("/webhooks/payments", func(c *gin.Context) {
		handler.Handle(c)
		if c.Writer.Status() == http.StatusBadRequest {
			webhookEventsTotal.WithLabelValues("rejected").Inc()
		}
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		// ListenAndServe returns http.ErrServerClosed on graceful shutdown.
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations as
	// a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	backlogCtx, cancelBacklog := context.WithCancel(context.Background())
	defer cancelBacklog()
	if shouldRunNotificationBacklog() {
		go NewNotificationBacklogProcessor(db, dispatcher, logger).Run(backlogCtx)
	}

	logger.WithFields(logrus.Fields{
		"port": port,
		"env":  webhookCfg.Environment,
	}).Info("payment webhook service ready")

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Stop background workers first so they don't start new work while draining.
	cancelBacklog()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}
