package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/icdtuning/garage/internal/auth"
	"github.com/icdtuning/garage/internal/config"
	"github.com/icdtuning/garage/internal/db"
	"github.com/icdtuning/garage/internal/handlers"
	"github.com/icdtuning/garage/internal/metrics"
	"github.com/icdtuning/garage/internal/middleware"
	"github.com/icdtuning/garage/internal/notify"
	"github.com/icdtuning/garage/internal/pdf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
)

// stores are the collections the API reads and writes.
type stores struct {
	users    db.UserCollection
	jobs     db.JobCollection
	invoices db.InvoiceCollection
	ping     func(ctx context.Context) error
}

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			log.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}()
	log.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")

	database := client.Database(cfg.MongoDB)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		log.WithError(err).Fatal("Failed to create indexes")
	}
	store := db.NewStore(database)

	notifier, closeNotifier, err := newNotifier(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MQTT broker")
	}
	defer closeNotifier()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router, err := newRouter(cfg, stores{
		users:    store.Users,
		jobs:     store.Jobs,
		invoices: store.Invoices,
		ping:     func(ctx context.Context) error { return client.Ping(ctx, nil) },
	}, notifier, reg)
	if err != nil {
		log.WithError(err).Fatal("Failed to build router")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}

func setupLogging(level string) {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)

	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("Unknown log level, using info")
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

// newNotifier connects to the MQTT broker when one is configured and falls
// back to logging notifications otherwise.
func newNotifier(cfg config.Config) (notify.Publisher, func(), error) {
	if cfg.MQTTBrokerURL == "" {
		log.Warn("MQTT_BROKER_URL not set, notifications will only be logged")
		return notify.LogPublisher{}, func() {}, nil
	}

	client, err := notify.ConnectMQTT(cfg.MQTTBrokerURL, cfg.MQTTClientID)
	if err != nil {
		return nil, nil, err
	}
	log.WithField("broker", cfg.MQTTBrokerURL).Info("Connected to MQTT broker")
	return notify.NewMQTTPublisher(client, cfg.MQTTTopicPrefix), func() { client.Disconnect(250) }, nil
}

func newRouter(cfg config.Config, s stores, notifier notify.Publisher, reg *prometheus.Registry) (http.Handler, error) {
	if cfg.UsesDefaultJWTSecret() {
		log.Warn("JWT_SECRET not set, signing tokens with the built-in default secret")
	}
	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return nil, err
	}
	limiter := middleware.NewRateLimitMiddleware()
	if err := limiter.TrustProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	m := metrics.New(reg)
	invoices := handlers.NewInvoiceHandler(s.invoices, s.jobs, pdf.NewRenderer(cfg.Business), notifier, m, handlers.InvoiceSettings{
		Prefix:          cfg.InvoicePrefix,
		DefaultGSTRate:  cfg.DefaultGSTRate,
		AccountantEmail: cfg.AccountantEmail,
	})

	return handlers.NewRouter(handlers.RouterConfig{
		Auth:     handlers.NewAuthHandler(authService, s.users),
		Jobs:     handlers.NewJobHandler(s.jobs, s.users, s.invoices, notifier, m, cfg.Business.Name),
		Invoices: invoices,
		Export:   handlers.NewExportHandler(s.jobs),
		Health:   handlers.NewHealthHandler(s.ping),

		AuthMiddleware: middleware.NewAuthMiddleware(authService),
		RateLimiter:    limiter,
		Metrics:        m,
		MetricsHandler: metrics.Handler(reg),

		CORSOrigins:     cfg.CORSOrigins,
		LoginRateLimit:  cfg.LoginRateLimit,
		LoginRateWindow: cfg.LoginRateWindow,
	}), nil
}
