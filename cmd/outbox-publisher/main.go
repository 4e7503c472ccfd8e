package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/martinreyes/filehub-backend/internal/files"
	"github.com/martinreyes/filehub-backend/internal/users"
	"github.com/martinreyes/filehub-backend/pkg/config"
	"github.com/martinreyes/filehub-backend/pkg/db"
	"github.com/martinreyes/filehub-backend/pkg/jobs"
	"github.com/martinreyes/filehub-backend/pkg/logger"
	"github.com/martinreyes/filehub-backend/pkg/metrics"
	"github.com/martinreyes/filehub-backend/pkg/migrate"
	"github.com/martinreyes/filehub-backend/pkg/outbox"
	"github.com/martinreyes/filehub-backend/pkg/pubsub"
)

const shutdownGrace = 30 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "outbox-publisher"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	registry := outbox.NewRegistry()
	users.RegisterEvents(registry)
	files.RegisterEvents(registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(logg.WithField(ctx, "event_types", registry.Types()), "event registry loaded")

	runner := jobs.NewTimerRunner(ctx)
	poller, err := outbox.NewPoller(outbox.PollerParams{
		Repository:      outbox.NewRepository(dbClient.DB()),
		Registry:        registry,
		Bus:             pubsub.NewEventPublisher(pubsubClient.DomainPublisher()),
		Runner:          runner,
		Logger:          logg,
		Metrics:         metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
		BatchSize:       cfg.Outbox.BatchSize,
		PollInterval:    cfg.Outbox.PollInterval,
		BaseBackoff:     cfg.Outbox.BaseBackoff,
		CleanupInterval: cfg.Outbox.CleanupInterval,
		Retention:       cfg.Outbox.Retention,
	})
	if err != nil {
		logg.Error(ctx, "failed to create outbox poller", err)
		os.Exit(1)
	}

	go serveMetrics(ctx, logg, cfg.Metrics.Port)

	logg.Info(ctx, "starting outbox publisher")
	if err := poller.Start(); err != nil {
		logg.Error(ctx, "failed to start outbox poller", err)
		os.Exit(1)
	}

	<-ctx.Done()
	poller.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "outbox publisher shutdown timed out", err)
		os.Exit(1)
	}

	logg.Info(context.Background(), "outbox publisher shutting down gracefully")
}

func serveMetrics(ctx context.Context, logg *logger.Logger, port int) {
	if port <= 0 {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "metrics server stopped", err)
	}
}
