// Command server runs the CollectorHub ranking API.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collectorhub/internal/bootstrap"
	"collectorhub/internal/config"
	"collectorhub/internal/jobs"
	"collectorhub/internal/middleware"
	"collectorhub/internal/observability"
	"collectorhub/internal/repository"
	"collectorhub/internal/server"
)

const limiterIdle = 10 * time.Minute

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logCloser := middleware.ConfigureLogger(middleware.LogOptions{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		Production: cfg.IsProduction(),
	})
	defer func() { _ = logCloser.Close() }()

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "collectorhub-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	ctx := context.Background()
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{SeedBuiltIns: cfg.SeedBuiltins})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	srv, err := server.NewServerWithDeps(cfg, db, rdb)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	scheduler := jobs.NewScheduler(30 * time.Minute)
	auditor := jobs.NewCounterAuditor(repository.NewPostRepository(db), 200)
	if err := scheduler.Add("counter_audit", cfg.CounterAuditSchedule, auditor.Job()); err != nil {
		log.Fatalf("Failed to schedule counter audit: %v", err)
	}
	if err := scheduler.Add("limiter_sweep", "@every 5m", jobs.SweepJob(srv.Limiter(), limiterIdle)); err != nil {
		log.Fatalf("Failed to schedule limiter sweep: %v", err)
	}
	scheduler.Start()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		middleware.Logger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		scheduler.Stop(ctx)
		if err := srv.Shutdown(ctx); err != nil {
			middleware.Logger.Error("server shutdown error", slog.String("error", err.Error()))
		}
		if err := shutdownTracing(ctx); err != nil {
			middleware.Logger.Error("tracing shutdown error", slog.String("error", err.Error()))
		}
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
