package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"spendsync/internal/backend"
	"spendsync/internal/cache"
	"spendsync/internal/cli"
	"spendsync/internal/config"
	"spendsync/internal/engine"
	apphttp "spendsync/internal/http"
	applog "spendsync/internal/log"
	"spendsync/internal/messaging/twilio"
	"spendsync/internal/worker"
)

const (
	shutdownTimeout   = 30 * time.Second
	cacheCleanupEvery = 10 * time.Minute
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp, (*config.Config).Validate)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	svc, err := backend.CreateServices(context.Background(), backend.NewFactory(logger), backendCfg, backend.Needs{
		Feed:           true,
		Messenger:      true,
		Archive:        true,
		Broker:         cfg.AMQPEnabled(),
		BrokerOptional: true,
	})
	if err != nil {
		logger.Error("Failed to initialize services", applog.FieldError, err)
		os.Exit(1)
	}

	opts := []engine.Option{
		engine.WithConfig(engine.Config{
			MaxPages:    cfg.SyncMaxPages,
			Concurrency: cfg.SyncConcurrency,
		}),
		engine.WithLinker(svc.Feed),
		engine.WithLogger(applog.WithComponent(logger, applog.ComponentEngine)),
	}
	if svc.Archive != nil {
		opts = append(opts, engine.WithArchiver(svc.Archive))
	}
	if svc.Broker != nil {
		opts = append(opts, engine.WithTrigger(worker.NewAMQPTrigger(svc.Broker)))
	} else {
		logger.Info("No broker configured, triggered syncs run in-process")
	}
	eng := engine.New(svc.Store, svc.Feed, svc.Messenger, opts...)

	serverOpts := []apphttp.Option{
		apphttp.WithReadinessCheck("store", svc.Store),
		apphttp.WithRateLimit(cfg.RateLimitPerMinute),
	}
	if svc.Broker != nil {
		serverOpts = append(serverOpts, apphttp.WithReadinessCheck("amqp", svc.Broker))
	}
	if cfg.SignatureCheckEnabled() {
		serverOpts = append(serverOpts, apphttp.WithSignatureValidator(
			twilio.NewValidator(cfg.TwilioAuthToken, cfg.PublicBaseURL)))
	} else {
		logger.Warn("SMS signature checks disabled")
	}
	srv := apphttp.NewServer(":"+cfg.Port, eng, serverOpts...)

	scheduler := worker.NewScheduler(eng, worker.SchedulerConfig{Interval: cfg.SyncInterval})
	caches := cache.NewManager(applog.WithComponent(logger, applog.ComponentApp))
	caches.Register("feed_details", svc.Feed.DetailCache())

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := scheduler.Stop(ctx); err != nil {
			logger.Warn("Scheduler stop", applog.FieldError, err)
		}
		caches.Wait()
		eng.Wait()
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close services", applog.FieldError, err)
		}
	})

	// A nil *amqp.Client must not reach the worker as a non-nil interface.
	var source worker.RequestSource
	if svc.Broker != nil {
		source = svc.Broker
	}
	syncWorker := worker.NewSyncWorker(eng, source)
	if err := syncWorker.StartupRecovery(ctx); err != nil {
		logger.Warn("Startup recovery failed", applog.FieldError, err)
	}

	caches.Start(ctx, cacheCleanupEvery)
	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler", applog.FieldError, err)
		os.Exit(1)
	}
	go func() {
		if err := syncWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Sync worker stopped", applog.FieldError, err)
		}
	}()

	go func() {
		logger.Info("Starting spendsync server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"amqp", svc.Broker != nil,
			"archive", svc.Archive != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
