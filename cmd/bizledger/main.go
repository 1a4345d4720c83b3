package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"bizledger/internal/cache"
	"bizledger/internal/cli"
	apphttp "bizledger/internal/http"
	"bizledger/internal/log"
	"bizledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	result, err := cli.OpenBackend(startupCtx, cfg, logger)
	cancelStartup()
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}

	broker, err := cli.ConnectBroker(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		_ = result.Close()
		os.Exit(1)
	}
	if broker == nil {
		logger.Info("AMQP disabled - render jobs and cross-process cache invalidation are off")
	}
	publisher := cli.Publisher(broker)

	dashboard := services.NewDashboardService(result.Ledger, result.Ledger, services.DashboardOptions{
		WindowMonths: cfg.MetricsWindowMonths,
		CacheSize:    cfg.CacheSize,
		CacheTTL:     cfg.CacheTTL,
	}, logger)

	caches := cache.NewManager(logger)
	for _, c := range dashboard.Caches() {
		caches.Register(c)
	}
	if cfg.CacheTTL > 0 {
		caches.StartCleanup(cfg.CacheTTL)
	}

	srv := apphttp.NewServer(apphttp.Services{
		Dashboard: dashboard,
		Ledger:    services.NewLedgerService(result.Ledger, dashboard, publisher, logger),
		Render:    cli.NewRenderService(cfg, result.Ledger, publisher, logger),
	}, apphttp.Options{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AuthUser:           cfg.AuthUser,
		AuthPass:           cfg.AuthPass,
		CurrencySymbol:     cfg.CurrencySymbol,
		Ready:              result.Ready,
		Logger:             logger,
	})

	srv.ReadTimeout = 15 * time.Second
	srv.WriteTimeout = 35 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if broker != nil {
			if err := broker.Close(); err != nil {
				logger.Error("Failed to close AMQP client", log.FieldError, err)
			}
		}
		if err := result.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	})

	if broker != nil {
		go func() {
			err := broker.ConsumeLedgerChanges(ctx, dashboard.HandleLedgerChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Ledger change listener stopped", log.FieldError, err)
			}
		}()
	}

	logger.Info("Starting bizledger server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"auth", cfg.AuthUser != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown)
}
