package main

import (
	"context"
	"os"
	"time"

	"bizledger/internal/cli"
	"bizledger/internal/log"
	"bizledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting bizledger-worker", log.FieldOperation, log.OpStartup, log.FieldBackend, cfg.DataBackend)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the render worker")
		os.Exit(1)
	}

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
	broker.SetPrefetch(cfg.WorkerConcurrency)

	// Jobs render but never enqueue, so the worker needs no publisher.
	renderSvc := cli.NewRenderService(cfg, result.Ledger, nil, logger)
	renderWorker := worker.NewRenderWorker(renderSvc, cfg.WorkerConcurrency, logger)

	stopped := make(chan struct{})
	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		// in-flight renders still need the channel to ack
		select {
		case <-stopped:
		case <-ctx.Done():
		}
		if err := broker.Close(); err != nil {
			logger.Error("Failed to close AMQP client", log.FieldError, err)
		}
		if err := result.Close(); err != nil {
			logger.Error("Failed to close backend", log.FieldError, err)
		}
	})

	runErr := renderWorker.Run(ctx, broker)
	close(stopped)
	if runErr != nil {
		logger.Error("Render job consumption failed", log.FieldError, runErr)
		_ = broker.Close()
		_ = result.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}
