package main

import (
	"context"
	"os"
	"time"

	"github.com/sukratu-design/amex-points-tracker/internal/amqp"
	"github.com/sukratu-design/amex-points-tracker/internal/backend"
	"github.com/sukratu-design/amex-points-tracker/internal/cli"
	"github.com/sukratu-design/amex-points-tracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger("points-worker")

	logger.Info("Starting points-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if cfg.DefaultUserID == "" {
		logger.Error("DEFAULT_USER_ID is required for the worker")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	if backendCfg.Type == backend.OfflineBackend {
		logger.Error("The worker needs a remote backend, got offline")
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(result.Store, cfg.DefaultUserID)

	go func() {
		err := amqpClient.ConsumeTransactionEvents(ctx, func(event *amqp.TransactionEvent) error {
			return syncWorker.HandleEvent(ctx, event)
		})
		if err != nil && err != context.Canceled {
			logger.Error("Event consumption failed", "error", err)
		}
		cancel()
	}()

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		cancel()
		amqpClient.Close()
	})

	select {
	case <-ctx.Done():
		logger.Info("Consumer stopped")
	case <-shutdownCtx.Done():
		cli.WaitForShutdown(shutdownCtx, done)
	}
}
