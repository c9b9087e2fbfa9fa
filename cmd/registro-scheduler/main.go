package main

import (
	"context"
	"net/http"
	"os"
	"time"

	appamqp "registro/internal/amqp"
	"registro/internal/cli"
	apphttp "registro/internal/http"
	"registro/internal/log"
	"registro/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentScheduler)
	logger.Info("Starting registro-scheduler")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateTriggerSecret(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Event publishing is optional: without AMQP the scheduler still
	// materializes entries, downstream consumers just poll the store.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := appamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing store-only", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP client initialized, ledger events will be published")
		}
	} else {
		logger.Info("AMQP disabled, ledger events will not be published")
	}

	entries := services.NewEntryService(repo, publisher)
	processor := services.NewBatchProcessor(repo, entries, cfg.MaxParallelRules)

	gate := apphttp.NewTriggerGate(cfg.TriggerSecret)
	srv := apphttp.NewServer(":"+cfg.Port, gate, processor, logger)

	srv.ReadTimeout = 10 * time.Second
	// A run blocks on the store; give it room before the write deadline.
	srv.WriteTimeout = 120 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Trigger endpoint listening",
		"port", cfg.Port,
		"sqlite_db", cfg.SQLiteDBPath,
		"max_parallel_rules", cfg.MaxParallelRules)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	<-done
	logger.Info("Scheduler stopped gracefully")
}
