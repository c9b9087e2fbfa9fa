// registro-run performs a single batch cycle directly against the store,
// for deployments that exec a cron job instead of hitting the trigger
// endpoint. The cron setup must guarantee non-overlapping invocations.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	appamqp "registro/internal/amqp"
	"registro/internal/cli"
	"registro/internal/core"
	"registro/internal/log"
	"registro/internal/services"
)

func main() {
	dateFlag := flag.String("date", "", "run date override as YYYY-MM-DD (defaults to today)")
	flag.Parse()

	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentScheduler)

	cfg := cli.LoadAndValidateConfig(logger)

	today := core.Truncated(time.Now())
	if *dateFlag != "" {
		parsed, err := core.ParseDate(*dateFlag)
		if err != nil {
			logger.Error("Invalid -date value", "value", *dateFlag, log.FieldError, err)
			os.Exit(1)
		}
		today = parsed
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := appamqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing store-only", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
		}
	}

	entries := services.NewEntryService(repo, publisher)
	processor := services.NewBatchProcessor(repo, entries, cfg.MaxParallelRules)

	logger.Info("Running batch cycle", log.FieldRunDate, today.String())

	report, err := processor.ProcessDueRules(context.Background(), today)
	if err != nil {
		logger.Error("Batch run failed", log.FieldError, err)
		os.Exit(1)
	}

	fmt.Printf("processed=%d deactivated=%d failed=%v\n",
		report.Processed(), report.Deactivated(), report.FailedRuleIDs())
}
