package main

import (
	"context"
	"errors"
	"os"

	"github.com/velkoldin-dev/tratyallday/internal/amqp"
	"github.com/velkoldin-dev/tratyallday/internal/cli"
	"github.com/velkoldin-dev/tratyallday/internal/log"
	"github.com/velkoldin-dev/tratyallday/internal/sheets"
	gsheet "github.com/velkoldin-dev/tratyallday/internal/sheets/google"
	"github.com/velkoldin-dev/tratyallday/internal/sheets/memory"
	"github.com/velkoldin-dev/tratyallday/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Fatal(nil, "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(cfg.Log)
	logger.Info("Starting sheets-worker", log.FieldOperation, log.OpStartup)

	if cfg.AMQP.URL == "" {
		cli.Fatal(logger, "AMQP is required", errors.New("AMQP_URL is not set"))
	}

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	var ledger sheets.LedgerWriter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, cfg.Sheets, logger)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
		}
		ledger = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.Sheets.SpreadsheetID)
	} else {
		ledger = memory.New()
		logger.Warn("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, events are kept in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQP.URL, cfg.AMQP.Exchange, cfg.AMQP.Queue, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(ledger, logger)
	if err := amqpClient.ConsumeExpenseEvents(ctx, syncWorker.Handle); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		amqpClient.Close()
		os.Exit(1)
	}
	logger.Info("Worker stopped", log.FieldOperation, log.OpShutdown)
}
