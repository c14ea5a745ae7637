package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/cache"
	"ledgerbot/internal/cli"
	"ledgerbot/internal/log"
	"ledgerbot/internal/sheets"
	gsheet "ledgerbot/internal/sheets/google"
	"ledgerbot/internal/sheets/memory"
	"ledgerbot/internal/worker"
)

func main() {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting ledger-worker")

	cli.Fatal(logger, "Configuration validation failed", cfg.ValidateWorker())
	loc, _ := cfg.Location()

	ctx, stop := cli.ShutdownContext(logger)
	defer stop()

	var writer sheets.LedgerWriter
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
			Location:        loc,
		}, logger)
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
		writer = sheetsClient
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = memory.New()
		logger.Warn("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, events are only acknowledged")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	cli.Fatal(logger, "Failed to initialize AMQP client", err)
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(writer, logger)
	caches := cache.NewManager(logger)
	caches.Register(syncWorker.Seen())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return caches.Run(gctx, 10*time.Minute)
	})
	g.Go(func() error {
		return amqpClient.ConsumeLedgerEvents(gctx, syncWorker.HandleLedgerEvent)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		cli.Fatal(logger, "Message consumption failed", err)
	}
	logger.Info("Worker shutdown complete")
}
