package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"findash/internal/amqp"
	"findash/internal/cli"
	"findash/internal/config"
	"findash/internal/log"
	gsheet "findash/internal/sheets/google"
	"findash/internal/worker"
)

// validateWorker adds the settings the mirror needs on top of the shared
// validation.
func validateWorker(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	var missing []string
	if cfg.AMQPURL == "" {
		missing = append(missing, "AMQP_URL")
	}
	if cfg.GoogleSpreadsheetID == "" {
		missing = append(missing, "GOOGLE_SPREADSHEET_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("worker requires %v", missing)
	}
	return nil
}

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(config.Load().LogLevel, os.Stdout).WithComponent(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger, validateWorker)

	logger.Info("Starting findash-worker", "queue", cfg.AMQPQueue, "spreadsheet_id", cfg.GoogleSpreadsheetID)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	mirror, err := gsheet.NewServiceAccount(ctx, cfg.GoogleSpreadsheetID, gsheet.SheetNames{
		Transactions: cfg.GoogleTransactionsSheet,
		Cards:        cfg.GoogleCardsSheet,
		Users:        cfg.GoogleUsersSheet,
	})
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}

	// The ledger database is optional here: without it the worker only
	// follows the queue and skips the pending sweep.
	var tracker worker.SyncTracker
	if cfg.DataBackend == "sqlite" {
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer repo.Close()
		tracker = repo
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer consumer.Close()

	mw := worker.NewMirrorWorker(mirror, tracker, cfg.SyncBatchSize)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Consume(gctx, mw.HandleEvent)
	})
	g.Go(func() error {
		return mw.RunPendingSync(gctx, cfg.SyncInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", log.FieldError, err.Error())
		os.Exit(1)
	}
	<-done
	logger.Info("Worker shutdown complete")
}
