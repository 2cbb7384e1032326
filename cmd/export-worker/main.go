package main

import (
	"context"
	"os"
	"time"

	"backoffice/internal/amqp"
	"backoffice/internal/backend"
	"backoffice/internal/cli"
	"backoffice/internal/erp"
	applog "backoffice/internal/log"
	"backoffice/internal/sheets"
	"backoffice/internal/sheets/memory"
	"backoffice/internal/storage"
	"backoffice/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentWorker)
	logger.Info("Starting export-worker")

	if cfg.ExportBackend != string(backend.SQLite) {
		logger.Warn("Server export backend is not sqlite - no jobs will reach this worker", "backend", cfg.ExportBackend)
	}
	if cfg.AMQPURL == "" {
		logger.Warn("AMQP disabled - exports are picked up by the periodic sweep only")
	}

	// Initialize SQLite repository to read export jobs
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// The worker has no browser session; it authenticates with the API key.
	client := erp.New(cfg.ERPBaseURL,
		erp.WithAPIKey(cfg.ERPAPIKey),
		erp.WithTimeout(cfg.ERPTimeout),
		erp.WithLogger(logger))
	catalog := erp.NewCatalog(client, cfg.CacheSize, cfg.CacheTTL, nil)
	costs, income := cli.NewDashboards(client, catalog, logger)

	var writer sheets.ReportWriter
	if cfg.SheetsEnabled() {
		writer, err = backend.NewSheetsWriter(context.Background(), cfg, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		writer = memory.New()
		logger.Warn("Google Sheets disabled - exports are kept in memory only")
	}

	var consumer worker.Consumer
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		consumer = amqpClient
	}

	exporter := worker.NewExporter(repo, costs, income, writer, logger)
	w := worker.New(consumer, repo, exporter, worker.Config{
		SweepInterval: cfg.SweepInterval,
		SweepBatch:    cfg.SweepBatchSize,
	}, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// On startup, process any jobs that were stored while the worker was down
	if n := w.Sweep(ctx); n > 0 {
		logger.Info("Startup sweep processed pending jobs", "count", n)
	}

	if err := w.Run(ctx); err != nil {
		logger.Error("Export worker stopped", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
