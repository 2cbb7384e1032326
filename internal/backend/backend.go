// Package backend wires the export pipeline for the configured backend:
// in-process (memory) or SQLite plus AMQP.
package backend

import (
	"context"
	"fmt"

	"backoffice/internal/amqp"
	"backoffice/internal/config"
	applog "backoffice/internal/log"
	"backoffice/internal/services"
	"backoffice/internal/sheets"
	gsheet "backoffice/internal/sheets/google"
	"backoffice/internal/sheets/memory"
	"backoffice/internal/storage"
	"backoffice/internal/tenant"
	"backoffice/internal/worker"
)

type Type string

const (
	Memory Type = "memory"
	SQLite Type = "sqlite"
)

// Sources build the matrices an export writes.
type Sources struct {
	Costs  worker.MatrixSource
	Income worker.MatrixSource
}

// Result is a wired export backend.
type Result struct {
	Type   Type
	Jobs   storage.JobStore
	State  tenant.Store
	Export *services.ExportService
	// Writer is the sheet target; nil on the sqlite backend, where the
	// export worker owns it.
	Writer sheets.ReportWriter
	// Ping reports storage health for readiness checks.
	Ping func(ctx context.Context) error
}

// Close releases the connections the backend opened.
func (r *Result) Close() error {
	if r == nil || r.Export == nil {
		return nil
	}
	return r.Export.Close()
}

type Factory struct {
	logger *applog.Logger
	// newSheets is replaceable in tests.
	newSheets func(ctx context.Context, cfg *config.Config, logger *applog.Logger) (sheets.ReportWriter, error)
}

func NewFactory(logger *applog.Logger) *Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Factory{logger: logger.WithComponent(applog.ComponentBackend), newSheets: NewSheetsWriter}
}

// Create builds the backend named by cfg.ExportBackend.
func (f *Factory) Create(ctx context.Context, cfg *config.Config, src Sources) (*Result, error) {
	switch t := Type(cfg.ExportBackend); t {
	case Memory:
		return f.createMemory(ctx, cfg, src)
	case SQLite:
		return f.createSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported export backend: %q", cfg.ExportBackend)
	}
}

// createMemory exports synchronously inside the request. Reports go to
// Google Sheets when configured, otherwise to an in-memory writer.
func (f *Factory) createMemory(ctx context.Context, cfg *config.Config, src Sources) (*Result, error) {
	store := storage.NewMemoryStore()

	var writer sheets.ReportWriter = memory.New()
	if cfg.SheetsEnabled() {
		w, err := f.newSheets(ctx, cfg, f.logger)
		if err != nil {
			return nil, fmt.Errorf("initialize sheets writer: %w", err)
		}
		writer = w
	}

	exporter := worker.NewExporter(store, src.Costs, src.Income, writer, f.logger)
	f.logger.Info("Initialized memory export backend", "sheets_enabled", cfg.SheetsEnabled())

	return &Result{
		Type:   Memory,
		Jobs:   store,
		State:  store,
		Export: services.NewExportService(store, exporter, f.logger),
		Writer: writer,
		Ping:   func(context.Context) error { return nil },
	}, nil
}

// createSQLite stores jobs in SQLite and publishes them for the export
// worker. A broker that is down at startup degrades to sweep-only exports.
func (f *Factory) createSQLite(cfg *config.Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}

	var (
		dispatch services.Dispatcher
		closers  = []func() error{repo.Close}
	)
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("AMQP unavailable, exports will wait for the worker sweep", applog.FieldError, err)
		} else {
			dispatch = services.QueueDispatcher{Publisher: client}
			closers = append([]func() error{client.Close}, closers...)
		}
	}

	f.logger.Info("Initialized SQLite export backend",
		"db_path", cfg.SQLiteDBPath,
		"amqp_enabled", dispatch != nil)

	return &Result{
		Type:   SQLite,
		Jobs:   repo,
		State:  repo,
		Export: services.NewExportService(repo, dispatch, f.logger, closers...),
		Ping:   repo.Ping,
	}, nil
}

// NewSheetsWriter creates the Google Sheets writer from cfg.
func NewSheetsWriter(ctx context.Context, cfg *config.Config, logger *applog.Logger) (sheets.ReportWriter, error) {
	return gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsFile: cfg.GoogleCredentialsFile,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
		Logger:          logger,
	})
}
