// Package worker runs report exports: it turns stored jobs into matrices and
// writes them to the spreadsheet.
package worker

import (
	"context"
	"fmt"

	"backoffice/internal/core"
	applog "backoffice/internal/log"
	"backoffice/internal/periods"
	"backoffice/internal/report"
	"backoffice/internal/services"
	"backoffice/internal/sheets"
	"backoffice/internal/storage"
)

// DefaultMaxAttempts bounds how often a job is retried before it fails.
const DefaultMaxAttempts = 3

// MatrixSource builds a report matrix. Both dashboards implement it.
type MatrixSource interface {
	Matrix(ctx context.Context, q services.ReportQuery) (report.Matrix, error)
}

// Exporter processes one job at a time.
type Exporter struct {
	jobs        storage.JobStore
	sources     map[core.ReportKind]MatrixSource
	writer      sheets.ReportWriter
	maxAttempts int
	logger      *applog.Logger
}

func NewExporter(jobs storage.JobStore, costs, income MatrixSource, writer sheets.ReportWriter, logger *applog.Logger) *Exporter {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Exporter{
		jobs: jobs,
		sources: map[core.ReportKind]MatrixSource{
			core.CostsReport:  costs,
			core.IncomeReport: income,
		},
		writer:      writer,
		maxAttempts: DefaultMaxAttempts,
		logger:      logger.WithComponent(applog.ComponentWorker),
	}
}

// Dispatch runs the job in the caller's goroutine. It lets the memory
// backend export synchronously without a queue.
func (e *Exporter) Dispatch(ctx context.Context, job core.ExportJob) error {
	return e.Run(ctx, job.ID)
}

// Run exports the job with id. Jobs that are no longer pending are skipped,
// which makes redelivered messages harmless.
func (e *Exporter) Run(ctx context.Context, id string) error {
	job, err := e.jobs.GetJob(ctx, id)
	if err != nil {
		return fmt.Errorf("load export job: %w", err)
	}
	if job.Status != core.JobPending {
		e.logger.DebugContext(ctx, "Skipping export job", applog.FieldJobID, id, "status", job.Status)
		return nil
	}

	ref, runErr := e.export(ctx, job)
	if runErr == nil {
		return e.jobs.MarkJobDone(ctx, id, ref)
	}

	if job.Attempts+1 >= e.maxAttempts {
		if err := e.jobs.MarkJobFailed(ctx, id, runErr.Error()); err != nil {
			return fmt.Errorf("mark job failed: %w", err)
		}
	} else if err := e.jobs.RetryJob(ctx, id, runErr.Error()); err != nil {
		return fmt.Errorf("record job attempt: %w", err)
	}
	return runErr
}

func (e *Exporter) export(ctx context.Context, job core.ExportJob) (string, error) {
	src, ok := e.sources[job.Kind]
	if !ok || src == nil {
		return "", fmt.Errorf("no report source for %q", job.Kind)
	}

	q := services.ReportQuery{
		Year:        job.Year,
		Granularity: periods.ParseGranularity(job.Granularity),
		CostCenter:  job.CostCenter,
	}

	m, err := src.Matrix(ctx, q)
	if err != nil {
		return "", fmt.Errorf("build matrix: %w", err)
	}
	if err := m.Check(); err != nil {
		return "", err
	}

	ref, err := e.writer.WriteReport(ctx, job.SheetTitle(), m)
	if err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	e.logger.InfoContext(ctx, "Report exported",
		applog.FieldJobID, job.ID,
		applog.FieldReportKind, job.Kind,
		applog.FieldYear, job.Year,
		applog.FieldGranularity, job.Granularity,
		applog.FieldSheetsRef, ref,
		"rows", len(m.Rows))
	return ref, nil
}
