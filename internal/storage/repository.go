// Package storage persists export jobs and client state. Business records
// live in the ERP; nothing here mirrors them.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"backoffice/internal/core"
	applog "backoffice/internal/log"

	_ "modernc.org/sqlite"
)

// JobStore is the persistence port for export jobs.
type JobStore interface {
	CreateJob(ctx context.Context, job core.ExportJob) error
	GetJob(ctx context.Context, id string) (core.ExportJob, error)
	PendingJobs(ctx context.Context, limit int) ([]core.ExportJob, error)
	MarkJobDone(ctx context.Context, id, sheetRef string) error
	MarkJobFailed(ctx context.Context, id, reason string) error
	// RetryJob records a failed attempt and leaves the job pending.
	RetryJob(ctx context.Context, id, reason string) error
}

// StateStore keeps small client-side values such as the current tenant.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool, error)
	SetState(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db     *sql.DB
	logger *applog.Logger
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies migrations.
func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateUp(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger = logger.WithComponent(applog.ComponentStorage)
	logger.Debug("Schema up to date", "version", version)
	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateJob(ctx context.Context, job core.ExportJob) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO export_jobs (id, kind, year, granularity, cost_center, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.Kind), job.Year, job.Granularity, job.CostCenter, string(core.JobPending), now, now)
	if err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	r.logger.InfoContext(ctx, "Export job stored",
		applog.FieldJobID, job.ID,
		applog.FieldReportKind, job.Kind,
		applog.FieldYear, job.Year)
	return nil
}

const jobColumns = `id, kind, year, granularity, cost_center, status, sheet_ref, error, attempts, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(s rowScanner) (core.ExportJob, error) {
	var (
		j            core.ExportJob
		kind, status string
	)
	err := s.Scan(&j.ID, &kind, &j.Year, &j.Granularity, &j.CostCenter, &status, &j.SheetRef, &j.Error, &j.Attempts, &j.CreatedAt, &j.UpdatedAt)
	j.Kind = core.ReportKind(kind)
	j.Status = core.JobStatus(status)
	return j, err
}

func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (core.ExportJob, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM export_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExportJob{}, core.ErrJobNotFound
	}
	if err != nil {
		return core.ExportJob{}, fmt.Errorf("get export job: %w", err)
	}
	return job, nil
}

// PendingJobs returns the oldest pending jobs first.
func (r *SQLiteRepository) PendingJobs(ctx context.Context, limit int) ([]core.ExportJob, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM export_jobs WHERE status = ? ORDER BY created_at, id LIMIT ?`,
		string(core.JobPending), limit)
	if err != nil {
		return nil, fmt.Errorf("list pending export jobs: %w", err)
	}
	defer rows.Close()

	var jobs []core.ExportJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan export job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) MarkJobDone(ctx context.Context, id, sheetRef string) error {
	return r.finishJob(ctx, id, core.JobDone, sheetRef, "")
}

func (r *SQLiteRepository) MarkJobFailed(ctx context.Context, id, reason string) error {
	return r.finishJob(ctx, id, core.JobFailed, "", reason)
}

func (r *SQLiteRepository) RetryJob(ctx context.Context, id, reason string) error {
	return r.finishJob(ctx, id, core.JobPending, "", reason)
}

func (r *SQLiteRepository) finishJob(ctx context.Context, id string, status core.JobStatus, sheetRef, reason string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE export_jobs
		SET status = ?, sheet_ref = ?, error = ?, attempts = attempts + 1, updated_at = ?
		WHERE id = ?`,
		string(status), sheetRef, reason, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrJobNotFound
	}
	switch status {
	case core.JobFailed:
		r.logger.WarnContext(ctx, "Export job failed", applog.FieldJobID, id, applog.FieldError, reason)
	case core.JobPending:
		r.logger.InfoContext(ctx, "Export job attempt failed, will retry", applog.FieldJobID, id, applog.FieldError, reason)
	default:
		r.logger.InfoContext(ctx, "Export job done", applog.FieldJobID, id, applog.FieldSheetsRef, sheetRef)
	}
	return nil
}

func (r *SQLiteRepository) GetState(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM client_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get state %s: %w", key, err)
	}
	return value, true, nil
}

func (r *SQLiteRepository) SetState(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}
