package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"backoffice/internal/core"
	applog "backoffice/internal/log"
	"backoffice/internal/storage"
)

// Dispatcher hands a stored job to whatever runs exports: the AMQP queue or
// an in-process exporter.
type Dispatcher interface {
	Dispatch(ctx context.Context, job core.ExportJob) error
}

// Publisher is the queue side of the AMQP client.
type Publisher interface {
	PublishReportExport(ctx context.Context, jobID, kind string) error
}

// QueueDispatcher publishes job ids for the export worker.
type QueueDispatcher struct {
	Publisher Publisher
}

func (d QueueDispatcher) Dispatch(ctx context.Context, job core.ExportJob) error {
	return d.Publisher.PublishReportExport(ctx, job.ID, string(job.Kind))
}

// ExportService stores export jobs and dispatches them. A failed dispatch
// leaves the job pending for the worker sweep.
type ExportService struct {
	jobs     storage.JobStore
	dispatch Dispatcher
	closers  []func() error
	logger   *applog.Logger
	newID    func() string
}

func NewExportService(jobs storage.JobStore, dispatch Dispatcher, logger *applog.Logger, closers ...func() error) *ExportService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &ExportService{
		jobs:     jobs,
		dispatch: dispatch,
		closers:  closers,
		logger:   logger.WithComponent(applog.ComponentExport),
		newID:    uuid.NewString,
	}
}

// Enqueue validates and stores job, then dispatches it. The returned job
// reflects the stored state after dispatch.
func (s *ExportService) Enqueue(ctx context.Context, job core.ExportJob) (core.ExportJob, error) {
	if err := job.Validate().Err(); err != nil {
		return core.ExportJob{}, err
	}
	job.ID = s.newID()
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return core.ExportJob{}, fmt.Errorf("store export job: %w", err)
	}

	if s.dispatch != nil {
		if err := s.dispatch.Dispatch(ctx, job); err != nil {
			s.logger.WarnContext(ctx, "Export dispatch failed, job left for sweep",
				applog.FieldJobID, job.ID,
				applog.FieldError, err)
		}
	}

	stored, err := s.jobs.GetJob(ctx, job.ID)
	if err != nil {
		return core.ExportJob{}, fmt.Errorf("reload export job: %w", err)
	}
	s.logger.InfoContext(ctx, "Export job enqueued",
		applog.FieldJobID, stored.ID,
		applog.FieldReportKind, stored.Kind,
		"status", stored.Status)
	return stored, nil
}

func (s *ExportService) Status(ctx context.Context, id string) (core.ExportJob, error) {
	job, err := s.jobs.GetJob(ctx, id)
	if err != nil {
		return core.ExportJob{}, fmt.Errorf("export job %s: %w", id, err)
	}
	return job, nil
}

// Close releases the backend resources handed to the service.
func (s *ExportService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if c == nil {
			continue
		}
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
