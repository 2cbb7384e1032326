package worker

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"backoffice/internal/amqp"
	applog "backoffice/internal/log"
	"backoffice/internal/storage"
)

// Consumer delivers queued export messages. *amqp.Client implements it.
type Consumer interface {
	ConsumeReportExports(ctx context.Context, handler func(context.Context, *amqp.ReportExportMessage) error) error
}

type Config struct {
	// SweepInterval is how often pending jobs are re-run (default 1m).
	SweepInterval time.Duration
	// SweepBatch is the max number of jobs per sweep (default 10).
	SweepBatch int
	// Concurrency bounds parallel exports within a sweep (default 2).
	Concurrency int
}

func (c Config) withDefaults() Config {
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.SweepBatch <= 0 {
		c.SweepBatch = 10
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 2
	}
	return c
}

// Worker consumes export messages and periodically sweeps jobs that were
// stored but never processed, e.g. because publishing failed.
type Worker struct {
	consumer Consumer
	jobs     storage.JobStore
	exporter *Exporter
	cfg      Config
	logger   *applog.Logger
	now      func() time.Time
}

func New(consumer Consumer, jobs storage.JobStore, exporter *Exporter, cfg Config, logger *applog.Logger) *Worker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Worker{
		consumer: consumer,
		jobs:     jobs,
		exporter: exporter,
		cfg:      cfg.withDefaults(),
		logger:   logger.WithComponent(applog.ComponentWorker),
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled or the consumer fails.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if w.consumer != nil {
		g.Go(func() error {
			return w.consumer.ConsumeReportExports(ctx, w.handle)
		})
	}
	g.Go(func() error {
		return w.sweepLoop(ctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) handle(ctx context.Context, msg *amqp.ReportExportMessage) error {
	w.logger.InfoContext(ctx, "Processing export message", applog.FieldJobID, msg.JobID, applog.FieldReportKind, msg.Kind)
	return w.exporter.Run(ctx, msg.JobID)
}

func (w *Worker) sweepLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.SweepInterval)
	defer ticker.Stop()

	w.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs pending jobs older than one sweep interval and returns how many
// it attempted. Younger jobs are left to the queue consumer.
func (w *Worker) Sweep(ctx context.Context) int {
	jobs, err := w.jobs.PendingJobs(ctx, w.cfg.SweepBatch)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to list pending export jobs", applog.FieldError, err)
		return 0
	}

	cutoff := w.now().Add(-w.cfg.SweepInterval)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	n := 0
	for _, job := range jobs {
		if job.UpdatedAt.After(cutoff) {
			continue
		}
		n++
		id := job.ID
		g.Go(func() error {
			if err := w.exporter.Run(gctx, id); err != nil {
				w.logger.WarnContext(gctx, "Swept export failed", applog.FieldJobID, id, applog.FieldError, err)
			}
			return nil
		})
	}
	g.Wait()
	if n > 0 {
		w.logger.InfoContext(ctx, "Export sweep finished", "jobs", n)
	}
	return n
}
