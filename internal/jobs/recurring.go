package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/domain"
)

// JobTypeGenerateRecurringInvoices identifies the daily run in logs.
const JobTypeGenerateRecurringInvoices = "invoice:generate_recurring"

// ErrAlreadyRunning is returned when a run is requested while one is active.
var ErrAlreadyRunning = errors.New("recurring invoice run already in progress")

// RecurringInvoiceJob runs the scheduled invoice generation. It implements
// cron.Job; at most one run is active at a time per job instance.
type RecurringInvoiceJob struct {
	baseCtx context.Context
	service domain.RecurringInvoiceService
	timeout time.Duration
	running atomic.Bool
	logger  *slog.Logger
}

// NewRecurringInvoiceJob creates the job. Runs derive their context from
// ctx, so cancelling it (on shutdown) cancels an active run. A zero timeout
// means no per-run deadline.
func NewRecurringInvoiceJob(ctx context.Context, service domain.RecurringInvoiceService, timeout time.Duration, logger *slog.Logger) *RecurringInvoiceJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecurringInvoiceJob{
		baseCtx: ctx,
		service: service,
		timeout: timeout,
		logger:  logger.With("job_type", JobTypeGenerateRecurringInvoices),
	}
}

// Run is called by the cron scheduler.
func (j *RecurringInvoiceJob) Run() {
	if _, err := j.Execute(j.baseCtx); err != nil && !errors.Is(err, ErrAlreadyRunning) {
		j.logger.Error("scheduled job failed", "error", err)
	}
}

// Execute performs one run under the configured timeout.
func (j *RecurringInvoiceJob) Execute(ctx context.Context) (*domain.RunSummary, error) {
	if !j.running.CompareAndSwap(false, true) {
		j.logger.Warn("previous run still active, skipping")
		return nil, ErrAlreadyRunning
	}
	defer j.running.Store(false)

	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	j.logger.Info("job started", "timeout", j.timeout)

	summary, err := j.service.RunScheduled(ctx)
	if err != nil {
		return summary, fmt.Errorf("recurring invoice run failed: %w", err)
	}

	j.logger.Info("job completed",
		"run_id", summary.ID,
		"tenants_processed", summary.TenantsProcessed,
		"total_successful", summary.TotalSuccessful,
		"total_failed", summary.TotalFailed,
	)
	return summary, nil
}

// Running reports whether a run is in progress.
func (j *RecurringInvoiceJob) Running() bool {
	return j.running.Load()
}

// NewScheduler creates a cron scheduler evaluating specs in loc. Panicking
// jobs are recovered and overlapping runs of the same entry are skipped.
func NewScheduler(loc *time.Location, logger *slog.Logger) *cron.Cron {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger.With("component", "cron")}
	return cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
}

// Schedule registers job under a standard five-field cron spec.
func Schedule(c *cron.Cron, spec string, job cron.Job) (cron.EntryID, error) {
	id, err := c.AddJob(spec, job)
	if err != nil {
		return 0, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return id, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
