package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/domain"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/events"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/telemetry"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/tenant"
)

// RecurringConfig tunes the scheduled run.
type RecurringConfig struct {
	// MaxConcurrency is the number of tenants processed in parallel.
	// Templates within one tenant are always processed sequentially.
	MaxConcurrency int

	// SequenceAutoCreate seeds a missing number sequence row on first use.
	SequenceAutoCreate bool
}

type recurringService struct {
	repo           repository.Querier
	tenants        tenant.Lister
	matcher        domain.TemplateMatcher
	generator      domain.InvoiceGenerator
	clock          domain.Clock
	maxConcurrency int
	metrics        *telemetry.RecurringMetrics
	logger         *slog.Logger
}

// NewRecurringInvoiceService wires the allocator, matcher, advancer and
// generator into the scheduled run.
func NewRecurringInvoiceService(
	repo repository.Querier,
	tenants tenant.Lister,
	publisher events.Publisher,
	clock domain.Clock,
	cfg RecurringConfig,
	metrics *telemetry.RecurringMetrics,
	logger *slog.Logger,
) (domain.RecurringInvoiceService, error) {
	if repo == nil {
		return nil, fmt.Errorf("recurring service requires a repository")
	}
	if tenants == nil {
		return nil, fmt.Errorf("recurring service requires a tenant lister")
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	allocator := NewSequenceAllocator(repo, clock, cfg.SequenceAutoCreate, metrics, logger)
	advancer := NewScheduleAdvancer(repo, clock, metrics, logger)
	generator := NewInvoiceGenerator(repo, allocator, advancer, publisher, clock, metrics, logger)
	matcher := NewTemplateMatcher(repo, tenants, logger)

	return newRecurringService(repo, tenants, matcher, generator, clock, cfg.MaxConcurrency, metrics, logger), nil
}

func newRecurringService(
	repo repository.Querier,
	tenants tenant.Lister,
	matcher domain.TemplateMatcher,
	generator domain.InvoiceGenerator,
	clock domain.Clock,
	maxConcurrency int,
	metrics *telemetry.RecurringMetrics,
	logger *slog.Logger,
) *recurringService {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &recurringService{
		repo:           repo,
		tenants:        tenants,
		matcher:        matcher,
		generator:      generator,
		clock:          clock,
		maxConcurrency: maxConcurrency,
		metrics:        metrics,
		logger:         logger.With("service", "recurring"),
	}
}

// ProcessScheduledExecutions generates every due invoice of one tenant.
// Once ctx is done, remaining templates are skipped and not counted.
func (s *recurringService) ProcessScheduledExecutions(ctx context.Context, tenantID uuid.UUID) (domain.ProcessResult, error) {
	var result domain.ProcessResult

	templates, err := s.matcher.FindDueTemplates(ctx, s.clock.Now(), tenantID)
	if err != nil {
		return result, fmt.Errorf("failed to find due templates: %w", err)
	}

	for i, tpl := range templates {
		if ctx.Err() != nil {
			s.logger.Warn("run deadline reached, skipping remaining templates",
				"tenant_id", tenantID,
				"skipped", len(templates)-i,
			)
			break
		}

		res := s.generator.GenerateInvoiceFromTemplate(ctx, tpl, tenantID)
		result.Processed++
		if res.Success {
			result.Successful++
		} else {
			result.Failed++
		}
	}

	if result.Processed > 0 {
		s.logger.Info("tenant processed",
			"tenant_id", tenantID,
			"processed", result.Processed,
			"successful", result.Successful,
			"failed", result.Failed,
		)
	}
	return result, nil
}

// RunScheduled processes all tenants and persists one run summary. The only
// error it returns is a failure to enumerate tenants.
func (s *recurringService) RunScheduled(ctx context.Context) (*domain.RunSummary, error) {
	start := s.clock.Now()
	summary := &domain.RunSummary{
		ID:               uuid.New(),
		Type:             domain.RunSummaryScheduled,
		Timestamp:        start,
		PerTenantResults: make(map[uuid.UUID]domain.TenantResult),
	}

	s.logger.Info("scheduled run started", "run_id", summary.ID)
	telemetry.AddBreadcrumb("recurring", "scheduled run started", map[string]interface{}{
		"run_id": summary.ID.String(),
	})

	var (
		mu     sync.Mutex
		totals domain.ProcessResult
	)
	p := pool.New().WithMaxGoroutines(s.maxConcurrency)

	enumErr := s.tenants.Each(ctx, func(t tenant.Tenant) error {
		p.Go(func() {
			res, err := s.processTenant(ctx, t)

			mu.Lock()
			defer mu.Unlock()

			tr := domain.TenantResult{ProcessResult: res}
			if err != nil {
				tr.Failed++
				tr.Error = err.Error()
			}
			summary.TenantsProcessed++
			summary.PerTenantResults[t.ID] = tr
			totals.Add(tr.ProcessResult)
		})
		return nil
	})
	p.Wait()

	summary.TotalProcessed = totals.Processed
	summary.TotalSuccessful = totals.Successful
	summary.TotalFailed = totals.Failed

	summary.DurationMs = s.clock.Now().Sub(start).Milliseconds()

	if enumErr != nil && ctx.Err() != nil && errors.Is(enumErr, ctx.Err()) {
		s.logger.Warn("run deadline reached during tenant enumeration",
			"run_id", summary.ID,
			"tenants_processed", summary.TenantsProcessed,
		)
		enumErr = nil
	}

	if enumErr != nil {
		cause := errors.Wrap(enumErr, "tenant enumeration")
		err := domain.ErrTenantEnumeration.Wrap("recurring.run", cause)
		summary.Type = domain.RunSummaryScheduledError
		summary.ErrorMessage = err.Error()
		summary.ErrorStack = fmt.Sprintf("%+v", cause)

		s.persistSummary(ctx, summary)
		s.metrics.RunFinished(s.clock.Now().Sub(start), false, s.clock.Now())
		telemetry.CaptureRunFailure(err, string(summary.Type), summary.ErrorStack)

		s.logger.Error("scheduled run failed",
			"run_id", summary.ID,
			"error", err,
			"tenants_processed", summary.TenantsProcessed,
		)
		return summary, err
	}

	s.persistSummary(ctx, summary)
	s.metrics.RunFinished(s.clock.Now().Sub(start), true, s.clock.Now())

	s.logger.Info("scheduled run finished",
		"run_id", summary.ID,
		"tenants_processed", summary.TenantsProcessed,
		"total_processed", summary.TotalProcessed,
		"total_successful", summary.TotalSuccessful,
		"total_failed", summary.TotalFailed,
		"duration_ms", summary.DurationMs,
	)
	return summary, nil
}

// processTenant isolates one tenant: errors and panics become a result error.
func (s *recurringService) processTenant(ctx context.Context, t tenant.Tenant) (res domain.ProcessResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tenant processing panicked: %v", r)
			s.logger.Error("tenant processing panicked",
				"tenant_id", t.ID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			telemetry.CaptureErrorWithTenant(err, t.ID.String(), nil)
		}
	}()

	ctx = tenant.NewContext(ctx, &t)

	res, err = s.ProcessScheduledExecutions(ctx, t.ID)
	if err != nil {
		s.logger.Error("tenant processing failed", "tenant_id", t.ID, "tenant", t.Slug, "error", err)
		telemetry.CaptureErrorWithTenant(err, t.ID.String(), nil)
	}
	return res, err
}

// persistSummary writes the run summary even when the run context is done.
func (s *recurringService) persistSummary(ctx context.Context, summary *domain.RunSummary) {
	params, err := runSummaryParams(summary)
	if err != nil {
		s.logger.Error("failed to encode run summary", "run_id", summary.ID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), followUpTimeout)
	defer cancel()

	if _, err := s.repo.CreateRunSummary(ctx, params); err != nil {
		s.logger.Error("failed to persist run summary", "run_id", summary.ID, "type", summary.Type, "error", err)
		telemetry.CaptureError(err, map[string]interface{}{"run_id": summary.ID.String()})
	}
}
