package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/domain"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/telemetry"
)

type scheduleAdvancer struct {
	repo    repository.Querier
	clock   domain.Clock
	metrics *telemetry.RecurringMetrics
	logger  *slog.Logger
}

// NewScheduleAdvancer creates the component that moves templates to their
// next billing cycle.
func NewScheduleAdvancer(repo repository.Querier, clock domain.Clock, metrics *telemetry.RecurringMetrics, logger *slog.Logger) domain.ScheduleAdvancer {
	if logger == nil {
		logger = slog.Default()
	}
	return &scheduleAdvancer{
		repo:    repo,
		clock:   clock,
		metrics: metrics,
		logger:  logger.With("service", "advancer"),
	}
}

// AdvanceTemplateAfterGeneration moves the template from the billed cycle to
// the next one, bumps the counters and marks the template completed once the
// new date passes the end date. The update is conditional on the stored date
// still being cycleDate, so a cycle is advanced at most once. A template that
// already moved past cycleDate, or is no longer active, is left alone.
func (a *scheduleAdvancer) AdvanceTemplateAfterGeneration(ctx context.Context, templateID, tenantID, invoiceID uuid.UUID, cycleDate time.Time) error {
	const op = "template.advance"

	row, err := a.repo.GetTemplate(ctx, repository.GetTemplateParams{
		ID:       repository.UUID(templateID),
		TenantID: repository.UUID(tenantID),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTemplateNotFound.Wrap(op, err)
		}
		return domain.Internal(err, op, "failed to load template")
	}

	if !row.RecurringNextExecutionDate.Valid {
		return domain.ErrInvalidTemplate.Wrap(op, errors.New("template has no next execution date"))
	}
	cycle := domain.DateOf(cycleDate)
	stored := domain.DateOf(row.RecurringNextExecutionDate.Time)

	logger := a.logger.With(
		"tenant_id", tenantID,
		"template_id", templateID,
		"invoice_id", invoiceID,
		"cycle_date", cycle.Format(dateLayout),
	)

	if status := domain.RecurringStatus(row.RecurringStatus.String); status != domain.RecurringActive {
		logger.Info("template not active, schedule left unchanged", "status", status)
		return nil
	}
	if !stored.Equal(cycle) {
		logger.Info("template already advanced past cycle",
			"next_execution_date", stored.Format(dateLayout),
		)
		return nil
	}

	next, err := domain.NextExecutionDate(cycle, domain.RecurringInterval(row.RecurringInterval.String))
	if err != nil {
		return domain.ErrInvalidTemplate.Wrap(op, err)
	}
	completed := domain.CompletesAfter(next, repository.DatePtr(row.RecurringEndDate))

	updated, err := a.repo.AdvanceTemplate(ctx, repository.AdvanceTemplateParams{
		ID:                        row.ID,
		TenantID:                  row.TenantID,
		ExpectedNextExecutionDate: repository.Date(cycle),
		NextExecutionDate:         repository.Date(next),
		LastGeneratedAt:           repository.Timestamptz(a.clock.Now()),
		Complete:                  completed,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrAdvanceConflict.Wrap(op, err)
		}
		return domain.Internal(err, op, "failed to update template schedule")
	}

	a.metrics.Advanced(tenantID.String(), completed)
	logger.Info("template advanced",
		"next_execution_date", next.Format(dateLayout),
		"total_generated", updated.RecurringTotalGenerated,
		"completed", completed,
	)
	return nil
}

const dateLayout = "2006-01-02"
