package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/domain"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/events"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/telemetry"
)

// followUpTimeout bounds advancement and event publishing after an invoice
// was written. Both run detached from the run deadline.
const followUpTimeout = 10 * time.Second

const cycleConstraint = "invoices_recurring_cycle_key"

type invoiceGenerator struct {
	repo      repository.Querier
	allocator domain.SequenceAllocator
	advancer  domain.ScheduleAdvancer
	publisher events.Publisher
	clock     domain.Clock
	validate  *validator.Validate
	metrics   *telemetry.RecurringMetrics
	logger    *slog.Logger
}

// NewInvoiceGenerator creates the generator. publisher may be nil, in which
// case no events are emitted.
func NewInvoiceGenerator(
	repo repository.Querier,
	allocator domain.SequenceAllocator,
	advancer domain.ScheduleAdvancer,
	publisher events.Publisher,
	clock domain.Clock,
	metrics *telemetry.RecurringMetrics,
	logger *slog.Logger,
) domain.InvoiceGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceGenerator{
		repo:      repo,
		allocator: allocator,
		advancer:  advancer,
		publisher: publisher,
		clock:     clock,
		validate:  validator.New(),
		metrics:   metrics,
		logger:    logger.With("service", "generator"),
	}
}

// GenerateInvoiceFromTemplate creates one invoice for the template's current
// cycle. It never panics or returns an error directly; the outcome is in the
// result.
func (g *invoiceGenerator) GenerateInvoiceFromTemplate(ctx context.Context, tpl domain.Template, tenantID uuid.UUID) (result domain.GenerationResult) {
	logger := g.logger.With("tenant_id", tenantID, "template_id", tpl.ID)

	defer func() {
		if r := recover(); r != nil {
			err := domain.ErrGenerationPanicked.Wrap("generator.generate", fmt.Errorf("%v", r))
			logger.Error("invoice generation panicked", "panic", r, "stack", string(debug.Stack()))
			telemetry.CaptureErrorWithTenant(err, tenantID.String(), map[string]interface{}{
				"template_id": tpl.ID.String(),
			})
			g.metrics.Failed(tenantID.String(), domain.EINTERNAL)
			result = domain.GenerationResult{Err: err}
		}
	}()

	result = g.generate(ctx, tpl, tenantID, logger)
	if !result.Success {
		code := domain.ErrorCode(result.Err)
		g.metrics.Failed(tenantID.String(), code)
		logger.Error("invoice generation failed", "error", result.Err, "code", code)
		if code == domain.EINTERNAL {
			telemetry.CaptureErrorWithTenant(result.Err, tenantID.String(), map[string]interface{}{
				"template_id": tpl.ID.String(),
			})
		}
	}
	return result
}

func (g *invoiceGenerator) generate(ctx context.Context, tpl domain.Template, tenantID uuid.UUID, logger *slog.Logger) domain.GenerationResult {
	const op = "generator.generate"

	if err := g.validateTemplate(tpl, tenantID); err != nil {
		return domain.GenerationResult{Err: err}
	}
	cycle := domain.DateOf(tpl.NextExecutionDate)

	// An earlier run may have written this cycle's invoice and then failed
	// to advance. Finish that advancement instead of billing twice.
	existing, err := g.repo.GetGeneratedInvoiceForCycle(ctx, repository.GetGeneratedInvoiceForCycleParams{
		TenantID:           repository.UUID(tenantID),
		RecurringParentID:  repository.UUID(tpl.ID),
		RecurringCycleDate: repository.Date(cycle),
	})
	switch {
	case err == nil:
		invoiceID := repository.ToUUID(existing.ID)
		g.metrics.Duplicate(tenantID.String())
		logger.Warn("cycle already invoiced, advancing schedule only",
			"invoice_id", invoiceID,
			"cycle_date", cycle.Format(dateLayout),
		)
		g.advance(ctx, tpl.ID, tenantID, invoiceID, cycle, logger)
		return domain.GenerationResult{
			Success:       true,
			InvoiceID:     invoiceID,
			InvoiceNumber: existing.InvoiceNumber.String,
			Duplicate:     true,
		}
	case !errors.Is(err, pgx.ErrNoRows):
		return domain.GenerationResult{Err: domain.Internal(err, op, "failed to check cycle invoice")}
	}

	number, err := g.allocator.AllocateNextInvoiceNumber(ctx, tenantID)
	if err != nil {
		return domain.GenerationResult{Err: err}
	}

	now := g.clock.Now()
	inv := domain.Invoice{
		ID:                       uuid.New(),
		TenantID:                 tenantID,
		InvoiceNumber:            number,
		Status:                   domain.InvoiceStatusSent,
		Content:                  tpl.Content.Clone(),
		InvoiceDate:              now,
		ValidUntil:               now.Add(domain.InvoiceGracePeriod),
		RecurringParentID:        tpl.ID,
		RecurringCycleDate:       cycle,
		IsGeneratedFromRecurring: true,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	params, err := createInvoiceParams(inv)
	if err != nil {
		return domain.GenerationResult{Err: domain.ErrInvalidTemplate.Wrap(op, err)}
	}
	if _, err := g.repo.CreateInvoice(ctx, params); err != nil {
		if constraintViolated(err, cycleConstraint) {
			return domain.GenerationResult{Err: domain.ErrDuplicateCycle.Wrap(op, err)}
		}
		return domain.GenerationResult{Err: domain.Internal(err, op, "failed to insert invoice")}
	}

	g.metrics.Generated(tenantID.String())
	logger.Info("invoice generated",
		"invoice_id", inv.ID,
		"invoice_number", number,
		"cycle_date", cycle.Format(dateLayout),
	)

	g.advance(ctx, tpl.ID, tenantID, inv.ID, cycle, logger)
	g.publish(ctx, tpl, inv, logger)

	return domain.GenerationResult{
		Success:       true,
		InvoiceID:     inv.ID,
		InvoiceNumber: number,
	}
}

func (g *invoiceGenerator) validateTemplate(tpl domain.Template, tenantID uuid.UUID) error {
	const op = "generator.validate"

	switch {
	case !tpl.IsRecurringTemplate:
		return domain.ErrInvalidTemplate.Wrap(op, errors.New("record is not a recurring template"))
	case tpl.TenantID != uuid.Nil && tpl.TenantID != tenantID:
		return domain.ErrInvalidTemplate.Wrap(op, fmt.Errorf("template belongs to tenant %s", tpl.TenantID))
	case !tpl.Interval.Valid():
		return domain.ErrInvalidTemplate.Wrap(op, fmt.Errorf("%w: %q", domain.ErrInvalidInterval, tpl.Interval))
	case tpl.NextExecutionDate.IsZero():
		return domain.ErrInvalidTemplate.Wrap(op, errors.New("template has no next execution date"))
	case tpl.ContentErr != nil:
		return domain.ErrInvalidTemplate.Wrap(op, tpl.ContentErr)
	}

	if err := g.validate.Struct(tpl.Content); err != nil {
		return domain.ErrInvalidTemplate.Wrap(op, err)
	}
	return nil
}

// advance runs the schedule advancer. Failures are logged only; the invoice
// stays valid and the next run completes the advancement.
func (g *invoiceGenerator) advance(ctx context.Context, templateID, tenantID, invoiceID uuid.UUID, cycle time.Time, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), followUpTimeout)
	defer cancel()

	if err := g.advancer.AdvanceTemplateAfterGeneration(ctx, templateID, tenantID, invoiceID, cycle); err != nil {
		g.metrics.AdvanceFailure(tenantID.String())
		logger.Error("failed to advance template after generation",
			"invoice_id", invoiceID,
			"error", err,
		)
	}
}

// publish emits the invoice.generated event. Failures, including panics in
// the publisher, never change the generation result.
func (g *invoiceGenerator) publish(ctx context.Context, tpl domain.Template, inv domain.Invoice, logger *slog.Logger) {
	if g.publisher == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			g.metrics.Published(false)
			logger.Error("event publisher panicked", "invoice_id", inv.ID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), followUpTimeout)
	defer cancel()

	evt := events.NewInvoiceGenerated(
		inv.TenantID,
		tpl.ID,
		inv.ID,
		inv.InvoiceNumber,
		inv.RecurringCycleDate,
		tpl.AutoSendEmail,
		inv.CreatedAt,
	)
	if err := g.publisher.PublishInvoiceGenerated(ctx, evt); err != nil {
		g.metrics.Published(false)
		logger.Warn("failed to publish invoice event", "invoice_id", inv.ID, "error", err)
		return
	}
	g.metrics.Published(true)
}
