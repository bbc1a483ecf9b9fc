package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/domain"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/telemetry"
)

type sequenceAllocator struct {
	repo       repository.Querier
	clock      domain.Clock
	autoCreate bool
	metrics    *telemetry.RecurringMetrics
	logger     *slog.Logger
}

// NewSequenceAllocator creates the invoice number allocator.
//
// With autoCreate set, a tenant/year without a sequence row gets one seeded
// from the count of numbers already issued, so every later allocation takes
// the atomic path.
func NewSequenceAllocator(
	repo repository.Querier,
	clock domain.Clock,
	autoCreate bool,
	metrics *telemetry.RecurringMetrics,
	logger *slog.Logger,
) domain.SequenceAllocator {
	if logger == nil {
		logger = slog.Default()
	}
	return &sequenceAllocator{
		repo:       repo,
		clock:      clock,
		autoCreate: autoCreate,
		metrics:    metrics,
		logger:     logger.With("service", "sequence"),
	}
}

// AllocateNextInvoiceNumber issues the next number for (tenant, "invoice", current year).
func (s *sequenceAllocator) AllocateNextInvoiceNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	const op = "sequence.allocate"

	year := s.clock.Now().Year()
	key := repository.IncrementNumberSequenceParams{
		TenantID:     repository.UUID(tenantID),
		DocumentType: domain.DocumentTypeInvoice,
		Year:         int32(year),
	}

	// Two rounds: if a concurrent allocation seeds the row between our
	// increment and our seed, the second increment finds it.
	for attempt := 0; attempt < 2; attempt++ {
		issued, err := s.repo.IncrementNumberSequence(ctx, key)
		if err == nil {
			s.metrics.Allocated(telemetry.AllocationSequence)
			return domain.FormatInvoiceNumber(year, issued), nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrAllocationFailed.Wrap(op, fmt.Errorf("failed to increment sequence: %w", err))
		}

		issued, path, err := s.fallback(ctx, tenantID, year)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return "", domain.ErrAllocationFailed.Wrap(op, err)
		}

		s.metrics.Allocated(path)
		s.logger.Warn("invoice number issued without sequence row",
			"tenant_id", tenantID,
			"year", year,
			"number", issued,
			"path", path,
		)
		return domain.FormatInvoiceNumber(year, issued), nil
	}

	return "", domain.ErrAllocationFailed.Wrap(op, errors.New("sequence row appeared but could not be incremented"))
}

// fallback issues count+1 where count is the number of invoice numbers the
// tenant already holds for the year. Returns pgx.ErrNoRows if seeding lost a
// race with another allocation.
func (s *sequenceAllocator) fallback(ctx context.Context, tenantID uuid.UUID, year int) (int64, string, error) {
	count, err := s.repo.CountInvoiceNumbers(ctx, repository.CountInvoiceNumbersParams{
		TenantID: repository.UUID(tenantID),
		Prefix:   domain.InvoiceNumberYearPrefix(year),
	})
	if err != nil {
		return 0, "", fmt.Errorf("failed to count existing invoice numbers: %w", err)
	}

	issued := count + 1
	if !s.autoCreate {
		return issued, telemetry.AllocationFallback, nil
	}

	issued, err = s.repo.SeedNumberSequence(ctx, repository.SeedNumberSequenceParams{
		TenantID:     repository.UUID(tenantID),
		DocumentType: domain.DocumentTypeInvoice,
		Year:         int32(year),
		Issued:       issued,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, "", err
		}
		return 0, "", fmt.Errorf("failed to seed sequence: %w", err)
	}
	return issued, telemetry.AllocationSeeded, nil
}
