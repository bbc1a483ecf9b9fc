package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/domain"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository"
)

const pgUniqueViolation = "23505"

// templateFromRow converts an invoices row into a Template. A content payload
// that does not decode is recorded in ContentErr; the template is still
// returned so the run can count it as failed.
func templateFromRow(row repository.Invoice) domain.Template {
	tpl := domain.Template{
		ID:                  repository.ToUUID(row.ID),
		TenantID:            repository.ToUUID(row.TenantID),
		IsRecurringTemplate: row.IsRecurringTemplate,
		Status:              domain.RecurringStatus(row.RecurringStatus.String),
		Interval:            domain.RecurringInterval(row.RecurringInterval.String),
		EndDate:             repository.DatePtr(row.RecurringEndDate),
		TotalGenerated:      int(row.RecurringTotalGenerated),
		LastGeneratedAt:     repository.TimestamptzPtr(row.RecurringLastGeneratedAt),
		AutoSendEmail:       row.RecurringAutoSendEmail,
		UpdatedAt:           row.UpdatedAt.Time,
	}
	if row.RecurringNextExecutionDate.Valid {
		tpl.NextExecutionDate = row.RecurringNextExecutionDate.Time
	}

	if len(row.Content) == 0 {
		return tpl
	}
	if err := json.Unmarshal(row.Content, &tpl.Content); err != nil {
		tpl.ContentErr = fmt.Errorf("failed to decode template content: %w", err)
	}
	return tpl
}

func createInvoiceParams(inv domain.Invoice) (repository.CreateInvoiceParams, error) {
	content, err := json.Marshal(inv.Content)
	if err != nil {
		return repository.CreateInvoiceParams{}, fmt.Errorf("failed to encode invoice content: %w", err)
	}

	return repository.CreateInvoiceParams{
		ID:                       repository.UUID(inv.ID),
		TenantID:                 repository.UUID(inv.TenantID),
		InvoiceNumber:            repository.Text(inv.InvoiceNumber),
		Status:                   inv.Status,
		Content:                  content,
		InvoiceDate:              repository.Timestamptz(inv.InvoiceDate),
		ValidUntil:               repository.Timestamptz(inv.ValidUntil),
		RecurringParentID:        repository.UUID(inv.RecurringParentID),
		RecurringCycleDate:       repository.Date(inv.RecurringCycleDate),
		IsGeneratedFromRecurring: inv.IsGeneratedFromRecurring,
		CreatedAt:                repository.Timestamptz(inv.CreatedAt),
	}, nil
}

func runSummaryParams(s *domain.RunSummary) (repository.CreateRunSummaryParams, error) {
	results := s.PerTenantResults
	if results == nil {
		results = map[uuid.UUID]domain.TenantResult{}
	}
	perTenant, err := json.Marshal(results)
	if err != nil {
		return repository.CreateRunSummaryParams{}, fmt.Errorf("failed to encode per-tenant results: %w", err)
	}

	return repository.CreateRunSummaryParams{
		ID:               repository.UUID(s.ID),
		Type:             string(s.Type),
		RunAt:            repository.Timestamptz(s.Timestamp),
		TotalProcessed:   int32(s.TotalProcessed),
		TotalSuccessful:  int32(s.TotalSuccessful),
		TotalFailed:      int32(s.TotalFailed),
		TenantsProcessed: int32(s.TenantsProcessed),
		DurationMs:       s.DurationMs,
		PerTenantResults: perTenant,
		ErrorMessage:     repository.Text(s.ErrorMessage),
		ErrorStack:       repository.Text(s.ErrorStack),
	}, nil
}

// constraintViolated reports whether err is a unique violation of constraint.
func constraintViolated(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraint
}
