package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

//go:generate mockgen -source=querier.go -destination=mock_querier.go -package=repository

type Querier interface {
	AdvanceTemplate(ctx context.Context, arg AdvanceTemplateParams) (Invoice, error)
	CountInvoiceNumbers(ctx context.Context, arg CountInvoiceNumbersParams) (int64, error)
	CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error)
	CreateRunSummary(ctx context.Context, arg CreateRunSummaryParams) (RunSummary, error)
	GetGeneratedInvoiceForCycle(ctx context.Context, arg GetGeneratedInvoiceForCycleParams) (Invoice, error)
	GetInvoice(ctx context.Context, arg GetInvoiceParams) (Invoice, error)
	GetLatestRunSummary(ctx context.Context) (RunSummary, error)
	GetTemplate(ctx context.Context, arg GetTemplateParams) (Invoice, error)
	GetTenantByID(ctx context.Context, id pgtype.UUID) (Tenant, error)
	IncrementNumberSequence(ctx context.Context, arg IncrementNumberSequenceParams) (int64, error)
	ListDueTemplates(ctx context.Context, arg ListDueTemplatesParams) ([]Invoice, error)
	ListTenantsPage(ctx context.Context, arg ListTenantsPageParams) ([]Tenant, error)
	SeedNumberSequence(ctx context.Context, arg SeedNumberSequenceParams) (int64, error)
}

var _ Querier = (*Queries)(nil)
