package repository

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// Invoice is a row of the invoices table. Recurring templates, regular
// invoices and generated invoices share the table.
type Invoice struct {
	ID                         pgtype.UUID
	TenantID                   pgtype.UUID
	InvoiceNumber              pgtype.Text
	Status                     string
	Content                    []byte
	InvoiceDate                pgtype.Timestamptz
	ValidUntil                 pgtype.Timestamptz
	IsRecurringTemplate        bool
	RecurringStatus            pgtype.Text
	RecurringInterval          pgtype.Text
	RecurringNextExecutionDate pgtype.Date
	RecurringEndDate           pgtype.Date
	RecurringTotalGenerated    int32
	RecurringLastGeneratedAt   pgtype.Timestamptz
	RecurringAutoSendEmail     bool
	RecurringParentID          pgtype.UUID
	RecurringCycleDate         pgtype.Date
	IsGeneratedFromRecurring   bool
	CreatedAt                  pgtype.Timestamptz
	UpdatedAt                  pgtype.Timestamptz
}

type NumberSequence struct {
	TenantID     pgtype.UUID
	DocumentType string
	Year         int32
	NextNumber   int64
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

type RunSummary struct {
	ID               pgtype.UUID
	Type             string
	RunAt            pgtype.Timestamptz
	TotalProcessed   int32
	TotalSuccessful  int32
	TotalFailed      int32
	TenantsProcessed int32
	DurationMs       int64
	PerTenantResults []byte
	ErrorMessage     pgtype.Text
	ErrorStack       pgtype.Text
	CreatedAt        pgtype.Timestamptz
}

type Tenant struct {
	ID        pgtype.UUID
	Slug      string
	Name      string
	Status    string
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}
