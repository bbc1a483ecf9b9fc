package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecurringInterval is the billing cadence of a recurring template.
type RecurringInterval string

const (
	IntervalWeekly    RecurringInterval = "weekly"
	IntervalMonthly   RecurringInterval = "monthly"
	IntervalQuarterly RecurringInterval = "quarterly"
	IntervalYearly    RecurringInterval = "yearly"
)

// Valid reports whether i is one of the known intervals.
func (i RecurringInterval) Valid() bool {
	switch i {
	case IntervalWeekly, IntervalMonthly, IntervalQuarterly, IntervalYearly:
		return true
	}
	return false
}

// RecurringStatus is the lifecycle state of a recurring template.
type RecurringStatus string

const (
	RecurringActive    RecurringStatus = "active"
	RecurringCompleted RecurringStatus = "completed"
	RecurringPaused    RecurringStatus = "paused"
)

const (
	// InvoiceStatusSent is the status of every generated invoice. Generated
	// invoices skip the draft state.
	InvoiceStatusSent = "sent"

	// DocumentTypeInvoice keys the invoice number sequence.
	DocumentTypeInvoice = "invoice"

	// InvoiceNumberPrefix precedes the year in every allocated number.
	InvoiceNumberPrefix = "RE"

	// InvoiceGracePeriod is added to the invoice date to compute valid-until.
	InvoiceGracePeriod = 14 * 24 * time.Hour
)

// Customer is the billing party referenced by a template.
type Customer struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Address string `json:"address,omitempty"`
}

// LineItem is one billed position.
type LineItem struct {
	Description string          `json:"description" validate:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Total returns quantity times unit price.
func (li LineItem) Total() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// InvoiceContent holds the fields copied verbatim from a template into each
// generated invoice.
type InvoiceContent struct {
	Customer     Customer        `json:"customer"`
	Items        []LineItem      `json:"items" validate:"required,min=1,dive"`
	Currency     string          `json:"currency" validate:"required,len=3"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	TaxRule      string          `json:"tax_rule,omitempty"`
	PaymentTerms string          `json:"payment_terms,omitempty"`
	Title        string          `json:"title,omitempty"`
	Intro        string          `json:"intro,omitempty"`
	Closing      string          `json:"closing,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

// Clone returns a copy that shares no mutable state with c.
func (c InvoiceContent) Clone() InvoiceContent {
	out := c
	if c.Items != nil {
		out.Items = make([]LineItem, len(c.Items))
		copy(out.Items, c.Items)
	}
	return out
}

// Subtotal sums all line items before tax.
func (c InvoiceContent) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Total())
	}
	return total
}

// Template is a recurring-invoice template. It lives in the invoices table
// with IsRecurringTemplate set.
type Template struct {
	ID                  uuid.UUID
	TenantID            uuid.UUID
	IsRecurringTemplate bool
	Status              RecurringStatus
	NextExecutionDate   time.Time
	Interval            RecurringInterval
	EndDate             *time.Time
	TotalGenerated      int
	LastGeneratedAt     *time.Time
	AutoSendEmail       bool
	Content             InvoiceContent
	UpdatedAt           time.Time

	// ContentErr is set when the stored content could not be decoded. Content
	// may then be partly filled and must not be invoiced.
	ContentErr error
}

// Invoice is a concrete invoice materialized from a template.
type Invoice struct {
	ID                       uuid.UUID
	TenantID                 uuid.UUID
	InvoiceNumber            string
	Status                   string
	Content                  InvoiceContent
	InvoiceDate              time.Time
	ValidUntil               time.Time
	RecurringParentID        uuid.UUID
	RecurringCycleDate       time.Time
	IsGeneratedFromRecurring bool
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// NumberSequence is the per-tenant, per-document-type, per-year counter.
type NumberSequence struct {
	TenantID     uuid.UUID
	DocumentType string
	Year         int
	NextNumber   int64
}

// GenerationResult is the outcome of generating one invoice. Generation never
// returns an error directly; failures are carried in Err.
type GenerationResult struct {
	Success       bool
	InvoiceID     uuid.UUID
	InvoiceNumber string

	// Duplicate is set when the cycle had already been billed by an earlier
	// run and only the schedule was advanced.
	Duplicate bool

	Err error
}

// ProcessResult counts the templates handled for one tenant.
type ProcessResult struct {
	Processed  int `json:"processed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Add accumulates other into r.
func (r *ProcessResult) Add(other ProcessResult) {
	r.Processed += other.Processed
	r.Successful += other.Successful
	r.Failed += other.Failed
}

// TenantResult is the per-tenant entry of a run summary.
type TenantResult struct {
	ProcessResult
	Error string `json:"error,omitempty"`
}

// RunSummaryType distinguishes completed runs from runs that could not start.
type RunSummaryType string

const (
	RunSummaryScheduled      RunSummaryType = "SCHEDULED_RECURRING_INVOICES"
	RunSummaryScheduledError RunSummaryType = "SCHEDULED_RECURRING_INVOICES_ERROR"
)

// RunSummary is the append-only audit record of one scheduled run.
type RunSummary struct {
	ID               uuid.UUID
	Type             RunSummaryType
	Timestamp        time.Time
	TotalProcessed   int
	TotalSuccessful  int
	TotalFailed      int
	TenantsProcessed int
	DurationMs       int64
	PerTenantResults map[uuid.UUID]TenantResult
	ErrorMessage     string
	ErrorStack       string
}

// SequenceAllocator issues invoice numbers.
type SequenceAllocator interface {
	// AllocateNextInvoiceNumber returns the next number for the tenant in the
	// current year, formatted as RE-{year}-{nnnn}.
	AllocateNextInvoiceNumber(ctx context.Context, tenantID uuid.UUID) (string, error)
}

// TemplateMatcher finds templates that are due.
type TemplateMatcher interface {
	// FindDueTemplates returns the tenant's active templates whose next
	// execution date is on or before asOf.
	FindDueTemplates(ctx context.Context, asOf time.Time, tenantID uuid.UUID) ([]Template, error)

	// FindDueTemplatesAllTenants runs FindDueTemplates for every tenant and
	// merges the results. Each template carries its owning TenantID.
	FindDueTemplatesAllTenants(ctx context.Context, asOf time.Time) ([]Template, error)
}

// InvoiceGenerator materializes invoices from templates.
type InvoiceGenerator interface {
	GenerateInvoiceFromTemplate(ctx context.Context, tpl Template, tenantID uuid.UUID) GenerationResult
}

// ScheduleAdvancer moves a template to its next cycle.
type ScheduleAdvancer interface {
	// AdvanceTemplateAfterGeneration moves the template from cycleDate, the
	// cycle that was billed, to the next one and bumps the counters. It is a
	// no-op when the template has already moved past cycleDate. Returns
	// ErrTemplateNotFound if the template no longer exists.
	AdvanceTemplateAfterGeneration(ctx context.Context, templateID, tenantID, invoiceID uuid.UUID, cycleDate time.Time) error
}

// RecurringInvoiceService runs the scheduled generation.
type RecurringInvoiceService interface {
	// ProcessScheduledExecutions generates all due invoices of one tenant.
	// Returns an error only when the due templates cannot be read.
	ProcessScheduledExecutions(ctx context.Context, tenantID uuid.UUID) (ProcessResult, error)

	// RunScheduled processes every tenant and persists a run summary.
	// Returns an error only when tenants cannot be enumerated.
	RunScheduled(ctx context.Context) (*RunSummary, error)
}
