// Package repotest provides an in-memory repository.Querier for tests.
//
// Every method runs under a single mutex, which gives the same atomicity the
// single-statement queries have in PostgreSQL.
package repotest

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository"
)

const uniqueViolation = "23505"

type sequenceKey struct {
	tenant [16]byte
	doc    string
	year   int32
}

// Store is an in-memory repository.Querier.
//
// The *Err hooks let tests inject failures. Set them before the store is
// shared between goroutines.
type Store struct {
	mu        sync.Mutex
	tenants   []repository.Tenant
	invoices  map[[16]byte]repository.Invoice
	order     [][16]byte
	sequences map[sequenceKey]repository.NumberSequence
	summaries []repository.RunSummary

	ListTenantsPageErr   func(arg repository.ListTenantsPageParams) error
	ListDueTemplatesErr  func(arg repository.ListDueTemplatesParams) error
	GetTemplateErr       func(arg repository.GetTemplateParams) error
	CreateInvoiceErr     func(arg repository.CreateInvoiceParams) error
	AdvanceTemplateErr   func(arg repository.AdvanceTemplateParams) error
	IncrementSequenceErr func(arg repository.IncrementNumberSequenceParams) error
	CreateRunSummaryErr  func(arg repository.CreateRunSummaryParams) error
}

var _ repository.Querier = (*Store)(nil)

func sameDate(a, b pgtype.Date) bool {
	return a.Valid == b.Valid && a.Time.Equal(b.Time)
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		invoices:  make(map[[16]byte]repository.Invoice),
		sequences: make(map[sequenceKey]repository.NumberSequence),
	}
}

// AddTenant registers a tenant. Tenants are kept ordered by id.
func (s *Store) AddTenant(t repository.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tenants = append(s.tenants, t)
	slices.SortFunc(s.tenants, func(a, b repository.Tenant) int {
		return bytes.Compare(a.ID.Bytes[:], b.ID.Bytes[:])
	})
}

// PutInvoice inserts or replaces an invoice row.
func (s *Store) PutInvoice(inv repository.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invoices[inv.ID.Bytes]; !ok {
		s.order = append(s.order, inv.ID.Bytes)
	}
	inv.Content = bytes.Clone(inv.Content)
	s.invoices[inv.ID.Bytes] = inv
}

// Invoice returns a copy of the row with the given id.
func (s *Store) Invoice(id pgtype.UUID) (repository.Invoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id.Bytes]
	inv.Content = bytes.Clone(inv.Content)
	return inv, ok
}

// GeneratedInvoices returns invoices generated from parent in insertion order.
func (s *Store) GeneratedInvoices(parent pgtype.UUID) []repository.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []repository.Invoice
	for _, id := range s.order {
		inv := s.invoices[id]
		if inv.IsGeneratedFromRecurring && inv.RecurringParentID == parent {
			inv.Content = bytes.Clone(inv.Content)
			out = append(out, inv)
		}
	}
	return out
}

// PutSequence inserts or replaces a number sequence row.
func (s *Store) PutSequence(seq repository.NumberSequence) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequences[sequenceKey{seq.TenantID.Bytes, seq.DocumentType, seq.Year}] = seq
}

// Sequence returns the sequence row for the key, if any.
func (s *Store) Sequence(tenantID pgtype.UUID, documentType string, year int32) (repository.NumberSequence, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.sequences[sequenceKey{tenantID.Bytes, documentType, year}]
	return seq, ok
}

// Summaries returns all persisted run summaries in insertion order.
func (s *Store) Summaries() []repository.RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.summaries)
}

func (s *Store) ListTenantsPage(ctx context.Context, arg repository.ListTenantsPageParams) ([]repository.Tenant, error) {
	if s.ListTenantsPageErr != nil {
		if err := s.ListTenantsPageErr(arg); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items := []repository.Tenant{}
	for _, t := range s.tenants {
		if arg.AfterID.Valid && bytes.Compare(t.ID.Bytes[:], arg.AfterID.Bytes[:]) <= 0 {
			continue
		}
		if int32(len(items)) >= arg.Limit {
			break
		}
		items = append(items, t)
	}
	return items, nil
}

func (s *Store) ListDueTemplates(ctx context.Context, arg repository.ListDueTemplatesParams) ([]repository.Invoice, error) {
	if s.ListDueTemplatesErr != nil {
		if err := s.ListDueTemplatesErr(arg); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items := []repository.Invoice{}
	for _, id := range s.order {
		inv := s.invoices[id]
		if inv.TenantID != arg.TenantID || !inv.IsRecurringTemplate {
			continue
		}
		if !inv.RecurringStatus.Valid || inv.RecurringStatus.String != "active" {
			continue
		}
		if !inv.RecurringNextExecutionDate.Valid || inv.RecurringNextExecutionDate.Time.After(arg.AsOf.Time) {
			continue
		}
		inv.Content = bytes.Clone(inv.Content)
		items = append(items, inv)
	}
	slices.SortStableFunc(items, func(a, b repository.Invoice) int {
		return a.RecurringNextExecutionDate.Time.Compare(b.RecurringNextExecutionDate.Time)
	})
	return items, nil
}

func (s *Store) GetTemplate(ctx context.Context, arg repository.GetTemplateParams) (repository.Invoice, error) {
	if s.GetTemplateErr != nil {
		if err := s.GetTemplateErr(arg); err != nil {
			return repository.Invoice{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[arg.ID.Bytes]
	if !ok || inv.TenantID != arg.TenantID || !inv.IsRecurringTemplate {
		return repository.Invoice{}, pgx.ErrNoRows
	}
	inv.Content = bytes.Clone(inv.Content)
	return inv, nil
}

func (s *Store) GetTenantByID(ctx context.Context, id pgtype.UUID) (repository.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tenants {
		if t.ID == id {
			return t, nil
		}
	}
	return repository.Tenant{}, pgx.ErrNoRows
}

func (s *Store) GetInvoice(ctx context.Context, arg repository.GetInvoiceParams) (repository.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[arg.ID.Bytes]
	if !ok || inv.TenantID != arg.TenantID {
		return repository.Invoice{}, pgx.ErrNoRows
	}
	inv.Content = bytes.Clone(inv.Content)
	return inv, nil
}

func (s *Store) GetGeneratedInvoiceForCycle(ctx context.Context, arg repository.GetGeneratedInvoiceForCycleParams) (repository.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		inv := s.invoices[id]
		if inv.TenantID == arg.TenantID &&
			inv.IsGeneratedFromRecurring &&
			inv.RecurringParentID == arg.RecurringParentID &&
			sameDate(inv.RecurringCycleDate, arg.RecurringCycleDate) {
			inv.Content = bytes.Clone(inv.Content)
			return inv, nil
		}
	}
	return repository.Invoice{}, pgx.ErrNoRows
}

func (s *Store) CreateInvoice(ctx context.Context, arg repository.CreateInvoiceParams) (repository.Invoice, error) {
	if s.CreateInvoiceErr != nil {
		if err := s.CreateInvoiceErr(arg); err != nil {
			return repository.Invoice{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invoices[arg.ID.Bytes]; ok {
		return repository.Invoice{}, &pgconn.PgError{Code: uniqueViolation, ConstraintName: "invoices_pkey"}
	}
	for _, id := range s.order {
		inv := s.invoices[id]
		if inv.TenantID != arg.TenantID {
			continue
		}
		if arg.InvoiceNumber.Valid && inv.InvoiceNumber == arg.InvoiceNumber {
			return repository.Invoice{}, &pgconn.PgError{Code: uniqueViolation, ConstraintName: "invoices_tenant_number_key"}
		}
		if arg.IsGeneratedFromRecurring && inv.IsGeneratedFromRecurring &&
			inv.RecurringParentID == arg.RecurringParentID &&
			sameDate(inv.RecurringCycleDate, arg.RecurringCycleDate) {
			return repository.Invoice{}, &pgconn.PgError{Code: uniqueViolation, ConstraintName: "invoices_recurring_cycle_key"}
		}
	}

	inv := repository.Invoice{
		ID:                       arg.ID,
		TenantID:                 arg.TenantID,
		InvoiceNumber:            arg.InvoiceNumber,
		Status:                   arg.Status,
		Content:                  bytes.Clone(arg.Content),
		InvoiceDate:              arg.InvoiceDate,
		ValidUntil:               arg.ValidUntil,
		RecurringParentID:        arg.RecurringParentID,
		RecurringCycleDate:       arg.RecurringCycleDate,
		IsGeneratedFromRecurring: arg.IsGeneratedFromRecurring,
		CreatedAt:                arg.CreatedAt,
		UpdatedAt:                arg.CreatedAt,
	}
	s.invoices[inv.ID.Bytes] = inv
	s.order = append(s.order, inv.ID.Bytes)

	inv.Content = bytes.Clone(inv.Content)
	return inv, nil
}

func (s *Store) AdvanceTemplate(ctx context.Context, arg repository.AdvanceTemplateParams) (repository.Invoice, error) {
	if s.AdvanceTemplateErr != nil {
		if err := s.AdvanceTemplateErr(arg); err != nil {
			return repository.Invoice{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[arg.ID.Bytes]
	if !ok || inv.TenantID != arg.TenantID || !inv.IsRecurringTemplate ||
		inv.RecurringStatus.String != "active" ||
		!sameDate(inv.RecurringNextExecutionDate, arg.ExpectedNextExecutionDate) {
		return repository.Invoice{}, pgx.ErrNoRows
	}

	inv.RecurringNextExecutionDate = arg.NextExecutionDate
	inv.RecurringTotalGenerated++
	inv.RecurringLastGeneratedAt = arg.LastGeneratedAt
	if arg.Complete {
		inv.RecurringStatus = pgtype.Text{String: "completed", Valid: true}
	}
	inv.UpdatedAt = arg.LastGeneratedAt
	s.invoices[inv.ID.Bytes] = inv

	inv.Content = bytes.Clone(inv.Content)
	return inv, nil
}

func (s *Store) CountInvoiceNumbers(ctx context.Context, arg repository.CountInvoiceNumbersParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, inv := range s.invoices {
		if inv.TenantID == arg.TenantID && inv.InvoiceNumber.Valid && strings.HasPrefix(inv.InvoiceNumber.String, arg.Prefix) {
			n++
		}
	}
	return n, nil
}

func (s *Store) IncrementNumberSequence(ctx context.Context, arg repository.IncrementNumberSequenceParams) (int64, error) {
	if s.IncrementSequenceErr != nil {
		if err := s.IncrementSequenceErr(arg); err != nil {
			return 0, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sequenceKey{arg.TenantID.Bytes, arg.DocumentType, arg.Year}
	seq, ok := s.sequences[key]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	issued := seq.NextNumber
	seq.NextNumber++
	s.sequences[key] = seq
	return issued, nil
}

func (s *Store) SeedNumberSequence(ctx context.Context, arg repository.SeedNumberSequenceParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sequenceKey{arg.TenantID.Bytes, arg.DocumentType, arg.Year}
	if _, ok := s.sequences[key]; ok {
		return 0, pgx.ErrNoRows
	}
	s.sequences[key] = repository.NumberSequence{
		TenantID:     arg.TenantID,
		DocumentType: arg.DocumentType,
		Year:         arg.Year,
		NextNumber:   arg.Issued + 1,
	}
	return arg.Issued, nil
}

func (s *Store) CreateRunSummary(ctx context.Context, arg repository.CreateRunSummaryParams) (repository.RunSummary, error) {
	if s.CreateRunSummaryErr != nil {
		if err := s.CreateRunSummaryErr(arg); err != nil {
			return repository.RunSummary{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rs := repository.RunSummary{
		ID:               arg.ID,
		Type:             arg.Type,
		RunAt:            arg.RunAt,
		TotalProcessed:   arg.TotalProcessed,
		TotalSuccessful:  arg.TotalSuccessful,
		TotalFailed:      arg.TotalFailed,
		TenantsProcessed: arg.TenantsProcessed,
		DurationMs:       arg.DurationMs,
		PerTenantResults: bytes.Clone(arg.PerTenantResults),
		ErrorMessage:     arg.ErrorMessage,
		ErrorStack:       arg.ErrorStack,
		CreatedAt:        arg.RunAt,
	}
	s.summaries = append(s.summaries, rs)
	return rs, nil
}

func (s *Store) GetLatestRunSummary(ctx context.Context) (repository.RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.summaries) == 0 {
		return repository.RunSummary{}, pgx.ErrNoRows
	}
	latest := s.summaries[0]
	for _, rs := range s.summaries[1:] {
		if !rs.RunAt.Time.Before(latest.RunAt.Time) {
			latest = rs
		}
	}
	return latest, nil
}
