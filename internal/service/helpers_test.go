package service

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/domain"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository/repotest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// at returns a clock fixed at the given date, 03:00 UTC.
func at(y int, m time.Month, d int) domain.Clock {
	return domain.FixedClock(time.Date(y, m, d, 3, 0, 0, 0, time.UTC))
}

func sampleContent() domain.InvoiceContent {
	return domain.InvoiceContent{
		Customer: domain.Customer{ID: "cust-1", Name: "Acme GmbH", Email: "billing@acme.example"},
		Items: []domain.LineItem{
			{Description: "Hosting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("49.90")},
			{Description: "Support", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("80.00")},
		},
		Currency: "EUR",
		TaxRate:  decimal.NewFromInt(19),
		TaxRule:  "DE_STANDARD",
		Title:    "Monthly services",
	}
}

func addTenant(store *repotest.Store, slug string) uuid.UUID {
	id := uuid.New()
	store.AddTenant(repository.Tenant{
		ID:     repository.UUID(id),
		Slug:   slug,
		Name:   slug,
		Status: "active",
	})
	return id
}

type templateOpts struct {
	next      time.Time
	interval  domain.RecurringInterval
	status    domain.RecurringStatus
	end       *time.Time
	autoSend  bool
	content   *domain.InvoiceContent
	rawJSON   []byte
	generated int32
}

func addTemplate(t *testing.T, store *repotest.Store, tenantID uuid.UUID, o templateOpts) uuid.UUID {
	t.Helper()

	if o.interval == "" {
		o.interval = domain.IntervalMonthly
	}
	if o.status == "" {
		o.status = domain.RecurringActive
	}
	content := o.rawJSON
	if content == nil {
		c := sampleContent()
		if o.content != nil {
			c = *o.content
		}
		var err error
		content, err = json.Marshal(c)
		require.NoError(t, err)
	}

	id := uuid.New()
	store.PutInvoice(repository.Invoice{
		ID:                         repository.UUID(id),
		TenantID:                   repository.UUID(tenantID),
		Status:                     "draft",
		Content:                    content,
		IsRecurringTemplate:        true,
		RecurringStatus:            pgtype.Text{String: string(o.status), Valid: true},
		RecurringInterval:          pgtype.Text{String: string(o.interval), Valid: true},
		RecurringNextExecutionDate: repository.Date(o.next),
		RecurringEndDate:           repository.NullableDate(o.end),
		RecurringTotalGenerated:    o.generated,
		RecurringAutoSendEmail:     o.autoSend,
	})
	return id
}

func seedSequence(store *repotest.Store, tenantID uuid.UUID, year int32, next int64) {
	store.PutSequence(repository.NumberSequence{
		TenantID:     repository.UUID(tenantID),
		DocumentType: domain.DocumentTypeInvoice,
		Year:         year,
		NextNumber:   next,
	})
}

func mustTemplate(t *testing.T, store *repotest.Store, id uuid.UUID) repository.Invoice {
	t.Helper()
	row, ok := store.Invoice(repository.UUID(id))
	require.True(t, ok, "template %s not found", id)
	return row
}

func decodeContent(t *testing.T, raw []byte) domain.InvoiceContent {
	t.Helper()
	var c domain.InvoiceContent
	require.NoError(t, json.Unmarshal(raw, &c))
	return c
}
