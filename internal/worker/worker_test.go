package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/domain"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/email"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/events"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository/repotest"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/telemetry"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/tenant"
)

type fakeNotifier struct {
	mu      sync.Mutex
	notices []email.RecurringInvoiceNotice
	tenants []uuid.UUID
	err     error
}

func (n *fakeNotifier) SendRecurringInvoiceNotice(ctx context.Context, data email.RecurringInvoiceNotice) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tenants = append(n.tenants, tenant.IDFromContext(ctx))
	if n.err != nil {
		return "", n.err
	}
	if data.CustomerEmail == "" {
		return "", email.ErrNoRecipient
	}
	n.notices = append(n.notices, data)
	return "msg-42", nil
}

type fixture struct {
	store    *repotest.Store
	notifier *fakeNotifier
	metrics  *telemetry.RecurringMetrics
	worker   *NotificationWorker
	tenantID uuid.UUID
}

func newFixture(t *testing.T, status string) *fixture {
	t.Helper()

	store := repotest.NewStore()
	tenantID := uuid.New()
	store.AddTenant(repository.Tenant{
		ID:     repository.UUID(tenantID),
		Slug:   "studio",
		Name:   "Freelance Studio",
		Status: status,
	})

	notifier := &fakeNotifier{}
	metrics := telemetry.NewRecurringMetrics(prometheus.NewRegistry(), "test")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &fixture{
		store:    store,
		notifier: notifier,
		metrics:  metrics,
		worker:   NewNotificationWorker(store, tenant.NewDBResolver(store), notifier, Config{HandleTimeout: time.Second}, metrics, logger),
		tenantID: tenantID,
	}
}

func (f *fixture) addInvoice(t *testing.T, customerEmail string) uuid.UUID {
	t.Helper()

	content, err := json.Marshal(domain.InvoiceContent{
		Customer: domain.Customer{Name: "Acme GmbH", Email: customerEmail},
		Items: []domain.LineItem{
			{Description: "Hosting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("49.90")},
		},
		Currency: "EUR",
		TaxRate:  decimal.NewFromInt(19),
	})
	require.NoError(t, err)

	id := uuid.New()
	issued := time.Date(2025, 1, 1, 3, 0, 0, 0, time.UTC)
	f.store.PutInvoice(repository.Invoice{
		ID:                       repository.UUID(id),
		TenantID:                 repository.UUID(f.tenantID),
		InvoiceNumber:            repository.Text("RE-2025-0001"),
		Status:                   domain.InvoiceStatusSent,
		Content:                  content,
		InvoiceDate:              repository.Timestamptz(issued),
		ValidUntil:               repository.Timestamptz(issued.Add(domain.InvoiceGracePeriod)),
		IsGeneratedFromRecurring: true,
	})
	return id
}

func (f *fixture) event(t *testing.T, invoiceID uuid.UUID, autoSend bool) []byte {
	t.Helper()
	evt := events.NewInvoiceGenerated(f.tenantID, uuid.New(), invoiceID, "RE-2025-0001",
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), autoSend, time.Now())
	data, err := json.Marshal(evt)
	require.NoError(t, err)
	return data
}

func (f *fixture) count(result string) float64 {
	return testutil.ToFloat64(f.metrics.NotificationsSent.WithLabelValues(f.tenantID.String(), result))
}

func Test_Handle_SendsNoticeForAutoSend(t *testing.T) {
	f := newFixture(t, "active")
	invoiceID := f.addInvoice(t, "billing@acme.example")

	err := f.worker.Handle(context.Background(), f.event(t, invoiceID, true))
	require.NoError(t, err)

	require.Len(t, f.notifier.notices, 1)
	notice := f.notifier.notices[0]
	assert.Equal(t, "Freelance Studio", notice.TenantName)
	assert.Equal(t, "RE-2025-0001", notice.InvoiceNumber)
	assert.Equal(t, "billing@acme.example", notice.CustomerEmail)
	assert.True(t, notice.DueDate.Equal(time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC)))
	assert.Equal(t, []uuid.UUID{f.tenantID}, f.notifier.tenants, "tenant is attached to the context")
	assert.Equal(t, float64(1), f.count(ResultSent))
}

func Test_Handle_SkipsWithoutAutoSend(t *testing.T) {
	f := newFixture(t, "active")
	invoiceID := f.addInvoice(t, "billing@acme.example")

	err := f.worker.Handle(context.Background(), f.event(t, invoiceID, false))
	require.NoError(t, err)

	assert.Empty(t, f.notifier.notices)
	assert.Equal(t, float64(1), f.count(ResultSkipped))
}

func Test_Handle_SkipsCustomerWithoutEmail(t *testing.T) {
	f := newFixture(t, "active")
	invoiceID := f.addInvoice(t, "")

	err := f.worker.Handle(context.Background(), f.event(t, invoiceID, true))
	require.NoError(t, err)

	assert.Empty(t, f.notifier.notices)
	assert.Equal(t, float64(1), f.count(ResultSkipped))
}

func Test_Handle_Failures(t *testing.T) {
	t.Run("malformed payload", func(t *testing.T) {
		f := newFixture(t, "active")
		err := f.worker.Handle(context.Background(), []byte("{not json"))
		assert.Error(t, err)
	})

	t.Run("unknown invoice", func(t *testing.T) {
		f := newFixture(t, "active")
		err := f.worker.Handle(context.Background(), f.event(t, uuid.New(), true))

		assert.True(t, domain.IsCode(err, domain.ENOTFOUND))
		assert.Equal(t, float64(1), f.count(ResultFailed))
	})

	t.Run("suspended tenant", func(t *testing.T) {
		f := newFixture(t, "suspended")
		invoiceID := f.addInvoice(t, "billing@acme.example")

		err := f.worker.Handle(context.Background(), f.event(t, invoiceID, true))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "suspended")
		assert.Empty(t, f.notifier.notices)
	})

	t.Run("smtp failure", func(t *testing.T) {
		f := newFixture(t, "active")
		f.notifier.err = errors.New("421 service not available")
		invoiceID := f.addInvoice(t, "billing@acme.example")

		err := f.worker.Handle(context.Background(), f.event(t, invoiceID, true))
		require.Error(t, err)
		assert.Equal(t, float64(1), f.count(ResultFailed))
	})
}

func Test_WithTenantContext(t *testing.T) {
	t.Run("nil tenant id", func(t *testing.T) {
		_, _, err := withTenantContext(context.Background(), nil, uuid.Nil)
		assert.ErrorIs(t, err, tenant.ErrNoTenant)
	})

	t.Run("without resolver", func(t *testing.T) {
		id := uuid.New()
		ctx, got, err := withTenantContext(context.Background(), nil, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, id, tenant.IDFromContext(ctx))
	})

	t.Run("unknown tenant", func(t *testing.T) {
		resolver := tenant.NewDBResolver(repotest.NewStore())
		_, _, err := withTenantContext(context.Background(), resolver, uuid.New())
		assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	})
}
