package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/domain"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/events"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository/repotest"
)

type generatorFixture struct {
	store     *repotest.Store
	publisher *events.MemoryPublisher
	generator domain.InvoiceGenerator
	matcher   domain.TemplateMatcher
	tenantID  uuid.UUID
}

func newGeneratorFixture(clock domain.Clock) *generatorFixture {
	store := repotest.NewStore()
	publisher := events.NewMemoryPublisher()
	logger := discardLogger()

	allocator := NewSequenceAllocator(store, clock, true, nil, logger)
	advancer := NewScheduleAdvancer(store, clock, nil, logger)

	return &generatorFixture{
		store:     store,
		publisher: publisher,
		generator: NewInvoiceGenerator(store, allocator, advancer, publisher, clock, nil, logger),
		matcher:   NewTemplateMatcher(store, nil, logger),
		tenantID:  addTenant(store, "acme"),
	}
}

func (f *generatorFixture) due(t *testing.T, clock domain.Clock) []domain.Template {
	t.Helper()
	templates, err := f.matcher.FindDueTemplates(context.Background(), clock.Now(), f.tenantID)
	require.NoError(t, err)
	return templates
}

func Test_GenerateInvoiceFromTemplate(t *testing.T) {
	clock := at(2025, 1, 1)
	f := newGeneratorFixture(clock)
	tplID := addTemplate(t, f.store, f.tenantID, templateOpts{next: day(2025, 1, 1), autoSend: true})

	templates := f.due(t, clock)
	require.Len(t, templates, 1)

	res := f.generator.GenerateInvoiceFromTemplate(context.Background(), templates[0], f.tenantID)

	require.True(t, res.Success, "generation failed: %v", res.Err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, "RE-2025-0001", res.InvoiceNumber)

	inv, ok := f.store.Invoice(repository.UUID(res.InvoiceID))
	require.True(t, ok)
	assert.Equal(t, "RE-2025-0001", inv.InvoiceNumber.String)
	assert.Equal(t, domain.InvoiceStatusSent, inv.Status)
	assert.True(t, inv.IsGeneratedFromRecurring)
	assert.False(t, inv.IsRecurringTemplate)
	assert.Equal(t, repository.UUID(tplID), inv.RecurringParentID)
	assert.True(t, inv.RecurringCycleDate.Time.Equal(day(2025, 1, 1)))
	assert.True(t, inv.InvoiceDate.Time.Equal(clock.Now()))
	assert.True(t, inv.ValidUntil.Time.Equal(clock.Now().Add(domain.InvoiceGracePeriod)))

	content := decodeContent(t, inv.Content)
	want := sampleContent()
	assert.Equal(t, want.Customer, content.Customer)
	assert.Equal(t, want.Title, content.Title)
	require.Len(t, content.Items, 2)
	assert.True(t, content.Items[0].UnitPrice.Equal(want.Items[0].UnitPrice))
	assert.True(t, content.TaxRate.Equal(want.TaxRate))

	tpl := mustTemplate(t, f.store, tplID)
	assert.True(t, tpl.RecurringNextExecutionDate.Time.Equal(day(2025, 2, 1)))
	assert.Equal(t, int32(1), tpl.RecurringTotalGenerated)
	assert.Equal(t, string(domain.RecurringActive), tpl.RecurringStatus.String)

	published := f.publisher.Events()
	require.Len(t, published, 1)
	assert.Equal(t, f.tenantID, published[0].TenantID)
	assert.Equal(t, tplID, published[0].TemplateID)
	assert.Equal(t, res.InvoiceID, published[0].InvoiceID)
	assert.Equal(t, "RE-2025-0001", published[0].InvoiceNumber)
	assert.True(t, published[0].AutoSendEmail)
}

func Test_GenerateInvoiceFromTemplate_SnapshotIsIndependentOfTemplate(t *testing.T) {
	clock := at(2025, 1, 1)
	f := newGeneratorFixture(clock)
	tplID := addTemplate(t, f.store, f.tenantID, templateOpts{next: day(2025, 1, 1)})

	templates := f.due(t, clock)
	require.Len(t, templates, 1)
	tpl := templates[0]

	res := f.generator.GenerateInvoiceFromTemplate(context.Background(), tpl, f.tenantID)
	require.True(t, res.Success)

	// Mutating the template afterwards, in memory or in storage, must not
	// reach the generated invoice.
	tpl.Content.Items[0].Description = "changed in memory"
	row := mustTemplate(t, f.store, tplID)
	row.Content = []byte(`{"customer":{"name":"Renamed AG"}}`)
	f.store.PutInvoice(row)

	inv, ok := f.store.Invoice(repository.UUID(res.InvoiceID))
	require.True(t, ok)
	content := decodeContent(t, inv.Content)
	assert.Equal(t, "Hosting", content.Items[0].Description)
	assert.Equal(t, "Acme GmbH", content.Customer.Name)
}

func Test_GenerateInvoiceFromTemplate_InvalidTemplates(t *testing.T) {
	tenantID := uuid.New()
	valid := domain.Template{
		ID:                  uuid.New(),
		TenantID:            tenantID,
		IsRecurringTemplate: true,
		Status:              domain.RecurringActive,
		NextExecutionDate:   day(2025, 1, 1),
		Interval:            domain.IntervalMonthly,
		Content:             sampleContent(),
	}

	tests := []struct {
		name   string
		mutate func(*domain.Template)
	}{
		{"not a template", func(tpl *domain.Template) { tpl.IsRecurringTemplate = false }},
		{"foreign tenant", func(tpl *domain.Template) { tpl.TenantID = uuid.New() }},
		{"unknown interval", func(tpl *domain.Template) { tpl.Interval = "daily" }},
		{"missing next date", func(tpl *domain.Template) { tpl.NextExecutionDate = time.Time{} }},
		{"no line items", func(tpl *domain.Template) { tpl.Content.Items = nil }},
		{"missing customer", func(tpl *domain.Template) { tpl.Content.Customer.Name = "" }},
		{"bad currency", func(tpl *domain.Template) { tpl.Content.Currency = "EURO" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			// No repository call is expected for an invalid template.
			mockRepo := repository.NewMockQuerier(ctrl)
			allocator := domain.SequenceAllocator(panickingAllocator{})

			tpl := valid
			tpl.Content = valid.Content.Clone()
			tt.mutate(&tpl)

			gen := NewInvoiceGenerator(mockRepo, allocator, nil, nil, at(2025, 1, 1), nil, discardLogger())
			res := gen.GenerateInvoiceFromTemplate(context.Background(), tpl, tenantID)

			assert.False(t, res.Success)
			assert.ErrorIs(t, res.Err, domain.ErrInvalidTemplate)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(res.Err))
		})
	}
}

func Test_GenerateInvoiceFromTemplate_PartlyDecodedContentIsRejected(t *testing.T) {
	clock := at(2025, 1, 1)
	f := newGeneratorFixture(clock)
	tplID := addTemplate(t, f.store, f.tenantID, templateOpts{
		next: day(2025, 1, 1),
		rawJSON: []byte(`{"customer":{"name":"Acme"},` +
			`"items":[{"description":"Hosting","quantity":"1","unit_price":"49.00"}],` +
			`"currency":"EUR","title":42,"payment_terms":"14 days"}`),
	})

	templates := f.due(t, clock)
	require.Len(t, templates, 1)
	require.Error(t, templates[0].ContentErr)

	res := f.generator.GenerateInvoiceFromTemplate(context.Background(), templates[0], f.tenantID)

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, domain.ErrInvalidTemplate)
	assert.Empty(t, f.store.GeneratedInvoices(repository.UUID(tplID)))
	_, ok := f.store.Sequence(repository.UUID(f.tenantID), domain.DocumentTypeInvoice, 2025)
	assert.False(t, ok, "no number is allocated for unreadable content")

	tpl := mustTemplate(t, f.store, tplID)
	assert.True(t, tpl.RecurringNextExecutionDate.Time.Equal(day(2025, 1, 1)))
}

func Test_GenerateInvoiceFromTemplate_AllocationFailureWritesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tenantID := uuid.New()
	tpl := domain.Template{
		ID:                  uuid.New(),
		TenantID:            tenantID,
		IsRecurringTemplate: true,
		Status:              domain.RecurringActive,
		NextExecutionDate:   day(2025, 1, 1),
		Interval:            domain.IntervalMonthly,
		Content:             sampleContent(),
	}

	mockRepo := repository.NewMockQuerier(ctrl)
	mockRepo.EXPECT().
		GetGeneratedInvoiceForCycle(gomock.Any(), gomock.Any()).
		Return(repository.Invoice{}, pgx.ErrNoRows)
	mockRepo.EXPECT().
		IncrementNumberSequence(gomock.Any(), gomock.Any()).
		Return(int64(0), errors.New("deadlock detected"))
	mockRepo.EXPECT().CreateInvoice(gomock.Any(), gomock.Any()).Times(0)
	mockRepo.EXPECT().AdvanceTemplate(gomock.Any(), gomock.Any()).Times(0)

	publisher := events.NewMockPublisher(ctrl)
	publisher.EXPECT().PublishInvoiceGenerated(gomock.Any(), gomock.Any()).Times(0)

	clock := at(2025, 1, 1)
	allocator := NewSequenceAllocator(mockRepo, clock, true, nil, discardLogger())
	advancer := NewScheduleAdvancer(mockRepo, clock, nil, discardLogger())
	gen := NewInvoiceGenerator(mockRepo, allocator, advancer, publisher, clock, nil, discardLogger())

	res := gen.GenerateInvoiceFromTemplate(context.Background(), tpl, tenantID)

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, domain.ErrAllocationFailed)
	assert.Equal(t, uuid.Nil, res.InvoiceID)
}

func Test_GenerateInvoiceFromTemplate_InsertFailureLeavesScheduleAlone(t *testing.T) {
	clock := at(2025, 1, 1)
	f := newGeneratorFixture(clock)
	tplID := addTemplate(t, f.store, f.tenantID, templateOpts{next: day(2025, 1, 1)})
	f.store.CreateInvoiceErr = func(repository.CreateInvoiceParams) error {
		return errors.New("disk full")
	}

	templates := f.due(t, clock)
	res := f.generator.GenerateInvoiceFromTemplate(context.Background(), templates[0], f.tenantID)

	assert.False(t, res.Success)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(res.Err))

	tpl := mustTemplate(t, f.store, tplID)
	assert.True(t, tpl.RecurringNextExecutionDate.Time.Equal(day(2025, 1, 1)))
	assert.Zero(t, tpl.RecurringTotalGenerated)
	assert.Empty(t, f.publisher.Events())
}

func Test_GenerateInvoiceFromTemplate_DuplicateCycleOnlyAdvances(t *testing.T) {
	clock := at(2025, 1, 1)
	f := newGeneratorFixture(clock)
	tplID := addTemplate(t, f.store, f.tenantID, templateOpts{next: day(2025, 1, 1)})

	// First attempt writes the invoice but the advancement is lost.
	f.store.AdvanceTemplateErr = func(repository.AdvanceTemplateParams) error {
		return errors.New("connection lost")
	}
	templates := f.due(t, clock)
	first := f.generator.GenerateInvoiceFromTemplate(context.Background(), templates[0], f.tenantID)
	require.True(t, first.Success, "advance failure must not fail generation")

	tpl := mustTemplate(t, f.store, tplID)
	require.True(t, tpl.RecurringNextExecutionDate.Time.Equal(day(2025, 1, 1)))

	// The retry finds the cycle already invoiced and only advances.
	f.store.AdvanceTemplateErr = nil
	templates = f.due(t, clock)
	require.Len(t, templates, 1)
	second := f.generator.GenerateInvoiceFromTemplate(context.Background(), templates[0], f.tenantID)

	require.True(t, second.Success)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.InvoiceID, second.InvoiceID)
	assert.Equal(t, first.InvoiceNumber, second.InvoiceNumber)

	assert.Len(t, f.store.GeneratedInvoices(repository.UUID(tplID)), 1)
	tpl = mustTemplate(t, f.store, tplID)
	assert.True(t, tpl.RecurringNextExecutionDate.Time.Equal(day(2025, 2, 1)))
	assert.Equal(t, int32(1), tpl.RecurringTotalGenerated)
	assert.Len(t, f.publisher.Events(), 1, "the duplicate path publishes nothing")

	seq, ok := f.store.Sequence(repository.UUID(f.tenantID), domain.DocumentTypeInvoice, 2025)
	require.True(t, ok)
	assert.Equal(t, int64(2), seq.NextNumber, "no number is burned on the duplicate path")
}

func Test_GenerateInvoiceFromTemplate_OverlappingRunsAdvanceOnce(t *testing.T) {
	clock := at(2025, 1, 1)
	f := newGeneratorFixture(clock)
	tplID := addTemplate(t, f.store, f.tenantID, templateOpts{next: day(2025, 1, 1)})

	// Two runs match the template before either of them generates.
	runA := f.due(t, clock)
	runB := f.due(t, clock)
	require.Len(t, runA, 1)
	require.Len(t, runB, 1)

	first := f.generator.GenerateInvoiceFromTemplate(context.Background(), runA[0], f.tenantID)
	require.True(t, first.Success, "generation failed: %v", first.Err)

	second := f.generator.GenerateInvoiceFromTemplate(context.Background(), runB[0], f.tenantID)
	require.True(t, second.Success, "generation failed: %v", second.Err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.InvoiceID, second.InvoiceID)

	tpl := mustTemplate(t, f.store, tplID)
	assert.True(t, tpl.RecurringNextExecutionDate.Time.Equal(day(2025, 2, 1)),
		"next execution date = %s, the February cycle must stay due", tpl.RecurringNextExecutionDate.Time)
	assert.Equal(t, int32(1), tpl.RecurringTotalGenerated)
	assert.Len(t, f.store.GeneratedInvoices(repository.UUID(tplID)), 1)
}

func Test_GenerateInvoiceFromTemplate_PausedAfterMatchingKeepsSchedule(t *testing.T) {
	clock := at(2025, 1, 1)
	f := newGeneratorFixture(clock)
	tplID := addTemplate(t, f.store, f.tenantID, templateOpts{next: day(2025, 1, 1)})
	templates := f.due(t, clock)
	require.Len(t, templates, 1)

	// The tenant pauses the template while the run is in flight.
	row := mustTemplate(t, f.store, tplID)
	row.RecurringStatus = pgtype.Text{String: string(domain.RecurringPaused), Valid: true}
	f.store.PutInvoice(row)

	res := f.generator.GenerateInvoiceFromTemplate(context.Background(), templates[0], f.tenantID)
	require.True(t, res.Success, "generation failed: %v", res.Err)

	tpl := mustTemplate(t, f.store, tplID)
	assert.True(t, tpl.RecurringNextExecutionDate.Time.Equal(day(2025, 1, 1)))
	assert.Zero(t, tpl.RecurringTotalGenerated)
	assert.Equal(t, string(domain.RecurringPaused), tpl.RecurringStatus.String)
}

func Test_GenerateInvoiceFromTemplate_ConcurrentInsertOfSameCycle(t *testing.T) {
	clock := at(2025, 1, 1)
	f := newGeneratorFixture(clock)
	tplID := addTemplate(t, f.store, f.tenantID, templateOpts{next: day(2025, 1, 1)})
	templates := f.due(t, clock)

	// Another worker inserts this cycle's invoice after our pre-check.
	f.store.CreateInvoiceErr = func(arg repository.CreateInvoiceParams) error {
		f.store.CreateInvoiceErr = nil
		other := arg
		other.ID = repository.UUID(uuid.New())
		other.InvoiceNumber = repository.Text("RE-2025-0999")
		_, err := f.store.CreateInvoice(context.Background(), other)
		return err
	}

	res := f.generator.GenerateInvoiceFromTemplate(context.Background(), templates[0], f.tenantID)

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, domain.ErrDuplicateCycle)
	assert.Len(t, f.store.GeneratedInvoices(repository.UUID(tplID)), 1)
}

func Test_GenerateInvoiceFromTemplate_PublishFailureDoesNotFailGeneration(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	clock := at(2025, 1, 1)
	store := repotest.NewStore()
	tenantID := addTenant(store, "acme")
	addTemplate(t, store, tenantID, templateOpts{next: day(2025, 1, 1)})

	publisher := events.NewMockPublisher(ctrl)
	publisher.EXPECT().
		PublishInvoiceGenerated(gomock.Any(), gomock.Any()).
		Return(errors.New("nats: no servers available"))

	logger := discardLogger()
	gen := NewInvoiceGenerator(
		store,
		NewSequenceAllocator(store, clock, true, nil, logger),
		NewScheduleAdvancer(store, clock, nil, logger),
		publisher,
		clock,
		nil,
		logger,
	)

	templates, err := NewTemplateMatcher(store, nil, logger).FindDueTemplates(context.Background(), clock.Now(), tenantID)
	require.NoError(t, err)

	res := gen.GenerateInvoiceFromTemplate(context.Background(), templates[0], tenantID)
	assert.True(t, res.Success)
	assert.Equal(t, "RE-2025-0001", res.InvoiceNumber)
}

func Test_GenerateInvoiceFromTemplate_PanicIsContained(t *testing.T) {
	clock := at(2025, 1, 1)
	store := repotest.NewStore()
	tenantID := addTenant(store, "acme")
	tplID := addTemplate(t, store, tenantID, templateOpts{next: day(2025, 1, 1)})

	logger := discardLogger()
	gen := NewInvoiceGenerator(store, panickingAllocator{}, NewScheduleAdvancer(store, clock, nil, logger), nil, clock, nil, logger)

	templates, err := NewTemplateMatcher(store, nil, logger).FindDueTemplates(context.Background(), clock.Now(), tenantID)
	require.NoError(t, err)

	var res domain.GenerationResult
	require.NotPanics(t, func() {
		res = gen.GenerateInvoiceFromTemplate(context.Background(), templates[0], tenantID)
	})

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, domain.ErrGenerationPanicked)
	assert.Empty(t, store.GeneratedInvoices(repository.UUID(tplID)))
}

type panickingAllocator struct{}

func (panickingAllocator) AllocateNextInvoiceNumber(context.Context, uuid.UUID) (string, error) {
	panic("sequence store exploded")
}
