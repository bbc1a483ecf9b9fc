package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/domain"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository/repotest"
)

func Test_AllocateNextInvoiceNumber_UsesSequenceRow(t *testing.T) {
	store := repotest.NewStore()
	tenantID := addTenant(store, "acme")
	seedSequence(store, tenantID, 2025, 1)

	alloc := NewSequenceAllocator(store, at(2025, 1, 15), true, nil, discardLogger())

	first, err := alloc.AllocateNextInvoiceNumber(context.Background(), tenantID)
	require.NoError(t, err)
	second, err := alloc.AllocateNextInvoiceNumber(context.Background(), tenantID)
	require.NoError(t, err)

	assert.Equal(t, "RE-2025-0001", first)
	assert.Equal(t, "RE-2025-0002", second)

	seq, ok := store.Sequence(repository.UUID(tenantID), domain.DocumentTypeInvoice, 2025)
	require.True(t, ok)
	assert.Equal(t, int64(3), seq.NextNumber)
}

func Test_AllocateNextInvoiceNumber_ConcurrentCallsAreUnique(t *testing.T) {
	tests := []struct {
		name       string
		seedRow    bool
		autoCreate bool
	}{
		{"existing sequence row", true, false},
		{"lazily seeded row", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const n = 50

			store := repotest.NewStore()
			tenantID := addTenant(store, "acme")
			if tt.seedRow {
				seedSequence(store, tenantID, 2025, 1)
			}
			alloc := NewSequenceAllocator(store, at(2025, 6, 1), tt.autoCreate, nil, discardLogger())

			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				numbers = make(map[string]int)
				errs    []error
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					num, err := alloc.AllocateNextInvoiceNumber(context.Background(), tenantID)
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						errs = append(errs, err)
						return
					}
					numbers[num]++
				}()
			}
			wg.Wait()

			require.Empty(t, errs)
			assert.Len(t, numbers, n, "every allocation must yield a distinct number")
			for i := 1; i <= n; i++ {
				assert.Equal(t, 1, numbers[domain.FormatInvoiceNumber(2025, int64(i))])
			}
		})
	}
}

func Test_AllocateNextInvoiceNumber_FallbackCountsExistingNumbers(t *testing.T) {
	store := repotest.NewStore()
	tenantID := addTenant(store, "acme")
	for _, num := range []string{"RE-2025-0001", "RE-2025-0002", "RE-2024-0007"} {
		store.PutInvoice(repository.Invoice{
			ID:            repository.UUID(uuid.New()),
			TenantID:      repository.UUID(tenantID),
			InvoiceNumber: repository.Text(num),
			Status:        "sent",
		})
	}

	alloc := NewSequenceAllocator(store, at(2025, 3, 1), false, nil, discardLogger())

	got, err := alloc.AllocateNextInvoiceNumber(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, "RE-2025-0003", got)

	_, ok := store.Sequence(repository.UUID(tenantID), domain.DocumentTypeInvoice, 2025)
	assert.False(t, ok, "fallback without auto-create must not create a sequence row")
}

func Test_AllocateNextInvoiceNumber_FallbackSeedsSequence(t *testing.T) {
	store := repotest.NewStore()
	tenantID := addTenant(store, "acme")
	store.PutInvoice(repository.Invoice{
		ID:            repository.UUID(uuid.New()),
		TenantID:      repository.UUID(tenantID),
		InvoiceNumber: repository.Text("RE-2025-0001"),
		Status:        "sent",
	})

	alloc := NewSequenceAllocator(store, at(2025, 3, 1), true, nil, discardLogger())

	first, err := alloc.AllocateNextInvoiceNumber(context.Background(), tenantID)
	require.NoError(t, err)
	second, err := alloc.AllocateNextInvoiceNumber(context.Background(), tenantID)
	require.NoError(t, err)

	assert.Equal(t, "RE-2025-0002", first)
	assert.Equal(t, "RE-2025-0003", second)

	seq, ok := store.Sequence(repository.UUID(tenantID), domain.DocumentTypeInvoice, 2025)
	require.True(t, ok)
	assert.Equal(t, int64(4), seq.NextNumber)
}

func Test_AllocateNextInvoiceNumber_YearRollover(t *testing.T) {
	store := repotest.NewStore()
	tenantID := addTenant(store, "acme")
	seedSequence(store, tenantID, 2025, 120)

	alloc := NewSequenceAllocator(store, at(2026, 1, 1), true, nil, discardLogger())

	got, err := alloc.AllocateNextInvoiceNumber(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, "RE-2026-0001", got)

	old, _ := store.Sequence(repository.UUID(tenantID), domain.DocumentTypeInvoice, 2025)
	assert.Equal(t, int64(120), old.NextNumber)
}

func Test_AllocateNextInvoiceNumber_TenantsAreIndependent(t *testing.T) {
	store := repotest.NewStore()
	acme := addTenant(store, "acme")
	globex := addTenant(store, "globex")
	seedSequence(store, acme, 2025, 10)
	seedSequence(store, globex, 2025, 1)

	alloc := NewSequenceAllocator(store, at(2025, 1, 1), true, nil, discardLogger())

	a, err := alloc.AllocateNextInvoiceNumber(context.Background(), acme)
	require.NoError(t, err)
	g, err := alloc.AllocateNextInvoiceNumber(context.Background(), globex)
	require.NoError(t, err)

	assert.Equal(t, "RE-2025-0010", a)
	assert.Equal(t, "RE-2025-0001", g)
}

func Test_AllocateNextInvoiceNumber_StorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockQuerier(ctrl)
	mockRepo.EXPECT().
		IncrementNumberSequence(gomock.Any(), gomock.Any()).
		Return(int64(0), errors.New("connection refused"))

	alloc := NewSequenceAllocator(mockRepo, at(2025, 1, 1), true, nil, discardLogger())

	_, err := alloc.AllocateNextInvoiceNumber(context.Background(), uuid.New())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAllocationFailed)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func Test_AllocateNextInvoiceNumber_FallbackCountFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockQuerier(ctrl)
	mockRepo.EXPECT().
		IncrementNumberSequence(gomock.Any(), gomock.Any()).
		Return(int64(0), pgx.ErrNoRows)
	mockRepo.EXPECT().
		CountInvoiceNumbers(gomock.Any(), gomock.Any()).
		Return(int64(0), errors.New("timeout"))

	alloc := NewSequenceAllocator(mockRepo, at(2025, 1, 1), true, nil, discardLogger())

	_, err := alloc.AllocateNextInvoiceNumber(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrAllocationFailed)
}

func Test_AllocateNextInvoiceNumber_LostSeedRaceRetriesIncrement(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tenantID := uuid.New()
	key := repository.IncrementNumberSequenceParams{
		TenantID:     repository.UUID(tenantID),
		DocumentType: domain.DocumentTypeInvoice,
		Year:         2025,
	}

	mockRepo := repository.NewMockQuerier(ctrl)
	gomock.InOrder(
		mockRepo.EXPECT().IncrementNumberSequence(gomock.Any(), key).Return(int64(0), pgx.ErrNoRows),
		mockRepo.EXPECT().CountInvoiceNumbers(gomock.Any(), repository.CountInvoiceNumbersParams{
			TenantID: repository.UUID(tenantID),
			Prefix:   "RE-2025-",
		}).Return(int64(0), nil),
		mockRepo.EXPECT().SeedNumberSequence(gomock.Any(), gomock.Any()).Return(int64(0), pgx.ErrNoRows),
		mockRepo.EXPECT().IncrementNumberSequence(gomock.Any(), key).Return(int64(2), nil),
	)

	alloc := NewSequenceAllocator(mockRepo, at(2025, 1, 1), true, nil, discardLogger())

	got, err := alloc.AllocateNextInvoiceNumber(context.Background(), tenantID)

	require.NoError(t, err)
	assert.Equal(t, "RE-2025-0002", got)
}
