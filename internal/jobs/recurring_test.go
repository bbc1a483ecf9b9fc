package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/domain"
)

type stubService struct {
	mu       sync.Mutex
	calls    int
	deadline time.Time
	release  chan struct{}
	started  chan struct{}
	err      error
}

func (s *stubService) ProcessScheduledExecutions(ctx context.Context, tenantID uuid.UUID) (domain.ProcessResult, error) {
	return domain.ProcessResult{}, nil
}

func (s *stubService) RunScheduled(ctx context.Context) (*domain.RunSummary, error) {
	s.mu.Lock()
	s.calls++
	s.deadline, _ = ctx.Deadline()
	s.mu.Unlock()

	if s.started != nil {
		close(s.started)
	}
	if s.release != nil {
		<-s.release
	}

	summary := &domain.RunSummary{ID: uuid.New(), Type: domain.RunSummaryScheduled}
	if s.err != nil {
		summary.Type = domain.RunSummaryScheduledError
		return summary, s.err
	}
	return summary, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func Test_RecurringInvoiceJob_Execute(t *testing.T) {
	svc := &stubService{}
	job := NewRecurringInvoiceJob(context.Background(), svc, 9*time.Minute, discardLogger())

	before := time.Now()
	summary, err := job.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.RunSummaryScheduled, summary.Type)
	assert.Equal(t, 1, svc.calls)
	assert.WithinDuration(t, before.Add(9*time.Minute), svc.deadline, 5*time.Second)
	assert.False(t, job.Running())
}

func Test_RecurringInvoiceJob_ExecuteReturnsRunFailure(t *testing.T) {
	svc := &stubService{err: domain.ErrTenantEnumeration}
	job := NewRecurringInvoiceJob(context.Background(), svc, 0, discardLogger())

	summary, err := job.Execute(context.Background())

	assert.ErrorIs(t, err, domain.ErrTenantEnumeration)
	require.NotNil(t, summary)
	assert.Equal(t, domain.RunSummaryScheduledError, summary.Type)
	assert.True(t, svc.deadline.IsZero(), "no timeout configured")
}

func Test_RecurringInvoiceJob_SkipsOverlappingRun(t *testing.T) {
	svc := &stubService{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	job := NewRecurringInvoiceJob(context.Background(), svc, time.Minute, discardLogger())

	done := make(chan error, 1)
	go func() {
		_, err := job.Execute(context.Background())
		done <- err
	}()

	<-svc.started
	assert.True(t, job.Running())

	_, err := job.Execute(context.Background())
	assert.True(t, errors.Is(err, ErrAlreadyRunning))

	close(svc.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, svc.calls)
}

func Test_RecurringInvoiceJob_RunUsesBaseContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := &stubService{}
	job := NewRecurringInvoiceJob(ctx, svc, time.Minute, discardLogger())

	job.Run()

	assert.Equal(t, 1, svc.calls)
}

func Test_Schedule(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	c := NewScheduler(berlin, discardLogger())
	job := NewRecurringInvoiceJob(context.Background(), &stubService{}, time.Minute, discardLogger())

	_, err = Schedule(c, "not a spec", job)
	assert.Error(t, err)

	id, err := Schedule(c, "0 3 * * *", job)
	require.NoError(t, err)

	schedule := c.Entry(id).Schedule
	from := time.Date(2025, 1, 10, 12, 0, 0, 0, berlin)
	next := schedule.Next(from)
	assert.Equal(t, time.Date(2025, 1, 11, 3, 0, 0, 0, berlin), next)

	var _ cron.Job = job
}
