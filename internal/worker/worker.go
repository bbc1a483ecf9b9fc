package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/nats-io/nats.go"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/domain"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/email"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/events"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/repository"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/telemetry"
	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/tenant"
)

// Notification results, used as the metrics label.
const (
	ResultSent    = "sent"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// Config holds worker configuration
type Config struct {
	// Subject to consume (default events.SubjectInvoiceGenerated)
	Subject string

	// Queue group shared by all worker instances so each event is handled once
	Queue string

	// MaxConcurrency is the maximum number of events handled concurrently
	MaxConcurrency int

	// HandleTimeout bounds a single event, including the SMTP exchange
	HandleTimeout time.Duration

	// BufferSize is the capacity of the subscription channel
	BufferSize int
}

// Notifier sends the customer notice for a generated invoice.
type Notifier interface {
	SendRecurringInvoiceNotice(ctx context.Context, data email.RecurringInvoiceNotice) (string, error)
}

// NotificationWorker emails customers of templates with auto-send enabled
// after their invoice was generated.
type NotificationWorker struct {
	config   Config
	queries  repository.Querier
	tenants  tenant.Resolver
	notifier Notifier
	metrics  *telemetry.RecurringMetrics
	logger   *slog.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(
	queries repository.Querier,
	tenants tenant.Resolver,
	notifier Notifier,
	config Config,
	metrics *telemetry.RecurringMetrics,
	logger *slog.Logger,
) *NotificationWorker {
	if config.Subject == "" {
		config.Subject = events.SubjectInvoiceGenerated
	}
	if config.Queue == "" {
		config.Queue = "invoice-notifier"
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 5
	}
	if config.HandleTimeout == 0 {
		config.HandleTimeout = time.Minute
	}
	if config.BufferSize <= 0 {
		config.BufferSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &NotificationWorker{
		config:   config,
		queries:  queries,
		tenants:  tenants,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger.With("component", "notification_worker"),
	}
}

// Start consumes events until ctx is cancelled, then waits for in-flight
// handlers before returning.
func (w *NotificationWorker) Start(ctx context.Context, conn *nats.Conn) error {
	msgs := make(chan *nats.Msg, w.config.BufferSize)
	sub, err := conn.ChanQueueSubscribe(w.config.Subject, w.config.Queue, msgs)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", w.config.Subject, err)
	}

	w.logger.Info("worker starting",
		"subject", w.config.Subject,
		"queue", w.config.Queue,
		"max_concurrency", w.config.MaxConcurrency,
	)

	var wg sync.WaitGroup
	sem := make(chan struct{}, w.config.MaxConcurrency)

	defer func() {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			w.logger.Warn("failed to unsubscribe", "error", err)
		}
		wg.Wait()
		w.logger.Info("worker stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down")
			return nil

		case msg := <-msgs:
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return nil
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				// Handlers outlive the shutdown signal so a started email is
				// not cut off mid-exchange.
				_ = w.Handle(context.WithoutCancel(ctx), msg.Data)
			}()
		}
	}
}

// Handle processes one encoded InvoiceGenerated event. It returns the error
// for tests; Start only logs it.
func (w *NotificationWorker) Handle(ctx context.Context, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notification handler panicked: %v", r)
			w.logger.Error("notification handler panicked", "panic", r)
			telemetry.CaptureError(err, nil)
		}
	}()

	evt, err := events.Decode(data)
	if err != nil {
		w.logger.Error("dropping malformed event", "error", err)
		return err
	}

	logger := w.logger.With(
		"event_id", evt.ID,
		"tenant_id", evt.TenantID,
		"invoice_id", evt.InvoiceID,
		"invoice_number", evt.InvoiceNumber,
	)

	if !evt.AutoSendEmail {
		w.metrics.Notification(evt.TenantID.String(), ResultSkipped)
		logger.Debug("auto-send disabled, no notification")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, w.config.HandleTimeout)
	defer cancel()

	messageID, err := w.notify(ctx, evt)
	if err != nil {
		if errors.Is(err, email.ErrNoRecipient) {
			w.metrics.Notification(evt.TenantID.String(), ResultSkipped)
			logger.Warn("customer has no email address, notification skipped")
			return nil
		}
		w.metrics.Notification(evt.TenantID.String(), ResultFailed)
		logger.Error("failed to send invoice notification", "error", err)
		telemetry.CaptureErrorWithTenant(err, evt.TenantID.String(), map[string]interface{}{
			"invoice_id": evt.InvoiceID.String(),
		})
		return err
	}

	w.metrics.Notification(evt.TenantID.String(), ResultSent)
	logger.Info("invoice notification sent", "message_id", messageID)
	return nil
}

func (w *NotificationWorker) notify(ctx context.Context, evt *events.InvoiceGenerated) (string, error) {
	ctx, t, err := withTenantContext(ctx, w.tenants, evt.TenantID)
	if err != nil {
		return "", err
	}
	if !t.IsActive() {
		return "", fmt.Errorf("tenant %s is %s", t, t.Status)
	}

	row, err := w.queries.GetInvoice(ctx, repository.GetInvoiceParams{
		ID:       repository.UUID(evt.InvoiceID),
		TenantID: repository.UUID(evt.TenantID),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.NotFound("worker.notify", "invoice", evt.InvoiceID.String())
		}
		return "", fmt.Errorf("failed to load invoice: %w", err)
	}

	var content domain.InvoiceContent
	if err := json.Unmarshal(row.Content, &content); err != nil {
		return "", fmt.Errorf("failed to decode invoice content: %w", err)
	}

	notice := email.NewRecurringInvoiceNotice(
		t.Name,
		row.InvoiceNumber.String,
		content,
		row.InvoiceDate.Time,
		row.ValidUntil.Time,
	)
	return w.notifier.SendRecurringInvoiceNotice(ctx, notice)
}
