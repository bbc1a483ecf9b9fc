package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
)

//go:generate mockgen -source=publisher.go -destination=mock_publisher.go -package=events

// Publisher emits invoice events.
type Publisher interface {
	PublishInvoiceGenerated(ctx context.Context, evt *InvoiceGenerated) error
	Close() error
}

// NATSPublisher publishes events as JSON on a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATSPublisher creates a publisher on conn. An empty subject uses
// SubjectInvoiceGenerated.
func NewNATSPublisher(conn *nats.Conn, subject string, logger *slog.Logger) *NATSPublisher {
	if subject == "" {
		subject = SubjectInvoiceGenerated
	}
	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With("component", "events", "subject", subject),
	}
}

func (p *NATSPublisher) PublishInvoiceGenerated(ctx context.Context, evt *InvoiceGenerated) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := encode(p.subject, evt)
	if err != nil {
		return err
	}

	if err := p.conn.PublishMsg(msg); err != nil {
		p.logger.Error("failed to publish invoice event",
			"error", err,
			"event_id", evt.ID,
			"tenant_id", evt.TenantID,
			"invoice_id", evt.InvoiceID,
		)
		return fmt.Errorf("failed to publish %s: %w", EventNameInvoiceGenerated, err)
	}

	p.logger.Debug("published invoice event",
		"event_id", evt.ID,
		"tenant_id", evt.TenantID,
		"invoice_id", evt.InvoiceID,
	)
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		return fmt.Errorf("failed to drain nats connection: %w", err)
	}
	return nil
}

func encode(subject string, evt *InvoiceGenerated) (*nats.Msg, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", EventNameInvoiceGenerated, err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = payload
	msg.Header.Set(nats.MsgIdHdr, evt.ID)
	msg.Header.Set("Event-Name", EventNameInvoiceGenerated)
	msg.Header.Set("Tenant-Id", evt.TenantID.String())
	return msg, nil
}

// Decode parses an InvoiceGenerated payload.
func Decode(data []byte) (*InvoiceGenerated, error) {
	var evt InvoiceGenerated
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", EventNameInvoiceGenerated, err)
	}
	return &evt, nil
}

// LogPublisher only logs events. Used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With("component", "events")}
}

func (p *LogPublisher) PublishInvoiceGenerated(ctx context.Context, evt *InvoiceGenerated) error {
	p.logger.Info("invoice generated",
		"event_id", evt.ID,
		"tenant_id", evt.TenantID,
		"template_id", evt.TemplateID,
		"invoice_id", evt.InvoiceID,
		"invoice_number", evt.InvoiceNumber,
		"auto_send_email", evt.AutoSendEmail,
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// MemoryPublisher records events in memory.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []InvoiceGenerated
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) PublishInvoiceGenerated(ctx context.Context, evt *InvoiceGenerated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *evt)
	return nil
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []InvoiceGenerated {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]InvoiceGenerated, len(p.events))
	copy(out, p.events)
	return out
}

func (p *MemoryPublisher) Close() error { return nil }

var (
	_ Publisher = (*NATSPublisher)(nil)
	_ Publisher = (*LogPublisher)(nil)
	_ Publisher = (*MemoryPublisher)(nil)
)
