// Package events carries notifications emitted after a recurring invoice has
// been generated. Consumers (such as the email notifier) react to them
// asynchronously so their failures never reach the generator.
package events

import (
	"time"

	"github.com/google/uuid"
)

// SubjectInvoiceGenerated is the default NATS subject for InvoiceGenerated.
const SubjectInvoiceGenerated = "invoices.recurring.generated"

// EventNameInvoiceGenerated names the event in logs and headers.
const EventNameInvoiceGenerated = "invoice.generated"

// InvoiceGenerated is published once per invoice created from a template.
type InvoiceGenerated struct {
	ID            string    `json:"id"`
	TenantID      uuid.UUID `json:"tenant_id"`
	TemplateID    uuid.UUID `json:"template_id"`
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	CycleDate     time.Time `json:"cycle_date"`
	AutoSendEmail bool      `json:"auto_send_email"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewInvoiceGenerated fills in the event id.
func NewInvoiceGenerated(tenantID, templateID, invoiceID uuid.UUID, number string, cycle time.Time, autoSend bool, at time.Time) *InvoiceGenerated {
	return &InvoiceGenerated{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		TemplateID:    templateID,
		InvoiceID:     invoiceID,
		InvoiceNumber: number,
		CycleDate:     cycle,
		AutoSendEmail: autoSend,
		OccurredAt:    at,
	}
}
