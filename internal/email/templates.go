package email

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Andy54411/the-freelancer-marketing-sub041/internal/domain"
)

// EmailTemplate defines the interface for email templates
type EmailTemplate interface {
	Subject() string
	TemplateName() string
}

// RecurringInvoiceNotice tells a customer that a recurring invoice was issued.
type RecurringInvoiceNotice struct {
	TenantName    string
	CustomerName  string
	CustomerEmail string
	InvoiceNumber string
	InvoiceDate   time.Time
	DueDate       time.Time
	Title         string
	Intro         string
	Closing       string
	PaymentTerms  string
	Currency      string
	Items         []NoticeLine
	NetAmount     decimal.Decimal
	TaxRate       decimal.Decimal
}

// NoticeLine is one line item as shown in the notice.
type NoticeLine struct {
	Description string
	Quantity    decimal.Decimal
	Unit        string
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}

func (e RecurringInvoiceNotice) Subject() string {
	if e.TenantName == "" {
		return "Invoice " + e.InvoiceNumber
	}
	return "Invoice " + e.InvoiceNumber + " from " + e.TenantName
}

func (e RecurringInvoiceNotice) TemplateName() string {
	return "recurring_invoice.html"
}

// NewRecurringInvoiceNotice builds the notice for a generated invoice from
// its content snapshot.
func NewRecurringInvoiceNotice(tenantName, invoiceNumber string, content domain.InvoiceContent, invoiceDate, dueDate time.Time) RecurringInvoiceNotice {
	lines := make([]NoticeLine, 0, len(content.Items))
	for _, item := range content.Items {
		lines = append(lines, NoticeLine{
			Description: item.Description,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total(),
		})
	}

	return RecurringInvoiceNotice{
		TenantName:    tenantName,
		CustomerName:  content.Customer.Name,
		CustomerEmail: content.Customer.Email,
		InvoiceNumber: invoiceNumber,
		InvoiceDate:   invoiceDate,
		DueDate:       dueDate,
		Title:         content.Title,
		Intro:         content.Intro,
		Closing:       content.Closing,
		PaymentTerms:  content.PaymentTerms,
		Currency:      content.Currency,
		Items:         lines,
		NetAmount:     content.Subtotal(),
		TaxRate:       content.TaxRate,
	}
}
