// Package notify publishes customer messages and job events for downstream
// gateways (WhatsApp, email) to deliver.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/icdtuning/garage/internal/billing"
	"github.com/icdtuning/garage/internal/models"
	"github.com/shopspring/decimal"
)

// Channel is the delivery medium a gateway should use.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
)

// Notification is one outbound message.
type Notification struct {
	Channel   Channel   `json:"channel"`
	To        string    `json:"to"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	JobID     string    `json:"job_id,omitempty"`
	InvoiceID string    `json:"invoice_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusEvent records a job moving between workflow statuses.
type StatusEvent struct {
	JobID     string        `json:"job_id"`
	From      models.Status `json:"from"`
	To        models.Status `json:"to"`
	ChangedBy string        `json:"changed_by"`
	At        time.Time     `json:"at"`
}

// Publisher delivers notifications and status events.
type Publisher interface {
	Notify(ctx context.Context, n Notification) error
	StatusChanged(ctx context.Context, e StatusEvent) error
}

// ReadyForDelivery builds the WhatsApp confirmation sent when a car is done.
func ReadyForDelivery(job models.Job, businessName string, now time.Time) Notification {
	return Notification{
		Channel:   ChannelWhatsApp,
		To:        job.ContactNumber,
		Message:   fmt.Sprintf("Hi %s, your %s service is completed and ready for delivery. - %s", job.CustomerName, job.CarModel, businessName),
		JobID:     job.ID.Hex(),
		CreatedAt: now,
	}
}

// InvoiceForCustomer builds the WhatsApp message announcing an invoice.
func InvoiceForCustomer(inv models.Invoice, job models.Job, now time.Time) Notification {
	total := billing.FormatAmount(decimal.NewFromFloat(inv.GrandTotal))
	return Notification{
		Channel:   ChannelWhatsApp,
		To:        job.ContactNumber,
		Message:   fmt.Sprintf("Your invoice %s is ready. Total: ₹%s", inv.InvoiceNumber, total),
		JobID:     inv.JobID,
		InvoiceID: inv.ID.Hex(),
		CreatedAt: now,
	}
}

// InvoiceForAccountant builds the email that forwards an invoice to the books.
func InvoiceForAccountant(inv models.Invoice, job models.Job, email string, now time.Time) Notification {
	return Notification{
		Channel:   ChannelEmail,
		To:        email,
		Subject:   "Invoice " + inv.InvoiceNumber,
		Message:   fmt.Sprintf("Invoice for %s - %s", job.CustomerName, job.CarModel),
		JobID:     inv.JobID,
		InvoiceID: inv.ID.Hex(),
		CreatedAt: now,
	}
}
