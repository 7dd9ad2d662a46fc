package models

import (
	"time"

	"github.com/icdtuning/garage/internal/billing"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InvoicePart is a parts line on a persisted invoice.
type InvoicePart struct {
	PartName    string  `bson:"part_name" json:"part_name"`
	PartCharges float64 `bson:"part_charges" json:"part_charges"`
}

// Invoice is a GST invoice issued against a completed job. Amounts are
// stored rounded to 2 decimal places.
type Invoice struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	InvoiceNumber    string             `bson:"invoice_number" json:"invoice_number"`
	JobID            string             `bson:"job_id" json:"job_id"`
	InvoiceDate      time.Time          `bson:"invoice_date" json:"invoice_date"`
	LabourCharges    float64            `bson:"labour_charges" json:"labour_charges"`
	Parts            []InvoicePart      `bson:"parts" json:"parts"`
	PartsCharges     float64            `bson:"parts_charges" json:"parts_charges"`
	TuningCharges    float64            `bson:"tuning_charges" json:"tuning_charges"`
	OthersCharges    float64            `bson:"others_charges" json:"others_charges"`
	GSTRate          float64            `bson:"gst_rate" json:"gst_rate"`
	Subtotal         float64            `bson:"subtotal" json:"subtotal"`
	GSTAmount        float64            `bson:"gst_amount" json:"gst_amount"`
	GrandTotal       float64            `bson:"grand_total" json:"grand_total"`
	SentToCustomer   bool               `bson:"sent_to_customer" json:"sent_to_customer"`
	SentToAccountant bool               `bson:"sent_to_accountant" json:"sent_to_accountant"`
	CreatedBy        string             `bson:"created_by" json:"created_by"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
}

// PartItem is a parts line as entered on the invoice form.
type PartItem struct {
	PartName    string         `json:"part_name"`
	PartCharges billing.Amount `json:"part_charges"`
}

// InvoiceCreateRequest represents an invoice creation request.
type InvoiceCreateRequest struct {
	JobID         string          `json:"job_id"`
	LabourCharges billing.Amount  `json:"labour_charges"`
	Parts         []PartItem      `json:"parts"`
	TuningCharges billing.Amount  `json:"tuning_charges"`
	OthersCharges billing.Amount  `json:"others_charges"`
	GSTRate       *billing.Amount `json:"gst_rate,omitempty"`
	InvoiceNumber string          `json:"invoice_number,omitempty"`
	InvoiceDate   string          `json:"invoice_date,omitempty"`
}

// Charges converts the request into calculator input, applying
// defaultGSTRate when the request carries no rate.
func (r InvoiceCreateRequest) Charges(defaultGSTRate float64) billing.Charges {
	rate := defaultGSTRate
	if r.GSTRate != nil {
		rate = float64(*r.GSTRate)
	}
	parts := make([]billing.Part, len(r.Parts))
	for i, p := range r.Parts {
		parts[i] = billing.Part{Name: p.PartName, Charge: float64(p.PartCharges)}
	}
	return billing.Charges{
		Labour:  float64(r.LabourCharges),
		Parts:   parts,
		Tuning:  float64(r.TuningCharges),
		Others:  float64(r.OthersCharges),
		GSTRate: rate,
	}
}

// NewInvoice computes totals for c and builds the invoice record.
func NewInvoice(jobID, number string, date time.Time, c billing.Charges, createdBy string, now time.Time) Invoice {
	totals := billing.Calculate(c)

	parts := make([]InvoicePart, len(c.Parts))
	for i, p := range c.Parts {
		parts[i] = InvoicePart{PartName: p.Name, PartCharges: billing.Normalize(p.Charge)}
	}

	return Invoice{
		ID:            primitive.NewObjectID(),
		InvoiceNumber: number,
		JobID:         jobID,
		InvoiceDate:   date,
		LabourCharges: billing.Normalize(c.Labour),
		Parts:         parts,
		PartsCharges:  billing.ToFloat(totals.PartsTotal),
		TuningCharges: billing.Normalize(c.Tuning),
		OthersCharges: billing.Normalize(c.Others),
		GSTRate:       billing.Normalize(c.GSTRate),
		Subtotal:      billing.ToFloat(totals.Subtotal),
		GSTAmount:     billing.ToFloat(totals.GST),
		GrandTotal:    billing.ToFloat(totals.GrandTotal),
		CreatedBy:     createdBy,
		CreatedAt:     now,
	}
}

// Recipient is who an invoice is sent to.
type Recipient string

const (
	RecipientCustomer   Recipient = "customer"
	RecipientAccountant Recipient = "accountant"
)

// IsValidRecipient reports whether r is a known send target.
func IsValidRecipient(r Recipient) bool {
	return r == RecipientCustomer || r == RecipientAccountant
}
