// Package pdf renders invoices as printable PDF documents.
package pdf

import (
	"fmt"

	"github.com/icdtuning/garage/internal/billing"
	"github.com/icdtuning/garage/internal/config"
	"github.com/icdtuning/garage/internal/models"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	mconfig "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
)

var accent = &props.Color{Red: 209, Green: 46, Blue: 46}

// ChargeLine is one labelled amount on the invoice body.
type ChargeLine struct {
	Label  string
	Amount string
	Bold   bool
}

// Renderer draws invoices with the garage's letterhead.
type Renderer struct {
	business config.Business
}

// NewRenderer creates a renderer for business.
func NewRenderer(business config.Business) *Renderer {
	return &Renderer{business: business}
}

// Filename is the attachment name for inv.
func Filename(inv models.Invoice) string {
	return inv.InvoiceNumber + ".pdf"
}

// ChargeLines lists the charge breakdown in print order. The GST line is
// left out when no tax was charged.
func ChargeLines(inv models.Invoice) []ChargeLine {
	lines := []ChargeLine{
		{Label: "Labour Charges", Amount: amount(inv.LabourCharges)},
		{Label: "Parts Charges", Amount: amount(inv.PartsCharges)},
	}
	for _, p := range inv.Parts {
		lines = append(lines, ChargeLine{Label: "    " + p.PartName, Amount: amount(p.PartCharges)})
	}
	lines = append(lines,
		ChargeLine{Label: "ECU Tuning/Remapping", Amount: amount(inv.TuningCharges)},
		ChargeLine{Label: "Other Charges", Amount: amount(inv.OthersCharges)},
		ChargeLine{Label: "Subtotal", Amount: amount(inv.Subtotal), Bold: true},
	)
	if inv.GSTAmount > 0 {
		lines = append(lines, ChargeLine{
			Label:  fmt.Sprintf("GST (%s%%)", decimal.NewFromFloat(inv.GSTRate).StringFixed(1)),
			Amount: amount(inv.GSTAmount),
			Bold:   true,
		})
	}
	return lines
}

// Render produces the PDF bytes for inv issued against job.
func (r *Renderer) Render(inv models.Invoice, job models.Job) ([]byte, error) {
	cfg := mconfig.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(14,
		text.NewCol(8, r.business.Name, props.Text{Size: 20, Style: fontstyle.Bold}),
		text.NewCol(4, "INVOICE", props.Text{Size: 24, Style: fontstyle.Bold, Align: align.Right, Color: accent}),
	)
	m.AddRow(16,
		col.New(12).Add(
			text.New(r.business.Tagline, props.Text{Size: 9}),
			text.New(r.business.Address, props.Text{Size: 9, Top: 5}),
			text.New(r.business.Contact, props.Text{Size: 9, Top: 10}),
		),
	)

	m.AddRow(32,
		col.New(6).Add(
			text.New("Invoice No: "+inv.InvoiceNumber, props.Text{Style: fontstyle.Bold}),
			text.New("Date: "+inv.InvoiceDate.Format("02-01-2006"), props.Text{Top: 6}),
			text.New("Customer: "+job.CustomerName, props.Text{Top: 12}),
			text.New("Car: "+job.Vehicle(), props.Text{Top: 18}),
			text.New("Reg No: "+job.RegistrationNumber, props.Text{Top: 24}),
		),
		col.New(6).Add(
			text.New("Contact: "+job.ContactNumber, props.Text{Align: align.Right}),
			text.New("VIN: "+job.VIN, props.Text{Top: 6, Align: align.Right}),
			text.New(fmt.Sprintf("Odometer: %d km", job.Kms), props.Text{Top: 12, Align: align.Right}),
		),
	)
	m.AddRow(10, text.NewCol(12, "Work: "+truncate(job.WorkDescription, 90), props.Text{Size: 9}))

	m.AddRow(4, line.NewCol(12, props.Line{Color: accent}))
	m.AddRow(8,
		text.NewCol(8, "Description", props.Text{Style: fontstyle.Bold}),
		text.NewCol(4, "Amount (Rs.)", props.Text{Style: fontstyle.Bold, Align: align.Right}),
	)
	for _, l := range ChargeLines(inv) {
		style := fontstyle.Normal
		if l.Bold {
			style = fontstyle.Bold
		}
		m.AddRow(7,
			text.NewCol(8, l.Label, props.Text{Size: 10, Style: style}),
			text.NewCol(4, l.Amount, props.Text{Size: 10, Style: style, Align: align.Right}),
		)
	}
	m.AddRow(4, line.NewCol(12, props.Line{Color: accent}))
	m.AddRow(10,
		text.NewCol(8, "GRAND TOTAL", props.Text{Size: 14, Style: fontstyle.Bold, Color: accent}),
		text.NewCol(4, "Rs. "+amount(inv.GrandTotal), props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Right, Color: accent}),
	)

	m.AddRow(30,
		text.NewCol(6, "Signature: _______________________", props.Text{Size: 8, Top: 20}),
		text.NewCol(6, "Customer Signature: _______________________", props.Text{Size: 8, Top: 20, Align: align.Right}),
	)
	m.AddRow(8, text.NewCol(12, "Terms: "+r.business.Terms, props.Text{Size: 8, Style: fontstyle.Italic}))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate invoice %s: %w", inv.InvoiceNumber, err)
	}
	return doc.GetBytes(), nil
}

func amount(f float64) string {
	return billing.FormatAmount(decimal.NewFromFloat(f))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
