// Package billing computes invoice totals for garage jobs.
//
// Calculate never fails: negative, NaN and infinite inputs count as zero,
// and Amount decodes anything non-numeric to zero. Validation of charge
// entry belongs to the caller.
package billing

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultGSTRate is applied when an invoice request omits the rate.
const DefaultGSTRate = 18.0

var hundred = decimal.NewFromInt(100)

// Amount is a charge entered by a user. It decodes JSON numbers and numeric
// strings; every other value decodes to 0.
type Amount float64

// UnmarshalJSON implements json.Unmarshaler and never returns an error.
func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	*a = Amount(f)
	return nil
}

// Part is a named parts line on an invoice.
type Part struct {
	Name   string
	Charge float64
}

// Charges are the inputs to an invoice calculation. GSTRate is a percentage.
type Charges struct {
	Labour  float64
	Parts   []Part
	Tuning  float64
	Others  float64
	GSTRate float64
}

// Totals are the derived invoice amounts, rounded to 2 decimal places.
// GrandTotal always equals Subtotal + GST.
type Totals struct {
	PartsTotal decimal.Decimal
	Subtotal   decimal.Decimal
	GST        decimal.Decimal
	GrandTotal decimal.Decimal
}

// Calculate derives invoice totals from c.
func Calculate(c Charges) Totals {
	partsTotal := decimal.Zero
	for _, p := range c.Parts {
		partsTotal = partsTotal.Add(sanitize(p.Charge))
	}

	subtotal := sanitize(c.Labour).
		Add(partsTotal).
		Add(sanitize(c.Tuning)).
		Add(sanitize(c.Others))

	gst := subtotal.Mul(sanitize(c.GSTRate)).Div(hundred)

	partsTotal = partsTotal.Round(2)
	subtotal = subtotal.Round(2)
	gst = gst.Round(2)

	return Totals{
		PartsTotal: partsTotal,
		Subtotal:   subtotal,
		GST:        gst,
		GrandTotal: subtotal.Add(gst),
	}
}

// FormatAmount renders d with exactly two decimal places.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ToFloat converts a rounded total into the float stored on invoice records.
func ToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

// Normalize applies the calculator's input coercion to f and rounds it to
// 2 decimal places.
func Normalize(f float64) float64 {
	return ToFloat(sanitize(f).Round(2))
}

func sanitize(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
