package billing

import (
	"fmt"
	"strings"
	"time"
)

// DefaultInvoicePrefix is the leading token of generated invoice numbers.
const DefaultInvoicePrefix = "ICD"

// FormatInvoiceNumber builds "<prefix>-<year>-<seq>" with the sequence
// zero-padded to four digits, e.g. ICD-2025-0007.
func FormatInvoiceNumber(prefix string, issuedAt time.Time, seq int64) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("invoice number prefix is empty")
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}
	return fmt.Sprintf("%s-%d-%04d", prefix, issuedAt.Year(), seq), nil
}
