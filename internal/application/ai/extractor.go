// Package ai holds the decision collaborators the workflows consult: invoice
// field extraction, anomaly detection and process classification. The
// workflows treat them as opaque oracles behind interfaces; the default
// implementations are deterministic heuristics so the pipeline works without
// any model service.
package ai

import (
	"context"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ExtractedInvoice is the structured result of invoice text extraction.
// Missing fields stay empty; Confidence reflects how many of the core fields
// were found.
type ExtractedInvoice struct {
	Vendor        string          `json:"vendor"`
	InvoiceNumber string          `json:"invoice_number"`
	Date          string          `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PONumber      string          `json:"po_number"`
	TaxID         string          `json:"tax_id"`
	Confidence    float64         `json:"confidence"`
}

// FieldExtractor turns raw invoice text into structured fields
type FieldExtractor interface {
	Extract(ctx context.Context, text string) (ExtractedInvoice, error)
}

var (
	invoiceNumberRe = regexp.MustCompile(`(?i)invoice\s*(?:no\.?|number|#)?\s*[:#]?\s*([A-Z0-9][A-Z0-9/-]{2,})`)
	poNumberRe      = regexp.MustCompile(`(?i)(?:purchase\s+order|p\.?o\.?)\s*(?:no\.?|number|#)?\s*[:#]?\s*([0-9][0-9-]{4,})`)
	dateRe          = regexp.MustCompile(`(?i)(?:invoice\s+)?date\s*[:#]?\s*(\d{4}[-/]\d{2}[-/]\d{2}|\d{2}[./]\d{2}[./]\d{4})`)
	amountRe        = regexp.MustCompile(`(?i)(?:total|amount\s+due|amount|balance\s+due)\s*[:#]?\s*(?:USD|EUR|GBP)?\s*[$€£]?\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)
	taxIDRe         = regexp.MustCompile(`(?i)(?:tax\s+id|vat)\s*[:#]?\s*([A-Z0-9-]{6,})`)
	currencyRe      = regexp.MustCompile(`\b(USD|EUR|GBP|CHF|JPY)\b`)
	vendorRe        = regexp.MustCompile(`(?i)(?:from|vendor|supplier)\s*[:#]\s*(.+)`)
)

// RegexExtractor extracts invoice fields with fixed patterns. It is the
// default FieldExtractor; an OCR/LLM-backed extractor can replace it without
// touching the workflow.
type RegexExtractor struct{}

// NewRegexExtractor creates the default pattern-based extractor
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

// Extract parses the invoice text. It never fails; absent fields lower the
// confidence instead.
func (e *RegexExtractor) Extract(ctx context.Context, text string) (ExtractedInvoice, error) {
	inv := ExtractedInvoice{Currency: "USD"}

	if m := invoiceNumberRe.FindStringSubmatch(text); m != nil {
		inv.InvoiceNumber = strings.TrimSpace(m[1])
	}
	if m := poNumberRe.FindStringSubmatch(text); m != nil {
		inv.PONumber = strings.TrimSpace(m[1])
	}
	if m := dateRe.FindStringSubmatch(text); m != nil {
		inv.Date = strings.TrimSpace(m[1])
	}
	if m := amountRe.FindStringSubmatch(text); m != nil {
		raw := strings.ReplaceAll(m[1], ",", "")
		inv.Amount, _ = decimal.NewFromString(raw)
	}
	if m := taxIDRe.FindStringSubmatch(text); m != nil {
		inv.TaxID = strings.TrimSpace(m[1])
	}
	if m := currencyRe.FindStringSubmatch(text); m != nil {
		inv.Currency = m[1]
	}
	if m := vendorRe.FindStringSubmatch(text); m != nil {
		inv.Vendor = strings.TrimSpace(m[1])
	} else {
		inv.Vendor = firstNonEmptyLine(text)
	}

	inv.Confidence = confidence(inv)
	return inv, nil
}

// firstNonEmptyLine is the vendor fallback: invoices usually lead with the
// issuer's name.
func firstNonEmptyLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// confidence weighs the core posting fields; PO number and tax id are
// optional and do not count.
func confidence(inv ExtractedInvoice) float64 {
	found := 0
	if inv.Vendor != "" {
		found++
	}
	if inv.InvoiceNumber != "" {
		found++
	}
	if inv.Date != "" {
		found++
	}
	if inv.Amount.GreaterThan(decimal.Zero) {
		found++
	}
	return float64(found) / 4.0
}
