package workflow

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tolerances used when reconciling invoices against purchase orders
var (
	// DefaultMatchTolerance is the accepted relative variance between a PO
	// total and an invoice amount, in percent.
	DefaultMatchTolerance = decimal.NewFromInt(5)

	// FallbackRejectVariance is the hard cutoff applied when no anomaly
	// detector is available, in percent.
	FallbackRejectVariance = decimal.NewFromInt(10)
)

// MatchResult is the outcome of amount reconciliation between a purchase
// order and an invoice.
type MatchResult struct {
	IsMatch         bool            `json:"is_match"`
	POAmount        decimal.Decimal `json:"po_amount"`
	InvoiceAmount   decimal.Decimal `json:"invoice_amount"`
	VariancePercent decimal.Decimal `json:"variance_percent"`
	Reason          string          `json:"reason"`
}

// MatchAmounts reconciles an invoice amount against a PO total. The amounts
// match iff |po - invoice| / po <= tolerance percent. A zero PO total never
// matches a non-zero invoice.
func MatchAmounts(poTotal, invoiceAmount, tolerancePercent decimal.Decimal) MatchResult {
	result := MatchResult{
		POAmount:      poTotal,
		InvoiceAmount: invoiceAmount,
	}

	if poTotal.IsZero() {
		result.Reason = "PO total is zero"
		result.IsMatch = invoiceAmount.IsZero()
		return result
	}

	variance := poTotal.Sub(invoiceAmount).Abs().
		Div(poTotal.Abs()).
		Mul(decimal.NewFromInt(100))
	result.VariancePercent = variance
	result.IsMatch = variance.LessThanOrEqual(tolerancePercent)

	if result.IsMatch {
		result.Reason = "Match OK"
	} else {
		result.Reason = fmt.Sprintf("Variance %s%% exceeds tolerance %s%%",
			variance.Round(2).String(), tolerancePercent.String())
	}
	return result
}

// ThreeWayResult is the outcome of PO / goods-receipt / invoice reconciliation
type ThreeWayResult struct {
	IsMatch     bool     `json:"is_match"`
	GRDocuments []string `json:"gr_documents,omitempty"`
	Reason      string   `json:"reason"`
}
