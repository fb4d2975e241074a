package ai

import (
	"context"

	"github.com/shopspring/decimal"
)

// TransactionFeatures are the inputs to anomaly scoring for one invoice
// against its purchase order.
type TransactionFeatures struct {
	Amount          decimal.Decimal `json:"amount"`
	ExpectedAmount  decimal.Decimal `json:"expected_amount"`
	VariancePercent decimal.Decimal `json:"variance_percent"`
	Vendor          string          `json:"vendor"`
}

// AnomalyDetector scores a transaction and decides whether it needs manual
// review.
type AnomalyDetector interface {
	Detect(ctx context.Context, features TransactionFeatures) (bool, float64, error)
}

// VarianceDetector is the default AnomalyDetector: a pure variance heuristic
// with the same cutoff the workflows fall back to when no detector is
// configured.
type VarianceDetector struct {
	// RejectVariancePercent is the variance above which the transaction is
	// anomalous. Zero means the 10% default.
	RejectVariancePercent decimal.Decimal
}

// NewVarianceDetector creates a detector with the default 10% cutoff
func NewVarianceDetector() *VarianceDetector {
	return &VarianceDetector{}
}

// scoreScale maps variance to a 0..1 score: 25% variance and above saturates
// at 1.0.
var scoreScale = decimal.NewFromInt(25)

// Detect flags the transaction as anomalous when the variance exceeds the
// cutoff. The score grows linearly with variance and saturates at 1.
func (d *VarianceDetector) Detect(ctx context.Context, features TransactionFeatures) (bool, float64, error) {
	cutoff := d.RejectVariancePercent
	if cutoff.IsZero() {
		cutoff = decimal.NewFromInt(10)
	}

	score := features.VariancePercent.Div(scoreScale)
	if score.GreaterThan(decimal.NewFromInt(1)) {
		score = decimal.NewFromInt(1)
	}

	return features.VariancePercent.GreaterThan(cutoff), score.InexactFloat64(), nil
}
