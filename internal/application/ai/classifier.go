package ai

import (
	"context"

	"github.com/shopspring/decimal"
)

// Urgency levels as classifier features
const (
	UrgencyNormal    = 0
	UrgencyUrgent    = 1
	UrgencyEmergency = 2
)

// RequestFeatures are the inputs to process classification
type RequestFeatures struct {
	Amount         decimal.Decimal `json:"amount"`
	Urgency        int             `json:"urgency"`
	ItemCount      int             `json:"item_count"`
	VendorCategory int             `json:"vendor_category"`
}

// Prediction is the classification outcome the workflow records
type Prediction struct {
	ProcessType       string  `json:"process_type"`
	Confidence        float64 `json:"confidence"`
	RecommendedAction string  `json:"recommended_action"`
	EstimatedTime     int     `json:"estimated_time"`
}

// DefaultPrediction is what a workflow falls back to when classification
// fails: treat the request as standard but route it to a human.
func DefaultPrediction() Prediction {
	return Prediction{
		ProcessType:       "standard_procurement",
		Confidence:        0.5,
		RecommendedAction: "MANUAL_REVIEW",
		EstimatedTime:     300,
	}
}

// ProcessClassifier categorizes a procurement request
type ProcessClassifier interface {
	Predict(ctx context.Context, features RequestFeatures) (Prediction, error)
}

// RuleClassifier is the default ProcessClassifier: fixed rules ordered by
// priority. Emergency beats amount beats volume.
type RuleClassifier struct{}

// NewRuleClassifier creates the default rule-based classifier
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

var highValueThreshold = decimal.NewFromInt(10000)

// Predict classifies the request. It never fails.
func (c *RuleClassifier) Predict(ctx context.Context, features RequestFeatures) (Prediction, error) {
	switch {
	case features.Urgency >= UrgencyEmergency:
		return Prediction{
			ProcessType:       "emergency_procurement",
			Confidence:        0.9,
			RecommendedAction: "EXPEDITE",
			EstimatedTime:     60,
		}, nil
	case features.Amount.GreaterThan(highValueThreshold):
		return Prediction{
			ProcessType:       "high_value_procurement",
			Confidence:        0.8,
			RecommendedAction: "MANAGER_APPROVAL",
			EstimatedTime:     600,
		}, nil
	case features.ItemCount > 10:
		return Prediction{
			ProcessType:       "bulk_procurement",
			Confidence:        0.75,
			RecommendedAction: "AUTO_PROCESS",
			EstimatedTime:     450,
		}, nil
	default:
		return Prediction{
			ProcessType:       "standard_procurement",
			Confidence:        0.85,
			RecommendedAction: "AUTO_PROCESS",
			EstimatedTime:     300,
		}, nil
	}
}
