// Package workflow implements the cross-module orchestrations: intelligent
// invoice processing and procure-to-pay. Each run owns one execution record;
// a failed or review-bound step freezes the record and later steps never run.
package workflow

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	appmm "github.com/sapflow/backend/internal/application/mm"
	"github.com/sapflow/backend/internal/application/sapops"
	domainfi "github.com/sapflow/backend/internal/domain/fi"
	domainmm "github.com/sapflow/backend/internal/domain/mm"
	dworkflow "github.com/sapflow/backend/internal/domain/workflow"
	"github.com/sapflow/backend/internal/infrastructure/config"
)

// Thresholds are the business limits the orchestrators enforce
type Thresholds struct {
	ApprovalThreshold     decimal.Decimal // invoice amount above which approval is required
	AutoPayCeiling        decimal.Decimal // amount up to which payment runs automatically
	MatchTolerancePercent decimal.Decimal
	RejectVariancePercent decimal.Decimal
}

// DefaultThresholds returns the standard limits
func DefaultThresholds() Thresholds {
	return Thresholds{
		ApprovalThreshold:     decimal.NewFromInt(10000),
		AutoPayCeiling:        decimal.NewFromInt(10000),
		MatchTolerancePercent: dworkflow.DefaultMatchTolerance,
		RejectVariancePercent: dworkflow.FallbackRejectVariance,
	}
}

// ThresholdsFromConfig converts the configured limits, falling back to the
// defaults for zero values.
func ThresholdsFromConfig(cfg config.WorkflowConfig) Thresholds {
	t := DefaultThresholds()
	if cfg.ApprovalThreshold > 0 {
		t.ApprovalThreshold = decimal.NewFromFloat(cfg.ApprovalThreshold)
	}
	if cfg.AutoPayCeiling > 0 {
		t.AutoPayCeiling = decimal.NewFromFloat(cfg.AutoPayCeiling)
	}
	if cfg.MatchTolerancePercent > 0 {
		t.MatchTolerancePercent = decimal.NewFromFloat(cfg.MatchTolerancePercent)
	}
	if cfg.RejectVariancePercent > 0 {
		t.RejectVariancePercent = decimal.NewFromFloat(cfg.RejectVariancePercent)
	}
	return t
}

// AccountsPayableService is the slice of the accounts payable module the
// orchestrators use.
type AccountsPayableService interface {
	PostInvoice(ctx context.Context, inv domainfi.VendorInvoice) (*sapops.PostResult, error)
	ProcessPayment(ctx context.Context, vendorCode string, amount decimal.Decimal, method domainfi.PaymentMethod) (*sapops.PostResult, error)
	ReadTable(ctx context.Context, table string, fields []string, where string, maxRows int) ([]map[string]string, error)
}

// PurchasingService is the slice of the purchasing module the orchestrators
// use.
type PurchasingService interface {
	Create(ctx context.Context, order domainmm.PurchaseOrder) (*sapops.PostResult, error)
	Get(ctx context.Context, poNumber string) (*appmm.OrderDetail, error)
	CreateGoodsReceipt(ctx context.Context, poNumber string, items []domainmm.GoodsReceiptItem) (*sapops.PostResult, error)
}

// poTotal sums quantity * net price over the line items of a read purchase
// order. Values arrive as JSON-decoded any; unparseable lines count as zero.
func poTotal(detail *appmm.OrderDetail) decimal.Decimal {
	total := decimal.Zero
	for _, item := range detail.Items {
		qty := decimalField(item["QUANTITY"])
		price := decimalField(item["NET_PRICE"])
		total = total.Add(qty.Mul(price))
	}
	return total
}

func decimalField(value any) decimal.Decimal {
	switch v := value.(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero
		}
		return d
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}
