package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sapflow/backend/internal/application/ai"
	domainfi "github.com/sapflow/backend/internal/domain/fi"
	domainmm "github.com/sapflow/backend/internal/domain/mm"
	dworkflow "github.com/sapflow/backend/internal/domain/workflow"
	"github.com/sapflow/backend/internal/infrastructure/alerting"
	"github.com/sapflow/backend/internal/infrastructure/logger"
)

// Urgency levels of a procurement request
const (
	UrgencyNormal    = "normal"
	UrgencyUrgent    = "urgent"
	UrgencyEmergency = "emergency"
)

// ProcureToPayRequest is one end-to-end procurement request
type ProcureToPayRequest struct {
	RequisitionID string                       `json:"requisition_id"`
	Vendor        string                       `json:"vendor"`
	Materials     []domainmm.PurchaseOrderItem `json:"materials"`
	TotalAmount   decimal.Decimal              `json:"total_amount"`
	Urgency       string                       `json:"urgency"`
	Requester     string                       `json:"requester"`
	CostCenter    string                       `json:"cost_center"`
}

// ProcureToPayResult is the execution record plus the upfront classification
type ProcureToPayResult struct {
	*dworkflow.Execution
	Classification ai.Prediction `json:"classification"`
}

// ProcureToPay drives an end-to-end procurement: classify, create the
// purchase order, receive goods, verify the invoice amount, post the invoice
// and optionally pay. There is no compensation: the execution record lists
// every posted document so a failed run can be reversed manually.
type ProcureToPay struct {
	purchasing PurchasingService
	accounts   AccountsPayableService
	classifier ai.ProcessClassifier
	detector   ai.AnomalyDetector
	alerts     alerting.Notifier
	thresholds Thresholds
	tracker    *dworkflow.Tracker
}

// ProcureToPayOptions configures optional collaborators
type ProcureToPayOptions struct {
	Classifier ai.ProcessClassifier
	Detector   ai.AnomalyDetector
	Alerts     alerting.Notifier
	Thresholds *Thresholds
	Tracker    *dworkflow.Tracker
}

// NewProcureToPay creates the procure-to-pay workflow
func NewProcureToPay(purchasing PurchasingService, accounts AccountsPayableService, opts ProcureToPayOptions) *ProcureToPay {
	wf := &ProcureToPay{
		purchasing: purchasing,
		accounts:   accounts,
		classifier: opts.Classifier,
		detector:   opts.Detector,
		alerts:     opts.Alerts,
		thresholds: DefaultThresholds(),
		tracker:    opts.Tracker,
	}
	if wf.alerts == nil {
		wf.alerts = alerting.NopNotifier{}
	}
	if opts.Thresholds != nil {
		wf.thresholds = *opts.Thresholds
	}
	if wf.tracker == nil {
		wf.tracker = dworkflow.NewTracker(0)
	}
	return wf
}

// Tracker returns the execution tracker for status queries
func (wf *ProcureToPay) Tracker() *dworkflow.Tracker { return wf.tracker }

// Execute runs the workflow to a terminal status. The returned result is
// also registered with the tracker under its workflow id.
func (wf *ProcureToPay) Execute(ctx context.Context, req ProcureToPayRequest) *ProcureToPayResult {
	exec := dworkflow.NewExecution("P2P")
	wf.tracker.Add(exec)

	log := logger.L(ctx).With(zap.String("workflow_id", exec.ID))
	log.Info("starting procure-to-pay",
		zap.String("requisition_id", req.RequisitionID),
		zap.String("vendor", req.Vendor))

	result := &ProcureToPayResult{
		Execution:      exec,
		Classification: wf.classify(ctx, req),
	}

	poNumber, ok := wf.createPurchaseOrder(ctx, exec, req)
	if !ok {
		wf.notifyFailure(ctx, exec, req)
		return result
	}

	if !wf.postGoodsReceipt(ctx, exec, poNumber, req.Materials) {
		wf.notifyFailure(ctx, exec, req)
		return result
	}

	if !wf.verifyInvoiceAmount(ctx, exec, poNumber, req) {
		// a review outcome is a human handoff, not a failure
		if exec.Status == dworkflow.StatusFailed {
			wf.notifyFailure(ctx, exec, req)
		}
		return result
	}

	if !wf.postInvoice(ctx, exec, poNumber, req) {
		wf.notifyFailure(ctx, exec, req)
		return result
	}

	if wf.shouldAutoPay(ctx, req) {
		if !wf.processPayment(ctx, exec, req) {
			wf.notifyFailure(ctx, exec, req)
			return result
		}
	}

	exec.Finish(dworkflow.StatusCompleted)
	log.Info("procure-to-pay completed", zap.Strings("steps", exec.StepsCompleted))
	return result
}

// classify scores the request upfront; classification never blocks the run
func (wf *ProcureToPay) classify(ctx context.Context, req ProcureToPayRequest) ai.Prediction {
	if wf.classifier == nil {
		return ai.DefaultPrediction()
	}

	prediction, err := wf.classifier.Predict(ctx, ai.RequestFeatures{
		Amount:         req.TotalAmount,
		Urgency:        urgencyLevel(req.Urgency),
		ItemCount:      len(req.Materials),
		VendorCategory: 1,
	})
	if err != nil {
		logger.L(ctx).Warn("classification failed, using defaults", zap.Error(err))
		return ai.DefaultPrediction()
	}
	return prediction
}

func urgencyLevel(urgency string) int {
	switch urgency {
	case UrgencyUrgent:
		return ai.UrgencyUrgent
	case UrgencyEmergency:
		return ai.UrgencyEmergency
	default:
		return ai.UrgencyNormal
	}
}

func (wf *ProcureToPay) createPurchaseOrder(ctx context.Context, exec *dworkflow.Execution, req ProcureToPayRequest) (string, bool) {
	created, err := wf.purchasing.Create(ctx, domainmm.PurchaseOrder{
		Vendor:          req.Vendor,
		VendorReference: req.RequisitionID,
		Items:           req.Materials,
	})
	if err != nil {
		exec.Fail(fmt.Sprintf("PO creation failed: %v", err))
		return "", false
	}

	exec.CompleteStep("po_created", dworkflow.DocPurchaseOrder, created.DocumentNumber, dworkflow.StatusPOCreated)
	return created.DocumentNumber, true
}

func (wf *ProcureToPay) postGoodsReceipt(ctx context.Context, exec *dworkflow.Execution, poNumber string, materials []domainmm.PurchaseOrderItem) bool {
	items := make([]domainmm.GoodsReceiptItem, 0, len(materials))
	for idx, material := range materials {
		items = append(items, domainmm.GoodsReceiptItem{
			Material:        material.Material,
			Plant:           material.Plant,
			Quantity:        material.Quantity,
			POItem:          fmt.Sprintf("%05d", (idx+1)*10),
			StorageLocation: material.StorageLocation,
		})
	}

	received, err := wf.purchasing.CreateGoodsReceipt(ctx, poNumber, items)
	if err != nil {
		exec.Fail(fmt.Sprintf("goods receipt failed: %v", err))
		return false
	}

	exec.CompleteStep("goods_received", dworkflow.DocMaterialDocument, received.DocumentNumber, dworkflow.StatusGoodsReceived)
	return true
}

// verifyInvoiceAmount reconciles the requested amount against the created PO.
// Within tolerance passes. Above tolerance the anomaly detector decides; with
// no detector the hard reject cutoff applies.
func (wf *ProcureToPay) verifyInvoiceAmount(ctx context.Context, exec *dworkflow.Execution, poNumber string, req ProcureToPayRequest) bool {
	log := logger.L(ctx)

	detail, err := wf.purchasing.Get(ctx, poNumber)
	if err != nil {
		exec.Fail(fmt.Sprintf("PO read failed during verification: %v", err))
		return false
	}

	match := dworkflow.MatchAmounts(poTotal(detail), req.TotalAmount, wf.thresholds.MatchTolerancePercent)
	if match.IsMatch {
		return true
	}

	log.Warn("invoice amount variance detected",
		zap.String("variance_percent", match.VariancePercent.Round(2).String()),
		zap.String("po_amount", match.POAmount.String()),
		zap.String("invoice_amount", match.InvoiceAmount.String()))

	if wf.detector != nil {
		anomalous, score, err := wf.detector.Detect(ctx, ai.TransactionFeatures{
			Amount:          req.TotalAmount,
			ExpectedAmount:  match.POAmount,
			VariancePercent: match.VariancePercent,
			Vendor:          req.Vendor,
		})
		if err == nil {
			if anomalous {
				log.Warn("anomaly detected", zap.Float64("score", score))
				exec.AddError(fmt.Sprintf("anomaly detected (score %.3f), manual review required", score))
				exec.Finish(dworkflow.StatusRequiresReview)
				return false
			}
			return true
		}
		log.Warn("anomaly detection failed, falling back to variance cutoff", zap.Error(err))
	}

	if match.VariancePercent.GreaterThan(wf.thresholds.RejectVariancePercent) {
		exec.AddError(fmt.Sprintf("variance %s%% exceeds reject cutoff, manual review required",
			match.VariancePercent.Round(2).String()))
		exec.Finish(dworkflow.StatusRequiresReview)
		return false
	}
	return true
}

func (wf *ProcureToPay) postInvoice(ctx context.Context, exec *dworkflow.Execution, poNumber string, req ProcureToPayRequest) bool {
	costCenter := req.CostCenter
	if costCenter == "" {
		costCenter = "CC1000"
	}
	today := time.Now().Format("2006-01-02")

	posted, err := wf.accounts.PostInvoice(ctx, domainfi.VendorInvoice{
		VendorCode:    req.Vendor,
		InvoiceNumber: fmt.Sprintf("INV-%s", req.RequisitionID),
		InvoiceDate:   today,
		PostingDate:   today,
		Amount:        req.TotalAmount,
		CostCenter:    costCenter,
		Reference:     poNumber,
		Text:          fmt.Sprintf("Automated invoice for PO %s", poNumber),
	})
	if err != nil {
		exec.Fail(fmt.Sprintf("invoice posting failed: %v", err))
		return false
	}

	exec.CompleteStep("invoice_posted", dworkflow.DocInvoice, posted.DocumentNumber, dworkflow.StatusInvoicePosted)
	return true
}

// shouldAutoPay gates automatic payment: small amounts only, and emergency
// requests always go to a human.
func (wf *ProcureToPay) shouldAutoPay(ctx context.Context, req ProcureToPayRequest) bool {
	log := logger.L(ctx)

	if req.TotalAmount.GreaterThan(wf.thresholds.AutoPayCeiling) {
		log.Info("amount exceeds auto-pay ceiling, skipping payment",
			zap.String("amount", req.TotalAmount.String()))
		return false
	}
	if req.Urgency == UrgencyEmergency {
		log.Info("emergency request, payment requires manual approval")
		return false
	}
	return true
}

func (wf *ProcureToPay) processPayment(ctx context.Context, exec *dworkflow.Execution, req ProcureToPayRequest) bool {
	paid, err := wf.accounts.ProcessPayment(ctx, req.Vendor, req.TotalAmount, domainfi.PaymentMethodTransfer)
	if err != nil {
		exec.Fail(fmt.Sprintf("payment failed: %v", err))
		return false
	}

	exec.CompleteStep("payment_processed", dworkflow.DocPayment, paid.DocumentNumber, dworkflow.StatusPaymentProcessed)
	return true
}

func (wf *ProcureToPay) notifyFailure(ctx context.Context, exec *dworkflow.Execution, req ProcureToPayRequest) {
	wf.alerts.Notify(ctx, alerting.Alert{
		Severity: alerting.SeverityCritical,
		Title:    "Procure-to-pay workflow failed",
		Message:  fmt.Sprintf("workflow %s stopped at status %s", exec.ID, exec.Status),
		Module:   "WORKFLOW-P2P",
		Details: map[string]any{
			"workflow_id":    exec.ID,
			"requisition_id": req.RequisitionID,
			"vendor":         req.Vendor,
			"errors":         exec.Errors,
			"documents":      exec.Documents,
		},
	})
}
