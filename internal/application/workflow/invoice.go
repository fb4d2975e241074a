package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sapflow/backend/internal/application/ai"
	domainfi "github.com/sapflow/backend/internal/domain/fi"
	"github.com/sapflow/backend/internal/domain/sap"
	"github.com/sapflow/backend/internal/domain/shared"
	"github.com/sapflow/backend/internal/domain/shared/valueobject"
	dworkflow "github.com/sapflow/backend/internal/domain/workflow"
	"github.com/sapflow/backend/internal/infrastructure/alerting"
	"github.com/sapflow/backend/internal/infrastructure/logger"
)

// Terminal statuses of an invoice processing run
const (
	InvoiceStatusCompleted        = "completed"
	InvoiceStatusManualReview     = "requires_manual_review"
	InvoiceStatusPOMismatch       = "po_mismatch"
	InvoiceStatusThreeWayMismatch = "three_way_mismatch"
	InvoiceStatusPendingApproval  = "pending_approval"
	InvoiceStatusFailed           = "failed"
)

// maxInvoiceAmount is the sanity ceiling on extracted amounts
var maxInvoiceAmount = decimal.NewFromInt(1_000_000)

// maxInvoiceAge rejects stale invoices
const maxInvoiceAge = 365 * 24 * time.Hour

// InvoiceRequest is one invoice submitted as raw text, typically the OCR
// output of a scanned document.
type InvoiceRequest struct {
	Text       string            `json:"text"`
	VendorCode string            `json:"vendor_code,omitempty"` // skips the master-data name lookup when set
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ValidationOutcome reports field validation of the extracted invoice
type ValidationOutcome struct {
	IsValid    bool     `json:"is_valid"`
	Errors     []string `json:"errors"`
	Confidence float64  `json:"confidence"`
}

// ApprovalRequest is the pending approval routed to a human
type ApprovalRequest struct {
	Status      string    `json:"status"`
	Approver    string    `json:"approver"`
	RequestedAt time.Time `json:"requested_at"`
}

// InvoiceResult is the full outcome of one invoice processing run. Stages
// that never ran stay nil.
type InvoiceResult struct {
	Status         string                    `json:"status"`
	Extracted      ai.ExtractedInvoice       `json:"extracted_data"`
	VendorCode     string                    `json:"vendor_code,omitempty"`
	Validation     *ValidationOutcome        `json:"validation,omitempty"`
	POMatch        *dworkflow.MatchResult    `json:"po_match,omitempty"`
	ThreeWayMatch  *dworkflow.ThreeWayResult `json:"three_way_match,omitempty"`
	Approval       *ApprovalRequest          `json:"approval,omitempty"`
	DocumentNumber string                    `json:"document_number,omitempty"`
	Errors         []string                  `json:"errors"`
}

func (r *InvoiceResult) fail(status, msg string) *InvoiceResult {
	r.Status = status
	r.Errors = append(r.Errors, msg)
	return r
}

// InvoiceProcessing drives an invoice from raw text to a posted document:
// extract, validate, resolve the vendor, reconcile against the purchase
// order when one is referenced, gate on approval, post.
type InvoiceProcessing struct {
	extractor  ai.FieldExtractor
	accounts   AccountsPayableService
	purchasing PurchasingService
	dedup      shared.IdempotencyStore
	alerts     alerting.Notifier
	thresholds Thresholds
	approver   string
}

// InvoiceProcessingOptions configures optional collaborators
type InvoiceProcessingOptions struct {
	Extractor  ai.FieldExtractor
	Dedup      shared.IdempotencyStore
	Alerts     alerting.Notifier
	Thresholds *Thresholds
	Approver   string
}

// NewInvoiceProcessing creates the invoice workflow
func NewInvoiceProcessing(accounts AccountsPayableService, purchasing PurchasingService, opts InvoiceProcessingOptions) *InvoiceProcessing {
	wf := &InvoiceProcessing{
		extractor:  opts.Extractor,
		accounts:   accounts,
		purchasing: purchasing,
		dedup:      opts.Dedup,
		alerts:     opts.Alerts,
		thresholds: DefaultThresholds(),
		approver:   opts.Approver,
	}
	if wf.extractor == nil {
		wf.extractor = ai.NewRegexExtractor()
	}
	if wf.alerts == nil {
		wf.alerts = alerting.NopNotifier{}
	}
	if opts.Thresholds != nil {
		wf.thresholds = *opts.Thresholds
	}
	if wf.approver == "" {
		wf.approver = "ap-approvals"
	}
	return wf
}

// Process runs one invoice through the pipeline. A non-completed status is
// not an error: the result carries the stage that stopped it.
func (wf *InvoiceProcessing) Process(ctx context.Context, req InvoiceRequest) (*InvoiceResult, error) {
	log := logger.L(ctx)
	result := &InvoiceResult{Errors: make([]string, 0)}

	extracted, err := wf.extractor.Extract(ctx, req.Text)
	if err != nil {
		return result.fail(InvoiceStatusFailed, fmt.Sprintf("extraction failed: %v", err)), nil
	}
	result.Extracted = extracted

	validation := wf.validate(extracted)
	result.Validation = &validation
	if !validation.IsValid {
		log.Warn("invoice requires manual review",
			zap.Strings("validation_errors", validation.Errors))
		result.Status = InvoiceStatusManualReview
		result.Errors = append(result.Errors, validation.Errors...)
		return result, nil
	}

	vendorCode, err := wf.resolveVendor(ctx, req, extracted)
	if err != nil {
		return result.fail(InvoiceStatusManualReview, err.Error()), nil
	}
	result.VendorCode = vendorCode

	if wf.isDuplicate(ctx, vendorCode, extracted.InvoiceNumber) {
		return result.fail(InvoiceStatusManualReview, "Duplicate invoice number"), nil
	}

	if extracted.PONumber != "" {
		match := wf.matchPurchaseOrder(ctx, extracted)
		result.POMatch = &match
		if !match.IsMatch {
			result.Approval = wf.requestApproval(ctx, extracted, match.Reason)
			return result.fail(InvoiceStatusPOMismatch, fmt.Sprintf("PO mismatch: %s", match.Reason)), nil
		}

		threeWay := wf.threeWayMatch(ctx, extracted.PONumber)
		result.ThreeWayMatch = &threeWay
		if !threeWay.IsMatch {
			result.Approval = wf.requestApproval(ctx, extracted, threeWay.Reason)
			return result.fail(InvoiceStatusThreeWayMismatch, fmt.Sprintf("3-way mismatch: %s", threeWay.Reason)), nil
		}
	}

	if extracted.Amount.GreaterThan(wf.thresholds.ApprovalThreshold) {
		result.Approval = wf.requestApproval(ctx, extracted, "Amount above approval threshold")
		result.Status = InvoiceStatusPendingApproval
		return result, nil
	}

	posted, err := wf.accounts.PostInvoice(ctx, domainfi.VendorInvoice{
		VendorCode:    vendorCode,
		InvoiceNumber: extracted.InvoiceNumber,
		InvoiceDate:   extracted.Date,
		PostingDate:   time.Now().Format("2006-01-02"),
		Amount:        extracted.Amount,
		Currency:      valueobject.Currency(extracted.Currency),
		Reference:     extracted.PONumber,
		Text:          fmt.Sprintf("Auto-posted: %s", extracted.InvoiceNumber),
	})
	if err != nil {
		log.Error("invoice posting failed", zap.Error(err))
		return result.fail(InvoiceStatusFailed, err.Error()), nil
	}

	result.Status = InvoiceStatusCompleted
	result.DocumentNumber = posted.DocumentNumber
	log.Info("invoice processed",
		zap.String("document_number", posted.DocumentNumber),
		zap.String("vendor_code", vendorCode))
	return result, nil
}

// validate checks the extracted fields before any remote call
func (wf *InvoiceProcessing) validate(inv ai.ExtractedInvoice) ValidationOutcome {
	var errs []string

	if inv.Vendor == "" {
		errs = append(errs, "Missing vendor")
	}
	if inv.InvoiceNumber == "" {
		errs = append(errs, "Missing invoice_number")
	}
	if inv.Date == "" {
		errs = append(errs, "Missing date")
	}
	if inv.Amount.IsZero() {
		errs = append(errs, "Missing amount")
	} else {
		if inv.Amount.LessThanOrEqual(decimal.Zero) {
			errs = append(errs, "Amount must be positive")
		}
		if inv.Amount.GreaterThan(maxInvoiceAmount) {
			errs = append(errs, "Amount exceeds maximum threshold")
		}
	}

	if inv.Date != "" {
		if formatted, err := sap.FormatDate(inv.Date); err != nil {
			errs = append(errs, fmt.Sprintf("Invalid date format: %v", err))
		} else {
			when, _ := time.Parse("20060102", formatted)
			now := time.Now()
			if when.After(now) {
				errs = append(errs, "Invoice date is in the future")
			} else if now.Sub(when) > maxInvoiceAge {
				errs = append(errs, "Invoice is over 1 year old")
			}
		}
	}

	return ValidationOutcome{
		IsValid:    len(errs) == 0,
		Errors:     errs,
		Confidence: inv.Confidence,
	}
}

// resolveVendor maps the extracted vendor to a master-data vendor code. An
// explicit code on the request wins; otherwise the vendor master is searched
// by name.
func (wf *InvoiceProcessing) resolveVendor(ctx context.Context, req InvoiceRequest, inv ai.ExtractedInvoice) (string, error) {
	if req.VendorCode != "" {
		return req.VendorCode, nil
	}

	rows, err := wf.accounts.ReadTable(ctx, "LFA1",
		[]string{"LIFNR", "NAME1"},
		fmt.Sprintf("NAME1 = '%s'", inv.Vendor),
		1,
	)
	if err != nil {
		return "", fmt.Errorf("vendor lookup failed: %w", err)
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("vendor %q not found in vendor master", inv.Vendor)
	}
	return rows[0]["LIFNR"], nil
}

func (wf *InvoiceProcessing) isDuplicate(ctx context.Context, vendorCode, invoiceNumber string) bool {
	if wf.dedup == nil {
		return false
	}
	key := domainfi.VendorInvoice{VendorCode: vendorCode, InvoiceNumber: invoiceNumber}.NaturalKey()
	posted, err := wf.dedup.IsPosted(ctx, key)
	if err != nil {
		logger.L(ctx).Warn("duplicate check failed", zap.Error(err))
		return false
	}
	return posted
}

// matchPurchaseOrder reconciles the invoice amount against the referenced PO
func (wf *InvoiceProcessing) matchPurchaseOrder(ctx context.Context, inv ai.ExtractedInvoice) dworkflow.MatchResult {
	detail, err := wf.purchasing.Get(ctx, inv.PONumber)
	if err != nil {
		return dworkflow.MatchResult{
			IsMatch: false,
			Reason:  fmt.Sprintf("PO lookup failed: %v", err),
		}
	}
	return dworkflow.MatchAmounts(poTotal(detail), inv.Amount, wf.thresholds.MatchTolerancePercent)
}

// threeWayMatch verifies goods receipts exist for the purchase order
func (wf *InvoiceProcessing) threeWayMatch(ctx context.Context, poNumber string) dworkflow.ThreeWayResult {
	rows, err := wf.accounts.ReadTable(ctx, "MKPF",
		[]string{"MBLNR", "MJAHR", "BUDAT"},
		fmt.Sprintf("EBELN = '%s'", poNumber),
		100,
	)
	if err != nil {
		return dworkflow.ThreeWayResult{IsMatch: false, Reason: fmt.Sprintf("3-way match failed: %v", err)}
	}
	if len(rows) == 0 {
		return dworkflow.ThreeWayResult{IsMatch: false, Reason: "No goods receipt found for PO"}
	}

	docs := make([]string, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row["MBLNR"])
	}
	return dworkflow.ThreeWayResult{
		IsMatch:     true,
		GRDocuments: docs,
		Reason:      "3-way match successful",
	}
}

// requestApproval notifies the approver channel and records the pending
// request. Delivery is fire-and-forget.
func (wf *InvoiceProcessing) requestApproval(ctx context.Context, inv ai.ExtractedInvoice, reason string) *ApprovalRequest {
	wf.alerts.Notify(ctx, alerting.Alert{
		Severity: alerting.SeverityWarning,
		Title:    "Invoice approval required",
		Message:  reason,
		Module:   "WORKFLOW-INV",
		Details: map[string]any{
			"invoice_number": inv.InvoiceNumber,
			"vendor":         inv.Vendor,
			"amount":         inv.Amount.String(),
		},
	})

	return &ApprovalRequest{
		Status:      "pending",
		Approver:    wf.approver,
		RequestedAt: time.Now(),
	}
}
