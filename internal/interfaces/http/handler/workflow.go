package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sapflow/backend/internal/application/workflow"
	"github.com/sapflow/backend/internal/infrastructure/telemetry"
)

// WorkflowHandler exposes the orchestrated business workflows
type WorkflowHandler struct {
	BaseHandler
	procureToPay *workflow.ProcureToPay
	invoices     *workflow.InvoiceProcessing
	metrics      *telemetry.PostingMetrics
}

// NewWorkflowHandler creates a workflow handler. Metrics may be nil.
func NewWorkflowHandler(p2p *workflow.ProcureToPay, invoices *workflow.InvoiceProcessing, metrics *telemetry.PostingMetrics) *WorkflowHandler {
	return &WorkflowHandler{procureToPay: p2p, invoices: invoices, metrics: metrics}
}

// ProcureToPay godoc
// @Summary      Run an end-to-end procure-to-pay workflow
// @Tags         workflows
// @Accept       json
// @Produce      json
// @Param        request body workflow.ProcureToPayRequest true "Procurement request"
// @Success      200 {object} dto.Response{data=workflow.ProcureToPayResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /workflows/procure-to-pay [post]
func (h *WorkflowHandler) ProcureToPay(c *gin.Context) {
	var req workflow.ProcureToPayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}
	if req.RequisitionID == "" || req.Vendor == "" || len(req.Materials) == 0 {
		h.BadRequest(c, "requisition_id, vendor and materials are required")
		return
	}

	result := h.procureToPay.Execute(c.Request.Context(), req)
	if h.metrics != nil {
		h.metrics.RecordWorkflowFinished(c.Request.Context(), "procure_to_pay", string(result.Status))
	}
	h.Success(c, result)
}

// ProcessInvoice godoc
// @Summary      Process a raw invoice document through extraction, matching and posting
// @Tags         workflows
// @Accept       json
// @Produce      json
// @Param        request body workflow.InvoiceRequest true "Invoice text"
// @Success      200 {object} dto.Response{data=workflow.InvoiceResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /workflows/invoices [post]
func (h *WorkflowHandler) ProcessInvoice(c *gin.Context) {
	var req workflow.InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}
	if req.Text == "" {
		h.BadRequest(c, "Invoice text is required")
		return
	}

	result, err := h.invoices.Process(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordWorkflowFinished(c.Request.Context(), "invoice_processing", result.Status)
	}
	h.Success(c, result)
}

// GetExecution godoc
// @Summary      Read the execution record of a workflow run
// @Tags         workflows
// @Produce      json
// @Param        id path string true "Workflow id"
// @Success      200 {object} dto.Response{data=workflow.Execution}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /workflows/{id} [get]
func (h *WorkflowHandler) GetExecution(c *gin.Context) {
	execution := h.procureToPay.Tracker().Get(c.Param("id"))
	if execution == nil {
		h.NotFound(c, "Workflow execution not found")
		return
	}
	// the run may still be advancing the record; serve a detached copy
	h.Success(c, execution.Snapshot())
}
