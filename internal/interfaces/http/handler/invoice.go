package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	appfi "github.com/sapflow/backend/internal/application/fi"
	"github.com/sapflow/backend/internal/application/sapops"
	"github.com/sapflow/backend/internal/domain/fi"
)

// InvoiceHandler exposes accounts payable operations: invoice posting,
// reversal, vendor master lookups and outgoing payments.
type InvoiceHandler struct {
	BaseHandler
	accounts *appfi.AccountsPayable
}

// NewInvoiceHandler creates an invoice handler
func NewInvoiceHandler(accounts *appfi.AccountsPayable) *InvoiceHandler {
	return &InvoiceHandler{accounts: accounts}
}

// ReverseRequest asks for a posted document to be reversed
type ReverseRequest struct {
	Reason string `json:"reason"`
}

// PaymentRequest is one outgoing vendor payment
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Method string          `json:"method"`
}

// Post godoc
// @Summary      Post a vendor invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body fi.VendorInvoice true "Invoice"
// @Success      201 {object} dto.Response{data=sapops.PostResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices [post]
func (h *InvoiceHandler) Post(c *gin.Context) {
	var inv fi.VendorInvoice
	if err := c.ShouldBindJSON(&inv); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.accounts.PostInvoice(c.Request.Context(), inv)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// PostBatch godoc
// @Summary      Post a batch of vendor invoices
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body []fi.VendorInvoice true "Invoices"
// @Success      200 {object} dto.Response{data=sapops.BatchResult}
// @Router       /invoices/batch [post]
func (h *InvoiceHandler) PostBatch(c *gin.Context) {
	var invoices []fi.VendorInvoice
	if err := c.ShouldBindJSON(&invoices); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}
	if len(invoices) == 0 {
		h.BadRequest(c, "Batch must contain at least one invoice")
		return
	}

	result := sapops.BatchProcess(c.Request.Context(), invoices,
		func(ctx context.Context, inv fi.VendorInvoice) (string, error) {
			posted, err := h.accounts.PostInvoice(ctx, inv)
			if err != nil {
				return "", err
			}
			return posted.DocumentNumber, nil
		})
	h.Success(c, result)
}

// Get godoc
// @Summary      Read a posted accounting document
// @Tags         invoices
// @Produce      json
// @Param        document path string true "Document number"
// @Success      200 {object} dto.Response{data=fi.InvoiceDocument}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /invoices/{document} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	doc, err := h.accounts.GetInvoice(c.Request.Context(), c.Param("document"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, doc)
}

// Reverse godoc
// @Summary      Reverse a posted accounting document
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        document path string true "Document number"
// @Param        request body ReverseRequest false "Reversal reason"
// @Success      200 {object} dto.Response{data=sapops.PostResult}
// @Router       /invoices/{document}/reverse [post]
func (h *InvoiceHandler) Reverse(c *gin.Context) {
	var req ReverseRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		h.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.accounts.ReverseInvoice(c.Request.Context(), c.Param("document"), req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// VendorBalance godoc
// @Summary      Read the open payable balance of a vendor
// @Tags         vendors
// @Produce      json
// @Param        code path string true "Vendor code"
// @Success      200 {object} dto.Response{data=fi.VendorBalance}
// @Router       /vendors/{code}/balance [get]
func (h *InvoiceHandler) VendorBalance(c *gin.Context) {
	balance, err := h.accounts.GetVendorBalance(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// OpenItems godoc
// @Summary      List open (unpaid) vendor line items
// @Tags         vendors
// @Produce      json
// @Param        code path string true "Vendor code"
// @Success      200 {object} dto.Response{data=[]fi.OpenItem}
// @Router       /vendors/{code}/open-items [get]
func (h *InvoiceHandler) OpenItems(c *gin.Context) {
	items, err := h.accounts.GetOpenItems(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, items)
}

// Pay godoc
// @Summary      Post an outgoing payment against a vendor account
// @Tags         vendors
// @Accept       json
// @Produce      json
// @Param        code path string true "Vendor code"
// @Param        request body PaymentRequest true "Payment"
// @Success      201 {object} dto.Response{data=sapops.PostResult}
// @Router       /vendors/{code}/payments [post]
func (h *InvoiceHandler) Pay(c *gin.Context) {
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	method := fi.PaymentMethod(req.Method)
	if method == "" {
		method = fi.PaymentMethodTransfer
	}

	result, err := h.accounts.ProcessPayment(c.Request.Context(), c.Param("code"), req.Amount, method)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
