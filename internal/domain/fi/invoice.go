// Package fi holds the financial accounting document model: vendor invoices
// and the payment/balance structures derived from them.
package fi

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sapflow/backend/internal/domain/sap"
	"github.com/sapflow/backend/internal/domain/shared/valueobject"
)

// VendorInvoice is the validated vendor invoice document, constructed once
// from raw input and consumed to build the remote posting payload.
type VendorInvoice struct {
	VendorCode    string               `json:"vendor_code"`
	InvoiceNumber string               `json:"invoice_number"`
	InvoiceDate   string               `json:"invoice_date"`
	PostingDate   string               `json:"posting_date"`
	Amount        decimal.Decimal      `json:"amount"`
	Currency      valueobject.Currency `json:"currency"`
	PaymentTerms  string               `json:"payment_terms"`
	TaxCode       string               `json:"tax_code"`
	GLAccount     string               `json:"gl_account"`
	CostCenter    string               `json:"cost_center"`
	Reference     string               `json:"reference"`
	Text          string               `json:"text"`
}

// Defaults applied when optional fields are not provided
const (
	DefaultPaymentTerms = "0001"
	DefaultTaxCode      = "I0"
	DefaultGLAccount    = "400000"
)

// ApplyDefaults fills optional fields the remote system requires
func (v *VendorInvoice) ApplyDefaults() {
	if v.Currency == "" {
		v.Currency = valueobject.DefaultCurrency
	}
	if v.PaymentTerms == "" {
		v.PaymentTerms = DefaultPaymentTerms
	}
	if v.TaxCode == "" {
		v.TaxCode = DefaultTaxCode
	}
	if v.GLAccount == "" {
		v.GLAccount = DefaultGLAccount
	}
}

// Validate returns the list of field errors. An empty list means the invoice
// is ready for posting; master-data existence is checked separately.
func (v VendorInvoice) Validate() []string {
	var errs []string

	required := map[string]string{
		"vendor_code":    v.VendorCode,
		"invoice_number": v.InvoiceNumber,
		"invoice_date":   v.InvoiceDate,
		"posting_date":   v.PostingDate,
	}
	for field, value := range required {
		if value == "" {
			errs = append(errs, fmt.Sprintf("Missing required field: %s", field))
		}
	}

	if v.Amount.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "Invoice amount must be greater than 0")
	}

	if v.InvoiceDate != "" {
		if _, err := sap.FormatDate(v.InvoiceDate); err != nil {
			errs = append(errs, fmt.Sprintf("Invalid invoice_date: %v", err))
		}
	}
	if v.PostingDate != "" {
		if _, err := sap.FormatDate(v.PostingDate); err != nil {
			errs = append(errs, fmt.Sprintf("Invalid posting_date: %v", err))
		}
	}

	return errs
}

// NaturalKey identifies an invoice for duplicate detection: the same vendor
// may never post the same external invoice number twice.
func (v VendorInvoice) NaturalKey() string {
	return fmt.Sprintf("FI-AP:%s:%s", sap.PadAccount(v.VendorCode), v.InvoiceNumber)
}

// Money returns the invoice amount as a Money value object
func (v VendorInvoice) Money() valueobject.Money {
	m, _ := valueobject.NewMoney(v.Amount, v.Currency)
	return m
}

// OpenItem is one open (unpaid) vendor line item
type OpenItem struct {
	DocumentNumber string          `json:"document_number"`
	FiscalYear     string          `json:"fiscal_year"`
	DocumentDate   string          `json:"document_date"`
	PostingDate    string          `json:"posting_date"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
}

// VendorBalance is the current payable balance of a vendor account
type VendorBalance struct {
	VendorCode string          `json:"vendor_code"`
	Balance    decimal.Decimal `json:"balance"`
	Currency   string          `json:"currency"`
}

// PaymentMethod is the remote payment method indicator
type PaymentMethod string

const (
	PaymentMethodCheck    PaymentMethod = "C"
	PaymentMethodTransfer PaymentMethod = "T"
)
