// Package fi implements accounts payable operations: vendor invoice posting,
// reversal, payment and vendor account inquiries.
package fi

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sapflow/backend/internal/application/sapops"
	"github.com/sapflow/backend/internal/domain/fi"
	"github.com/sapflow/backend/internal/domain/sap"
	"github.com/sapflow/backend/internal/domain/shared"
	"github.com/sapflow/backend/internal/domain/shared/valueobject"
	"github.com/sapflow/backend/internal/infrastructure/logger"
)

// ModuleName identifies the accounts payable module in records and logs
const ModuleName = "FI-AP"

// reversalReasonDefault is the standard reversal reason code
const reversalReasonDefault = "01"

// AccountsPayable posts vendor invoices and payments through the
// transactional wrapper.
type AccountsPayable struct {
	*sapops.Module
}

// NewAccountsPayable creates the accounts payable module
func NewAccountsPayable(deps sapops.Deps) *AccountsPayable {
	return &AccountsPayable{Module: sapops.NewModule(ModuleName, deps)}
}

// Validate checks the invoice fields and that the vendor exists as master
// data. Returns the collected errors; an empty slice means postable.
func (ap *AccountsPayable) Validate(ctx context.Context, inv fi.VendorInvoice) (bool, []string) {
	errs := inv.Validate()

	if inv.VendorCode != "" && !ap.VendorExists(ctx, inv.VendorCode) {
		errs = append(errs, fmt.Sprintf("Vendor %s not found", inv.VendorCode))
	}
	return len(errs) == 0, errs
}

// PostInvoice posts a vendor invoice and returns the remote document number.
// The posting builds a balanced document: the vendor line carries the
// positive amount, the offsetting GL line the negated amount.
func (ap *AccountsPayable) PostInvoice(ctx context.Context, inv fi.VendorInvoice) (*sapops.PostResult, error) {
	inv.ApplyDefaults()

	if valid, errs := ap.Validate(ctx, inv); !valid {
		return nil, shared.NewValidationError(ModuleName, errs)
	}

	docDate, _ := sap.FormatDate(inv.InvoiceDate)
	postingDate, _ := sap.FormatDate(inv.PostingDate)
	line := inv.Money()

	params := sap.Params{
		"DOCUMENTHEADER": map[string]any{
			"USERNAME":   logger.GetUserID(ctx),
			"COMP_CODE":  ap.CompanyCode(ctx),
			"DOC_DATE":   docDate,
			"PSTNG_DATE": postingDate,
			"DOC_TYPE":   "KR",
			"REF_DOC_NO": inv.InvoiceNumber,
			"HEADER_TXT": inv.Text,
		},
		"ACCOUNTPAYABLE": []map[string]any{{
			"ITEMNO_ACC": "1",
			"VENDOR_NO":  sap.PadAccount(inv.VendorCode),
			"COMP_CODE":  ap.CompanyCode(ctx),
			"PMNTTRMS":   inv.PaymentTerms,
			"BLINE_DATE": postingDate,
			"ALLOC_NMBR": inv.Reference,
		}},
		"ACCOUNTGL": []map[string]any{{
			"ITEMNO_ACC": "2",
			"GL_ACCOUNT": inv.GLAccount,
			"COMP_CODE":  ap.CompanyCode(ctx),
			"COSTCENTER": inv.CostCenter,
			"ITEM_TEXT":  inv.Text,
			"TAX_CODE":   inv.TaxCode,
		}},
		"CURRENCYAMOUNT": []map[string]any{
			{
				"ITEMNO_ACC": "1",
				"CURRENCY":   string(line.Currency()),
				"AMT_DOCCUR": sap.FormatAmount(line.Amount()),
			},
			{
				"ITEMNO_ACC": "2",
				"CURRENCY":   string(line.Currency()),
				"AMT_DOCCUR": sap.FormatAmount(line.Neg().Amount()),
			},
		},
	}

	return ap.ExecutePosting(ctx, sapops.PostingOp{
		Type:        "VENDOR_INVOICE",
		Function:    "BAPI_ACC_DOCUMENT_POST",
		Params:      params,
		DocumentKey: "OBJ_KEY",
		NaturalKey:  inv.NaturalKey(),
		Payload: map[string]any{
			"vendor_code":    inv.VendorCode,
			"invoice_number": inv.InvoiceNumber,
			"amount":         inv.Amount.String(),
			"currency":       string(inv.Currency),
		},
	})
}

// InvoiceDocument is the read view of a posted accounting document
type InvoiceDocument struct {
	DocumentNumber string           `json:"document_number"`
	DocumentDate   string           `json:"document_date"`
	PostingDate    string           `json:"posting_date"`
	Reference      string           `json:"reference"`
	Items          []map[string]any `json:"items"`
}

// GetInvoice reads a posted accounting document
func (ap *AccountsPayable) GetInvoice(ctx context.Context, documentNumber string) (*InvoiceDocument, error) {
	result, err := ap.Call(ctx, "BAPI_ACC_DOCUMENT_DISPLAY", sap.Params{
		"DOCUMENTNUMBER": documentNumber,
		"COMPANYCODE":    ap.CompanyCode(ctx),
		"FISCALYEAR":     fmt.Sprintf("%d", time.Now().Year()),
	})
	if err != nil {
		return nil, err
	}

	header := result.Table("DOCUMENTHEADER")
	doc := &InvoiceDocument{
		DocumentNumber: documentNumber,
		Items:          result.Table("ACCOUNTINGDOCUMENTS"),
	}
	if len(header) > 0 {
		doc.DocumentDate, _ = header[0]["DOC_DATE"].(string)
		doc.PostingDate, _ = header[0]["PSTNG_DATE"].(string)
		doc.Reference, _ = header[0]["REF_DOC_NO"].(string)
	}
	return doc, nil
}

// UpdateInvoice is unsupported: posted accounting documents are immutable in
// the remote system and require reversal plus repost.
func (ap *AccountsPayable) UpdateInvoice(ctx context.Context, documentNumber string) error {
	return fmt.Errorf("posted document %s cannot be changed, reverse and repost: %w",
		documentNumber, shared.ErrNotSupported)
}

// ReverseInvoice reverses a posted document and returns the reversal document
func (ap *AccountsPayable) ReverseInvoice(ctx context.Context, documentNumber, reason string) (*sapops.PostResult, error) {
	if reason == "" {
		reason = reversalReasonDefault
	}

	return ap.ExecutePosting(ctx, sapops.PostingOp{
		Type:     "DOCUMENT_REVERSAL",
		Function: "BAPI_ACC_DOCUMENT_REV_POST",
		Params: sap.Params{
			"DOCUMENTNUMBER": documentNumber,
			"COMPANYCODE":    ap.CompanyCode(ctx),
			"FISCALYEAR":     fmt.Sprintf("%d", time.Now().Year()),
			"REASON":         reason,
		},
		DocumentKey: "OBJ_KEY",
		Payload:     map[string]any{"reversed_document": documentNumber, "reason": reason},
	})
}

// VendorExists checks the vendor master for the padded vendor code
func (ap *AccountsPayable) VendorExists(ctx context.Context, vendorCode string) bool {
	rows, err := ap.ReadTable(ctx, "LFA1",
		[]string{"LIFNR"},
		fmt.Sprintf("LIFNR = '%s'", sap.PadAccount(vendorCode)),
		1,
	)
	if err != nil {
		logger.L(ctx).Warn("vendor existence check failed",
			zap.String("vendor_code", vendorCode), zap.Error(err))
		return false
	}
	return len(rows) > 0
}

// GetVendorBalance returns the vendor's current payable balance
func (ap *AccountsPayable) GetVendorBalance(ctx context.Context, vendorCode string) (fi.VendorBalance, error) {
	result, err := ap.Call(ctx, "BAPI_AP_ACC_GETBALANCES", sap.Params{
		"COMPANYCODE": ap.CompanyCode(ctx),
		"VENDOR":      sap.PadAccount(vendorCode),
	})
	if err != nil {
		return fi.VendorBalance{}, err
	}

	balance := fi.VendorBalance{VendorCode: vendorCode}
	rows := result.Table("BALANCES")
	if len(rows) > 0 {
		if raw, ok := rows[0]["BALANCE"].(string); ok {
			balance.Balance, _ = decimal.NewFromString(raw)
		}
		balance.Currency, _ = rows[0]["CURRENCY"].(string)
	}
	return balance, nil
}

// GetOpenItems lists the vendor's open (unpaid) invoice items
func (ap *AccountsPayable) GetOpenItems(ctx context.Context, vendorCode string) ([]fi.OpenItem, error) {
	rows, err := ap.ReadTable(ctx, "BSIK",
		[]string{"BELNR", "GJAHR", "BLDAT", "BUDAT", "WRBTR", "WAERS"},
		fmt.Sprintf("LIFNR = '%s'", sap.PadAccount(vendorCode)),
		1000,
	)
	if err != nil {
		return nil, err
	}

	items := make([]fi.OpenItem, 0, len(rows))
	for _, row := range rows {
		amount, _ := decimal.NewFromString(row["WRBTR"])
		items = append(items, fi.OpenItem{
			DocumentNumber: row["BELNR"],
			FiscalYear:     row["GJAHR"],
			DocumentDate:   row["BLDAT"],
			PostingDate:    row["BUDAT"],
			Amount:         amount,
			Currency:       row["WAERS"],
		})
	}
	return items, nil
}

// bank clearing account used for outgoing payments
const paymentClearingAccount = "113100"

// ProcessPayment posts an outgoing vendor payment and returns the payment
// document number.
func (ap *AccountsPayable) ProcessPayment(ctx context.Context, vendorCode string, amount decimal.Decimal, method fi.PaymentMethod) (*sapops.PostResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError(ModuleName, []string{"Payment amount must be greater than 0"})
	}
	if method == "" {
		method = fi.PaymentMethodTransfer
	}

	today := time.Now().Format("20060102")
	pay := valueobject.NewMoneyUSD(amount)
	params := sap.Params{
		"DOCUMENTHEADER": map[string]any{
			"USERNAME":   logger.GetUserID(ctx),
			"COMP_CODE":  ap.CompanyCode(ctx),
			"DOC_DATE":   today,
			"PSTNG_DATE": today,
			"DOC_TYPE":   "KZ",
		},
		"ACCOUNTPAYABLE": []map[string]any{{
			"ITEMNO_ACC": "1",
			"VENDOR_NO":  sap.PadAccount(vendorCode),
			"COMP_CODE":  ap.CompanyCode(ctx),
			"PYMT_METH":  string(method),
		}},
		"ACCOUNTGL": []map[string]any{{
			"ITEMNO_ACC": "2",
			"GL_ACCOUNT": paymentClearingAccount,
			"COMP_CODE":  ap.CompanyCode(ctx),
		}},
		"CURRENCYAMOUNT": []map[string]any{
			{"ITEMNO_ACC": "1", "CURRENCY": string(pay.Currency()), "AMT_DOCCUR": sap.FormatAmount(pay.Neg().Amount())},
			{"ITEMNO_ACC": "2", "CURRENCY": string(pay.Currency()), "AMT_DOCCUR": sap.FormatAmount(pay.Amount())},
		},
	}

	return ap.ExecutePosting(ctx, sapops.PostingOp{
		Type:        "VENDOR_PAYMENT",
		Function:    "BAPI_ACC_DOCUMENT_POST",
		Params:      params,
		DocumentKey: "OBJ_KEY",
		Payload: map[string]any{
			"vendor_code": vendorCode,
			"amount":      amount.String(),
			"method":      string(method),
		},
	})
}
