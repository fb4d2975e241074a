// Package mm holds the materials management document model: purchase orders
// and the goods movements posted against them.
package mm

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sapflow/backend/internal/domain/sap"
)

// Defaults applied when optional purchasing fields are not provided
const (
	DefaultDocType         = "NB"
	DefaultPurchasingOrg   = "1000"
	DefaultPurchasingGroup = "001"
	DefaultUnit            = "EA"
)

// PurchaseOrderItem is one line of a purchase order
type PurchaseOrderItem struct {
	Material        string          `json:"material"`
	Quantity        decimal.Decimal `json:"quantity"`
	Plant           string          `json:"plant"`
	Price           decimal.Decimal `json:"price"`
	Unit            string          `json:"unit"`
	DeliveryDate    string          `json:"delivery_date"`
	StorageLocation string          `json:"storage_location"`
}

// Amount returns quantity * price for this line
func (i PurchaseOrderItem) Amount() decimal.Decimal {
	return i.Quantity.Mul(i.Price)
}

// PurchaseOrder is the validated purchase order document
type PurchaseOrder struct {
	Vendor          string              `json:"vendor"`
	PurchasingOrg   string              `json:"purchasing_org"`
	PurchasingGroup string              `json:"purchasing_group"`
	CompanyCode     string              `json:"company_code"`
	DocType         string              `json:"doc_type"`
	VendorReference string              `json:"vendor_reference"`
	Items           []PurchaseOrderItem `json:"items"`
}

// ApplyDefaults fills optional purchasing fields
func (p *PurchaseOrder) ApplyDefaults() {
	if p.DocType == "" {
		p.DocType = DefaultDocType
	}
	if p.PurchasingOrg == "" {
		p.PurchasingOrg = DefaultPurchasingOrg
	}
	if p.PurchasingGroup == "" {
		p.PurchasingGroup = DefaultPurchasingGroup
	}
	for idx := range p.Items {
		if p.Items[idx].Unit == "" {
			p.Items[idx].Unit = DefaultUnit
		}
	}
}

// Validate returns the list of field errors for the order and its lines
func (p PurchaseOrder) Validate() []string {
	var errs []string

	if p.Vendor == "" {
		errs = append(errs, "Missing required field: vendor")
	}
	if p.PurchasingOrg == "" {
		errs = append(errs, "Missing required field: purchasing_org")
	}
	if len(p.Items) == 0 {
		errs = append(errs, "At least one item is required")
	}

	for idx, item := range p.Items {
		if item.Material == "" {
			errs = append(errs, fmt.Sprintf("Item %d: Missing material", idx+1))
		}
		if item.Quantity.LessThanOrEqual(decimal.Zero) {
			errs = append(errs, fmt.Sprintf("Item %d: Invalid quantity", idx+1))
		}
		if item.Price.LessThanOrEqual(decimal.Zero) {
			errs = append(errs, fmt.Sprintf("Item %d: Invalid price", idx+1))
		}
		if item.DeliveryDate != "" {
			if _, err := sap.FormatDate(item.DeliveryDate); err != nil {
				errs = append(errs, fmt.Sprintf("Item %d: Invalid delivery_date", idx+1))
			}
		}
	}

	return errs
}

// Total returns the order total across all lines
func (p PurchaseOrder) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range p.Items {
		total = total.Add(item.Amount())
	}
	return total
}

// NaturalKey identifies an order for duplicate detection: one order per
// vendor and vendor reference.
func (p PurchaseOrder) NaturalKey() string {
	return fmt.Sprintf("MM-PO:%s:%s", sap.PadAccount(p.Vendor), p.VendorReference)
}

// GoodsReceiptItem is one line of a goods receipt against a purchase order
type GoodsReceiptItem struct {
	Material        string          `json:"material"`
	Plant           string          `json:"plant"`
	Quantity        decimal.Decimal `json:"quantity"`
	POItem          string          `json:"po_item"`
	StorageLocation string          `json:"storage_location"`
}

// Validate returns the list of field errors for a goods receipt line
func (g GoodsReceiptItem) Validate(idx int) []string {
	var errs []string
	if g.Material == "" {
		errs = append(errs, fmt.Sprintf("GR item %d: Missing material", idx+1))
	}
	if g.Quantity.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, fmt.Sprintf("GR item %d: Invalid quantity", idx+1))
	}
	return errs
}
