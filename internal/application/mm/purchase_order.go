// Package mm implements materials management operations: purchase order
// creation and maintenance plus goods receipts posted against them.
package mm

import (
	"context"
	"fmt"
	"time"

	"github.com/sapflow/backend/internal/application/sapops"
	"github.com/sapflow/backend/internal/domain/mm"
	"github.com/sapflow/backend/internal/domain/sap"
	"github.com/sapflow/backend/internal/domain/shared"
)

// ModuleName identifies the purchasing module in records and logs
const ModuleName = "MM-PO"

// PurchaseOrders creates and maintains purchase orders through the
// transactional wrapper.
type PurchaseOrders struct {
	*sapops.Module
}

// NewPurchaseOrders creates the purchasing module
func NewPurchaseOrders(deps sapops.Deps) *PurchaseOrders {
	return &PurchaseOrders{Module: sapops.NewModule(ModuleName, deps)}
}

// Validate checks the order fields; an empty slice means creatable
func (po *PurchaseOrders) Validate(ctx context.Context, order mm.PurchaseOrder) (bool, []string) {
	errs := order.Validate()
	return len(errs) == 0, errs
}

// itemNumber renders the line position the way purchasing documents number
// them: 00010, 00020, ...
func itemNumber(idx int) string {
	return fmt.Sprintf("%05d", (idx+1)*10)
}

// Create creates a purchase order and returns the order number
func (po *PurchaseOrders) Create(ctx context.Context, order mm.PurchaseOrder) (*sapops.PostResult, error) {
	order.ApplyDefaults()

	if valid, errs := po.Validate(ctx, order); !valid {
		return nil, shared.NewValidationError(ModuleName, errs)
	}

	companyCode := order.CompanyCode
	if companyCode == "" {
		companyCode = po.CompanyCode(ctx)
	}
	today := time.Now().Format("20060102")

	header := map[string]any{
		"DOC_TYPE":   order.DocType,
		"VENDOR":     sap.PadAccount(order.Vendor),
		"PURCH_ORG":  order.PurchasingOrg,
		"PUR_GROUP":  order.PurchasingGroup,
		"COMP_CODE":  companyCode,
		"DOC_DATE":   today,
		"VENDOR_REF": order.VendorReference,
	}

	items := make([]map[string]any, 0, len(order.Items))
	schedules := make([]map[string]any, 0, len(order.Items))
	for idx, item := range order.Items {
		no := itemNumber(idx)

		items = append(items, map[string]any{
			"PO_ITEM":    no,
			"MATERIAL":   item.Material,
			"PLANT":      item.Plant,
			"STGE_LOC":   item.StorageLocation,
			"QUANTITY":   item.Quantity.String(),
			"PO_UNIT":    item.Unit,
			"NET_PRICE":  sap.FormatAmount(item.Price),
			"PRICE_UNIT": "1",
			"ACCTASSCAT": "K",
		})

		deliveryDate := today
		if item.DeliveryDate != "" {
			deliveryDate, _ = sap.FormatDate(item.DeliveryDate)
		}
		schedules = append(schedules, map[string]any{
			"PO_ITEM":       no,
			"SCHED_LINE":    "0001",
			"QUANTITY":      item.Quantity.String(),
			"DELIVERY_DATE": deliveryDate,
		})
	}

	var naturalKey string
	if order.VendorReference != "" {
		naturalKey = order.NaturalKey()
	}

	return po.ExecutePosting(ctx, sapops.PostingOp{
		Type:     "PURCHASE_ORDER",
		Function: "BAPI_PO_CREATE1",
		Params: sap.Params{
			"PO_HEADER":         header,
			"PO_ITEMS":          items,
			"PO_ITEM_SCHEDULES": schedules,
		},
		DocumentKey: "PURCHASEORDER",
		NaturalKey:  naturalKey,
		Payload: map[string]any{
			"vendor":     order.Vendor,
			"item_count": len(order.Items),
			"total":      order.Total().String(),
		},
	})
}

// OrderDetail is the read view of an existing purchase order
type OrderDetail struct {
	PONumber  string           `json:"po_number"`
	Vendor    string           `json:"vendor"`
	CreatedOn string           `json:"created_on"`
	Items     []map[string]any `json:"items"`
}

// Get reads an existing purchase order
func (po *PurchaseOrders) Get(ctx context.Context, poNumber string) (*OrderDetail, error) {
	result, err := po.Call(ctx, "BAPI_PO_GETDETAIL", sap.Params{
		"PURCHASEORDER": poNumber,
	})
	if err != nil {
		return nil, err
	}

	detail := &OrderDetail{
		PONumber: poNumber,
		Items:    result.Table("PO_ITEMS"),
	}
	if header := result.Table("PO_HEADER"); len(header) > 0 {
		detail.Vendor, _ = header[0]["VENDOR"].(string)
		detail.CreatedOn, _ = header[0]["CREATED_ON"].(string)
	}
	return detail, nil
}

// Update changes header fields of an existing purchase order. Changed fields
// require the matching X-structure flags, which the caller provides.
func (po *PurchaseOrders) Update(ctx context.Context, poNumber string, changes sap.Params) (*sapops.PostResult, error) {
	if len(changes) == 0 {
		return nil, shared.NewValidationError(ModuleName, []string{"No changes provided"})
	}

	params := sap.Params{"PURCHASEORDER": poNumber}
	for key, value := range changes {
		params[key] = value
	}

	return po.ExecutePosting(ctx, sapops.PostingOp{
		Type:        "PURCHASE_ORDER_CHANGE",
		Function:    "BAPI_PO_CHANGE",
		Params:      params,
		DocumentKey: "PURCHASEORDER",
		Payload:     map[string]any{"po_number": poNumber},
	})
}

// Delete is unsupported: purchase orders can only be flagged for deletion
// through a change, never removed.
func (po *PurchaseOrders) Delete(ctx context.Context, poNumber string) error {
	return fmt.Errorf("purchase order %s cannot be deleted, flag items for deletion instead: %w",
		poNumber, shared.ErrNotSupported)
}

// goods receipt against a purchase order
const (
	goodsMovementCode = "01"
	movementTypeGR    = "101"
)

// CreateGoodsReceipt posts a goods receipt for the purchase order and returns
// the material document number.
func (po *PurchaseOrders) CreateGoodsReceipt(ctx context.Context, poNumber string, items []mm.GoodsReceiptItem) (*sapops.PostResult, error) {
	var errs []string
	if poNumber == "" {
		errs = append(errs, "Missing required field: po_number")
	}
	if len(items) == 0 {
		errs = append(errs, "At least one item is required")
	}
	for idx, item := range items {
		errs = append(errs, item.Validate(idx)...)
	}
	if len(errs) > 0 {
		return nil, shared.NewValidationError(ModuleName, errs)
	}

	today := time.Now().Format("20060102")
	gmItems := make([]map[string]any, 0, len(items))
	for idx, item := range items {
		poItem := item.POItem
		if poItem == "" {
			poItem = itemNumber(idx)
		}
		gmItems = append(gmItems, map[string]any{
			"MATERIAL":  item.Material,
			"PLANT":     item.Plant,
			"STGE_LOC":  item.StorageLocation,
			"MOVE_TYPE": movementTypeGR,
			"ENTRY_QNT": item.Quantity.String(),
			"PO_NUMBER": poNumber,
			"PO_ITEM":   poItem,
		})
	}

	return po.ExecutePosting(ctx, sapops.PostingOp{
		Type:     "GOODS_RECEIPT",
		Function: "BAPI_GOODSMVT_CREATE",
		Params: sap.Params{
			"GOODSMVT_HEADER": map[string]any{
				"PSTNG_DATE": today,
				"DOC_DATE":   today,
			},
			"GOODSMVT_CODE": map[string]any{"GM_CODE": goodsMovementCode},
			"GOODSMVT_ITEM": gmItems,
		},
		DocumentKey: "MATERIALDOCUMENT",
		Payload: map[string]any{
			"po_number":  poNumber,
			"item_count": len(items),
		},
	})
}
