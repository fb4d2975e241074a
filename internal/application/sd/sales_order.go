// Package sd implements sales and distribution operations: sales order
// creation and maintenance.
package sd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sapflow/backend/internal/application/sapops"
	"github.com/sapflow/backend/internal/domain/sap"
	"github.com/sapflow/backend/internal/domain/sd"
	"github.com/sapflow/backend/internal/domain/shared"
	"github.com/sapflow/backend/internal/infrastructure/logger"
)

// ModuleName identifies the sales module in records and logs
const ModuleName = "SD-SO"

// Partner roles on a sales order
const (
	partnerRoleSoldTo = "AG"
	partnerRoleShipTo = "WE"
)

// SalesOrders creates and maintains sales orders through the transactional
// wrapper.
type SalesOrders struct {
	*sapops.Module
}

// NewSalesOrders creates the sales module
func NewSalesOrders(deps sapops.Deps) *SalesOrders {
	return &SalesOrders{Module: sapops.NewModule(ModuleName, deps)}
}

// Validate checks the order fields and that the customer exists as master
// data. Returns the collected errors; an empty slice means creatable.
func (so *SalesOrders) Validate(ctx context.Context, order sd.SalesOrder) (bool, []string) {
	errs := order.Validate()

	if order.Customer != "" && !so.CustomerExists(ctx, order.Customer) {
		errs = append(errs, fmt.Sprintf("Customer %s not found", order.Customer))
	}
	return len(errs) == 0, errs
}

// itemNumber renders the line position the way sales documents number them:
// 000010, 000020, ...
func itemNumber(idx int) string {
	return fmt.Sprintf("%06d", (idx+1)*10)
}

// Create creates a sales order and returns the sales document number. The
// customer is entered as both sold-to and ship-to party.
func (so *SalesOrders) Create(ctx context.Context, order sd.SalesOrder) (*sapops.PostResult, error) {
	order.ApplyDefaults()

	if valid, errs := so.Validate(ctx, order); !valid {
		return nil, shared.NewValidationError(ModuleName, errs)
	}

	today := time.Now().Format("20060102")
	requestedDate := today
	if order.RequestedDate != "" {
		requestedDate, _ = sap.FormatDate(order.RequestedDate)
	}

	header := map[string]any{
		"DOC_TYPE":   order.OrderType,
		"SALES_ORG":  order.SalesOrg,
		"DISTR_CHAN": order.DistributionChannel,
		"DIVISION":   order.Division,
		"PURCH_NO_C": order.CustomerPO,
		"REQ_DATE_H": requestedDate,
	}

	customer := sap.PadAccount(order.Customer)
	partners := []map[string]any{
		{"PARTN_ROLE": partnerRoleSoldTo, "PARTN_NUMB": customer},
		{"PARTN_ROLE": partnerRoleShipTo, "PARTN_NUMB": customer},
	}

	items := make([]map[string]any, 0, len(order.Items))
	schedules := make([]map[string]any, 0, len(order.Items))
	for idx, item := range order.Items {
		no := itemNumber(idx)

		items = append(items, map[string]any{
			"ITM_NUMBER": no,
			"MATERIAL":   item.Material,
			"PLANT":      item.Plant,
			"TARGET_QTY": item.Quantity.String(),
			"TARGET_QU":  item.Unit,
			"ITEM_CATEG": "TAN",
			"BATCH":      item.Batch,
		})

		reqDate := requestedDate
		if item.DeliveryDate != "" {
			reqDate, _ = sap.FormatDate(item.DeliveryDate)
		}
		schedules = append(schedules, map[string]any{
			"ITM_NUMBER": no,
			"SCHED_LINE": "0001",
			"REQ_QTY":    item.Quantity.String(),
			"REQ_DATE":   reqDate,
		})
	}

	var naturalKey string
	if order.CustomerPO != "" {
		naturalKey = order.NaturalKey()
	}

	return so.ExecutePosting(ctx, sapops.PostingOp{
		Type:     "SALES_ORDER",
		Function: "BAPI_SALESORDER_CREATEFROMDAT2",
		Params: sap.Params{
			"ORDER_HEADER_IN":    header,
			"ORDER_PARTNERS":     partners,
			"ORDER_ITEMS_IN":     items,
			"ORDER_SCHEDULES_IN": schedules,
		},
		DocumentKey: "SALESDOCUMENT",
		NaturalKey:  naturalKey,
		Payload: map[string]any{
			"customer":   order.Customer,
			"order_type": order.OrderType,
			"item_count": len(order.Items),
		},
	})
}

// OrderDetail is the read view of an existing sales order
type OrderDetail struct {
	SalesOrder string           `json:"sales_order"`
	OrderType  string           `json:"order_type"`
	Customer   string           `json:"customer"`
	CreatedOn  string           `json:"created_on"`
	Items      []map[string]any `json:"items"`
}

// Get reads an existing sales order. The customer is the sold-to partner.
func (so *SalesOrders) Get(ctx context.Context, salesDocument string) (*OrderDetail, error) {
	result, err := so.Call(ctx, "BAPI_SALESORDER_GETDETAIL", sap.Params{
		"SALESDOCUMENT": salesDocument,
	})
	if err != nil {
		return nil, err
	}

	detail := &OrderDetail{
		SalesOrder: salesDocument,
		Items:      result.Table("ORDER_ITEMS_IN"),
	}
	if header := result.Table("ORDER_HEADER_IN"); len(header) > 0 {
		detail.OrderType, _ = header[0]["DOC_TYPE"].(string)
		detail.CreatedOn, _ = header[0]["CREATED_ON"].(string)
	}
	for _, partner := range result.Table("ORDER_PARTNERS") {
		if role, _ := partner["PARTN_ROLE"].(string); role == partnerRoleSoldTo {
			detail.Customer, _ = partner["PARTN_NUMB"].(string)
			break
		}
	}
	return detail, nil
}

// Update changes an existing sales order. Changed fields require the matching
// X-structure flags, which the caller provides alongside the values.
func (so *SalesOrders) Update(ctx context.Context, salesDocument string, changes sap.Params) (*sapops.PostResult, error) {
	if len(changes) == 0 {
		return nil, shared.NewValidationError(ModuleName, []string{"No changes provided"})
	}

	params := sap.Params{
		"SALESDOCUMENT":    salesDocument,
		"ORDER_HEADER_INX": map[string]any{"UPDATEFLAG": "U"},
	}
	for key, value := range changes {
		params[key] = value
	}

	return so.ExecutePosting(ctx, sapops.PostingOp{
		Type:        "SALES_ORDER_CHANGE",
		Function:    "BAPI_SALESORDER_CHANGE",
		Params:      params,
		DocumentKey: "SALESDOCUMENT",
		Payload:     map[string]any{"sales_order": salesDocument},
	})
}

// Delete is unsupported: sales orders can only be blocked, never removed
func (so *SalesOrders) Delete(ctx context.Context, salesDocument string) error {
	return fmt.Errorf("sales order %s cannot be deleted, set a delivery block instead: %w",
		salesDocument, shared.ErrNotSupported)
}

// CustomerExists checks the customer master for the padded customer code
func (so *SalesOrders) CustomerExists(ctx context.Context, customer string) bool {
	rows, err := so.ReadTable(ctx, "KNA1",
		[]string{"KUNNR"},
		fmt.Sprintf("KUNNR = '%s'", sap.PadAccount(customer)),
		1,
	)
	if err != nil {
		logger.L(ctx).Warn("customer existence check failed",
			zap.String("customer", customer), zap.Error(err))
		return false
	}
	return len(rows) > 0
}
