package mm

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sapflow/backend/internal/application/sapops"
	domainmm "github.com/sapflow/backend/internal/domain/mm"
	"github.com/sapflow/backend/internal/domain/sap"
	"github.com/sapflow/backend/internal/domain/shared"
	"github.com/sapflow/backend/internal/infrastructure/breaker"
	"github.com/sapflow/backend/internal/infrastructure/tenant"
)

type mockConnector struct {
	mock.Mock
}

func (m *mockConnector) CallFunction(ctx context.Context, name string, params sap.Params) (sap.FunctionResult, error) {
	args := m.Called(ctx, name, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(sap.FunctionResult), args.Error(1)
}

func (m *mockConnector) ReadTable(ctx context.Context, table string, fields []string, where string, maxRows int) ([]map[string]string, error) {
	args := m.Called(ctx, table, fields, where, maxRows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]string), args.Error(1)
}

type staticProvider struct {
	conn sap.Connector
}

func (p staticProvider) ForTenant(ctx context.Context, tenantID string) (sap.Connector, error) {
	return p.conn, nil
}

func newTestPO(conn sap.Connector) *PurchaseOrders {
	return NewPurchaseOrders(sapops.Deps{
		Connectors: staticProvider{conn: conn},
		Breakers:   breaker.NewPool(breaker.Config{FailureThreshold: 5, Cooldown: time.Minute}),
	})
}

func tenantCtx() context.Context {
	return tenant.WithContext(context.Background(), tenant.Context{
		TenantID:    "acme-prod",
		CompanyCode: "1000",
		UserID:      "buyer.01",
	})
}

func validOrder() domainmm.PurchaseOrder {
	return domainmm.PurchaseOrder{
		Vendor:        "1000",
		PurchasingOrg: "1000",
		Items: []domainmm.PurchaseOrderItem{
			{Material: "MAT001", Quantity: decimal.NewFromInt(100), Plant: "1000", Price: decimal.NewFromFloat(10.50), DeliveryDate: "2024-12-01"},
			{Material: "MAT002", Quantity: decimal.NewFromInt(5), Plant: "1000", Price: decimal.NewFromInt(200)},
		},
	}
}

func TestCreateNumbersItemsInStepsOfTen(t *testing.T) {
	conn := new(mockConnector)

	var captured sap.Params
	conn.On("CallFunction", mock.Anything, "BAPI_PO_CREATE1", mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(2).(sap.Params) }).
		Return(sap.FunctionResult{
			"PURCHASEORDER": "4500000123",
			"RETURN":        []any{map[string]any{"TYPE": "S"}},
		}, nil)
	conn.On("CallFunction", mock.Anything, sap.FunctionCommit, mock.Anything).
		Return(sap.FunctionResult{}, nil)

	po := newTestPO(conn)
	result, err := po.Create(tenantCtx(), validOrder())

	require.NoError(t, err)
	assert.Equal(t, "4500000123", result.DocumentNumber)

	header := captured["PO_HEADER"].(map[string]any)
	assert.Equal(t, "NB", header["DOC_TYPE"])
	assert.Equal(t, "0000001000", header["VENDOR"])
	assert.Equal(t, "001", header["PUR_GROUP"])
	assert.Equal(t, "1000", header["COMP_CODE"])

	items := captured["PO_ITEMS"].([]map[string]any)
	require.Len(t, items, 2)
	assert.Equal(t, "00010", items[0]["PO_ITEM"])
	assert.Equal(t, "00020", items[1]["PO_ITEM"])
	assert.Equal(t, "10.50", items[0]["NET_PRICE"])
	assert.Equal(t, "EA", items[0]["PO_UNIT"])
	assert.Equal(t, "K", items[0]["ACCTASSCAT"])

	schedules := captured["PO_ITEM_SCHEDULES"].([]map[string]any)
	require.Len(t, schedules, 2)
	assert.Equal(t, "00010", schedules[0]["PO_ITEM"])
	assert.Equal(t, "0001", schedules[0]["SCHED_LINE"])
	assert.Equal(t, "20241201", schedules[0]["DELIVERY_DATE"])
}

func TestCreateValidationFailureSkipsGateway(t *testing.T) {
	conn := new(mockConnector)
	po := newTestPO(conn)

	order := validOrder()
	order.Vendor = ""
	order.Items[0].Quantity = decimal.Zero

	_, err := po.Create(tenantCtx(), order)

	var valErr *shared.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Errors, "Missing required field: vendor")
	assert.Contains(t, valErr.Errors, "Item 1: Invalid quantity")
	conn.AssertNotCalled(t, "CallFunction", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateRemoteErrorRollsBack(t *testing.T) {
	conn := new(mockConnector)
	conn.On("CallFunction", mock.Anything, "BAPI_PO_CREATE1", mock.Anything).
		Return(sap.FunctionResult{
			"RETURN": []any{map[string]any{"TYPE": "E", "MESSAGE": "Vendor blocked for purchasing"}},
		}, nil)
	conn.On("CallFunction", mock.Anything, sap.FunctionRollback, mock.Anything).
		Return(sap.FunctionResult{}, nil)

	po := newTestPO(conn)
	result, err := po.Create(tenantCtx(), validOrder())

	var remoteErr *shared.RemoteDocumentError
	require.ErrorAs(t, err, &remoteErr)
	assert.False(t, result.Success)
	conn.AssertCalled(t, "CallFunction", mock.Anything, sap.FunctionRollback, mock.Anything)
	conn.AssertNotCalled(t, "CallFunction", mock.Anything, sap.FunctionCommit, mock.Anything)
}

func TestGetMapsHeaderAndItems(t *testing.T) {
	conn := new(mockConnector)
	conn.On("CallFunction", mock.Anything, "BAPI_PO_GETDETAIL", mock.Anything).
		Return(sap.FunctionResult{
			"PO_HEADER": []any{map[string]any{"VENDOR": "0000001000", "CREATED_ON": "20240110"}},
			"PO_ITEMS":  []any{map[string]any{"PO_ITEM": "00010", "MATERIAL": "MAT001"}},
		}, nil)

	po := newTestPO(conn)
	detail, err := po.Get(tenantCtx(), "4500000123")

	require.NoError(t, err)
	assert.Equal(t, "4500000123", detail.PONumber)
	assert.Equal(t, "0000001000", detail.Vendor)
	assert.Equal(t, "20240110", detail.CreatedOn)
	require.Len(t, detail.Items, 1)
}

func TestUpdateRequiresChanges(t *testing.T) {
	po := newTestPO(new(mockConnector))
	_, err := po.Update(tenantCtx(), "4500000123", nil)

	var valErr *shared.ValidationError
	require.ErrorAs(t, err, &valErr)
}

func TestDeleteNotSupported(t *testing.T) {
	po := newTestPO(new(mockConnector))
	err := po.Delete(tenantCtx(), "4500000123")
	assert.ErrorIs(t, err, shared.ErrNotSupported)
}

func TestCreateGoodsReceiptMovementType(t *testing.T) {
	conn := new(mockConnector)

	var captured sap.Params
	conn.On("CallFunction", mock.Anything, "BAPI_GOODSMVT_CREATE", mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(2).(sap.Params) }).
		Return(sap.FunctionResult{
			"MATERIALDOCUMENT": "5000000456",
			"RETURN":           []any{map[string]any{"TYPE": "S"}},
		}, nil)
	conn.On("CallFunction", mock.Anything, sap.FunctionCommit, mock.Anything).
		Return(sap.FunctionResult{}, nil)

	po := newTestPO(conn)
	result, err := po.CreateGoodsReceipt(tenantCtx(), "4500000123", []domainmm.GoodsReceiptItem{
		{Material: "MAT001", Plant: "1000", Quantity: decimal.NewFromInt(50), POItem: "00010"},
	})

	require.NoError(t, err)
	assert.Equal(t, "5000000456", result.DocumentNumber)

	code := captured["GOODSMVT_CODE"].(map[string]any)
	assert.Equal(t, "01", code["GM_CODE"])

	items := captured["GOODSMVT_ITEM"].([]map[string]any)
	require.Len(t, items, 1)
	assert.Equal(t, "101", items[0]["MOVE_TYPE"])
	assert.Equal(t, "4500000123", items[0]["PO_NUMBER"])
	assert.Equal(t, "00010", items[0]["PO_ITEM"])
}

func TestCreateGoodsReceiptValidation(t *testing.T) {
	po := newTestPO(new(mockConnector))
	_, err := po.CreateGoodsReceipt(tenantCtx(), "", nil)

	var valErr *shared.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Errors, "Missing required field: po_number")
	assert.Contains(t, valErr.Errors, "At least one item is required")
}
