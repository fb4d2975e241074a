package workflow

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	appmm "github.com/sapflow/backend/internal/application/mm"
	"github.com/sapflow/backend/internal/application/sapops"
	domainfi "github.com/sapflow/backend/internal/domain/fi"
	domainmm "github.com/sapflow/backend/internal/domain/mm"
	"github.com/sapflow/backend/internal/infrastructure/alerting"
	"github.com/sapflow/backend/internal/infrastructure/tenant"
)

type mockAccounts struct {
	mock.Mock
}

func (m *mockAccounts) PostInvoice(ctx context.Context, inv domainfi.VendorInvoice) (*sapops.PostResult, error) {
	args := m.Called(ctx, inv)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sapops.PostResult), args.Error(1)
}

func (m *mockAccounts) ProcessPayment(ctx context.Context, vendorCode string, amount decimal.Decimal, method domainfi.PaymentMethod) (*sapops.PostResult, error) {
	args := m.Called(ctx, vendorCode, amount, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sapops.PostResult), args.Error(1)
}

func (m *mockAccounts) ReadTable(ctx context.Context, table string, fields []string, where string, maxRows int) ([]map[string]string, error) {
	args := m.Called(ctx, table, fields, where, maxRows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]string), args.Error(1)
}

type mockPurchasing struct {
	mock.Mock
}

func (m *mockPurchasing) Create(ctx context.Context, order domainmm.PurchaseOrder) (*sapops.PostResult, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sapops.PostResult), args.Error(1)
}

func (m *mockPurchasing) Get(ctx context.Context, poNumber string) (*appmm.OrderDetail, error) {
	args := m.Called(ctx, poNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appmm.OrderDetail), args.Error(1)
}

func (m *mockPurchasing) CreateGoodsReceipt(ctx context.Context, poNumber string, items []domainmm.GoodsReceiptItem) (*sapops.PostResult, error) {
	args := m.Called(ctx, poNumber, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sapops.PostResult), args.Error(1)
}

// recordingNotifier captures alerts for assertion
type recordingNotifier struct {
	alerts []alerting.Alert
}

func (n *recordingNotifier) Notify(_ context.Context, alert alerting.Alert) {
	n.alerts = append(n.alerts, alert)
}

func tenantCtx() context.Context {
	return tenant.WithContext(context.Background(), tenant.Context{
		TenantID:    "acme-prod",
		CompanyCode: "1000",
		UserID:      "automation",
	})
}

func posted(doc string) *sapops.PostResult {
	return &sapops.PostResult{Success: true, DocumentNumber: doc}
}

// orderDetailTotaling builds a read PO whose line items sum to the given
// quantity * price.
func orderDetailTotaling(poNumber, quantity, price string) *appmm.OrderDetail {
	return &appmm.OrderDetail{
		PONumber: poNumber,
		Items: []map[string]any{
			{"PO_ITEM": "00010", "QUANTITY": quantity, "NET_PRICE": price},
		},
	}
}
