package sapops

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sapflow/backend/internal/domain/sap"
	"github.com/sapflow/backend/internal/domain/shared"
	"github.com/sapflow/backend/internal/infrastructure/breaker"
	"github.com/sapflow/backend/internal/infrastructure/cache"
	"github.com/sapflow/backend/internal/infrastructure/tenant"
)

// MockConnector is a testify mock of sap.Connector
type MockConnector struct {
	mock.Mock
}

func (m *MockConnector) CallFunction(ctx context.Context, name string, params sap.Params) (sap.FunctionResult, error) {
	args := m.Called(ctx, name, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(sap.FunctionResult), args.Error(1)
}

func (m *MockConnector) ReadTable(ctx context.Context, table string, fields []string, where string, maxRows int) ([]map[string]string, error) {
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

func tenantCtx() context.Context {
	return tenant.WithContext(context.Background(), tenant.Context{
		TenantID:    "acme-prod",
		CompanyCode: "1000",
		UserID:      "u-7",
	})
}

func newTestModule(conn sap.Connector) *Module {
	return NewModule("FI-AP", Deps{
		Connectors: staticProvider{conn: conn},
		Breakers:   breaker.NewPool(breaker.Config{FailureThreshold: 3, Cooldown: time.Minute}),
	})
}

func successReturn() sap.FunctionResult {
	return sap.FunctionResult{
		"OBJ_KEY": "5100000123",
		"RETURN":  []any{map[string]any{"TYPE": "S", "MESSAGE": "Document posted"}},
	}
}

func errorReturn() sap.FunctionResult {
	return sap.FunctionResult{
		"RETURN": []any{map[string]any{"TYPE": "E", "MESSAGE": "Balance in transaction currency"}},
	}
}

func TestExecutePostingSuccess(t *testing.T) {
	conn := new(MockConnector)
	conn.On("CallFunction", mock.Anything, "BAPI_ACC_DOCUMENT_POST", mock.Anything).Return(successReturn(), nil)
	conn.On("CallFunction", mock.Anything, sap.FunctionCommit, mock.Anything).Return(sap.FunctionResult{}, nil)

	m := newTestModule(conn)
	result, err := m.ExecutePosting(tenantCtx(), PostingOp{
		Type:        "VENDOR_INVOICE",
		Function:    "BAPI_ACC_DOCUMENT_POST",
		Params:      sap.Params{},
		DocumentKey: "OBJ_KEY",
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "5100000123", result.DocumentNumber)

	history := m.History(sap.TransactionCompleted)
	require.Len(t, history, 1)
	assert.Equal(t, "5100000123", history[0].DocumentNumber)
	assert.Equal(t, "u-7", history[0].CreatedBy)
	conn.AssertExpectations(t)
}

func TestExecutePostingRemoteErrorRollsBack(t *testing.T) {
	conn := new(MockConnector)
	conn.On("CallFunction", mock.Anything, "BAPI_ACC_DOCUMENT_POST", mock.Anything).Return(errorReturn(), nil)
	conn.On("CallFunction", mock.Anything, sap.FunctionRollback, mock.Anything).Return(sap.FunctionResult{}, nil)

	m := newTestModule(conn)
	result, err := m.ExecutePosting(tenantCtx(), PostingOp{
		Type:        "VENDOR_INVOICE",
		Function:    "BAPI_ACC_DOCUMENT_POST",
		DocumentKey: "OBJ_KEY",
	})

	require.Error(t, err)
	var remoteErr *shared.RemoteDocumentError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "FI-AP", remoteErr.Module)

	// no document number ever escapes a failed posting
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Empty(t, result.DocumentNumber)

	history := m.History(sap.TransactionFailed)
	require.Len(t, history, 1)
	assert.Empty(t, history[0].DocumentNumber)

	conn.AssertCalled(t, "CallFunction", mock.Anything, sap.FunctionRollback, mock.Anything)
	conn.AssertNotCalled(t, "CallFunction", mock.Anything, sap.FunctionCommit, mock.Anything)
}

func TestExecutePostingConnectionFailure(t *testing.T) {
	conn := new(MockConnector)
	conn.On("CallFunction", mock.Anything, "BAPI_ACC_DOCUMENT_POST", mock.Anything).
		Return(nil, fmt.Errorf("%w: connection refused", shared.ErrGatewayUnavailable))

	m := newTestModule(conn)
	result, err := m.ExecutePosting(tenantCtx(), PostingOp{
		Type:     "VENDOR_INVOICE",
		Function: "BAPI_ACC_DOCUMENT_POST",
	})

	assert.ErrorIs(t, err, shared.ErrGatewayUnavailable)
	assert.Nil(t, result)
	assert.Len(t, m.History(sap.TransactionFailed), 1)
}

func TestExecutePostingFailsFastWhenCircuitOpen(t *testing.T) {
	conn := new(MockConnector)
	conn.On("CallFunction", mock.Anything, "BAPI_ACC_DOCUMENT_POST", mock.Anything).
		Return(nil, errors.New("gateway timeout")).Times(3)

	m := newTestModule(conn)
	ctx := tenantCtx()
	op := PostingOp{Type: "VENDOR_INVOICE", Function: "BAPI_ACC_DOCUMENT_POST"}

	for i := 0; i < 3; i++ {
		_, err := m.ExecutePosting(ctx, op)
		require.Error(t, err)
	}

	// 4th call fails fast without reaching the connector
	_, err := m.ExecutePosting(ctx, op)
	assert.ErrorIs(t, err, shared.ErrCircuitOpen)
	conn.AssertNumberOfCalls(t, "CallFunction", 3)
}

func TestExecutePostingDuplicateNaturalKey(t *testing.T) {
	conn := new(MockConnector)
	conn.On("CallFunction", mock.Anything, "BAPI_ACC_DOCUMENT_POST", mock.Anything).Return(successReturn(), nil)
	conn.On("CallFunction", mock.Anything, sap.FunctionCommit, mock.Anything).Return(sap.FunctionResult{}, nil)

	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()

	m := NewModule("FI-AP", Deps{
		Connectors:     staticProvider{conn: conn},
		Breakers:       breaker.NewPool(breaker.Config{}),
		Idempotency:    store,
		IdempotencyCfg: shared.DefaultIdempotencyConfig(),
	})

	op := PostingOp{
		Type:        "VENDOR_INVOICE",
		Function:    "BAPI_ACC_DOCUMENT_POST",
		DocumentKey: "OBJ_KEY",
		NaturalKey:  "FI-AP:0000100234:INV-2024-001",
	}

	result, err := m.ExecutePosting(tenantCtx(), op)
	require.NoError(t, err)
	assert.True(t, result.Success)

	_, err = m.ExecutePosting(tenantCtx(), op)
	assert.ErrorIs(t, err, shared.ErrDuplicateDocument)
	conn.AssertNumberOfCalls(t, "CallFunction", 2) // one posting, one commit
}

func TestExecutePostingWithoutTenant(t *testing.T) {
	m := newTestModule(new(MockConnector))
	_, err := m.ExecutePosting(context.Background(), PostingOp{Function: "BAPI_PO_CREATE1"})
	assert.ErrorIs(t, err, shared.ErrUnknownTenant)
}

func TestBatchProcessIsolatesFailures(t *testing.T) {
	items := []string{"a", "bad", "c"}

	result := BatchProcess(context.Background(), items, func(ctx context.Context, item string) (string, error) {
		if item == "bad" {
			return "", errors.New("validation failed")
		}
		return "DOC-" + item, nil
	})

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Details, 3)
	assert.Equal(t, "DOC-a", result.Details[0].DocumentNumber)
	assert.False(t, result.Details[1].Success)
	assert.Equal(t, "validation failed", result.Details[1].Error)
	assert.True(t, result.Details[2].Success, "failure must not abort later items")
}

func TestCompanyCodeFromTenantContext(t *testing.T) {
	m := newTestModule(new(MockConnector))
	assert.Equal(t, "1000", m.CompanyCode(context.Background()))

	ctx := tenant.WithContext(context.Background(), tenant.Context{TenantID: "t", CompanyCode: "2000"})
	assert.Equal(t, "2000", m.CompanyCode(ctx))
}
