package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sapflow/backend/internal/infrastructure/config"
	"github.com/sapflow/backend/internal/infrastructure/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(&config.AuditConfig{Driver: "sqlite", Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLogActionPersistsRecord(t *testing.T) {
	store := newTestStore(t)

	ctx := logger.WithTenant(context.Background(), "acme-prod", "1000")
	ctx = logger.WithUserID(ctx, "u-7")
	store.LogAction(ctx, "FI-AP", "invoice_posted", map[string]any{"document": "5100000123"})

	assert.Eventually(t, func() bool {
		logs, err := store.Query(context.Background(), "acme-prod", "", 10)
		return err == nil && len(logs) == 1
	}, time.Second, 10*time.Millisecond)

	logs, err := store.Query(context.Background(), "acme-prod", "FI-AP", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "invoice_posted", logs[0].Action)
	assert.Equal(t, "u-7", logs[0].UserID)
	assert.Contains(t, logs[0].Details, "5100000123")
}

func TestLogActionMasksSensitiveValues(t *testing.T) {
	store := newTestStore(t)

	store.LogAction(context.Background(), "FI-AP", "vendor_updated", map[string]any{
		"vendor":   "0000100234",
		"tax_id":   "12-3456789",
		"password": "hunter2",
		"bank": map[string]any{
			"iban": "DE89370400440532013000",
			"name": "Acme Bank",
		},
	})

	assert.Eventually(t, func() bool {
		logs, _ := store.Query(context.Background(), "", "", 10)
		return len(logs) == 1
	}, time.Second, 10*time.Millisecond)

	logs, err := store.Query(context.Background(), "", "", 10)
	require.NoError(t, err)
	details := logs[0].Details
	assert.NotContains(t, details, "12-3456789")
	assert.NotContains(t, details, "hunter2")
	assert.NotContains(t, details, "DE89370400440532013000")
	assert.Contains(t, details, "0000100234")
	assert.Contains(t, details, "Acme Bank")
}

func TestMaskValues(t *testing.T) {
	out := maskValues(map[string]any{
		"credit_card_number": "4111111111111111",
		"amount":             1500.0,
	})
	assert.Equal(t, masked, out["credit_card_number"])
	assert.Equal(t, 1500.0, out["amount"])
}

func TestQueryLimitBounds(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Query(context.Background(), "", "", -5)
	assert.NoError(t, err)
}
