package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextValueRoundTrip(t *testing.T) {
	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithTenant(ctx, "acme-prod", "1000")
	ctx = WithUserID(ctx, "u-7")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "acme-prod", GetTenantID(ctx))
	assert.Equal(t, "1000", GetCompanyCode(ctx))
	assert.Equal(t, "u-7", GetUserID(ctx))
}

func TestContextValueMissingReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetTenantID(ctx))
}

func TestFromContextFallsBackToNop(t *testing.T) {
	l := FromContext(context.Background())
	assert.NotNil(t, l)
}

func TestContextLoggerEnrichesFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := WithContext(context.Background(), base)
	ctx = WithRequestID(ctx, "req-9")
	ctx = WithTenant(ctx, "acme-prod", "2000")

	L(ctx).Info("posting document")

	entries := logs.All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, "acme-prod", fields["tenant_id"])
	assert.Equal(t, "2000", fields["company_code"])
}

func TestContextLoggerWithAddsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := WithContext(context.Background(), base)
	L(ctx).With(zap.String("module", "FI-AP")).Info("done")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "FI-AP", fields["module"])
}

func TestNewLoggerLevels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", "fatal", "bogus"} {
		l, err := New(&Config{Level: lvl, Format: "json", Output: "stdout"})
		assert.NoError(t, err)
		assert.NotNil(t, l)
	}
}
