package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNewPostingMetrics(t *testing.T) {
	pm, err := NewPostingMetrics(otel.GetMeterProvider().Meter("test"))
	require.NoError(t, err)

	// instruments accept recordings without panicking even on the no-op provider
	ctx := context.Background()
	pm.RecordPosted(ctx, "FI-AP", "acme-prod")
	pm.RecordFailed(ctx, "MM-PO", "acme-prod")
	pm.RecordRejected(ctx, "SD-SO", "acme-prod")
	pm.RecordWorkflowFinished(ctx, "procure_to_pay", "completed")
	pm.RecordBreakerOpened(ctx, "acme-prod")
	pm.RecordRateLimited(ctx, "client-1")
	pm.RecordPostingDuration(ctx, "FI-AP", 42.5)
}

func TestNewPostingMetricsNilMeterFallsBack(t *testing.T) {
	pm, err := NewPostingMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, pm)
}

func TestNewCounter(t *testing.T) {
	meter := otel.GetMeterProvider().Meter("test")
	c, err := NewCounter(meter, "test.counter", "test", "{item}")
	require.NoError(t, err)
	c.Inc(context.Background())
	c.Add(context.Background(), 5)
}
