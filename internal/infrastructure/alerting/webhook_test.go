package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sapflow/backend/internal/infrastructure/logger"
)

func TestWebhookNotifierDelivers(t *testing.T) {
	var received atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var alert Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&alert))
		received.Store(alert)
	}))
	defer server.Close()

	n := NewWebhookNotifier(server.URL, time.Second, nil)
	ctx := logger.WithTenant(context.Background(), "acme-prod", "1000")
	n.Notify(ctx, Alert{
		Severity: SeverityCritical,
		Title:    "circuit breaker open",
		Message:  "gateway calls are failing fast",
		Module:   "FI-AP",
	})

	assert.Eventually(t, func() bool {
		return received.Load() != nil
	}, time.Second, 10*time.Millisecond)

	alert := received.Load().(Alert)
	assert.Equal(t, SeverityCritical, alert.Severity)
	assert.Equal(t, "acme-prod", alert.TenantID, "tenant filled from context")
	assert.False(t, alert.Timestamp.IsZero())
}

func TestWebhookNotifierSurvivesUnreachableEndpoint(t *testing.T) {
	n := NewWebhookNotifier("http://127.0.0.1:1", 100*time.Millisecond, nil)

	// must not panic or block
	n.Notify(context.Background(), Alert{Severity: SeverityWarning, Title: "test"})
	time.Sleep(200 * time.Millisecond)
}

func TestNopNotifier(t *testing.T) {
	NopNotifier{}.Notify(context.Background(), Alert{Title: "ignored"})
}
