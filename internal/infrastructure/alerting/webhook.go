// Package alerting sends operational alerts to a configured webhook. Delivery
// is fire-and-forget: an unreachable alert endpoint must never affect a
// posting.
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sapflow/backend/internal/infrastructure/logger"
)

// Severity classifies an alert
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is the webhook payload
type Alert struct {
	Severity  Severity       `json:"severity"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	TenantID  string         `json:"tenant_id,omitempty"`
	Module    string         `json:"module,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Notifier delivers alerts somewhere operators will see them
type Notifier interface {
	Notify(ctx context.Context, alert Alert)
}

// WebhookNotifier posts alerts as JSON to a single webhook URL
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	log        *zap.Logger
}

// NewWebhookNotifier creates a notifier for the given webhook URL
func NewWebhookNotifier(url string, timeout time.Duration, zapLogger *zap.Logger) *WebhookNotifier {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		log:        zapLogger.Named("alerting"),
	}
}

// Notify delivers the alert asynchronously. Tenant identity is filled from
// the context when not set on the alert. Failures are logged, never returned.
func (n *WebhookNotifier) Notify(ctx context.Context, alert Alert) {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now().UTC()
	}
	if alert.TenantID == "" {
		alert.TenantID = logger.GetTenantID(ctx)
	}

	go func() {
		if err := n.deliver(alert); err != nil {
			n.log.Warn("failed to deliver alert",
				zap.String("title", alert.Title),
				zap.String("severity", string(alert.Severity)),
				zap.Error(err),
			)
		}
	}()
}

func (n *WebhookNotifier) deliver(alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// NopNotifier drops all alerts, used when alerting is disabled
type NopNotifier struct{}

// Notify implements Notifier
func (NopNotifier) Notify(ctx context.Context, alert Alert) {}

var (
	_ Notifier = (*WebhookNotifier)(nil)
	_ Notifier = NopNotifier{}
)
