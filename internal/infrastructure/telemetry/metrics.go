// Package telemetry provides OpenTelemetry metric instruments for the
// posting and workflow pipelines.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter is nil")

// Counter wraps an Int64Counter with attribute helpers
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter creates a Counter metric
func NewCounter(meter metric.Meter, name, description, unit string) (*Counter, error) {
	c, err := meter.Int64Counter(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return &Counter{counter: c}, nil
}

// Add increments the counter by the given value
func (c *Counter) Add(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

// Inc increments the counter by one
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Histogram wraps a Float64Histogram for durations and amounts
type Histogram struct {
	histogram metric.Float64Histogram
}

// NewHistogram creates a Histogram metric
func NewHistogram(meter metric.Meter, name, description, unit string) (*Histogram, error) {
	h, err := meter.Float64Histogram(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return &Histogram{histogram: h}, nil
}

// Record records a value in the histogram
func (h *Histogram) Record(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}

// PostingMetrics tracks document postings, workflow outcomes and resilience
// events across all tenants.
type PostingMetrics struct {
	documentsPosted   *Counter
	documentsFailed   *Counter
	documentsRejected *Counter
	workflowsFinished *Counter
	breakerOpened     *Counter
	rateLimited       *Counter
	postingDuration   *Histogram
}

// NewPostingMetrics creates the metric instruments on the given meter. A nil
// meter falls back to the global provider.
func NewPostingMetrics(meter metric.Meter) (*PostingMetrics, error) {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter("sapflow")
	}

	pm := &PostingMetrics{}
	var err error

	if pm.documentsPosted, err = NewCounter(meter,
		"sapflow.documents.posted", "Documents posted successfully", "{document}"); err != nil {
		return nil, err
	}
	if pm.documentsFailed, err = NewCounter(meter,
		"sapflow.documents.failed", "Document postings that failed", "{document}"); err != nil {
		return nil, err
	}
	if pm.documentsRejected, err = NewCounter(meter,
		"sapflow.documents.rejected", "Documents rejected by the remote system", "{document}"); err != nil {
		return nil, err
	}
	if pm.workflowsFinished, err = NewCounter(meter,
		"sapflow.workflows.finished", "Workflow executions by terminal status", "{workflow}"); err != nil {
		return nil, err
	}
	if pm.breakerOpened, err = NewCounter(meter,
		"sapflow.breaker.opened", "Circuit breaker open transitions", "{event}"); err != nil {
		return nil, err
	}
	if pm.rateLimited, err = NewCounter(meter,
		"sapflow.ratelimit.rejected", "Requests rejected by the rate limiter", "{request}"); err != nil {
		return nil, err
	}
	if pm.postingDuration, err = NewHistogram(meter,
		"sapflow.posting.duration", "Posting round-trip duration", "ms"); err != nil {
		return nil, err
	}
	return pm, nil
}

// RecordPosted counts one successful posting
func (pm *PostingMetrics) RecordPosted(ctx context.Context, module, tenantID string) {
	pm.documentsPosted.Inc(ctx,
		attribute.String("module", module),
		attribute.String("tenant_id", tenantID),
	)
}

// RecordFailed counts one failed posting
func (pm *PostingMetrics) RecordFailed(ctx context.Context, module, tenantID string) {
	pm.documentsFailed.Inc(ctx,
		attribute.String("module", module),
		attribute.String("tenant_id", tenantID),
	)
}

// RecordRejected counts one posting rejected by the remote system
func (pm *PostingMetrics) RecordRejected(ctx context.Context, module, tenantID string) {
	pm.documentsRejected.Inc(ctx,
		attribute.String("module", module),
		attribute.String("tenant_id", tenantID),
	)
}

// RecordWorkflowFinished counts one workflow reaching a terminal status
func (pm *PostingMetrics) RecordWorkflowFinished(ctx context.Context, workflow, status string) {
	pm.workflowsFinished.Inc(ctx,
		attribute.String("workflow", workflow),
		attribute.String("status", status),
	)
}

// RecordBreakerOpened counts one circuit breaker trip
func (pm *PostingMetrics) RecordBreakerOpened(ctx context.Context, tenantID string) {
	pm.breakerOpened.Inc(ctx, attribute.String("tenant_id", tenantID))
}

// RecordRateLimited counts one rate limited request
func (pm *PostingMetrics) RecordRateLimited(ctx context.Context, clientID string) {
	pm.rateLimited.Inc(ctx, attribute.String("client_id", clientID))
}

// RecordPostingDuration records a posting round-trip duration in milliseconds
func (pm *PostingMetrics) RecordPostingDuration(ctx context.Context, module string, millis float64) {
	pm.postingDuration.Record(ctx, millis, attribute.String("module", module))
}
