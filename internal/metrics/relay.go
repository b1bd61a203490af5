package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RelayMetrics defines the interface for recording outbox relay metrics.
// Implementations track published and failed record counts per topic and
// the duration of relay cycles.
type RelayMetrics interface {
	// RecordPublished records a record delivered to the broker and marked processed.
	RecordPublished(ctx context.Context, topic string)

	// RecordFailed records a record whose publish or mark failed, ending the cycle.
	RecordFailed(ctx context.Context, topic string)

	// RecordCycleDuration records the duration of a completed relay cycle.
	RecordCycleDuration(ctx context.Context, duration time.Duration)
}

// relayMetrics implements RelayMetrics using OpenTelemetry metrics.
type relayMetrics struct {
	publishedCounter metric.Int64Counter
	failedCounter    metric.Int64Counter
	cycleHisto       metric.Float64Histogram
}

// NewRelayMetrics creates a new RelayMetrics implementation using the provided meter provider.
// The namespace parameter is used as a prefix for all metric names (e.g., "orders").
// Returns error if meters cannot be initialized.
func NewRelayMetrics(meterProvider metric.MeterProvider, namespace string) (RelayMetrics, error) {
	meter := meterProvider.Meter(namespace)

	publishedCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_outbox_records_published_total", namespace),
		metric.WithDescription("Total number of outbox records published to the broker"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create published counter: %w", err)
	}

	failedCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_outbox_records_failed_total", namespace),
		metric.WithDescription("Total number of outbox record publish failures"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create failed counter: %w", err)
	}

	cycleHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_outbox_cycle_duration_seconds", namespace),
		metric.WithDescription("Duration of outbox relay cycles in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cycle duration histogram: %w", err)
	}

	return &relayMetrics{
		publishedCounter: publishedCounter,
		failedCounter:    failedCounter,
		cycleHisto:       cycleHisto,
	}, nil
}

// RecordPublished increments the published counter with a topic label.
func (r *relayMetrics) RecordPublished(ctx context.Context, topic string) {
	r.publishedCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("topic", topic)),
	)
}

// RecordFailed increments the failed counter with a topic label.
func (r *relayMetrics) RecordFailed(ctx context.Context, topic string) {
	r.failedCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("topic", topic)),
	)
}

// RecordCycleDuration records the cycle duration in seconds.
func (r *relayMetrics) RecordCycleDuration(ctx context.Context, duration time.Duration) {
	r.cycleHisto.Record(ctx, duration.Seconds())
}

// NoOpRelayMetrics is a no-op implementation of RelayMetrics for when metrics are disabled.
type NoOpRelayMetrics struct{}

// NewNoOpRelayMetrics creates a no-op RelayMetrics implementation.
func NewNoOpRelayMetrics() RelayMetrics {
	return &NoOpRelayMetrics{}
}

// RecordPublished does nothing when metrics are disabled.
func (n *NoOpRelayMetrics) RecordPublished(ctx context.Context, topic string) {
	// No-op
}

// RecordFailed does nothing when metrics are disabled.
func (n *NoOpRelayMetrics) RecordFailed(ctx context.Context, topic string) {
	// No-op
}

// RecordCycleDuration does nothing when metrics are disabled.
func (n *NoOpRelayMetrics) RecordCycleDuration(ctx context.Context, duration time.Duration) {
	// No-op
}
