package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	attrEndpoint  = "endpoint"
	attrStatus    = "status"
	attrDirection = "direction"
	attrResult    = "result"
	attrKind      = "kind"
)

// Metrics provides methods for recording observability metrics.
// A zero Metrics (or a nil *Metrics) records nothing.
type Metrics struct {
	// Zoom API metrics
	zoomRequestsTotal   metric.Int64Counter
	zoomRequestDuration metric.Float64Histogram
	tokenRefreshTotal   metric.Int64Counter
	recordingsFetched   metric.Int64Counter

	// Transfer metrics
	transferAttemptsTotal metric.Int64Counter
	transferBytesTotal    metric.Int64Counter
	transferDuration      metric.Float64Histogram

	// Verification metrics
	reconcileFindingsTotal metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.zoomRequestsTotal, err = meter.Int64Counter(
		"zoom_api_requests_total",
		metric.WithDescription("Total number of Zoom API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zoom_api_requests_total counter: %w", err)
	}

	m.zoomRequestDuration, err = meter.Float64Histogram(
		"zoom_api_request_duration_seconds",
		metric.WithDescription("Zoom API request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zoom_api_request_duration_seconds histogram: %w", err)
	}

	m.tokenRefreshTotal, err = meter.Int64Counter(
		"zoom_token_refresh_total",
		metric.WithDescription("Total number of Zoom access token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zoom_token_refresh_total counter: %w", err)
	}

	m.recordingsFetched, err = meter.Int64Counter(
		"recordings_fetched_total",
		metric.WithDescription("Total number of meeting recordings listed"),
		metric.WithUnit("{meeting}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create recordings_fetched_total counter: %w", err)
	}

	m.transferAttemptsTotal, err = meter.Int64Counter(
		"transfer_attempts_total",
		metric.WithDescription("Total number of download and upload attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer_attempts_total counter: %w", err)
	}

	m.transferBytesTotal, err = meter.Int64Counter(
		"transfer_bytes_total",
		metric.WithDescription("Total number of bytes transferred"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer_bytes_total counter: %w", err)
	}

	m.transferDuration, err = meter.Float64Histogram(
		"transfer_duration_seconds",
		metric.WithDescription("Duration of completed transfers in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer_duration_seconds histogram: %w", err)
	}

	m.reconcileFindingsTotal, err = meter.Int64Counter(
		"reconcile_findings_total",
		metric.WithDescription("Total number of verification findings by kind"),
		metric.WithUnit("{finding}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconcile_findings_total counter: %w", err)
	}

	return m, nil
}

// RecordZoomRequest records a Zoom API request with endpoint, status code, and duration.
func (m *Metrics) RecordZoomRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if m == nil || m.zoomRequestsTotal == nil || m.zoomRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrEndpoint, endpoint),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.zoomRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.zoomRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordTokenRefresh records a token refresh attempt.
// Result should be one of: "success", "failure", "skipped"
func (m *Metrics) RecordTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.tokenRefreshTotal == nil {
		return // Instrumentation not initialized
	}

	m.tokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordRecordingsFetched adds n listed meetings.
func (m *Metrics) RecordRecordingsFetched(ctx context.Context, n int) {
	if m == nil || m.recordingsFetched == nil || n <= 0 {
		return // Instrumentation not initialized
	}

	m.recordingsFetched.Add(ctx, int64(n))
}

// RecordTransferAttempt records a single download or upload attempt.
//
// Parameters:
//   - direction: DirectionDownload or DirectionUpload
//   - status: "success" or "error"
func (m *Metrics) RecordTransferAttempt(ctx context.Context, direction, status string) {
	if m == nil || m.transferAttemptsTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrDirection, direction),
		attribute.String(attrStatus, status),
	}

	m.transferAttemptsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTransfer records a completed transfer of n bytes.
func (m *Metrics) RecordTransfer(ctx context.Context, direction string, n int64, duration time.Duration) {
	if m == nil || m.transferBytesTotal == nil || m.transferDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := metric.WithAttributes(attribute.String(attrDirection, direction))
	m.transferBytesTotal.Add(ctx, n, attrs)
	m.transferDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordReconcileFindings records verification findings of the given kind
// (FindingMissingFolder or FindingMismatchedFile).
func (m *Metrics) RecordReconcileFindings(ctx context.Context, kind string, n int) {
	if m == nil || m.reconcileFindingsTotal == nil || n <= 0 {
		return // Instrumentation not initialized
	}

	m.reconcileFindingsTotal.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrKind, kind)))
}
