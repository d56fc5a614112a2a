// Package instrumentation provides OpenTelemetry metrics and tracing for
// sync and verify runs.
//
// # Metrics
//
// Zoom API:
//   - zoom_api_requests_total: requests by endpoint and status code
//   - zoom_api_request_duration_seconds: request latency
//   - zoom_token_refresh_total: token refresh attempts by result
//   - recordings_fetched_total: meetings listed
//
// Transfers:
//   - transfer_attempts_total: download and upload attempts by direction and status
//   - transfer_bytes_total: bytes moved by direction
//   - transfer_duration_seconds: duration of completed transfers
//
// Verification:
//   - reconcile_findings_total: missing folders and mismatched files
//
// # Configuration
//
// Instrumentation is configured from the [metrics] config table and the
// standard OTEL environment variables:
//   - INSTRUMENTATION_ENABLED: enable or disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP collector endpoint
//   - OTEL_TRACES_SAMPLER_ARG: sampling rate between 0.0 and 1.0 (default: 1.0)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordZoomRequest(ctx, "recordings", 200, elapsed)
package instrumentation
