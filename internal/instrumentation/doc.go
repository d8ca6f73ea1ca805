// Package instrumentation provides OpenTelemetry instrumentation for
// inboxtriage.
//
// # Metrics
//
// HTTP:
//   - http_requests_total: Counter of HTTP requests by method, path, and status
//   - http_request_duration_seconds: Histogram of HTTP request durations
//
// Google APIs:
//   - google_api_operations_total: Counter by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of operation durations
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// Language model:
//   - llm_requests_total: Counter by model and status
//   - llm_request_duration_seconds: Histogram of model call durations
//
// Triage pipeline:
//   - triage_runs_total: Counter of stage runs by stage and status
//   - triage_actions_total: Counter of routed actions by destination and result
//   - triage_skipped_items_total: Counter of dropped items by reason
//   - triage_emails_fetched_total: Counter of fetched unread emails
//
// MCP tools:
//   - mcp_tool_invocations_total: Counter by tool name and status
//   - mcp_tool_duration_seconds: Histogram of tool execution durations
//
// # Tracing
//
// Spans are created for pipeline stages (triage.<stage>), model calls
// (llm.generate), Google API calls (google.<service>.<operation>) and MCP
// tool invocations (tool.<name>).
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: inboxtriage)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordTriageRun(ctx, instrumentation.StageClassify, instrumentation.StatusSuccess)
package instrumentation
