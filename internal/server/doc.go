// Package server exposes inboxtriage over HTTP.
//
// HTTPServer serves the preference and triage routes:
//
//	GET  /general-topics
//	POST /general-preferences
//	POST /specific-topics
//	POST /specific-preferences
//	GET  /emails
//	GET  /organizer, POST /organizer
//	GET  /actions
//
// together with the /healthz, /readyz and /healthz/detailed probes and,
// when configured, the MCP streamable HTTP endpoint at /mcp. Every request
// is recorded in the http_requests_total and http_request_duration_seconds
// metrics.
//
// MetricsServer serves /metrics for Prometheus on a separate port.
//
// ServerContext carries the triage service, metrics and audit logger shared
// by the HTTP handlers and the MCP tools.
package server
