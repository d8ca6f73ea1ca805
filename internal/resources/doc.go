// Package resources provides read-only MCP resources for the triage state:
// the saved preference rankings and the actions of the last organize run.
package resources
