// Package cmd implements the command-line interface for inboxtriage.
//
// This package provides the following commands:
//   - auth: Authorize access to Gmail, Google Tasks and Google Calendar
//   - fetch: Fetch recent unread email and store it for classification
//   - topics: List general topics or suggest specific ones
//   - preferences: Submit general or specific topic rankings
//   - organize: Classify stored email and create tasks and events
//   - actions: Show the classified actions of the last run
//   - serve: Start the HTTP API and MCP server
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// The organize command is the default command when no subcommand is specified.
package cmd
