// Package triage_tools exposes the triage pipeline as MCP tools.
//
// Read tools are always registered:
//   - triage_list_general_topics
//   - triage_submit_general_preferences
//   - triage_suggest_specific_topics
//   - triage_submit_specific_preferences
//   - triage_list_emails
//   - triage_list_actions
//
// triage_fetch_emails and triage_organize read the mailbox and create tasks
// and calendar events, so they are only registered when the server is not
// read-only.
package triage_tools
