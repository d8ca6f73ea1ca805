package triage_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxtriage/internal/actions"
	"github.com/teemow/inboxtriage/internal/preferences"
	"github.com/teemow/inboxtriage/internal/server"
	"github.com/teemow/inboxtriage/internal/storage"
	"github.com/teemow/inboxtriage/internal/tools/common"
	"github.com/teemow/inboxtriage/internal/triage"
)

// RegisterTriageTools registers the triage tools with the MCP server.
func RegisterTriageTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if s == nil || sc == nil {
		return fmt.Errorf("mcp server and server context are required")
	}

	registerPreferenceTools(s, sc)
	registerReadTools(s, sc)
	if !readOnly {
		registerWriteTools(s, sc)
	}
	return nil
}

type handlers struct {
	sc *server.ServerContext
}

func registerReadTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	h := &handlers{sc: sc}

	listEmailsTool := mcp.NewTool("triage_list_emails",
		mcp.WithDescription("List the emails stored by the last fetch, without contacting Gmail"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(listEmailsTool, common.InstrumentedToolHandler("triage_list_emails", true, sc, h.listEmails))

	listActionsTool := mcp.NewTool("triage_list_actions",
		mcp.WithDescription("List the classified actions from the last successful organize run"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(listActionsTool, common.InstrumentedToolHandler("triage_list_actions", true, sc, h.listActions))
}

func registerWriteTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	h := &handlers{sc: sc}

	fetchTool := mcp.NewTool("triage_fetch_emails",
		mcp.WithDescription("Fetch recent unread primary-inbox emails from Gmail and store them for classification"),
	)
	s.AddTool(fetchTool, common.InstrumentedToolHandler("triage_fetch_emails", false, sc, h.fetchEmails))

	organizeTool := mcp.NewTool("triage_organize",
		mcp.WithDescription("Classify the stored emails against the saved preferences and create Google Tasks and Calendar entries for actionable ones"),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(organizeTool, common.InstrumentedToolHandler("triage_organize", false, sc, h.organize))
}

func (h *handlers) listEmails(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	emails, err := h.sc.Triage().Emails(ctx)
	if storage.IsNotFound(err) {
		return mcp.NewToolResultError("No emails stored yet. Run triage_fetch_emails first."), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load emails: %v", err)), nil
	}
	return mcp.NewToolResultText(common.FormatJSON(map[string]interface{}{"emails": emails})), nil
}

func (h *handlers) listActions(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	batch, err := h.sc.Triage().Actions(ctx)
	if storage.IsNotFound(err) {
		return mcp.NewToolResultError("No classified actions yet. Run triage_organize first."), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load actions: %v", err)), nil
	}
	return mcp.NewToolResultText(common.FormatJSON(map[string]interface{}{"actions": batch})), nil
}

func (h *handlers) fetchEmails(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	emails, err := h.sc.Triage().FetchEmails(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch emails: %v", err)), nil
	}
	return mcp.NewToolResultText(common.FormatJSON(map[string]interface{}{
		"fetched": len(emails),
		"emails":  emails,
	})), nil
}

func (h *handlers) organize(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := h.sc.Triage().Organize(ctx)
	if report != nil {
		common.SetRunID(ctx, report.RunID)
	}
	if err != nil {
		var parseErr *actions.ParseError
		if errors.As(err, &parseErr) {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to parse response from model: %v\n\n%s", parseErr, common.FormatJSON(report))), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Organize run failed: %v", err)), nil
	}
	return mcp.NewToolResultText(common.FormatJSON(report)), nil
}

// toolError renders a pipeline error for a tool result.
func toolError(action string, err error) *mcp.CallToolResult {
	var validationErr *preferences.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return mcp.NewToolResultError(validationErr.Reason)
	case errors.Is(err, triage.ErrNoTopPreferences):
		return mcp.NewToolResultError(triage.ErrNoTopPreferences.Error())
	}
	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
}
