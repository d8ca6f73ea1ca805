package triage_tools

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxtriage/internal/preferences"
	"github.com/teemow/inboxtriage/internal/server"
	"github.com/teemow/inboxtriage/internal/tools/common"
)

func registerPreferenceTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	h := &handlers{sc: sc}

	listGeneralTool := mcp.NewTool("triage_list_general_topics",
		mcp.WithDescription("List the ten general topics the user ranks to describe which email matters"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(listGeneralTool, common.InstrumentedToolHandler("triage_list_general_topics", true, sc, h.listGeneralTopics))

	submitGeneralTool := mcp.NewTool("triage_submit_general_preferences",
		mcp.WithDescription("Save a ranking of all ten general topics (1 = most important) and return the top five"),
		mcp.WithObject("preferences",
			mcp.Required(),
			mcp.Description("Object mapping every general topic to a unique integer rank, e.g. {\"Work\": 1, ...}"),
		),
	)
	s.AddTool(submitGeneralTool, common.InstrumentedToolHandler("triage_submit_general_preferences", true, sc, h.submitGeneral))

	suggestTool := mcp.NewTool("triage_suggest_specific_topics",
		mcp.WithDescription("Ask the model for ten specific email topics derived from the top general preferences"),
		mcp.WithString("top_preferences",
			mcp.Description("Comma separated top preferences. Defaults to the ones saved with the general ranking."),
		),
	)
	s.AddTool(suggestTool, common.InstrumentedToolHandler("triage_suggest_specific_topics", true, sc, h.suggestSpecificTopics))

	submitSpecificTool := mcp.NewTool("triage_submit_specific_preferences",
		mcp.WithDescription("Save a ranking of exactly ten specific topics (1 = most important)"),
		mcp.WithObject("preferences",
			mcp.Required(),
			mcp.Description("Object mapping ten specific topics to unique integer ranks"),
		),
	)
	s.AddTool(submitSpecificTool, common.InstrumentedToolHandler("triage_submit_specific_preferences", true, sc, h.submitSpecific))
}

func (h *handlers) listGeneralTopics(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(common.FormatJSON(map[string]interface{}{"topics": preferences.GeneralTopics})), nil
}

func (h *handlers) submitGeneral(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ranking, err := common.ParseRanking(request.GetArguments()["preferences"], "preferences")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	top, err := h.sc.Triage().Preferences().SubmitGeneral(ctx, ranking)
	if err != nil {
		return toolError("save general preferences", err), nil
	}
	return mcp.NewToolResultText(common.FormatJSON(map[string]interface{}{"top_preferences": top})), nil
}

func (h *handlers) suggestSpecificTopics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	top, err := common.ParseStringOrArray(request.GetArguments()["top_preferences"], "top_preferences")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	topics, err := h.sc.Triage().SuggestTopics(ctx, top)
	if err != nil {
		return toolError("suggest specific topics", err), nil
	}
	return mcp.NewToolResultText(common.FormatJSON(map[string]interface{}{"specific_topics": topics})), nil
}

func (h *handlers) submitSpecific(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ranking, err := common.ParseRanking(request.GetArguments()["preferences"], "preferences")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := h.sc.Triage().Preferences().SubmitSpecific(ctx, ranking); err != nil {
		return toolError("save specific preferences", err), nil
	}

	ranked := strings.Join(ranking.Top(len(ranking)), ", ")
	return mcp.NewToolResultText("Specific preferences saved successfully. Ranked: " + ranked), nil
}
