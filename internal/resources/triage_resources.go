package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxtriage/internal/server"
	"github.com/teemow/inboxtriage/internal/storage"
)

const (
	// PreferencesURI is the resource with the saved rankings.
	PreferencesURI = "triage://preferences"

	// ActionsURI is the resource with the last classified batch.
	ActionsURI = "triage://actions/latest"
)

// RegisterTriageResources registers the triage state resources.
func RegisterTriageResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return fmt.Errorf("mcp server and server context are required")
	}

	preferencesResource := mcp.NewResource(
		PreferencesURI,
		"Topic Preferences",
		mcp.WithResourceDescription("Saved general and specific topic rankings, top preferences and the suggested specific topics"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(preferencesResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handlePreferences(ctx, request, sc)
	})

	actionsResource := mcp.NewResource(
		ActionsURI,
		"Latest Classified Actions",
		mcp.WithResourceDescription("Actions classified by the last successful organize run"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(actionsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleActions(ctx, request, sc)
	})

	return nil
}

// handlePreferences returns whatever preference state has been saved.
// Missing documents are omitted.
func handlePreferences(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	prefs := sc.Triage().Preferences()
	data := map[string]interface{}{}

	general, err := prefs.General(ctx)
	if err := collect(data, storage.KeyGeneralPreferences, general, err); err != nil {
		return nil, err
	}
	top, err := prefs.TopPreferences(ctx)
	if err := collect(data, storage.KeyTopPreferences, top, err); err != nil {
		return nil, err
	}
	catalog, err := prefs.SpecificTopics(ctx)
	if err := collect(data, storage.KeySpecificTopics, catalog, err); err != nil {
		return nil, err
	}
	specific, err := prefs.Specific(ctx)
	if err := collect(data, storage.KeySpecificPreferences, specific, err); err != nil {
		return nil, err
	}

	return jsonContents(request.Params.URI, data)
}

func handleActions(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	batch, err := sc.Triage().Actions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load classified actions: %w", err)
	}
	return jsonContents(request.Params.URI, map[string]interface{}{"actions": batch})
}

func collect(data map[string]interface{}, key string, v interface{}, err error) error {
	if storage.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	data[key] = v
	return nil
}

func jsonContents(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
