package resources

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxtriage/internal/actions"
	"github.com/teemow/inboxtriage/internal/preferences"
	"github.com/teemow/inboxtriage/internal/server"
	"github.com/teemow/inboxtriage/internal/storage"
	"github.com/teemow/inboxtriage/internal/triage"
)

func newServerContext(t *testing.T) (*server.ServerContext, storage.Store) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	sc, err := server.NewServerContext(context.Background(), triage.NewService(triage.Options{Store: store}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc, store
}

func read(t *testing.T, fn func() ([]mcp.ResourceContents, error)) map[string]json.RawMessage {
	t.Helper()
	contents, err := fn()
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(*mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, "application/json", text.MIMEType)

	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestRegisterTriageResources(t *testing.T) {
	sc, _ := newServerContext(t)
	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithResourceCapabilities(false, false))

	require.NoError(t, RegisterTriageResources(s, sc))
	assert.Error(t, RegisterTriageResources(s, nil))
}

func TestHandlePreferences(t *testing.T) {
	sc, _ := newServerContext(t)
	ctx := context.Background()

	req := mcp.ReadResourceRequest{}
	req.Params.URI = PreferencesURI

	out := read(t, func() ([]mcp.ResourceContents, error) { return handlePreferences(ctx, req, sc) })
	assert.Empty(t, out, "nothing saved yet")

	ranking := preferences.Ranking{}
	for i, topic := range preferences.GeneralTopics {
		ranking[topic] = i + 1
	}
	_, err := sc.Triage().Preferences().SubmitGeneral(ctx, ranking)
	require.NoError(t, err)

	out = read(t, func() ([]mcp.ResourceContents, error) { return handlePreferences(ctx, req, sc) })
	assert.Contains(t, out, storage.KeyGeneralPreferences)
	assert.Contains(t, out, storage.KeyTopPreferences)
	assert.NotContains(t, out, storage.KeySpecificPreferences)
}

func TestHandleActions(t *testing.T) {
	sc, store := newServerContext(t)
	ctx := context.Background()

	req := mcp.ReadResourceRequest{}
	req.Params.URI = ActionsURI

	_, err := handleActions(ctx, req, sc)
	assert.True(t, storage.IsNotFound(err))

	batch := []actions.ClassifiedAction{{EmailID: "m1", Subject: "Invoice"}}
	require.NoError(t, store.Save(ctx, storage.KeyActions, batch))

	out := read(t, func() ([]mcp.ResourceContents, error) { return handleActions(ctx, req, sc) })
	var got []actions.ClassifiedAction
	require.NoError(t, json.Unmarshal(out["actions"], &got))
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].EmailID)
}
