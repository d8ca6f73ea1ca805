package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/teemow/inboxtriage/internal/router"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClientWithOptions(context.Background(), nil, nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return c
}

func echoTask(t *testing.T, got *tasks.Task, gotPath *string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		*gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		got.Id = "task-1"
		got.Status = "needsAction"
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(got)
	}
}

func TestCreateTask(t *testing.T) {
	var got tasks.Task
	var gotPath string
	c := newTestClient(t, echoTask(t, &got, &gotPath))

	task, err := c.CreateTask(context.Background(), "", TaskInput{Title: "Pay invoice", Notes: "Due Friday"})
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(gotPath, "/lists/@default/tasks"), gotPath)
	assert.Equal(t, "Pay invoice", got.Title)
	assert.Equal(t, "Due Friday", got.Notes)
	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, "needsAction", task.Status)
}

func TestCreateTask_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":403,"message":"denied"}}`, http.StatusForbidden)
	})

	_, err := c.CreateTask(context.Background(), "list", TaskInput{Title: "x"})
	assert.Error(t, err)
}

func TestSink_AddTask(t *testing.T) {
	var got tasks.Task
	var gotPath string
	c := newTestClient(t, echoTask(t, &got, &gotPath))

	sink := &Sink{Client: c, TaskListID: "errands"}
	require.NoError(t, sink.AddTask(context.Background(), router.TaskEntry{
		EmailID: "m1",
		Title:   "Reply to: Lunch",
		Notes:   "Confirm\n\n[Reply Needed]\nSuggested Reply: Yes!",
	}))

	assert.True(t, strings.HasSuffix(gotPath, "/lists/errands/tasks"), gotPath)
	assert.Equal(t, "Reply to: Lunch", got.Title)
	assert.Contains(t, got.Notes, "[Reply Needed]")
}
