package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxtriage/internal/actions"
	"github.com/teemow/inboxtriage/internal/llm"
	"github.com/teemow/inboxtriage/internal/preferences"
	"github.com/teemow/inboxtriage/internal/router"
	"github.com/teemow/inboxtriage/internal/storage"
	"github.com/teemow/inboxtriage/internal/triage"
)

type stubModel struct {
	reply string
	err   error
}

func (m *stubModel) Generate(context.Context, string) (string, error) {
	return m.reply, m.err
}

type stubMail struct {
	emails []actions.EmailRecord
}

func (m *stubMail) FetchUnread(context.Context, time.Duration, int) ([]actions.EmailRecord, error) {
	return m.emails, nil
}

type stubSinks struct {
	events []router.CalendarEntry
	tasks  []router.TaskEntry
}

func (s *stubSinks) AddEvent(_ context.Context, e router.CalendarEntry) error {
	s.events = append(s.events, e)
	return nil
}

func (s *stubSinks) AddTask(_ context.Context, e router.TaskEntry) error {
	s.tasks = append(s.tasks, e)
	return nil
}

type apiFixture struct {
	store   storage.Store
	model   *stubModel
	sinks   *stubSinks
	handler http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	f := &apiFixture{store: store, model: &stubModel{}, sinks: &stubSinks{}}
	svc := triage.NewService(triage.Options{
		Store: store,
		Model: f.model,
		Mail: &stubMail{emails: []actions.EmailRecord{
			{ID: "m1", Subject: "Invoice", Sender: "billing@example.com", Body: "Due Friday"},
		}},
		Events:    f.sinks,
		Tasks:     f.sinks,
		MaxEmails: 10,
	})
	sc, err := NewServerContext(context.Background(), svc, WithStore(store))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	f.handler = NewHTTPServer(sc, HTTPServerConfig{Version: "test"}).Handler()
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func fullGeneralRanking() preferences.Ranking {
	r := preferences.Ranking{}
	for i, topic := range preferences.GeneralTopics {
		r[topic] = i + 1
	}
	return r
}

func TestAPI_GeneralTopics(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/general-topics", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Topics []string `json:"topics"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, preferences.GeneralTopics, resp.Topics)
}

func TestAPI_GeneralPreferences(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/general-preferences", PreferencesRequest{Preferences: fullGeneralRanking()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		TopPreferences []string `json:"top_preferences"`
	}
	decodeBody(t, rec, &resp)
	assert.Equal(t, preferences.GeneralTopics[:5], resp.TopPreferences)
}

func TestAPI_GeneralPreferencesRejected(t *testing.T) {
	f := newAPIFixture(t)

	partial := preferences.Ranking{preferences.GeneralTopics[0]: 1}
	rec := f.do(t, http.MethodPost, "/general-preferences", PreferencesRequest{Preferences: partial})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, preferences.ReasonNotAllRanked, resp.Detail)

	rec = f.do(t, http.MethodPost, "/general-preferences", "not an object")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var ranking preferences.Ranking
	assert.True(t, storage.IsNotFound(f.store.Load(context.Background(), storage.KeyGeneralPreferences, &ranking)))
}

func TestAPI_SpecificTopics(t *testing.T) {
	f := newAPIFixture(t)
	f.model.reply = `["Q3 roadmap", "Hiring", "Budget", "Security", "Travel", "Offsite", "OKRs", "Invoices", "Contracts", "Launch"]`

	rec := f.do(t, http.MethodPost, "/specific-topics", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no persisted top preferences")

	rec = f.do(t, http.MethodPost, "/general-preferences", PreferencesRequest{Preferences: fullGeneralRanking()})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/specific-topics", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		SpecificTopics []string `json:"specific_topics"`
	}
	decodeBody(t, rec, &resp)
	assert.Len(t, resp.SpecificTopics, 10)
	assert.Equal(t, "Q3 roadmap", resp.SpecificTopics[0])
}

func TestAPI_SpecificTopicsModelFailures(t *testing.T) {
	f := newAPIFixture(t)
	top := TopPreferencesRequest{TopPreferences: preferences.GeneralTopics[:5]}

	f.model.reply = "I cannot help with that."
	rec := f.do(t, http.MethodPost, "/specific-topics", top)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp.Detail, "Failed to parse response from model")

	f.model.err = &llm.TransientError{Err: errors.New("quota")}
	rec = f.do(t, http.MethodPost, "/specific-topics", top)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPI_SpecificPreferences(t *testing.T) {
	f := newAPIFixture(t)

	ranking := preferences.Ranking{}
	for i := 1; i <= 10; i++ {
		ranking[preferences.Topic(string(rune('A'+i)))] = i
	}

	rec := f.do(t, http.MethodPost, "/specific-preferences", PreferencesRequest{Preferences: ranking})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]string
	decodeBody(t, rec, &resp)
	assert.Equal(t, MessageSpecificSaved, resp["message"])

	delete(ranking, preferences.Topic("B"))
	rec = f.do(t, http.MethodPost, "/specific-preferences", PreferencesRequest{Preferences: ranking})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_EmailsOrganizerActions(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/actions", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "no batch yet")

	rec = f.do(t, http.MethodGet, "/emails", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var emails struct {
		Emails []actions.EmailRecord `json:"emails"`
	}
	decodeBody(t, rec, &emails)
	require.Len(t, emails.Emails, 1)
	assert.Equal(t, "m1", emails.Emails[0].ID)

	f.model.reply = `[{"email_id": "m1", "importance": "important", "subject": "Invoice",
		"action_type": "task", "action_details": {"task": "Pay invoice"}}]`

	rec = f.do(t, http.MethodPost, "/organizer", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var report triage.Report
	decodeBody(t, rec, &report)
	assert.Equal(t, triage.StatusCompleted, report.Status)
	assert.Equal(t, triage.Counts{Routed: 1, Created: 1}, report.Tasks)
	require.Len(t, f.sinks.tasks, 1)
	assert.Equal(t, "Invoice", f.sinks.tasks[0].Title)

	rec = f.do(t, http.MethodGet, "/actions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var batch struct {
		Actions []actions.ClassifiedAction `json:"actions"`
	}
	decodeBody(t, rec, &batch)
	require.Len(t, batch.Actions, 1)
	assert.Equal(t, "m1", batch.Actions[0].EmailID)
}

func TestAPI_OrganizerParseFailure(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/emails", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	f.model.reply = "no json here"
	rec = f.do(t, http.MethodGet, "/organizer", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var report triage.Report
	decodeBody(t, rec, &report)
	assert.Equal(t, triage.StatusFailed, report.Status)
	assert.Empty(t, f.sinks.tasks)
}

func TestAPI_MethodNotAllowed(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodDelete, "/general-topics", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
