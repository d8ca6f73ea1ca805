package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/teemow/inboxtriage/internal/actions"
	"github.com/teemow/inboxtriage/internal/llm"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/preferences"
	"github.com/teemow/inboxtriage/internal/storage"
	"github.com/teemow/inboxtriage/internal/triage"
)

// maxBodyBytes caps request bodies. Rankings are tiny.
const maxBodyBytes = 1 << 20

// MessageSpecificSaved is returned by POST /specific-preferences.
const MessageSpecificSaved = "Specific preferences saved successfully."

// PreferencesRequest is the body of the preference submission routes.
type PreferencesRequest struct {
	Preferences preferences.Ranking `json:"preferences"`
}

// TopPreferencesRequest is the body of POST /specific-topics.
type TopPreferencesRequest struct {
	TopPreferences []preferences.Topic `json:"top_preferences"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// API serves the preference and triage routes.
type API struct {
	sc     *ServerContext
	logger logging.Logger
}

// NewAPI creates the REST API on top of a server context.
func NewAPI(sc *ServerContext) *API {
	return &API{sc: sc, logger: sc.Logger()}
}

// Register adds the API routes to mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /general-topics", a.handleGeneralTopics)
	mux.HandleFunc("POST /general-preferences", a.handleGeneralPreferences)
	mux.HandleFunc("POST /specific-topics", a.handleSpecificTopics)
	mux.HandleFunc("POST /specific-preferences", a.handleSpecificPreferences)
	mux.HandleFunc("GET /emails", a.handleEmails)
	mux.HandleFunc("GET /organizer", a.handleOrganizer)
	mux.HandleFunc("POST /organizer", a.handleOrganizer)
	mux.HandleFunc("GET /actions", a.handleActions)
}

func (a *API) handleGeneralTopics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"topics": preferences.GeneralTopics})
}

func (a *API) handleGeneralPreferences(w http.ResponseWriter, r *http.Request) {
	var req PreferencesRequest
	if !a.decode(w, r, &req, false) {
		return
	}

	top, err := a.sc.Triage().Preferences().SubmitGeneral(r.Context(), req.Preferences)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"top_preferences": top})
}

func (a *API) handleSpecificTopics(w http.ResponseWriter, r *http.Request) {
	var req TopPreferencesRequest
	if !a.decode(w, r, &req, true) {
		return
	}

	topics, err := a.sc.Triage().SuggestTopics(r.Context(), req.TopPreferences)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"specific_topics": topics})
}

func (a *API) handleSpecificPreferences(w http.ResponseWriter, r *http.Request) {
	var req PreferencesRequest
	if !a.decode(w, r, &req, false) {
		return
	}

	if err := a.sc.Triage().Preferences().SubmitSpecific(r.Context(), req.Preferences); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": MessageSpecificSaved})
}

func (a *API) handleEmails(w http.ResponseWriter, r *http.Request) {
	emails, err := a.sc.Triage().FetchEmails(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"emails": emails})
}

func (a *API) handleOrganizer(w http.ResponseWriter, r *http.Request) {
	report, err := a.sc.Triage().Organize(r.Context())
	if err != nil {
		a.logger.Error("organize run failed", logging.RunID(report.RunID), logging.Err(err))
		status := http.StatusInternalServerError
		if llm.IsTransient(err) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleActions(w http.ResponseWriter, r *http.Request) {
	batch, err := a.sc.Triage().Actions(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"actions": batch})
}

// decode reads a JSON body into v. An empty body is accepted when
// optional is set.
func (a *API) decode(w http.ResponseWriter, r *http.Request, v interface{}, optional bool) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: fmt.Sprintf("invalid request body: %v", err)})
	return false
}

// writeError maps pipeline errors to HTTP status codes.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *preferences.ValidationError
	var parseErr *actions.ParseError

	status := http.StatusInternalServerError
	detail := err.Error()

	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
		detail = validationErr.Reason
	case errors.Is(err, triage.ErrNoTopPreferences):
		status = http.StatusBadRequest
		detail = triage.ErrNoTopPreferences.Error()
	case errors.As(err, &parseErr):
		detail = "Failed to parse response from model: " + parseErr.Error()
	case storage.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, triage.ErrNotConfigured), llm.IsTransient(err):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "path", r.URL.Path, logging.Err(err))
	} else {
		a.logger.Debug("request rejected", "path", r.URL.Path, "status", status, logging.Err(err))
	}
	writeJSON(w, status, ErrorResponse{Detail: detail})
}
