package triage

import (
	"time"

	"github.com/teemow/inboxtriage/internal/actions"
)

// Status is the overall outcome of an organize run.
type Status string

const (
	// StatusCompleted means classification succeeded and every routed
	// entry was attempted. Individual inserts may still have failed.
	StatusCompleted Status = "completed"
	// StatusSkipped means a required input was missing.
	StatusSkipped Status = "skipped"
	// StatusFailed means the model reply could not be used.
	StatusFailed Status = "failed"
)

// Counts tallies entries sent to one destination.
type Counts struct {
	Routed  int `json:"routed"`
	Created int `json:"created"`
	Failed  int `json:"failed"`
}

// Report summarizes an organize run.
type Report struct {
	RunID  string `json:"run_id"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`

	Emails     int `json:"emails"`
	Classified int `json:"classified"`

	// Skipped counts malformed or unknown items dropped during parsing and
	// routing.
	Skipped      int                        `json:"skipped"`
	SkippedItems []actions.PartialItemError `json:"skipped_items,omitempty"`
	Filtered     int                        `json:"filtered"`
	Synthesized  int                        `json:"synthesized"`
	Unpaired     int                        `json:"unpaired"`

	Events Counts `json:"events"`
	Tasks  Counts `json:"tasks"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Failed reports whether any insert failed.
func (r *Report) Failed() int {
	return r.Events.Failed + r.Tasks.Failed
}
