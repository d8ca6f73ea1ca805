package router

import (
	"time"

	"github.com/teemow/inboxtriage/internal/actions"
	"github.com/teemow/inboxtriage/internal/logging"
)

// Defaults applied when the model leaves a field empty.
const (
	DefaultSummary          = "No Subject"
	DefaultEventDescription = "No Task Description Provided"
	DefaultTaskNotes        = "No Task Details Provided"
	DefaultReplyMessage     = "No reply message provided."
	DefaultTimeZone         = "UTC"
)

// DefaultEventDuration is used when an event has no end.
const DefaultEventDuration = time.Hour

// EventTime is a calendar start or end.
type EventTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

// CalendarEntry is an event ready to be inserted into a calendar.
type CalendarEntry struct {
	EmailID     string    `json:"email_id,omitempty"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
}

// TaskEntry is a task ready to be inserted into a task list.
type TaskEntry struct {
	EmailID string `json:"email_id,omitempty"`
	Title   string `json:"title"`
	Notes   string `json:"notes"`
}

// Result is the outcome of routing one batch.
type Result struct {
	Events []CalendarEntry `json:"events"`
	Tasks  []TaskEntry     `json:"tasks"`

	// Skipped counts actions with an unknown action_type.
	Skipped int `json:"skipped"`
	// Filtered counts tasks dropped because of their importance.
	Filtered int `json:"filtered"`
	// Synthesized counts reply tasks added for unpaired calendar actions.
	Synthesized int `json:"synthesized"`
	// Unpaired counts reply-needed calendar actions left without a task twin.
	Unpaired int `json:"unpaired"`
}

// Router partitions classified actions into calendar and task entries.
// It has no side effects beyond logging.
type Router struct {
	Now func() time.Time

	// SynthesizeReplyTasks adds a reply task for every reply-needed calendar
	// action that arrives without one. When false such actions are only
	// reported.
	SynthesizeReplyTasks bool

	Logger logging.Logger
}

// New returns a Router using the wall clock with reply-task synthesis
// enabled.
func New(logger logging.Logger) *Router {
	return &Router{
		Now:                  time.Now,
		SynthesizeReplyTasks: true,
		Logger:               logger,
	}
}

func (r *Router) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Route splits actions by action_type. Calendar actions become events with
// placeholder dates where the model gave none. Task actions become tasks
// only when their importance is "important" or "most important".
func (r *Router) Route(batch []actions.ClassifiedAction) Result {
	logger := logging.OrDiscard(r.Logger)
	result := Result{
		Events: []CalendarEntry{},
		Tasks:  []TaskEntry{},
	}

	paired := make(map[string]bool)
	for _, a := range batch {
		if t, ok := actions.ParseType(string(a.ActionType)); ok && t == actions.TypeTask {
			paired[a.Key()] = true
		}
	}

	now := r.now()

	for i, a := range batch {
		t, ok := actions.ParseType(string(a.ActionType))
		if !ok {
			result.Skipped++
			logger.Warn("skipping action with unknown action_type",
				"index", i,
				logging.EmailID(a.EmailID),
				"action_type", string(a.ActionType))
			continue
		}

		switch t {
		case actions.TypeCalendar:
			result.Events = append(result.Events, toCalendarEntry(a, now))

			if !a.Details.ReplyNeeded || paired[a.Key()] {
				continue
			}
			if !r.SynthesizeReplyTasks {
				result.Unpaired++
				logger.Warn("reply-needed calendar action has no task twin", logging.EmailID(a.EmailID))
				continue
			}

			twin := replyTwin(a)
			paired[a.Key()] = true
			result.Synthesized++
			logger.Debug("synthesized reply task", logging.EmailID(a.EmailID))
			r.routeTask(&result, twin, logger)

		case actions.TypeTask:
			r.routeTask(&result, a, logger)
		}
	}

	return result
}

func (r *Router) routeTask(result *Result, a actions.ClassifiedAction, logger logging.Logger) {
	if !actions.NormalizeImportance(string(a.Importance)).Actionable() {
		result.Filtered++
		logger.Debug("dropping low-importance task", logging.EmailID(a.EmailID), "importance", string(a.Importance))
		return
	}
	result.Tasks = append(result.Tasks, toTaskEntry(a))
}

// replyTwin builds the task half of the reply rule for a calendar action.
func replyTwin(a actions.ClassifiedAction) actions.ClassifiedAction {
	subject := a.Subject
	if subject == "" {
		subject = DefaultSummary
	}
	return actions.ClassifiedAction{
		EmailID:    a.EmailID,
		Importance: a.Importance,
		Subject:    a.Subject,
		ActionType: actions.TypeTask,
		Details: actions.Details{
			Task:         "Reply to: " + subject,
			ReplyNeeded:  true,
			ReplyMessage: a.Details.ReplyMessage,
		},
	}
}

func toTaskEntry(a actions.ClassifiedAction) TaskEntry {
	notes := a.Details.Task
	if notes == "" {
		notes = DefaultTaskNotes
	}
	if a.Details.ReplyNeeded {
		reply := a.Details.ReplyMessage
		if reply == "" {
			reply = DefaultReplyMessage
		}
		notes += "\n\n[Reply Needed]\nSuggested Reply: " + reply
	}
	return TaskEntry{
		EmailID: a.EmailID,
		Title:   a.Subject,
		Notes:   notes,
	}
}

func toCalendarEntry(a actions.ClassifiedAction, now time.Time) CalendarEntry {
	summary := a.Subject
	if summary == "" {
		summary = DefaultSummary
	}
	description := a.Details.Task
	if description == "" {
		description = DefaultEventDescription
	}
	tz := a.Details.TimeZone
	if tz == "" {
		tz = DefaultTimeZone
	}

	start, end := eventWindow(a.Details.EventDate, a.Details.EventEndDate, now)

	return CalendarEntry{
		EmailID:     a.EmailID,
		Summary:     summary,
		Description: description,
		Start:       EventTime{DateTime: start, TimeZone: tz},
		End:         EventTime{DateTime: end, TimeZone: tz},
	}
}

// eventWindow fills in missing dates. With no start the event is placed at
// the next full hour after now. With a start but no end, the end is one
// hour after the start when the start parses as RFC 3339.
func eventWindow(start, end string, now time.Time) (string, string) {
	placeholderStart := NextFullHour(now)
	placeholderEnd := placeholderStart.Add(DefaultEventDuration)

	if start == "" {
		return placeholderStart.Format(time.RFC3339), placeholderEnd.Format(time.RFC3339)
	}
	if end != "" {
		return start, end
	}
	if parsed, err := time.Parse(time.RFC3339, start); err == nil {
		return start, parsed.Add(DefaultEventDuration).Format(time.RFC3339)
	}
	return start, placeholderEnd.Format(time.RFC3339)
}

// NextFullHour returns the first full hour strictly after t, in t's location.
func NextFullHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location()).Add(time.Hour)
}
