package actions

import "strings"

// EmailRecord is one unread email as handed to the classifier.
type EmailRecord struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Body    string `json:"body"`
}

// Importance is the priority level the model assigns to an email.
type Importance string

const (
	ImportanceMost      Importance = "most important"
	ImportanceImportant Importance = "important"
	ImportanceNormal    Importance = "normal"
	ImportanceLeast     Importance = "least important"
)

// Valid reports whether i is one of the four known levels.
func (i Importance) Valid() bool {
	switch i {
	case ImportanceMost, ImportanceImportant, ImportanceNormal, ImportanceLeast:
		return true
	}
	return false
}

// Actionable reports whether tasks of this importance are pushed to the task list.
func (i Importance) Actionable() bool {
	return i == ImportanceMost || i == ImportanceImportant
}

// NormalizeImportance trims and lower-cases a raw importance value.
func NormalizeImportance(s string) Importance {
	return Importance(strings.ToLower(strings.TrimSpace(s)))
}

// Type is the destination of a classified action.
type Type string

const (
	TypeTask     Type = "task"
	TypeCalendar Type = "calendar"
)

// ParseType normalises s and reports whether it names a known destination.
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TypeTask, TypeCalendar:
		return t, true
	}
	return t, false
}

// Details carries the action payload. Fields that do not apply to an
// action may be absent and decode to their zero values.
type Details struct {
	Task         string `json:"task,omitempty"`
	ReplyNeeded  bool   `json:"reply_needed,omitempty"`
	ReplyMessage string `json:"reply_message,omitempty"`

	// Dates are kept as the strings the model produced (RFC 3339 expected).
	EventDate    string `json:"event_date,omitempty"`
	EventEndDate string `json:"event_end_date,omitempty"`
	TimeZone     string `json:"timezone,omitempty"`
}

// ClassifiedAction is one model verdict about one email.
type ClassifiedAction struct {
	EmailID    string     `json:"email_id"`
	Importance Importance `json:"importance"`
	Subject    string     `json:"subject"`
	ActionType Type       `json:"action_type"`
	Details    Details    `json:"action_details"`
}

// Key identifies the email an action belongs to. Twin entries produced by
// the reply rule share the same key.
func (a ClassifiedAction) Key() string {
	return a.EmailID + "\x00" + a.Subject
}

// Batch is the outcome of parsing one model reply.
type Batch struct {
	Actions []ClassifiedAction `json:"actions"`
	Skipped []PartialItemError `json:"skipped,omitempty"`
}
