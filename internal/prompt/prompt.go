package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/inboxtriage/internal/actions"
	"github.com/teemow/inboxtriage/internal/preferences"
)

// BodyLimit is the number of body characters (runes) included per email.
const BodyLimit = 200

// Delimiter terminates every email record in the classification prompt. It
// only ever appears on a line of its own.
const Delimiter = "---"

// SuggestionCount is the number of specific topics requested from the model.
const SuggestionCount = 10

// Builder renders model prompts. It performs no I/O; the only input beyond
// its arguments is the clock.
type Builder struct {
	Now func() time.Time
}

// New returns a Builder using the wall clock.
func New() *Builder {
	return &Builder{Now: time.Now}
}

func (b *Builder) now() time.Time {
	if b == nil || b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

const framing = "You are an intelligent email assistant. Analyze the following categories in the ranked order given by the user. " +
	"Rank 1 is the most preferred. The top 3 are the most important for the user, " +
	"the next five are normal and the last 2 are the least preferred.\n\n"

const schema = `[
    {
        "email_id": "string",        // Identifier of the email the action belongs to
        "importance": "string",      // One of: "most important", "important", "normal", "least important"
        "subject": "string",         // The subject line of the email
        "action_type": "string",     // Either "task" or "calendar"
        "action_details": {
            "task": "string",            // Task or event description
            "reply_needed": true,        // Whether a reply is required
            "reply_message": "string",   // Suggested reply message, if a reply is needed
            "event_date": "string",      // Start of the calendar event, format YYYY-MM-DDTHH:mm:ss±hh:mm
            "event_end_date": "string",  // End of the calendar event, same format; 1 hour after the start if not mentioned
            "timezone": "string"         // Timezone of the calendar event, use IST
        }
    }
]
`

// BuildClassificationPrompt renders the prompt asking the model to classify
// emails against both preference rankings. The sections appear in a fixed
// order: framing, rankings, emails, output rules, current time.
func (b *Builder) BuildClassificationPrompt(emails []actions.EmailRecord, general, specific preferences.Ranking) string {
	var sb strings.Builder

	sb.WriteString(framing)

	sb.WriteString("User Preferences:\n")
	sb.WriteString("General Preferences:\n")
	sb.WriteString(renderRanking(general))
	sb.WriteString("\n")
	sb.WriteString("Specific Preferences:\n")
	sb.WriteString(renderRanking(specific))
	sb.WriteString("\n\n")

	// Field values are quoted so that line breaks inside them are escaped
	// and no email content can open a line of its own.
	sb.WriteString("Emails:\n")
	for _, e := range emails {
		fmt.Fprintf(&sb, "Email ID: %q\n", e.ID)
		fmt.Fprintf(&sb, "Sender: %q\n", e.Sender)
		fmt.Fprintf(&sb, "Subject: %q\n", e.Subject)
		fmt.Fprintf(&sb, "Body: %q\n", Truncate(e.Body, BodyLimit))
		sb.WriteString(Delimiter + "\n")
	}

	now := b.now()

	sb.WriteString("\nBased on the emails and user preferences:\n")
	sb.WriteString("1. Categorize each email as most important, important, normal or least important.\n")
	sb.WriteString("2. Identify whether the email requires actionable tasks, follow-ups or a reply.\n")
	sb.WriteString("3. For emails with deadlines, include two entries: a \"task\" entry to track the work and a \"calendar\" entry for the deadline.\n")
	sb.WriteString("4. If a reply is required, set reply_needed to true and put the suggested reply in reply_message.\n")
	sb.WriteString("5. If two meetings are scheduled at the same time, schedule the one from the more preferred category and add a task to reschedule the other.\n")
	sb.WriteString("6. If an email is a meeting invite that also needs a reply, emit two separate entries with the same email_id and subject: " +
		"one with action_type \"calendar\" to join the meeting and one with action_type \"task\" to send the reply. Never combine both in one entry.\n")
	fmt.Fprintf(&sb, "7. Use the date format of the Google Calendar API (YYYY-MM-DDTHH:mm:ss±hh:mm). Resolve relative dates against the current time %s. "+
		"If no end is mentioned, the event lasts 1 hour. Prefer the IST timezone.\n", now.Format(time.RFC3339))
	sb.WriteString("8. Respond only with a JSON array in the format below.\n\n")

	sb.WriteString("Example JSON Output:\n")
	sb.WriteString(schema)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Current time: %s\n", now.Format(time.RFC3339))

	return sb.String()
}

// BuildSuggestionPrompt renders the prompt asking the model for specific
// topics derived from the user's top general preferences.
func (b *Builder) BuildSuggestionPrompt(top []preferences.Topic) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are an intelligent assistant. You will be given the names of %d categories that are very important to the user in their mail inbox. "+
		"To understand these preferences better, prepare a more detailed list of exactly %d related, more specific categories that might be present in the inbox.\n\n",
		len(top), SuggestionCount)

	sb.WriteString("Top preferences:\n\n")
	for i, t := range top {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, t)
	}

	fmt.Fprintf(&sb, "\nRespond only with a JSON array of %d strings and nothing else.\n", SuggestionCount)
	return sb.String()
}

// renderRanking renders a ranking as indented JSON. encoding/json sorts map
// keys, so the output is stable.
func renderRanking(r preferences.Ranking) string {
	if r == nil {
		r = preferences.Ranking{}
	}
	data, err := json.MarshalIndent(r, "", "    ")
	if err != nil {
		// A map[string]int always marshals.
		return "{}"
	}
	return string(data)
}

// Truncate returns the first n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
