package calendar

// DefaultCalendarID is the calendar events are created in.
const DefaultCalendarID = "primary"

// EventInput is the input for creating a timed calendar event. Start and End
// are passed to the API unchanged as dateTime values.
type EventInput struct {
	Summary     string
	Description string
	Start       string
	End         string
	TimeZone    string
}

// Event is the subset of a created event reported back to callers.
type Event struct {
	ID       string
	Summary  string
	HTMLLink string
	Start    string
	End      string
}
