package google

// DefaultOAuthScopes are the scopes requested by the consent flow: read the
// inbox, create tasks and create calendar events.
var DefaultOAuthScopes = []string{
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/tasks",
	"https://www.googleapis.com/auth/calendar",
}
