package instrumentation

import "strings"

// ExtractUserDomain reduces a sender to its domain for use as a metric
// label. A display-name form such as "Alice <alice@example.com>" is
// accepted.
//
//	ExtractUserDomain("jane@example.com")            // "example.com"
//	ExtractUserDomain("Jane <jane@Example.COM>")     // "example.com"
//	ExtractUserDomain("invalid")                     // "unknown"
func ExtractUserDomain(email string) string {
	if start := strings.LastIndex(email, "<"); start >= 0 {
		if end := strings.LastIndex(email, ">"); end > start {
			email = email[start+1 : end]
		}
	}
	email = strings.TrimSpace(email)

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return strings.ToLower(parts[1])
	}

	return "unknown"
}

// Operation types for Google API metrics.
const (
	OperationList   = "list"
	OperationGet    = "get"
	OperationCreate = "create"
)
