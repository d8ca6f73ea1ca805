package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-1.5-flash-8b"

// Model turns a prompt into a single raw text reply.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TransientError marks a failure that may succeed when retried later, such
// as rate limiting or a server-side outage. Nothing in inboxtriage retries
// automatically; callers use it to report "try again" instead of "broken".
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient model error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is or wraps a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// ErrEmptyReply is returned when the model answers with no text.
var ErrEmptyReply = errors.New("model returned an empty reply")

func isTemporaryNetError(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && (ne.Timeout() || ne.Temporary()) //nolint:staticcheck // Temporary is still set by some transports
}
