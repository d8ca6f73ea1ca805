package google

import (
	"context"
	"net/http"
)

// AuthorizedClient provides authenticated HTTP clients for the Google APIs.
// Only the Gmail, Tasks and Calendar collaborators use it.
type AuthorizedClient interface {
	// IsValid reports whether a usable access token is held.
	IsValid() bool

	// Refresh exchanges the stored refresh token for a new access token.
	Refresh(ctx context.Context) error

	// Reauthenticate runs the interactive consent flow and stores the
	// resulting token.
	Reauthenticate(ctx context.Context) error

	// HTTPClient returns a client that attaches a valid token to every
	// request, refreshing or re-authenticating first when needed.
	HTTPClient(ctx context.Context) (*http.Client, error)
}

var _ AuthorizedClient = (*TokenFileClient)(nil)
