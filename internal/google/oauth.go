package google

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/inboxtriage/internal/instrumentation"
	"github.com/teemow/inboxtriage/internal/logging"
	"github.com/teemow/inboxtriage/internal/storage"
)

// ErrNoRefreshToken is returned by Refresh when the stored token cannot be
// refreshed and the consent flow has to run again.
var ErrNoRefreshToken = errors.New("no refresh token available")

// TokenFileOptions configures a TokenFileClient.
type TokenFileOptions struct {
	// CredentialsFile is the OAuth client JSON. Ignored when OAuthConfig is set.
	CredentialsFile string

	// OAuthConfig overrides the config read from CredentialsFile.
	OAuthConfig *oauth2.Config

	// TokenFile is where the user token is persisted.
	TokenFile string

	// Scopes default to DefaultOAuthScopes.
	Scopes []string

	// In supplies the authorization code; Out receives the consent URL.
	In  io.Reader
	Out io.Writer

	Metrics *instrumentation.Metrics
	Logger  logging.Logger
}

// TokenFileClient is an AuthorizedClient backed by a token file on disk.
type TokenFileClient struct {
	config    *oauth2.Config
	tokenFile string
	in        *bufio.Reader
	out       io.Writer
	metrics   *instrumentation.Metrics
	logger    logging.Logger

	mu     sync.Mutex
	token  *oauth2.Token
	loaded bool
}

// NewTokenFileClient loads the OAuth client configuration. The token file is
// read lazily on first use.
func NewTokenFileClient(opts TokenFileOptions) (*TokenFileClient, error) {
	if opts.TokenFile == "" {
		return nil, fmt.Errorf("token file path is required")
	}

	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}

	conf := opts.OAuthConfig
	if conf == nil {
		data, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read OAuth credentials %s: %w", opts.CredentialsFile, err)
		}
		conf, err = google.ConfigFromJSON(data, scopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse OAuth credentials: %w", err)
		}
	}

	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	return &TokenFileClient{
		config:    conf,
		tokenFile: opts.TokenFile,
		in:        bufio.NewReader(in),
		out:       out,
		metrics:   opts.Metrics,
		logger:    logging.OrDiscard(opts.Logger),
	}, nil
}

// TokenFile returns the path of the persisted token.
func (c *TokenFileClient) TokenFile() string {
	return c.tokenFile
}

// IsValid reports whether the held token has a non-expired access token.
func (c *TokenFileClient) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadLocked()
	return c.token.Valid()
}

// Refresh obtains a new access token using the stored refresh token.
func (c *TokenFileClient) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshLocked(ctx)
}

func (c *TokenFileClient) refreshLocked(ctx context.Context) error {
	c.loadLocked()
	if c.token == nil || c.token.RefreshToken == "" {
		c.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultExpired)
		return ErrNoRefreshToken
	}

	// An expired copy forces the token source to hit the token endpoint.
	stale := *c.token
	stale.Expiry = time.Unix(1, 0)

	tok, err := c.config.TokenSource(ctx, &stale).Token()
	if err != nil {
		c.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		return fmt.Errorf("failed to refresh token: %w", err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = c.token.RefreshToken
	}

	if err := c.storeLocked(tok); err != nil {
		return err
	}
	c.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)
	c.logger.Info("refreshed Google token", "expiry", tok.Expiry)
	return nil
}

// Reauthenticate prints the consent URL, reads the authorization code and
// exchanges it for a new token.
func (c *TokenFileClient) Reauthenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	authURL := c.config.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(c.out, "Visit this URL to authorize inboxtriage:\n\n%s\n\nEnter the authorization code: ", authURL)

	line, err := c.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return fmt.Errorf("authorization code cannot be empty")
	}

	tok, err := c.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if err := c.storeLocked(tok); err != nil {
		return err
	}
	c.logger.Info("stored new Google token", "path", c.tokenFile)
	return nil
}

// HTTPClient returns an authenticated client. Refreshed tokens are written
// back to the token file.
func (c *TokenFileClient) HTTPClient(ctx context.Context) (*http.Client, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	tok := *c.token
	c.mu.Unlock()

	src := oauth2.ReuseTokenSource(&tok, &persistingSource{client: c, base: c.config.TokenSource(ctx, &tok)})
	client := oauth2.NewClient(ctx, src)

	// Force HTTP/1.1 by disabling HTTP/2
	if transport, ok := client.Transport.(*oauth2.Transport); ok && transport.Base == nil {
		transport.Base = &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			ForceAttemptHTTP2: false,
		}
	}
	return client, nil
}

func (c *TokenFileClient) ensureToken(ctx context.Context) error {
	if c.IsValid() {
		return nil
	}

	err := c.Refresh(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNoRefreshToken) {
		return err
	}
	return c.Reauthenticate(ctx)
}

func (c *TokenFileClient) loadLocked() {
	if c.loaded {
		return
	}
	c.loaded = true

	data, err := os.ReadFile(c.tokenFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("failed to read token file", "path", c.tokenFile, logging.Err(err))
		}
		return
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		c.logger.Warn("ignoring malformed token file", "path", c.tokenFile, logging.Err(err))
		return
	}
	c.token = &tok
}

func (c *TokenFileClient) storeLocked(tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.tokenFile), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := storage.WriteFileAtomic(c.tokenFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	c.token = tok
	c.loaded = true
	return nil
}

// persistingSource saves every token it hands out whose access token changed.
type persistingSource struct {
	client *TokenFileClient
	base   oauth2.TokenSource
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.client.mu.Lock()
	defer s.client.mu.Unlock()
	if s.client.token == nil || s.client.token.AccessToken != tok.AccessToken {
		if err := s.client.storeLocked(tok); err != nil {
			s.client.logger.Warn("failed to persist refreshed token", logging.Err(err))
		}
	}
	return tok, nil
}
