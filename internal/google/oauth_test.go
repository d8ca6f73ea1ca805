package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type tokenServer struct {
	*httptest.Server
	exchanges atomic.Int32
	refreshes atomic.Int32
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			if r.Form.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"error":"invalid_grant"}`)
				return
			}
			ts.exchanges.Add(1)
			fmt.Fprint(w, `{"access_token":"access-1","refresh_token":"refresh-1","token_type":"Bearer","expires_in":3600}`)
		case "refresh_token":
			n := ts.refreshes.Add(1)
			fmt.Fprintf(w, `{"access_token":"access-r%d","token_type":"Bearer","expires_in":3600}`, n)
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestClient(t *testing.T, srv *tokenServer, input string) (*TokenFileClient, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	c, err := NewTokenFileClient(TokenFileOptions{
		OAuthConfig: &oauth2.Config{
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost",
			Scopes:       DefaultOAuthScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://accounts.example.com/auth",
				TokenURL:  srv.URL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		TokenFile: filepath.Join(t.TempDir(), "nested", "token.json"),
		In:        strings.NewReader(input),
		Out:       out,
	})
	require.NoError(t, err)
	return c, out
}

func writeToken(t *testing.T, path string, tok *oauth2.Token) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	data, err := json.Marshal(tok)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))
}

func TestNewTokenFileClient_FromCredentialsFile(t *testing.T) {
	dir := t.TempDir()
	creds := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(creds, []byte(`{"installed":{
		"client_id":"id.apps.googleusercontent.com",
		"client_secret":"secret",
		"redirect_uris":["http://localhost"],
		"auth_uri":"https://accounts.google.com/o/oauth2/auth",
		"token_uri":"https://oauth2.googleapis.com/token"}}`), 0600))

	c, err := NewTokenFileClient(TokenFileOptions{
		CredentialsFile: creds,
		TokenFile:       filepath.Join(dir, "token.json"),
	})
	require.NoError(t, err)
	assert.Equal(t, "id.apps.googleusercontent.com", c.config.ClientID)
	assert.Equal(t, DefaultOAuthScopes, c.config.Scopes)
	assert.False(t, c.IsValid())
}

func TestNewTokenFileClient_Errors(t *testing.T) {
	_, err := NewTokenFileClient(TokenFileOptions{CredentialsFile: "x.json"})
	assert.Error(t, err, "token file is required")

	_, err = NewTokenFileClient(TokenFileOptions{
		CredentialsFile: filepath.Join(t.TempDir(), "missing.json"),
		TokenFile:       "token.json",
	})
	assert.Error(t, err)
}

func TestReauthenticate(t *testing.T) {
	srv := newTokenServer(t)
	c, out := newTestClient(t, srv, "good-code\n")

	require.NoError(t, c.Reauthenticate(context.Background()))

	assert.Contains(t, out.String(), "https://accounts.example.com/auth")
	assert.Contains(t, out.String(), "access_type=offline")
	assert.True(t, c.IsValid())
	assert.Equal(t, int32(1), srv.exchanges.Load())

	var saved oauth2.Token
	data, err := os.ReadFile(c.TokenFile())
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, "access-1", saved.AccessToken)
	assert.Equal(t, "refresh-1", saved.RefreshToken)
}

func TestReauthenticate_Errors(t *testing.T) {
	srv := newTokenServer(t)

	c, _ := newTestClient(t, srv, "\n")
	assert.Error(t, c.Reauthenticate(context.Background()), "empty code")

	c, _ = newTestClient(t, srv, "bad-code\n")
	assert.Error(t, c.Reauthenticate(context.Background()))
	assert.False(t, c.IsValid())
}

func TestRefresh(t *testing.T) {
	srv := newTokenServer(t)
	c, _ := newTestClient(t, srv, "")
	writeToken(t, c.TokenFile(), &oauth2.Token{
		AccessToken:  "old",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(-time.Hour),
	})

	assert.False(t, c.IsValid())
	require.NoError(t, c.Refresh(context.Background()))
	assert.True(t, c.IsValid())

	c.mu.Lock()
	assert.Equal(t, "access-r1", c.token.AccessToken)
	assert.Equal(t, "refresh-1", c.token.RefreshToken, "refresh token is kept when the server omits it")
	c.mu.Unlock()
}

func TestRefresh_NoToken(t *testing.T) {
	srv := newTokenServer(t)
	c, _ := newTestClient(t, srv, "")
	assert.ErrorIs(t, c.Refresh(context.Background()), ErrNoRefreshToken)
}

func TestHTTPClient_RunsConsentWhenNoToken(t *testing.T) {
	srv := newTokenServer(t)
	c, _ := newTestClient(t, srv, "good-code\n")

	client, err := c.HTTPClient(context.Background())
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, int32(1), srv.exchanges.Load())
	assert.Equal(t, int32(0), srv.refreshes.Load())
}

func TestHTTPClient_AttachesBearerToken(t *testing.T) {
	srv := newTokenServer(t)
	c, _ := newTestClient(t, srv, "")
	writeToken(t, c.TokenFile(), &oauth2.Token{
		AccessToken:  "valid-access",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	})

	var gotAuth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer api.Close()

	client, err := c.HTTPClient(context.Background())
	require.NoError(t, err)

	resp, err := client.Get(api.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "Bearer valid-access", gotAuth)
	assert.Equal(t, int32(0), srv.refreshes.Load())
}

func TestIsValid_MalformedTokenFile(t *testing.T) {
	srv := newTokenServer(t)
	c, _ := newTestClient(t, srv, "")
	require.NoError(t, os.MkdirAll(filepath.Dir(c.TokenFile()), 0700))
	require.NoError(t, os.WriteFile(c.TokenFile(), []byte("not json"), 0600))
	assert.False(t, c.IsValid())
}
