// Package google provides OAuth2 authentication for the Google APIs used by
// inboxtriage.
//
// TokenFileClient reads the OAuth client from a credentials.json file
// downloaded from the Google Cloud console and keeps the user token in a
// JSON token file. When no usable token exists the consent URL is printed
// and the authorization code is read back from the configured input.
package google
