package google

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/mpawlik/gridcal/internal/config"
)

// revokeEndpoint is Google's OAuth2 token revocation endpoint.
const revokeEndpoint = "https://oauth2.googleapis.com/revoke"

// oobRedirect is the out-of-band redirect for installed applications:
// the provider displays the authorization code for the user to copy.
const oobRedirect = "urn:ietf:wg:oauth:2.0:oob"

// Authenticator holds the OAuth2 configuration for the interactive
// sign-in flow and builds authenticated HTTP clients from stored tokens.
type Authenticator struct {
	conf      *oauth2.Config
	revokeURL string
}

// NewAuthenticator builds an Authenticator from the application
// configuration.
func NewAuthenticator(cfg *config.Config) *Authenticator {
	return &Authenticator{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  oobRedirect,
			Scopes:       DefaultOAuthScopes,
		},
		revokeURL: revokeEndpoint,
	}
}

// AuthCodeURL returns the URL the user must visit to authorize access.
// Offline access is requested so a refresh token is issued.
func (a *Authenticator) AuthCodeURL() string {
	return a.conf.AuthCodeURL("state", oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token.
func (a *Authenticator) Exchange(ctx context.Context, authCode string) (*oauth2.Token, error) {
	token, err := a.conf.Exchange(ctx, authCode)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// TokenSource returns a refreshing token source for the given token.
func (a *Authenticator) TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return a.conf.TokenSource(ctx, token)
}

// Client returns an HTTP client authenticated with the given token.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors.
func (a *Authenticator) Client(ctx context.Context, token *oauth2.Token) *http.Client {
	client := oauth2.NewClient(ctx, a.conf.TokenSource(ctx, token))

	// Force HTTP/1.1 by disabling HTTP/2
	transport := client.Transport.(*oauth2.Transport)
	transport.Base = &http.Transport{
		ForceAttemptHTTP2: false,
	}

	return client
}

// Revoke invalidates the token at the provider. The refresh token is
// revoked when present, which revokes the whole grant.
func (a *Authenticator) Revoke(ctx context.Context, token *oauth2.Token) error {
	if token == nil {
		return nil
	}
	value := token.RefreshToken
	if value == "" {
		value = token.AccessToken
	}
	if value == "" {
		return nil
	}

	form := url.Values{"token": {value}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token revocation returned status %d", resp.StatusCode)
	}
	return nil
}
