// Package facebook obtains a Facebook user access token through the OAuth2
// authorization code flow, for use as a provider assertion.
package facebook

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
)

var (
	// ErrCancelled means the user backed out of the login.
	ErrCancelled = errors.New("facebook login cancelled")
	// ErrStateMismatch means the pasted redirect did not carry the state of
	// this login attempt.
	ErrStateMismatch = errors.New("facebook login state mismatch")
)

// Login hands out a Facebook access token, prompting the user as needed.
type Login interface {
	Token(ctx context.Context) (string, error)
}

// Prompter shows the authorization URL and reads back what the user pasted:
// either the bare code or the whole redirect URL. An empty answer cancels.
type Prompter interface {
	AuthorizationResponse(ctx context.Context, authURL string) (string, error)
}

// OAuthLogin runs the code flow against Facebook.
type OAuthLogin struct {
	conf   *oauth2.Config
	prompt Prompter
}

func NewOAuthLogin(appID, appSecret, redirectURL string, prompt Prompter) *OAuthLogin {
	return &OAuthLogin{
		conf: &oauth2.Config{
			ClientID:     appID,
			ClientSecret: appSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"public_profile", "email"},
			Endpoint:     facebook.Endpoint,
		},
		prompt: prompt,
	}
}

// WithEndpoint swaps the OAuth2 endpoint, for tests.
func (l *OAuthLogin) WithEndpoint(ep oauth2.Endpoint) *OAuthLogin {
	l.conf.Endpoint = ep
	return l
}

func (l *OAuthLogin) Token(ctx context.Context) (string, error) {
	state, err := common.MakeRandHexString(16)
	if err != nil {
		return "", err
	}
	answer, err := l.prompt.AuthorizationResponse(ctx, l.conf.AuthCodeURL(state))
	if err != nil {
		return "", err
	}

	code, got, redirect := parseResponse(answer)
	if code == "" {
		return "", ErrCancelled
	}
	if redirect && got != state {
		return "", ErrStateMismatch
	}

	tok, err := l.conf.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("facebook token exchange: %w", err)
	}
	return tok.AccessToken, nil
}

// parseResponse pulls the code and state out of a pasted redirect URL. Any
// other answer is taken as a bare code, which carries no state.
func parseResponse(answer string) (code, state string, redirect bool) {
	answer = strings.TrimSpace(answer)
	if !strings.Contains(answer, "code=") {
		return answer, "", false
	}
	u, err := url.Parse(answer)
	if err != nil {
		return answer, "", false
	}
	q := u.Query()
	if q.Get("code") == "" {
		return answer, "", false
	}
	return q.Get("code"), q.Get("state"), true
}

// StaticLogin returns a fixed token. An empty token behaves as a cancelled
// login. Used with the in-memory identity backend.
type StaticLogin string

func (s StaticLogin) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", ErrCancelled
	}
	return string(s), nil
}
