package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// assertionRequestURI is the continue URI sent with provider assertions. The
// backend only checks that it is a valid URL for token-based assertions.
const assertionRequestURI = "http://localhost"

// ToolkitService talks to the Google Identity Toolkit relying-party API,
// the REST surface behind Firebase Authentication.
//
// It keeps the signed-in user's tokens in memory.
type ToolkitService struct {
	rp *identitytoolkit.RelyingpartyService

	mu           sync.Mutex
	account      *Account
	idToken      string
	refreshToken string
}

// NewToolkitService builds a client for the given API key. Extra options
// (endpoint, HTTP client) are mainly for tests and emulators.
func NewToolkitService(ctx context.Context, apiKey string, opts ...option.ClientOption) (*ToolkitService, error) {
	if apiKey != "" {
		opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	}
	svc, err := identitytoolkit.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("identitytoolkit: %w", err)
	}
	return &ToolkitService{rp: svc.Relyingparty}, nil
}

func (s *ToolkitService) setSession(uid, email, idToken, refreshToken string) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.account = &Account{UID: uid, Email: email}
	s.idToken = idToken
	s.refreshToken = refreshToken
	return &Account{UID: uid, Email: email}
}

func (s *ToolkitService) tokens() (string, *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil {
		return "", nil
	}
	a := *s.account
	return s.idToken, &a
}

func (s *ToolkitService) SignInWithPassword(ctx context.Context, email, password string) (*Account, error) {
	resp, err := s.rp.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	return s.setSession(resp.LocalId, resp.Email, resp.IdToken, resp.RefreshToken), nil
}

func (s *ToolkitService) CreateAccount(ctx context.Context, email, password string) (*Account, error) {
	resp, err := s.rp.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	return s.setSession(resp.LocalId, resp.Email, resp.IdToken, resp.RefreshToken), nil
}

func (s *ToolkitService) verifyAssertion(ctx context.Context, provider, token, idToken string) (*identitytoolkit.VerifyAssertionResponse, error) {
	body := url.Values{}
	body.Set("access_token", token)
	body.Set("providerId", provider)

	resp, err := s.rp.VerifyAssertion(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyAssertionRequest{
		PostBody:          body.Encode(),
		RequestUri:        assertionRequestURI,
		IdToken:           idToken,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	return resp, nil
}

func (s *ToolkitService) SignInWithProviderToken(ctx context.Context, provider, token string) (*Account, error) {
	resp, err := s.verifyAssertion(ctx, provider, token, "")
	if err != nil {
		return nil, err
	}
	return s.setSession(resp.LocalId, resp.Email, resp.IdToken, resp.RefreshToken), nil
}

func (s *ToolkitService) ReauthenticateWithPassword(ctx context.Context, email, password string) error {
	_, cur := s.tokens()
	if cur == nil {
		return newAuthError(CodeNoCurrentUser, nil)
	}

	resp, err := s.rp.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return mapError(err)
	}
	if resp.LocalId != cur.UID {
		return newAuthError(CodeUserMismatch, nil)
	}
	s.setSession(resp.LocalId, resp.Email, resp.IdToken, resp.RefreshToken)
	return nil
}

func (s *ToolkitService) ReauthenticateWithProviderToken(ctx context.Context, provider, token string) error {
	idToken, cur := s.tokens()
	if cur == nil {
		return newAuthError(CodeNoCurrentUser, nil)
	}

	resp, err := s.verifyAssertion(ctx, provider, token, idToken)
	if err != nil {
		return err
	}
	if resp.LocalId != cur.UID {
		return newAuthError(CodeUserMismatch, nil)
	}
	s.setSession(resp.LocalId, resp.Email, resp.IdToken, resp.RefreshToken)
	return nil
}

// CurrentUser asks the backend for the signed-in account, which also checks
// that the session is still valid.
func (s *ToolkitService) CurrentUser(ctx context.Context) (*Account, error) {
	idToken, cur := s.tokens()
	if cur == nil {
		return nil, nil
	}

	resp, err := s.rp.GetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartyGetAccountInfoRequest{
		IdToken: idToken,
	}).Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	if len(resp.Users) == 0 {
		return nil, newAuthError(CodeUserNotFound, nil)
	}

	u := resp.Users[0]
	return &Account{UID: u.LocalId, Email: u.Email}, nil
}

// SignOut drops the local tokens. The relying-party API has no server-side
// sign-out; ID tokens expire on their own.
func (s *ToolkitService) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = nil
	s.idToken = ""
	s.refreshToken = ""
	return nil
}

func (s *ToolkitService) SendPasswordReset(ctx context.Context, email string) error {
	_, err := s.rp.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: "PASSWORD_RESET",
		Email:       email,
	}).Context(ctx).Do()
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (s *ToolkitService) UpdatePassword(ctx context.Context, newPassword string) error {
	idToken, cur := s.tokens()
	if cur == nil {
		return newAuthError(CodeNoCurrentUser, nil)
	}

	resp, err := s.rp.SetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartySetAccountInfoRequest{
		IdToken:           idToken,
		Password:          newPassword,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return mapError(err)
	}
	// a password change revokes the old tokens
	if resp.IdToken != "" {
		s.setSession(cur.UID, cur.Email, resp.IdToken, resp.RefreshToken)
	}
	return nil
}

func (s *ToolkitService) DeleteAccount(ctx context.Context) error {
	idToken, cur := s.tokens()
	if cur == nil {
		return newAuthError(CodeNoCurrentUser, nil)
	}

	_, err := s.rp.DeleteAccount(&identitytoolkit.IdentitytoolkitRelyingpartyDeleteAccountRequest{
		IdToken: idToken,
	}).Context(ctx).Do()
	if err != nil {
		return mapError(err)
	}
	return s.SignOut(ctx)
}

func (s *ToolkitService) IDToken() string {
	t, _ := s.tokens()
	return t
}

// toolkitCodes maps relying-party error messages to auth codes. Messages can
// carry a detail suffix ("WEAK_PASSWORD : Password should be ..."), so only
// the leading token is matched.
var toolkitCodes = map[string]string{
	"EMAIL_EXISTS":                   CodeEmailAlreadyInUse,
	"INVALID_EMAIL":                  CodeInvalidEmail,
	"MISSING_EMAIL":                  CodeInvalidEmail,
	"EMAIL_NOT_FOUND":                CodeUserNotFound,
	"USER_NOT_FOUND":                 CodeUserNotFound,
	"INVALID_PASSWORD":               CodeWrongPassword,
	"INVALID_LOGIN_CREDENTIALS":      CodeWrongPassword,
	"MISSING_PASSWORD":               CodeWrongPassword,
	"WEAK_PASSWORD":                  CodeWeakPassword,
	"USER_DISABLED":                  CodeUserDisabled,
	"CREDENTIAL_TOO_OLD_LOGIN_AGAIN": CodeRequiresRecentLogin,
	"TOKEN_EXPIRED":                  CodeRequiresRecentLogin,
	"INVALID_ID_TOKEN":               CodeInvalidUserToken,
	"TOO_MANY_ATTEMPTS_TRY_LATER":    CodeTooManyRequests,
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return newAuthError(CodeNetworkRequestFail, err)
	}

	key, _, _ := strings.Cut(gerr.Message, " ")
	if code, ok := toolkitCodes[key]; ok {
		return newAuthError(code, err)
	}
	return newAuthError(CodeInternalError, err)
}
