// Package identity defines the AuthService capability used by the session
// engine and its backends.
//
// Backends report failures as *AuthError carrying a Firebase-style code so
// that callers can branch on the code without knowing which provider is
// behind the interface.
package identity

import (
	"context"
	"errors"
)

// Account is what the identity backend knows about a user.
type Account struct {
	UID   string
	Email string
}

// ProviderFacebook identifies Facebook access tokens.
const ProviderFacebook = "facebook.com"

// AuthService is the external identity backend.
//
// Sign-in methods establish the current user for subsequent calls. CurrentUser
// returns (nil, nil) when nobody is signed in.
type AuthService interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Account, error)
	CreateAccount(ctx context.Context, email, password string) (*Account, error)
	SignInWithProviderToken(ctx context.Context, provider, token string) (*Account, error)
	ReauthenticateWithPassword(ctx context.Context, email, password string) error
	ReauthenticateWithProviderToken(ctx context.Context, provider, token string) error
	CurrentUser(ctx context.Context) (*Account, error)
	SignOut(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, newPassword string) error
	DeleteAccount(ctx context.Context) error
	// IDToken returns the current ID token or "" when signed out.
	IDToken() string
}

const (
	CodeEmailAlreadyInUse   = "auth/email-already-in-use"
	CodeInvalidEmail        = "auth/invalid-email"
	CodeUserNotFound        = "auth/user-not-found"
	CodeWrongPassword       = "auth/wrong-password"
	CodeWeakPassword        = "auth/weak-password"
	CodeUserDisabled        = "auth/user-disabled"
	CodeRequiresRecentLogin = "auth/requires-recent-login"
	CodeUserMismatch        = "auth/user-mismatch"
	CodeNoCurrentUser       = "auth/no-current-user"
	CodeInvalidUserToken    = "auth/invalid-user-token"
	CodeTooManyRequests     = "auth/too-many-requests"
	CodeNetworkRequestFail  = "auth/network-request-failed"
	CodeInternalError       = "auth/internal-error"
)

// AuthError is a classified identity backend failure.
type AuthError struct {
	Code string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches another *AuthError with the same code, so sentinel-style
// comparisons like errors.Is(err, &AuthError{Code: CodeInvalidEmail}) work.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Code == e.Code
}

func newAuthError(code string, err error) *AuthError {
	return &AuthError{Code: code, Err: err}
}

// CodeOf returns the code of the first *AuthError in err's chain or "".
func CodeOf(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
