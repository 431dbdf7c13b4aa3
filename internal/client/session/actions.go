package session

import "github.com/dmitrijs2005/gophauth/internal/client/models"

// Action is one of the variants below. The unexported method keeps the set
// closed so Reduce can switch over it exhaustively.
type Action interface {
	action()
	Name() string
}

// RestoreCredentials ends bootstrap. A nil User means nobody was restored.
type RestoreCredentials struct{ User *models.User }

// SignIn records a successful sign-in or sign-up.
type SignIn struct{ User *models.User }

// SignInError records a rejected sign-in. Message is fixed UI text and may be
// empty (e.g. a cancelled Facebook login).
type SignInError struct{ Message string }

// SignUpError records a rejected sign-up. Cause is logged, never shown.
type SignUpError struct {
	Message string
	Cause   error
}

// SignOut records an explicit sign-out.
type SignOut struct{}

// InternalError records an unexpected operational failure.
type InternalError struct{ Cause error }

func (RestoreCredentials) action() {}
func (SignIn) action()             {}
func (SignInError) action()        {}
func (SignUpError) action()        {}
func (SignOut) action()            {}
func (InternalError) action()      {}

func (RestoreCredentials) Name() string { return "RESTORE_CREDENTIALS" }
func (SignIn) Name() string             { return "SIGN_IN" }
func (SignInError) Name() string        { return "SIGN_IN_ERROR" }
func (SignUpError) Name() string        { return "SIGN_UP_ERROR" }
func (SignOut) Name() string            { return "SIGN_OUT" }
func (InternalError) Name() string      { return "INTERNAL_ERROR" }
