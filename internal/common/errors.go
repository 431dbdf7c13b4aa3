// Package common defines shared sentinel errors and the user-facing error
// categories used across the gophauth client. Callers should use errors.Is
// and errors.As to match these values.
package common

import (
	"errors"
	"fmt"
)

// ErrNoUser means the identity backend has no signed-in user.
var ErrNoUser = errors.New("no user was detected")

// Kind classifies a failure by what the user is allowed to see about it.
type Kind string

const (
	// KindCredential covers bad email/password, taken usernames and duplicate
	// emails. The message is fixed and never carries backend diagnostics.
	KindCredential Kind = "credential"
	// KindInternal covers storage, network and malformed-response failures.
	KindInternal Kind = "internal"
	// KindOrphanedAccount means profile data was deleted but the identity
	// account survived; an operator has to reconcile it by hand.
	KindOrphanedAccount Kind = "orphaned-account"
	// KindReauthRequired means the operation needs a recent sign-in.
	KindReauthRequired Kind = "reauthentication-required"
)

// Error is a categorized, UI-safe error. Message is what may be shown to the
// user; Cause is kept for logging only.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a categorized error.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the category of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// UserMessage returns the message that is safe to show for err.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "An error occurred. Please try again"
}
