package session

import "github.com/dmitrijs2005/gophauth/internal/client/models"

// Phase is the coarse state the UI routes on.
type Phase string

const (
	PhaseLoading         Phase = "loading"
	PhaseAuthenticated   Phase = "authenticated"
	PhaseUnauthenticated Phase = "unauthenticated"
)

// State is the session snapshot. Empty error messages mean "none".
type State struct {
	IsLoading          bool
	User               *models.User
	IsSignout          bool
	SignInErrorMessage string
	SignUpErrorMessage string
}

// Initial is the state before bootstrap has finished.
func Initial() State {
	return State{IsLoading: true}
}

func (s State) Phase() Phase {
	switch {
	case s.IsLoading:
		return PhaseLoading
	case s.User != nil:
		return PhaseAuthenticated
	default:
		return PhaseUnauthenticated
	}
}

// clone returns a copy that shares nothing mutable with s.
func (s State) clone() State {
	s.User = s.User.Clone()
	return s
}
