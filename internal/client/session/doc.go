// Package session holds the client's authentication state machine.
//
// # Overview
//
// State is an immutable value. Action variants (RestoreCredentials, SignIn,
// SignInError, SignUpError, SignOut, InternalError) describe outcomes of
// backend calls. Reduce maps (State, Action) to the next State and is pure.
//
// Store is the single owner of the current State. It is created by the
// composition root and passed by reference to whoever needs to read or
// dispatch; there is no package-level session. Store.Dispatch is the only
// writer, serializes concurrent dispatches, and performs the side effects
// that Reduce must not: logging internal errors and showing the generic
// notice.
//
// # Phases
//
// Exactly one of PhaseLoading, PhaseAuthenticated, PhaseUnauthenticated
// holds at any time, and User is nil whenever IsLoading is true.
package session
