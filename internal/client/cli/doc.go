// Package cli provides the interactive gophauth command-line client.
//
// NewApp opens the configured backends (identity, profile store, local
// credential database, Facebook login) and wires the session engine on top.
// Run restores the previous session from the stored credential and then
// serves a REPL until the user exits.
//
// Signed out, the REPL offers register, login, facebook and reset. Signed in,
// it offers whoami, complete, displayname, username, passwd, reauth, delete
// and logout. Commands that need a recent sign-in ask for it and retry once.
package cli
