package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	FacebookLogin(ctx context.Context) error
	ResetPassword(ctx context.Context) error
	Whoami(ctx context.Context) error
	Complete(ctx context.Context) error
	DisplayName(ctx context.Context) error
	Username(ctx context.Context) error
	ChangePassword(ctx context.Context) error
	Reauthenticate(ctx context.Context) error
	DeleteAccount(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the gophauth CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Commands that need a session are refused while
// signed out and the other way round. The loop exits on EOF or when the user
// types "exit" or "quit".
//
//	Signed out:
//	  help, register, login, facebook, reset, exit
//
//	Signed in:
//	  help, whoami, complete, displayname, username, passwd, reauth,
//	  delete, logout, exit
//
// Errors returned by command handlers are ignored here; handlers report them
// to the user themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("gophauth%s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		if handled, quit := dispatch(ctx, a, cmd); quit {
			printlnFn("Bye!")
			return
		} else if !handled {
			printlnFn("Unknown command:", cmd)
		}
	}
}

// dispatch runs one command. handled is false for unknown commands and for
// commands that do not apply in the current session phase.
func dispatch(ctx context.Context, a execIface, cmd string) (handled, quit bool) {
	switch cmd {
	case "exit", "quit":
		return true, true
	case "help":
		if a.isLoggedIn() {
			printlnFn("Available commands: whoami, complete, displayname, username, passwd, reauth, delete, logout, exit")
		} else {
			printlnFn("Available commands: register, login, facebook, reset, exit")
		}
		return true, false
	}

	if !a.isLoggedIn() {
		switch cmd {
		case "register":
			_ = a.Register(ctx)
		case "login":
			_ = a.Login(ctx)
		case "facebook", "fb":
			_ = a.FacebookLogin(ctx)
		case "reset":
			_ = a.ResetPassword(ctx)
		default:
			return false, false
		}
		return true, false
	}

	switch cmd {
	case "whoami":
		_ = a.Whoami(ctx)
	case "complete":
		_ = a.Complete(ctx)
	case "displayname":
		_ = a.DisplayName(ctx)
	case "username":
		_ = a.Username(ctx)
	case "passwd":
		_ = a.ChangePassword(ctx)
	case "reauth":
		_ = a.Reauthenticate(ctx)
	case "delete":
		_ = a.DeleteAccount(ctx)
	case "logout":
		_ = a.Logout(ctx)
	default:
		return false, false
	}
	return true, false
}
