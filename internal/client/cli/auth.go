package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/facebook"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// begin resets per-command reporting state.
func (a *App) begin() {
	a.notified = false
}

// Register prompts for the profile and credentials of a new account and signs
// up. On success the new user is signed in.
func (a *App) Register(ctx context.Context) error {
	a.begin()

	displayName, err := getSimpleText(a.reader, "Enter display name", a.out)
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, "Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.actions.SignUp(ctx, displayName, email, string(password), username); err != nil {
		a.report(err)
		return err
	}
	a.greet()
	return nil
}

// Login prompts for email and password. The credential is remembered so the
// next start signs in without asking.
func (a *App) Login(ctx context.Context) error {
	a.begin()

	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, "Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.actions.SignIn(ctx, email, string(password), false); err != nil {
		a.report(err)
		return err
	}
	if err := a.actions.Refresh(ctx); err != nil {
		a.report(err)
		return err
	}
	a.greet()
	return nil
}

// FacebookLogin signs in through Facebook.
func (a *App) FacebookLogin(ctx context.Context) error {
	a.begin()

	if err := a.actions.FacebookLogin(ctx); err != nil {
		if errors.Is(err, facebook.ErrCancelled) {
			fmt.Fprintln(a.out, "Facebook login cancelled")
		} else {
			a.report(err)
		}
		return err
	}
	a.greet()
	return nil
}

// ResetPassword asks the identity backend to mail a reset link. The answer
// is the same whether or not the address has an account.
func (a *App) ResetPassword(ctx context.Context) error {
	a.begin()

	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	if err := a.profile.SendPasswordReset(ctx, email); err != nil {
		a.report(err)
		return err
	}
	fmt.Fprintf(a.out, "If an account exists for %s, a reset link is on its way\n", email)
	return nil
}

// Logout forgets the stored credential and ends the session.
func (a *App) Logout(ctx context.Context) error {
	a.begin()

	if err := a.actions.SignOut(ctx); err != nil {
		a.report(err)
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}
