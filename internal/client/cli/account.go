package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/client/services"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

func orNotSet(s *string) string {
	if s == nil {
		return "(not set)"
	}
	return *s
}

// Whoami prints the cached user.
func (a *App) Whoami(ctx context.Context) error {
	u := a.user()
	if u == nil {
		return common.ErrNoUser
	}
	fmt.Fprintf(a.out, "uid:          %s\n", u.UID)
	fmt.Fprintf(a.out, "email:        %s\n", u.Email)
	fmt.Fprintf(a.out, "display name: %s\n", orNotSet(u.DisplayName))
	fmt.Fprintf(a.out, "username:     %s\n", orNotSet(u.Username))
	return nil
}

// Complete asks only for the profile fields that are still missing.
func (a *App) Complete(ctx context.Context) error {
	a.begin()
	u := a.user()
	if u == nil {
		return common.ErrNoUser
	}

	if u.HasCompleteProfile() {
		fmt.Fprintln(a.out, "Your profile is complete")
		return nil
	}

	var displayName, username string
	for _, field := range services.MissingFields(u) {
		var err error
		switch field {
		case models.FieldDisplayName:
			displayName, err = getSimpleText(a.reader, "Enter display name", a.out)
		case models.FieldUsername:
			username, err = a.promptUsername(ctx)
		}
		if err != nil {
			return err
		}
	}

	if err := a.profile.CompleteProfile(ctx, u, displayName, username); err != nil {
		a.report(err)
		return err
	}
	fmt.Fprintln(a.out, "Profile updated")
	return nil
}

// promptUsername reads a username and says up front when it is taken. The
// write itself checks again.
func (a *App) promptUsername(ctx context.Context) (string, error) {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return "", err
	}
	ok, err := a.profile.CheckUsernameAvailable(ctx, username)
	if err == nil && !ok && username != "" {
		fmt.Fprintln(a.out, services.MsgUsernameTaken)
	}
	return username, nil
}

// DisplayName changes the display name.
func (a *App) DisplayName(ctx context.Context) error {
	a.begin()
	u := a.user()
	if u == nil {
		return common.ErrNoUser
	}
	name, err := getSimpleText(a.reader, "Enter new display name", a.out)
	if err != nil {
		return err
	}
	if err := a.profile.UpdateDisplayName(ctx, u, name); err != nil {
		a.report(err)
		return err
	}
	fmt.Fprintln(a.out, "Display name updated")
	return nil
}

// Username moves the user to a new username.
func (a *App) Username(ctx context.Context) error {
	a.begin()
	u := a.user()
	if u == nil {
		return common.ErrNoUser
	}
	username, err := getSimpleText(a.reader, "Enter new username", a.out)
	if err != nil {
		return err
	}
	if err := a.profile.UpdateUsername(ctx, u, username); err != nil {
		a.report(err)
		return err
	}
	fmt.Fprintln(a.out, "Username updated")
	return nil
}

// ChangePassword sets a new password, signing in again first when the
// backend asks for a recent login.
func (a *App) ChangePassword(ctx context.Context) error {
	a.begin()

	password, err := getPassword(a.reader, "Enter new password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	again, err := getPassword(a.reader, "Repeat new password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(again)

	change := func() error {
		return a.profile.ChangePassword(ctx, string(password), string(again))
	}
	// the current password is required here, a Facebook sign-in won't do
	if err := a.withRecentLogin(ctx, false, change); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password changed")
	return nil
}

// DeleteAccount removes the profile and the identity account once the user
// has typed their username, or their email when no username is set.
func (a *App) DeleteAccount(ctx context.Context) error {
	a.begin()
	u := a.user()
	if u == nil {
		return common.ErrNoUser
	}

	want, what := u.Email, "email"
	if u.Username != nil {
		want, what = *u.Username, "username"
	}
	fmt.Fprintln(a.out, "This action cannot be undone.")
	ok, err := confirmTyped(a.reader, fmt.Sprintf("Enter your %s to delete your account", what), want, a.out)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(a.out, "Nothing deleted")
		return nil
	}

	del := func() error {
		return a.profile.DeleteAccount(ctx, a.user())
	}
	if err := a.withRecentLogin(ctx, true, del); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Your account has been deleted")
	return nil
}

// withRecentLogin runs op and, when it needs a recent sign-in, asks the user
// to sign in again and retries once. Without allowFacebook only a password
// sign-in is offered.
func (a *App) withRecentLogin(ctx context.Context, allowFacebook bool, op func() error) error {
	err := op()
	if common.KindOf(err) == common.KindReauthRequired {
		fmt.Fprintln(a.out, common.UserMessage(err))
		if rerr := a.reauthenticate(ctx, allowFacebook); rerr != nil {
			return rerr
		}
		err = op()
	}
	if err != nil {
		a.report(err)
	}
	return err
}

// Reauthenticate refreshes the sign-in time of the current user, with a
// password or through Facebook.
func (a *App) Reauthenticate(ctx context.Context) error {
	a.begin()
	return a.reauthenticate(ctx, true)
}

func (a *App) reauthenticate(ctx context.Context, allowFacebook bool) error {
	u := a.user()
	if u == nil {
		return common.ErrNoUser
	}

	prompt := "Enter email (empty to use Facebook)"
	if !allowFacebook {
		fmt.Fprintln(a.out, "Sign in with your current password to continue")
		prompt = "Enter email"
	}
	email, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return err
	}

	if email == "" && allowFacebook {
		err = a.profile.ReauthenticateWithFacebook(ctx)
	} else {
		var password []byte
		password, err = getPassword(a.reader, "Enter password", a.out)
		if err != nil {
			return err
		}
		defer common.WipeByteArray(password)
		err = a.profile.Reauthenticate(ctx, u, email, string(password))
	}
	if err != nil {
		a.report(err)
		return err
	}
	fmt.Fprintln(a.out, "Signed in again")
	return nil
}
