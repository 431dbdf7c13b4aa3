// Package services contains the application services of the gophauth client.
// This file holds the session action provider: bootstrap, sign-in, sign-up,
// sign-out and Facebook login. Every operation reports its outcome to the
// session store and also returns it as a categorized *common.Error.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/client/credentials"
	"github.com/dmitrijs2005/gophauth/internal/client/facebook"
	"github.com/dmitrijs2005/gophauth/internal/client/identity"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/client/profiles"
	"github.com/dmitrijs2005/gophauth/internal/client/session"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// AuthActions drives the session store from backend results.
type AuthActions struct {
	store    *session.Store
	auth     identity.AuthService
	profiles profiles.UserProfileStore
	creds    credentials.Store
	fb       facebook.Login
	log      logging.Logger

	bootOnce sync.Once
}

func NewAuthActions(
	store *session.Store,
	auth identity.AuthService,
	profileStore profiles.UserProfileStore,
	creds credentials.Store,
	fb facebook.Login,
	log logging.Logger,
) *AuthActions {
	return &AuthActions{
		store:    store,
		auth:     auth,
		profiles: profileStore,
		creds:    creds,
		fb:       fb,
		log:      log,
	}
}

func (a *AuthActions) internal(ctx context.Context, cause error) error {
	a.store.Dispatch(ctx, session.InternalError{Cause: cause})
	return common.NewError(common.KindInternal, MsgSomethingWrong, cause)
}

// Bootstrap restores the previous session from the credential store. Only the
// first call per AuthActions does anything. The store is never left loading.
func (a *AuthActions) Bootstrap(ctx context.Context) {
	a.bootOnce.Do(func() {
		defer func() {
			if p := recover(); p != nil {
				a.store.Dispatch(ctx, session.InternalError{Cause: fmt.Errorf("bootstrap panic: %v", p)})
			}
		}()
		a.bootstrap(ctx)
	})
}

func (a *AuthActions) bootstrap(ctx context.Context) {
	cred, err := a.creds.Get(ctx)
	if err != nil {
		a.store.Dispatch(ctx, session.InternalError{Cause: fmt.Errorf("read stored credentials: %w", err)})
		return
	}
	if cred == nil {
		a.store.Dispatch(ctx, session.RestoreCredentials{})
		return
	}

	if cred.FacebookLogin {
		err := a.facebookSignIn(ctx)
		if errors.Is(err, facebook.ErrCancelled) {
			a.log.Info(ctx, "facebook re-login cancelled at startup")
			a.store.Dispatch(ctx, session.RestoreCredentials{})
			return
		}
		if err != nil {
			a.store.Dispatch(ctx, session.InternalError{Cause: fmt.Errorf("facebook re-login: %w", err)})
			return
		}
	} else {
		// signIn has dispatched SignIn with this user already; it is handed
		// on to RestoreCredentials without a second lookup.
		user, err := a.signIn(ctx, cred.Email, cred.Password, true)
		if err != nil {
			// signIn already moved the store out of loading
			return
		}
		a.restored(ctx, user)
		return
	}

	user, err := resolveUser(ctx, a.auth, a.profiles)
	if err != nil {
		a.store.Dispatch(ctx, session.InternalError{Cause: fmt.Errorf("restore user: %w", err)})
		return
	}
	a.restored(ctx, user)
}

func (a *AuthActions) restored(ctx context.Context, user *models.User) {
	a.log.Info(ctx, "session restored", "uid", user.UID)
	a.store.Dispatch(ctx, session.RestoreCredentials{User: user})
}

// SignIn verifies email and password with the identity backend.
//
// With internalRedirect the credential is already stored, so the user is
// resolved and SignIn dispatched. Without it the credential is persisted and
// nothing is dispatched on success; call Refresh to move the session.
func (a *AuthActions) SignIn(ctx context.Context, email, password string, internalRedirect bool) error {
	_, err := a.signIn(ctx, email, password, internalRedirect)
	return err
}

// signIn returns the resolved user on the internalRedirect path and nil
// otherwise.
func (a *AuthActions) signIn(ctx context.Context, email, password string, internalRedirect bool) (*models.User, error) {
	if _, err := a.auth.SignInWithPassword(ctx, email, password); err != nil {
		a.log.Warn(ctx, "sign in rejected", "code", identity.CodeOf(err))
		a.store.Dispatch(ctx, session.SignInError{Message: MsgLoginFailed})
		return nil, common.NewError(common.KindCredential, MsgLoginFailed, err)
	}

	if internalRedirect {
		user, err := resolveUser(ctx, a.auth, a.profiles)
		if err != nil {
			return nil, a.internal(ctx, fmt.Errorf("resolve signed-in user: %w", err))
		}
		a.store.Dispatch(ctx, session.SignIn{User: user})
		return user, nil
	}

	if err := a.creds.Set(ctx, models.PasswordCredential(email, password)); err != nil {
		return nil, a.internal(ctx, fmt.Errorf("persist credentials: %w", err))
	}
	return nil, nil
}

// SignUp creates the account, writes its profile and username index entry,
// and signs the new user in.
//
// The username check is advisory: two sign-ups racing for one free username
// can both pass it. The profile batch is best effort; an account that exists
// is reported as signed in even when the batch failed.
func (a *AuthActions) SignUp(ctx context.Context, displayName, email, password, username string) error {
	if username == "" {
		a.store.Dispatch(ctx, session.SignUpError{Message: MsgUsernameRequired})
		return common.NewError(common.KindCredential, MsgUsernameRequired, nil)
	}

	taken, err := usernameTaken(ctx, a.profiles, username)
	if err != nil {
		a.log.Warn(ctx, "username availability check failed", "error", err)
	}
	if taken {
		a.store.Dispatch(ctx, session.SignUpError{Message: MsgUsernameTaken})
		return common.NewError(common.KindCredential, MsgUsernameTaken, nil)
	}

	acc, err := a.auth.CreateAccount(ctx, email, password)
	if err != nil {
		msg := MsgSignUpFailed
		switch identity.CodeOf(err) {
		case identity.CodeEmailAlreadyInUse:
			msg = MsgEmailInUse
		case identity.CodeInvalidEmail:
			msg = MsgInvalidEmail
		}
		a.store.Dispatch(ctx, session.SignUpError{Message: msg, Cause: err})
		return common.NewError(common.KindCredential, msg, err)
	}

	batch := []models.WriteOp{
		models.Set(models.CollectionUsers, acc.UID, models.Document{
			models.FieldDisplayName: displayName,
			models.FieldUsername:    username,
		}),
		models.Set(models.CollectionUsernames, username, models.Document{models.FieldUID: acc.UID}),
	}
	if err := a.profiles.BatchWrite(ctx, batch); err != nil {
		a.log.Error(ctx, "profile batch after sign up failed", "uid", acc.UID, "error", err)
	}

	if err := a.creds.Set(ctx, models.PasswordCredential(email, password)); err != nil {
		a.log.Error(ctx, "persist credentials after sign up failed", "uid", acc.UID, "error", err)
	}

	user, err := resolveUser(ctx, a.auth, a.profiles)
	if err != nil {
		return a.internal(ctx, fmt.Errorf("resolve new user: %w", err))
	}
	a.log.Info(ctx, "signed up", "uid", user.UID)
	a.store.Dispatch(ctx, session.SignIn{User: user})
	return nil
}

// SignOut clears the stored credential before signing out of the identity
// backend. If the backend call fails the credential stays cleared.
func (a *AuthActions) SignOut(ctx context.Context) error {
	if err := a.creds.Clear(ctx); err != nil {
		return a.internal(ctx, fmt.Errorf("clear credentials: %w", err))
	}
	if err := a.auth.SignOut(ctx); err != nil {
		return a.internal(ctx, fmt.Errorf("identity sign out: %w", err))
	}
	a.store.Dispatch(ctx, session.SignOut{})
	return nil
}

func (a *AuthActions) facebookSignIn(ctx context.Context) error {
	token, err := a.fb.Token(ctx)
	if err != nil {
		return err
	}
	if _, err := a.auth.SignInWithProviderToken(ctx, identity.ProviderFacebook, token); err != nil {
		return fmt.Errorf("provider sign in: %w", err)
	}
	return nil
}

// FacebookLogin signs in with a Facebook access token and remembers the
// choice so the next start re-runs the Facebook login.
func (a *AuthActions) FacebookLogin(ctx context.Context) error {
	err := a.facebookSignIn(ctx)
	if errors.Is(err, facebook.ErrCancelled) {
		a.store.Dispatch(ctx, session.SignInError{})
		return common.NewError(common.KindCredential, "", err)
	}
	if errors.Is(err, facebook.ErrStateMismatch) {
		a.log.Warn(ctx, "facebook redirect rejected", "error", err)
		a.store.Dispatch(ctx, session.SignInError{Message: MsgLoginFailed})
		return common.NewError(common.KindCredential, MsgLoginFailed, err)
	}
	if err != nil {
		return a.internal(ctx, err)
	}

	if err := a.creds.Set(ctx, models.FacebookCredential()); err != nil {
		return a.internal(ctx, fmt.Errorf("persist credentials: %w", err))
	}

	user, err := resolveUser(ctx, a.auth, a.profiles)
	if err != nil {
		return a.internal(ctx, fmt.Errorf("resolve facebook user: %w", err))
	}
	a.store.Dispatch(ctx, session.SignIn{User: user})
	return nil
}

// Refresh re-reads the signed-in user and publishes it as a SignIn.
func (a *AuthActions) Refresh(ctx context.Context) error {
	user, err := resolveUser(ctx, a.auth, a.profiles)
	if err != nil {
		return a.internal(ctx, fmt.Errorf("refresh user: %w", err))
	}
	a.store.Dispatch(ctx, session.SignIn{User: user})
	return nil
}

// usernameTaken reports whether usernames/{username} exists.
func usernameTaken(ctx context.Context, store profiles.UserProfileStore, username string) (bool, error) {
	doc, err := store.GetDocument(ctx, models.CollectionUsernames, username)
	if err != nil {
		return false, err
	}
	return doc != nil, nil
}
