package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/credentials"
	"github.com/dmitrijs2005/gophauth/internal/client/facebook"
	"github.com/dmitrijs2005/gophauth/internal/client/identity"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/client/profiles"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// ProfileService covers everything a signed-in user can do to their account:
// completing the profile, renaming, password changes and deletion.
type ProfileService struct {
	actions  *AuthActions
	auth     identity.AuthService
	profiles profiles.UserProfileStore
	creds    credentials.Store
	fb       facebook.Login
	log      logging.Logger

	recentLogin time.Duration
	now         func() time.Time
}

func NewProfileService(actions *AuthActions, recentLogin time.Duration) *ProfileService {
	return &ProfileService{
		actions:     actions,
		auth:        actions.auth,
		profiles:    actions.profiles,
		creds:       actions.creds,
		fb:          actions.fb,
		log:         actions.log,
		recentLogin: recentLogin,
		now:         time.Now,
	}
}

func internalErr(cause error) error {
	return common.NewError(common.KindInternal, MsgSomethingWrong, cause)
}

// CheckUsernameAvailable is a point read of the username index. The answer is
// advisory; nothing reserves the name.
func (p *ProfileService) CheckUsernameAvailable(ctx context.Context, username string) (bool, error) {
	if username == "" {
		return false, nil
	}
	taken, err := usernameTaken(ctx, p.profiles, username)
	if err != nil {
		return false, internalErr(fmt.Errorf("check username %q: %w", username, err))
	}
	return !taken, nil
}

// MissingFields lists the profile fields the user still has to fill in.
func MissingFields(u *models.User) []string {
	if u == nil {
		return nil
	}
	var out []string
	if u.DisplayName == nil {
		out = append(out, models.FieldDisplayName)
	}
	if u.Username == nil {
		out = append(out, models.FieldUsername)
	}
	return out
}

// usernameOps returns the index changes for moving user to username. A name
// whose index entry belongs to somebody else is refused before any write.
func (p *ProfileService) usernameOps(ctx context.Context, user *models.User, username string) ([]models.WriteOp, error) {
	if username == "" {
		return nil, common.NewError(common.KindCredential, MsgUsernameRequired, nil)
	}

	doc, err := p.profiles.GetDocument(ctx, models.CollectionUsernames, username)
	if err != nil {
		return nil, internalErr(fmt.Errorf("read username %q: %w", username, err))
	}
	if owner := doc.String(models.FieldUID); doc != nil && (owner == nil || *owner != user.UID) {
		return nil, common.NewError(common.KindCredential, MsgUsernameTaken, nil)
	}

	var ops []models.WriteOp
	if user.Username != nil && *user.Username != username {
		ops = append(ops, models.Delete(models.CollectionUsernames, *user.Username))
	}
	ops = append(ops, models.Set(models.CollectionUsernames, username, models.Document{models.FieldUID: user.UID}))
	return ops, nil
}

func (p *ProfileService) commit(ctx context.Context, user *models.User, ops []models.WriteOp) error {
	if err := p.profiles.BatchWrite(ctx, ops); err != nil {
		p.log.Error(ctx, "profile update failed", "uid", user.UID, "error", err)
		return internalErr(fmt.Errorf("profile batch: %w", err))
	}
	return p.actions.Refresh(ctx)
}

// UpdateDisplayName merges displayName into users/{uid}.
func (p *ProfileService) UpdateDisplayName(ctx context.Context, user *models.User, displayName string) error {
	if user == nil {
		return internalErr(common.ErrNoUser)
	}
	if displayName == "" {
		return common.NewError(common.KindCredential, MsgDisplayNameMissing, nil)
	}
	return p.commit(ctx, user, []models.WriteOp{
		models.Merge(models.CollectionUsers, user.UID, models.Document{models.FieldDisplayName: displayName}),
	})
}

// UpdateUsername merges username into users/{uid} and moves the index entry
// in the same batch. The batch is not atomic across collections on every
// backend, so a partial failure can orphan an index entry.
func (p *ProfileService) UpdateUsername(ctx context.Context, user *models.User, username string) error {
	if user == nil {
		return internalErr(common.ErrNoUser)
	}
	idx, err := p.usernameOps(ctx, user, username)
	if err != nil {
		return err
	}
	ops := append([]models.WriteOp{
		models.Merge(models.CollectionUsers, user.UID, models.Document{models.FieldUsername: username}),
	}, idx...)
	return p.commit(ctx, user, ops)
}

// UpdateDisplayNameAndUsername is the union of the two updates in one batch.
func (p *ProfileService) UpdateDisplayNameAndUsername(ctx context.Context, user *models.User, displayName, username string) error {
	if user == nil {
		return internalErr(common.ErrNoUser)
	}
	if displayName == "" {
		return common.NewError(common.KindCredential, MsgDisplayNameMissing, nil)
	}
	idx, err := p.usernameOps(ctx, user, username)
	if err != nil {
		return err
	}
	ops := append([]models.WriteOp{
		models.Merge(models.CollectionUsers, user.UID, models.Document{
			models.FieldDisplayName: displayName,
			models.FieldUsername:    username,
		}),
	}, idx...)
	return p.commit(ctx, user, ops)
}

// CompleteProfile fills whichever of displayName and username is missing.
// Values for fields that are already set are ignored.
func (p *ProfileService) CompleteProfile(ctx context.Context, user *models.User, displayName, username string) error {
	switch {
	case user == nil:
		return internalErr(common.ErrNoUser)
	case user.HasCompleteProfile():
		return nil
	case user.DisplayName == nil && user.Username == nil:
		return p.UpdateDisplayNameAndUsername(ctx, user, displayName, username)
	case user.DisplayName == nil:
		return p.UpdateDisplayName(ctx, user, displayName)
	default:
		return p.UpdateUsername(ctx, user, username)
	}
}

// SendPasswordReset asks the identity backend to mail a reset link. Unknown
// and malformed addresses look like success to the caller.
func (p *ProfileService) SendPasswordReset(ctx context.Context, email string) error {
	err := p.auth.SendPasswordReset(ctx, email)
	switch identity.CodeOf(err) {
	case "":
		if err != nil {
			return internalErr(err)
		}
		return nil
	case identity.CodeInvalidEmail, identity.CodeUserNotFound:
		p.log.Debug(ctx, "password reset for unknown address suppressed")
		return nil
	default:
		p.log.Error(ctx, "password reset failed", "error", err)
		return internalErr(err)
	}
}

// Reauthenticate refreshes the sign-in time of user with a password. The email
// must belong to the account that is already signed in.
func (p *ProfileService) Reauthenticate(ctx context.Context, user *models.User, email, password string) error {
	if user == nil || email != user.Email {
		return common.NewError(common.KindCredential, MsgWrongAccount, nil)
	}
	err := p.auth.ReauthenticateWithPassword(ctx, email, password)
	switch identity.CodeOf(err) {
	case "":
		if err != nil {
			return internalErr(err)
		}
		return nil
	case identity.CodeUserMismatch:
		return common.NewError(common.KindCredential, MsgWrongAccount, err)
	default:
		return common.NewError(common.KindCredential, MsgLoginFailed, err)
	}
}

// ReauthenticateWithFacebook refreshes the sign-in time with a new Facebook
// token.
func (p *ProfileService) ReauthenticateWithFacebook(ctx context.Context) error {
	token, err := p.fb.Token(ctx)
	if err != nil {
		return common.NewError(common.KindCredential, MsgGenericRetry, err)
	}
	if err := p.auth.ReauthenticateWithProviderToken(ctx, identity.ProviderFacebook, token); err != nil {
		if identity.CodeOf(err) == identity.CodeUserMismatch {
			return common.NewError(common.KindCredential, MsgWrongAccount, err)
		}
		return common.NewError(common.KindCredential, MsgGenericRetry, err)
	}
	return nil
}

// ChangePassword sets a new password for the signed-in user and keeps the
// stored credential in step with it.
func (p *ProfileService) ChangePassword(ctx context.Context, newPassword, confirm string) error {
	if newPassword != confirm {
		return common.NewError(common.KindCredential, MsgPasswordMismatch, nil)
	}
	if len(newPassword) < MinPasswordLength {
		return common.NewError(common.KindCredential, MsgPasswordTooShort, nil)
	}

	if err := p.auth.UpdatePassword(ctx, newPassword); err != nil {
		if identity.CodeOf(err) == identity.CodeRequiresRecentLogin {
			return common.NewError(common.KindReauthRequired, MsgReauthRequired, err)
		}
		p.log.Error(ctx, "password change failed", "error", err)
		return common.NewError(common.KindInternal, MsgGenericRetry, err)
	}

	cred, err := p.creds.Get(ctx)
	if err != nil {
		p.log.Error(ctx, "read credentials after password change failed", "error", err)
		return nil
	}
	if cred != nil && !cred.FacebookLogin {
		if err := p.creds.Set(ctx, models.PasswordCredential(cred.Email, newPassword)); err != nil {
			p.log.Error(ctx, "update stored credentials failed", "error", err)
		}
	}
	return nil
}

// DeleteAccount removes the profile and username index entry, then the
// identity account, then signs out.
//
// The profile batch runs first. If it fails nothing else happens. If the
// identity deletion fails afterwards the account is orphaned and the error
// says so.
func (p *ProfileService) DeleteAccount(ctx context.Context, user *models.User) error {
	if user == nil {
		return internalErr(common.ErrNoUser)
	}
	if !identity.RecentlyAuthenticated(p.auth.IDToken(), p.recentLogin, p.now()) {
		return common.NewError(common.KindReauthRequired, MsgReauthRequired, nil)
	}

	ops := []models.WriteOp{models.Delete(models.CollectionUsers, user.UID)}
	if user.Username != nil {
		ops = append(ops, models.Delete(models.CollectionUsernames, *user.Username))
	}
	if err := p.profiles.BatchWrite(ctx, ops); err != nil {
		p.log.Error(ctx, "delete profile failed", "uid", user.UID, "error", err)
		return common.NewError(common.KindInternal, MsgDeleteFailed, err)
	}

	if err := p.auth.DeleteAccount(ctx); err != nil {
		p.log.Error(ctx, "orphaned identity account", "uid", user.UID, "code", identity.CodeOf(err), "error", err)
		return common.NewError(common.KindOrphanedAccount, MsgOrphanedAccount, err)
	}

	p.log.Info(ctx, "account deleted", "uid", user.UID)
	return p.actions.SignOut(ctx)
}
