package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/facebook"
	"github.com/dmitrijs2005/gophauth/internal/client/identity"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/client/session"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func idTokenAt(t *testing.T, authTime time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":       "U1",
		"auth_time": authTime.Unix(),
	}).SignedString([]byte("test"))
	require.NoError(t, err)
	return s
}

func aliceDocs() []models.WriteOp {
	return []models.WriteOp{
		models.Set(models.CollectionUsers, "U1", models.Document{models.FieldDisplayName: "Alice", models.FieldUsername: "alice"}),
		models.Set(models.CollectionUsernames, "alice", models.Document{models.FieldUID: "U1"}),
	}
}

// ---- username availability & missing fields ----

func TestCheckUsernameAvailable(t *testing.T) {
	h := newHarness(t)
	h.seed(t, aliceDocs()...)
	ctx := context.Background()

	ok, err := h.svc.CheckUsernameAvailable(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.svc.CheckUsernameAvailable(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.svc.CheckUsernameAvailable(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	h.profiles.FailGet(errors.New("unavailable"))
	_, err = h.svc.CheckUsernameAvailable(ctx, "bob")
	require.Error(t, err)
	assert.Equal(t, common.KindInternal, common.KindOf(err))
}

func TestMissingFields(t *testing.T) {
	assert.Nil(t, MissingFields(nil))
	assert.Equal(t, []string{models.FieldDisplayName, models.FieldUsername}, MissingFields(&models.User{UID: "U1"}))
	assert.Equal(t, []string{models.FieldUsername}, MissingFields(&models.User{UID: "U1", DisplayName: models.StringPtr("A")}))
	assert.Empty(t, MissingFields(&models.User{UID: "U1", DisplayName: models.StringPtr("A"), Username: models.StringPtr("a")}))
}

// ---- updates ----

func TestUpdateDisplayName_MergesAndRefreshes(t *testing.T) {
	h := newHarness(t)
	h.seed(t, aliceDocs()...)
	user := h.signedIn(t)

	require.NoError(t, h.svc.UpdateDisplayName(context.Background(), user, "Alice Liddell"))

	doc, _ := h.profiles.GetDocument(context.Background(), models.CollectionUsers, "U1")
	assert.Equal(t, models.Document{models.FieldDisplayName: "Alice Liddell", models.FieldUsername: "alice"}, doc)
	assert.Equal(t, "Alice Liddell", models.Deref(h.store.State().User.DisplayName))
}

func TestUpdateDisplayName_Empty(t *testing.T) {
	h := newHarness(t)
	user := h.signedIn(t)

	err := h.svc.UpdateDisplayName(context.Background(), user, "")
	require.Error(t, err)
	assert.Equal(t, MsgDisplayNameMissing, common.UserMessage(err))
	assert.Zero(t, h.calls.count("profiles.batchWrite"))
}

func TestUpdateUsername_FromNone(t *testing.T) {
	h := newHarness(t)
	h.seed(t, models.Set(models.CollectionUsers, "U1", models.Document{models.FieldDisplayName: "Alice"}))
	user := h.signedIn(t)
	require.Nil(t, user.Username)

	require.NoError(t, h.svc.UpdateUsername(context.Background(), user, "alice"))

	require.Len(t, h.profiles.batches, 1)
	assert.Equal(t, []models.WriteOp{
		models.Merge(models.CollectionUsers, "U1", models.Document{models.FieldUsername: "alice"}),
		models.Set(models.CollectionUsernames, "alice", models.Document{models.FieldUID: "U1"}),
	}, h.profiles.batches[0])
	assert.Equal(t, "alice", models.Deref(h.store.State().User.Username))
}

func TestUpdateUsername_MovesIndexEntry(t *testing.T) {
	h := newHarness(t)
	h.seed(t, aliceDocs()...)
	user := h.signedIn(t)

	require.NoError(t, h.svc.UpdateUsername(context.Background(), user, "ally"))

	assert.Equal(t, map[string]models.Document{
		"ally": {models.FieldUID: "U1"},
	}, h.profiles.Collection(models.CollectionUsernames))
	doc, _ := h.profiles.GetDocument(context.Background(), models.CollectionUsers, "U1")
	assert.Equal(t, "ally", doc[models.FieldUsername])
	assert.Equal(t, "Alice", doc[models.FieldDisplayName])
}

func TestUpdateUsername_SameNameTwiceIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.seed(t, aliceDocs()...)
	user := h.signedIn(t)
	ctx := context.Background()

	require.NoError(t, h.svc.UpdateUsername(ctx, user, "alice"))
	user = h.store.State().User
	require.NoError(t, h.svc.UpdateUsername(ctx, user, "alice"))

	assert.Equal(t, map[string]models.Document{
		"alice": {models.FieldUID: "U1"},
	}, h.profiles.Collection(models.CollectionUsernames))
	doc, _ := h.profiles.GetDocument(ctx, models.CollectionUsers, "U1")
	assert.Equal(t, "alice", doc[models.FieldUsername])
	for _, b := range h.profiles.batches {
		for _, op := range b {
			assert.NotEqual(t, models.ModeDelete, op.Mode, "no delete of the entry being re-set")
		}
	}
}

func TestUpdateUsername_TakenByAnotherUser(t *testing.T) {
	h := newHarness(t)
	h.seed(t, models.Set(models.CollectionUsernames, "bob", models.Document{models.FieldUID: "U2"}))
	user := h.signedIn(t)

	err := h.svc.UpdateUsername(context.Background(), user, "bob")
	require.Error(t, err)
	assert.Equal(t, common.KindCredential, common.KindOf(err))
	assert.Equal(t, MsgUsernameTaken, common.UserMessage(err))
	assert.Zero(t, h.calls.count("profiles.batchWrite"))
}

func TestUpdateUsername_BatchFailure(t *testing.T) {
	h := newHarness(t)
	h.seed(t, aliceDocs()...)
	user := h.signedIn(t)
	h.profiles.FailBatch(errors.New("aborted"))

	err := h.svc.UpdateUsername(context.Background(), user, "ally")
	require.Error(t, err)
	assert.Equal(t, common.KindInternal, common.KindOf(err))
	assert.Equal(t, "alice", models.Deref(h.store.State().User.Username), "session keeps the old user")
}

func TestUpdateDisplayNameAndUsername_OneBatch(t *testing.T) {
	h := newHarness(t)
	user := h.signedIn(t)

	require.NoError(t, h.svc.UpdateDisplayNameAndUsername(context.Background(), user, "Alice", "alice"))

	require.Len(t, h.profiles.batches, 1)
	st := h.store.State()
	assert.Equal(t, "Alice", models.Deref(st.User.DisplayName))
	assert.Equal(t, "alice", models.Deref(st.User.Username))
}

func TestCompleteProfile_PicksVariant(t *testing.T) {
	tests := []struct {
		name     string
		seed     models.Document
		wantUser models.Document
	}{
		{
			name:     "both missing",
			seed:     nil,
			wantUser: models.Document{models.FieldDisplayName: "Alice", models.FieldUsername: "alice"},
		},
		{
			name:     "display name missing",
			seed:     models.Document{models.FieldUsername: "kept"},
			wantUser: models.Document{models.FieldDisplayName: "Alice", models.FieldUsername: "kept"},
		},
		{
			name:     "username missing",
			seed:     models.Document{models.FieldDisplayName: "Kept"},
			wantUser: models.Document{models.FieldDisplayName: "Kept", models.FieldUsername: "alice"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			if tt.seed != nil {
				h.seed(t, models.Set(models.CollectionUsers, "U1", tt.seed))
			}
			user := h.signedIn(t)

			require.NoError(t, h.svc.CompleteProfile(context.Background(), user, "Alice", "alice"))

			doc, _ := h.profiles.GetDocument(context.Background(), models.CollectionUsers, "U1")
			assert.Equal(t, tt.wantUser, doc)
			assert.True(t, h.store.State().User.HasCompleteProfile())
		})
	}
}

func TestCompleteProfile_AlreadyComplete(t *testing.T) {
	h := newHarness(t)
	h.seed(t, aliceDocs()...)
	user := h.signedIn(t)

	require.NoError(t, h.svc.CompleteProfile(context.Background(), user, "X", "x"))
	assert.Zero(t, h.calls.count("profiles.batchWrite"))
}

func TestProfileUpdates_NoUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	updates := map[string]func() error{
		"display name": func() error { return h.svc.UpdateDisplayName(ctx, nil, "Alice") },
		"username":     func() error { return h.svc.UpdateUsername(ctx, nil, "alice") },
		"both":         func() error { return h.svc.UpdateDisplayNameAndUsername(ctx, nil, "Alice", "alice") },
		"complete":     func() error { return h.svc.CompleteProfile(ctx, nil, "Alice", "alice") },
	}
	for name, update := range updates {
		t.Run(name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() { err = update() })
			require.ErrorIs(t, err, common.ErrNoUser)
			assert.Equal(t, common.KindInternal, common.KindOf(err))
		})
	}
	assert.Zero(t, h.calls.count("profiles.batchWrite"))
}

// ---- password reset & reauthentication ----

func TestSendPasswordReset(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"sent", nil, false},
		{"unknown email looks like success", authErr(identity.CodeUserNotFound), false},
		{"invalid email looks like success", authErr(identity.CodeInvalidEmail), false},
		{"backend failure", authErr(identity.CodeInternalError), true},
		{"unclassified failure", errors.New("boom"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.auth.ResetErr = tt.err

			err := h.svc.SendPasswordReset(context.Background(), "a@x.com")
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, MsgSomethingWrong, common.UserMessage(err))
		})
	}
}

func TestReauthenticate(t *testing.T) {
	h := newHarness(t)
	user := h.signedIn(t)
	ctx := context.Background()

	err := h.svc.Reauthenticate(ctx, user, "other@x.com", "secret1")
	assert.Equal(t, MsgWrongAccount, common.UserMessage(err))
	assert.Zero(t, h.calls.count("auth.reauthenticateWithPassword"))

	require.NoError(t, h.svc.Reauthenticate(ctx, user, "a@x.com", "secret1"))

	h.auth.ReauthErr = authErr(identity.CodeWrongPassword)
	err = h.svc.Reauthenticate(ctx, user, "a@x.com", "nope")
	assert.Equal(t, common.KindCredential, common.KindOf(err))
	assert.Equal(t, MsgLoginFailed, common.UserMessage(err))
}

func TestReauthenticateWithFacebook(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)
	ctx := context.Background()

	require.NoError(t, h.svc.ReauthenticateWithFacebook(ctx))
	assert.Equal(t, identity.ProviderFacebook, h.auth.LastProvider)

	h.auth.ReauthErr = authErr(identity.CodeUserMismatch)
	assert.Equal(t, MsgWrongAccount, common.UserMessage(h.svc.ReauthenticateWithFacebook(ctx)))

	h.fb.err = facebook.ErrCancelled
	err := h.svc.ReauthenticateWithFacebook(ctx)
	require.ErrorIs(t, err, facebook.ErrCancelled)
}

// ---- password change ----

func TestChangePassword_Validation(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)
	ctx := context.Background()

	assert.Equal(t, MsgPasswordMismatch, common.UserMessage(h.svc.ChangePassword(ctx, "secret2", "secret3")))
	assert.Equal(t, MsgPasswordTooShort, common.UserMessage(h.svc.ChangePassword(ctx, "abc", "abc")))
	assert.Zero(t, h.calls.count("auth.updatePassword"))
}

func TestChangePassword_UpdatesStoredCredential(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)

	require.NoError(t, h.svc.ChangePassword(context.Background(), "secret2", "secret2"))

	assert.Equal(t, "secret2", h.auth.LastNewPassword)
	assert.Equal(t, models.PasswordCredential("a@x.com", "secret2"), h.creds.Stored)
}

func TestChangePassword_FacebookCredentialUntouched(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)
	h.creds.Stored = models.FacebookCredential()

	require.NoError(t, h.svc.ChangePassword(context.Background(), "secret2", "secret2"))
	assert.Equal(t, models.FacebookCredential(), h.creds.Stored)
}

func TestChangePassword_RequiresRecentLogin(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)
	h.auth.UpdateErr = authErr(identity.CodeRequiresRecentLogin)

	err := h.svc.ChangePassword(context.Background(), "secret2", "secret2")
	assert.Equal(t, common.KindReauthRequired, common.KindOf(err))
	assert.Equal(t, models.PasswordCredential("a@x.com", "secret1"), h.creds.Stored)
}

func TestChangePassword_OtherFailure(t *testing.T) {
	h := newHarness(t)
	h.signedIn(t)
	h.auth.UpdateErr = authErr(identity.CodeWeakPassword)

	err := h.svc.ChangePassword(context.Background(), "secret2", "secret2")
	assert.Equal(t, MsgGenericRetry, common.UserMessage(err))
}

// ---- account deletion ----

func freshDeleteHarness(t *testing.T) (*harness, *models.User) {
	t.Helper()
	h := newHarness(t)
	h.seed(t, aliceDocs()...)
	user := h.signedIn(t)
	h.svc.now = func() time.Time { return testNow }
	h.auth.Token = idTokenAt(t, testNow.Add(-time.Minute))
	return h, user
}

func TestDeleteAccount_Success(t *testing.T) {
	h, user := freshDeleteHarness(t)

	require.NoError(t, h.svc.DeleteAccount(context.Background(), user))

	assert.Empty(t, h.profiles.Collection(models.CollectionUsers))
	assert.Empty(t, h.profiles.Collection(models.CollectionUsernames))
	assert.Equal(t, 1, h.calls.count("auth.deleteAccount"))
	assert.Nil(t, h.creds.Stored)

	st := h.store.State()
	assert.True(t, st.IsSignout)
	assert.Nil(t, st.User)
}

func TestDeleteAccount_StaleLoginDeletesNothing(t *testing.T) {
	h, user := freshDeleteHarness(t)
	h.auth.Token = idTokenAt(t, testNow.Add(-time.Hour))

	err := h.svc.DeleteAccount(context.Background(), user)
	require.Error(t, err)
	assert.Equal(t, common.KindReauthRequired, common.KindOf(err))
	assert.Zero(t, h.calls.count("profiles.batchWrite"))
	assert.Zero(t, h.calls.count("auth.deleteAccount"))
	assert.Len(t, h.profiles.Collection(models.CollectionUsers), 1)
}

func TestDeleteAccount_BatchFailureNeverDeletesIdentity(t *testing.T) {
	h, user := freshDeleteHarness(t)
	h.profiles.FailBatch(errors.New("transient: deadline exceeded"))

	err := h.svc.DeleteAccount(context.Background(), user)
	require.Error(t, err)

	assert.Equal(t, common.KindInternal, common.KindOf(err))
	assert.NotEqual(t, common.KindOrphanedAccount, common.KindOf(err))
	assert.Zero(t, h.calls.count("auth.deleteAccount"))
	assert.Equal(t, session.PhaseAuthenticated, h.store.State().Phase())
}

func TestDeleteAccount_IdentityFailureIsOrphaned(t *testing.T) {
	h, user := freshDeleteHarness(t)
	h.auth.DeleteErr = authErr(identity.CodeRequiresRecentLogin)

	err := h.svc.DeleteAccount(context.Background(), user)
	require.Error(t, err)

	assert.Equal(t, common.KindOrphanedAccount, common.KindOf(err))
	assert.Equal(t, MsgOrphanedAccount, common.UserMessage(err))
	assert.Empty(t, h.profiles.Collection(models.CollectionUsers))
	assert.NotNil(t, h.creds.Stored, "no sign-out after a failed deletion")
}

func TestDeleteAccount_WithoutUsernameDeletesOnlyUserDoc(t *testing.T) {
	h := newHarness(t)
	h.seed(t, models.Set(models.CollectionUsers, "U1", models.Document{models.FieldDisplayName: "Alice"}))
	user := h.signedIn(t)
	h.svc.now = func() time.Time { return testNow }
	h.auth.Token = idTokenAt(t, testNow)

	require.NoError(t, h.svc.DeleteAccount(context.Background(), user))

	require.Len(t, h.profiles.batches, 1)
	assert.Equal(t, []models.WriteOp{models.Delete(models.CollectionUsers, "U1")}, h.profiles.batches[0])
}
