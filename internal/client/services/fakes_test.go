package services

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/identity"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/client/profiles"
	"github.com/dmitrijs2005/gophauth/internal/client/session"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// callLog records the order of backend calls across fakes.
type callLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, s)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func (l *callLog) count(s string) int {
	n := 0
	for _, e := range l.list() {
		if e == s {
			n++
		}
	}
	return n
}

// ---- fake identity backend ----

type fakeAuth struct {
	log *callLog

	Account *identity.Account // returned by successful sign-ins
	Current *identity.Account // returned by CurrentUser
	Token   string

	SignInErr   error
	CreateErr   error
	ProviderErr error
	ReauthErr   error
	CurrentErr  error
	SignOutErr  error
	ResetErr    error
	UpdateErr   error
	DeleteErr   error
	PanicSignIn bool

	LastEmail       string
	LastPassword    string
	LastProvider    string
	LastToken       string
	LastNewPassword string
}

func (f *fakeAuth) SignInWithPassword(ctx context.Context, email, password string) (*identity.Account, error) {
	f.log.add("auth.signInWithPassword")
	if f.PanicSignIn {
		panic("identity client exploded")
	}
	f.LastEmail, f.LastPassword = email, password
	if f.SignInErr != nil {
		return nil, f.SignInErr
	}
	f.Current = f.Account
	return f.Account, nil
}

func (f *fakeAuth) CreateAccount(ctx context.Context, email, password string) (*identity.Account, error) {
	f.log.add("auth.createAccount")
	f.LastEmail, f.LastPassword = email, password
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	f.Current = f.Account
	return f.Account, nil
}

func (f *fakeAuth) SignInWithProviderToken(ctx context.Context, provider, token string) (*identity.Account, error) {
	f.log.add("auth.signInWithProviderToken")
	f.LastProvider, f.LastToken = provider, token
	if f.ProviderErr != nil {
		return nil, f.ProviderErr
	}
	f.Current = f.Account
	return f.Account, nil
}

func (f *fakeAuth) ReauthenticateWithPassword(ctx context.Context, email, password string) error {
	f.log.add("auth.reauthenticateWithPassword")
	f.LastEmail, f.LastPassword = email, password
	return f.ReauthErr
}

func (f *fakeAuth) ReauthenticateWithProviderToken(ctx context.Context, provider, token string) error {
	f.log.add("auth.reauthenticateWithProviderToken")
	f.LastProvider, f.LastToken = provider, token
	return f.ReauthErr
}

func (f *fakeAuth) CurrentUser(ctx context.Context) (*identity.Account, error) {
	f.log.add("auth.currentUser")
	return f.Current, f.CurrentErr
}

func (f *fakeAuth) SignOut(ctx context.Context) error {
	f.log.add("auth.signOut")
	if f.SignOutErr != nil {
		return f.SignOutErr
	}
	f.Current = nil
	return nil
}

func (f *fakeAuth) SendPasswordReset(ctx context.Context, email string) error {
	f.log.add("auth.sendPasswordReset")
	f.LastEmail = email
	return f.ResetErr
}

func (f *fakeAuth) UpdatePassword(ctx context.Context, newPassword string) error {
	f.log.add("auth.updatePassword")
	f.LastNewPassword = newPassword
	return f.UpdateErr
}

func (f *fakeAuth) DeleteAccount(ctx context.Context) error {
	f.log.add("auth.deleteAccount")
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.Current = nil
	return nil
}

func (f *fakeAuth) IDToken() string { return f.Token }

// ---- fake credential store ----

type fakeCreds struct {
	log *callLog

	Stored   *models.StoredCredential
	GetErr   error
	SetErr   error
	ClearErr error
}

func (f *fakeCreds) Get(ctx context.Context) (*models.StoredCredential, error) {
	f.log.add("creds.get")
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	if f.Stored == nil {
		return nil, nil
	}
	c := *f.Stored
	return &c, nil
}

func (f *fakeCreds) Set(ctx context.Context, cred *models.StoredCredential) error {
	f.log.add("creds.set")
	if f.SetErr != nil {
		return f.SetErr
	}
	c := *cred
	f.Stored = &c
	return nil
}

func (f *fakeCreds) Clear(ctx context.Context) error {
	f.log.add("creds.clear")
	if f.ClearErr != nil {
		return f.ClearErr
	}
	f.Stored = nil
	return nil
}

// ---- fake facebook login ----

type fakeFacebook struct {
	log   *callLog
	token string
	err   error
}

func (f *fakeFacebook) Token(ctx context.Context) (string, error) {
	f.log.add("facebook.token")
	return f.token, f.err
}

// ---- profile store wrapper counting batches ----

type countingProfiles struct {
	*profiles.MemoryStore
	log     *callLog
	batches [][]models.WriteOp
}

func (c *countingProfiles) BatchWrite(ctx context.Context, ops []models.WriteOp) error {
	c.log.add("profiles.batchWrite")
	c.batches = append(c.batches, ops)
	return c.MemoryStore.BatchWrite(ctx, ops)
}

// ---- harness ----

type harness struct {
	calls    *callLog
	logBuf   *bytes.Buffer
	notices  []string
	store    *session.Store
	auth     *fakeAuth
	profiles *countingProfiles
	creds    *fakeCreds
	fb       *fakeFacebook
	actions  *AuthActions
	svc      *ProfileService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{calls: &callLog{}, logBuf: &bytes.Buffer{}}
	log := logging.NewTextLogger(h.logBuf, "debug")

	h.store = session.NewStore(log, func(msg string) { h.notices = append(h.notices, msg) })
	h.auth = &fakeAuth{log: h.calls, Account: &identity.Account{UID: "U1", Email: "a@x.com"}}
	h.profiles = &countingProfiles{MemoryStore: profiles.NewMemoryStore(), log: h.calls}
	h.creds = &fakeCreds{log: h.calls}
	h.fb = &fakeFacebook{log: h.calls, token: "fb-token"}
	h.actions = NewAuthActions(h.store, h.auth, h.profiles, h.creds, h.fb, log)
	h.svc = NewProfileService(h.actions, 5*time.Minute)
	return h
}

// signedIn puts the harness into an authenticated session for a@x.com.
func (h *harness) signedIn(t *testing.T) *models.User {
	t.Helper()
	h.auth.Current = h.auth.Account
	h.creds.Stored = models.PasswordCredential("a@x.com", "secret1")
	h.actions.Bootstrap(context.Background())
	st := h.store.State()
	if st.User == nil {
		t.Fatalf("expected signed-in state, got %+v", st)
	}
	return st.User
}

func (h *harness) seed(t *testing.T, ops ...models.WriteOp) {
	t.Helper()
	if err := h.profiles.MemoryStore.BatchWrite(context.Background(), ops); err != nil {
		t.Fatalf("seed: %v", err)
	}
}
