package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Op names a MemoryService operation for failure injection.
type Op string

const (
	OpSignInWithPassword Op = "signInWithPassword"
	OpCreateAccount      Op = "createAccount"
	OpSignInWithProvider Op = "signInWithProviderToken"
	OpReauthenticate     Op = "reauthenticate"
	OpCurrentUser        Op = "currentUser"
	OpSignOut            Op = "signOut"
	OpSendPasswordReset  Op = "sendPasswordReset"
	OpUpdatePassword     Op = "updatePassword"
	OpDeleteAccount      Op = "deleteAccount"
)

type memAccount struct {
	uid      string
	email    string
	password string
}

// MemoryService is a process-local identity backend for development and
// tests. Accounts are lost on exit.
type MemoryService struct {
	mu       sync.Mutex
	byEmail  map[string]*memAccount
	byToken  map[string]*memAccount
	current  *memAccount
	authTime time.Time
	failures map[Op]error

	// Now is the clock used for auth_time. Defaults to time.Now.
	Now func() time.Time
	// NewUID generates account ids. Defaults to uuid.NewString.
	NewUID func() string
}

func NewMemoryService() *MemoryService {
	return &MemoryService{
		byEmail:  map[string]*memAccount{},
		byToken:  map[string]*memAccount{},
		failures: map[Op]error{},
		Now:      time.Now,
		NewUID:   uuid.NewString,
	}
}

// Fail makes every later call of op return err until cleared with a nil err.
func (m *MemoryService) Fail(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// Password returns the stored password for email, for assertions in tests.
func (m *MemoryService) Password(email string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return "", false
	}
	return a.password, true
}

// SetAuthTime moves the current session's auth_time.
func (m *MemoryService) SetAuthTime(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authTime = t
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	return ok && local != "" && strings.Contains(domain, ".")
}

func (m *MemoryService) signInLocked(a *memAccount) *Account {
	m.current = a
	m.authTime = m.Now()
	return &Account{UID: a.uid, Email: a.email}
}

func (m *MemoryService) SignInWithPassword(ctx context.Context, email, password string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpSignInWithPassword]; err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, newAuthError(CodeInvalidEmail, nil)
	}
	a, ok := m.byEmail[email]
	if !ok {
		return nil, newAuthError(CodeUserNotFound, nil)
	}
	if a.password != password {
		return nil, newAuthError(CodeWrongPassword, nil)
	}
	return m.signInLocked(a), nil
}

func (m *MemoryService) CreateAccount(ctx context.Context, email, password string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpCreateAccount]; err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, newAuthError(CodeInvalidEmail, nil)
	}
	if _, ok := m.byEmail[email]; ok {
		return nil, newAuthError(CodeEmailAlreadyInUse, nil)
	}
	if len(password) < 6 {
		return nil, newAuthError(CodeWeakPassword, nil)
	}

	a := &memAccount{uid: m.NewUID(), email: email, password: password}
	m.byEmail[email] = a
	return m.signInLocked(a), nil
}

func (m *MemoryService) SignInWithProviderToken(ctx context.Context, provider, token string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpSignInWithProvider]; err != nil {
		return nil, err
	}
	if token == "" {
		return nil, newAuthError(CodeInvalidUserToken, nil)
	}

	key := provider + ":" + token
	a, ok := m.byToken[key]
	if !ok {
		a = &memAccount{uid: m.NewUID()}
		m.byToken[key] = a
	}
	return m.signInLocked(a), nil
}

func (m *MemoryService) ReauthenticateWithPassword(ctx context.Context, email, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpReauthenticate]; err != nil {
		return err
	}
	if m.current == nil {
		return newAuthError(CodeNoCurrentUser, nil)
	}

	a, ok := m.byEmail[normalizeEmail(email)]
	if !ok {
		return newAuthError(CodeUserNotFound, nil)
	}
	if a.password != password {
		return newAuthError(CodeWrongPassword, nil)
	}
	if a != m.current {
		return newAuthError(CodeUserMismatch, nil)
	}
	m.authTime = m.Now()
	return nil
}

func (m *MemoryService) ReauthenticateWithProviderToken(ctx context.Context, provider, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpReauthenticate]; err != nil {
		return err
	}
	if m.current == nil {
		return newAuthError(CodeNoCurrentUser, nil)
	}
	if m.byToken[provider+":"+token] != m.current {
		return newAuthError(CodeUserMismatch, nil)
	}
	m.authTime = m.Now()
	return nil
}

func (m *MemoryService) CurrentUser(ctx context.Context) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpCurrentUser]; err != nil {
		return nil, err
	}
	if m.current == nil {
		return nil, nil
	}
	return &Account{UID: m.current.uid, Email: m.current.email}, nil
}

func (m *MemoryService) SignOut(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpSignOut]; err != nil {
		return err
	}
	m.current = nil
	return nil
}

func (m *MemoryService) SendPasswordReset(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpSendPasswordReset]; err != nil {
		return err
	}

	email = normalizeEmail(email)
	if !validEmail(email) {
		return newAuthError(CodeInvalidEmail, nil)
	}
	if _, ok := m.byEmail[email]; !ok {
		return newAuthError(CodeUserNotFound, nil)
	}
	return nil
}

func (m *MemoryService) UpdatePassword(ctx context.Context, newPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpUpdatePassword]; err != nil {
		return err
	}
	if m.current == nil {
		return newAuthError(CodeNoCurrentUser, nil)
	}
	if len(newPassword) < 6 {
		return newAuthError(CodeWeakPassword, nil)
	}
	m.current.password = newPassword
	return nil
}

func (m *MemoryService) DeleteAccount(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures[OpDeleteAccount]; err != nil {
		return err
	}
	if m.current == nil {
		return newAuthError(CodeNoCurrentUser, nil)
	}

	for k, a := range m.byEmail {
		if a == m.current {
			delete(m.byEmail, k)
		}
	}
	for k, a := range m.byToken {
		if a == m.current {
			delete(m.byToken, k)
		}
	}
	m.current = nil
	return nil
}

// IDToken returns an unsigned JWT for the current session. It only carries
// the claims the client reads.
func (m *MemoryService) IDToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ""
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":       m.current.uid,
		"email":     m.current.email,
		"auth_time": m.authTime.Unix(),
	})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		return ""
	}
	return s
}
