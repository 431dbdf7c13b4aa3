package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/client/credentials"
	"github.com/dmitrijs2005/gophauth/internal/client/facebook"
	"github.com/dmitrijs2005/gophauth/internal/client/identity"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/client/profiles"
	"github.com/dmitrijs2005/gophauth/internal/client/services"
	"github.com/dmitrijs2005/gophauth/internal/client/session"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"google.golang.org/api/option"
)

// devFacebookToken is handed to the in-memory identity backend when no
// Facebook app is configured, so the Facebook flow can be tried locally.
const devFacebookToken = "dev-facebook-user"

type App struct {
	config  *config.Config
	log     logging.Logger
	store   *session.Store
	actions *services.AuthActions
	profile *services.ProfileService
	reader  *bufio.Reader
	out     io.Writer

	// notified is set when the store already told the user about a failure.
	notified bool
	// status is the prompt suffix, kept in step with the session.
	status  atomic.Value
	closers []func() error
}

// backends are the capabilities the session engine runs against.
type backends struct {
	auth     identity.AuthService
	profiles profiles.UserProfileStore
	creds    credentials.Store
	fb       facebook.Login
}

// NewApp opens every backend named by c and wires the session engine on top.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	a := &App{config: c, log: log, reader: bufio.NewReader(os.Stdin), out: os.Stdout}

	b, err := a.openBackends(ctx)
	if err != nil {
		return nil, err
	}
	a.wire(b)
	return a, nil
}

func (a *App) openBackends(ctx context.Context) (b backends, err error) {
	c := a.config
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	secret, err := cryptox.LoadOrCreateSecret(c.DeviceKeyPath)
	if err != nil {
		return b, fmt.Errorf("device key: %w", err)
	}
	db, err := credentials.OpenDatabase(ctx, c.CredentialDBPath)
	if err != nil {
		return b, err
	}
	a.closers = append(a.closers, db.Close)
	if b.creds, err = credentials.NewSQLiteStore(db, secret); err != nil {
		return b, err
	}

	switch c.IdentityBackend {
	case config.IdentityToolkit:
		var opts []option.ClientOption
		if c.IdentityEndpoint != "" {
			opts = append(opts, option.WithEndpoint(c.IdentityEndpoint))
		}
		if b.auth, err = identity.NewToolkitService(ctx, c.IdentityAPIKey, opts...); err != nil {
			return b, err
		}
	default:
		b.auth = identity.NewMemoryService()
	}

	switch c.ProfileBackend {
	case config.ProfilesDatastore:
		ds, err := profiles.NewDatastoreStore(ctx, c.DatastoreProject, c.DatastoreNamespace)
		if err != nil {
			return b, err
		}
		a.closers = append(a.closers, ds.Close)
		b.profiles = ds
	case config.ProfilesPostgres:
		pg, err := profiles.OpenPostgres(ctx, c.PostgresDSN)
		if err != nil {
			return b, err
		}
		a.closers = append(a.closers, pg.Close)
		b.profiles = profiles.NewPostgresStore(pg)
	default:
		b.profiles = profiles.NewMemoryStore()
	}

	switch {
	case c.FacebookEnabled():
		b.fb = facebook.NewOAuthLogin(c.FacebookAppID, c.FacebookAppSecret, c.FacebookRedirectURL, a)
	case c.IdentityBackend == config.IdentityMemory:
		b.fb = facebook.StaticLogin(devFacebookToken)
	default:
		b.fb = facebook.StaticLogin("")
	}

	a.log.Debug(ctx, "backends ready", "identity", c.IdentityBackend, "profiles", c.ProfileBackend, "facebook", c.FacebookEnabled())
	return b, nil
}

func (a *App) wire(b backends) {
	a.store = session.NewStore(a.log, func(msg string) {
		a.notified = true
		fmt.Fprintln(a.out, msg)
	})
	a.status.Store("")
	a.store.Subscribe(a.onSession)
	a.actions = services.NewAuthActions(a.store, b.auth, b.profiles, b.creds, b.fb, a.log)
	a.profile = services.NewProfileService(a.actions, a.config.RecentLoginWindow)
}

// Close releases the backends opened by NewApp.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Run restores the previous session and serves the REPL until the user quits
// or input ends.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if err := a.Close(); err != nil {
			a.log.Warn(ctx, "closing backends", "error", err)
		}
	}()

	fmt.Fprintln(a.out, "Welcome to gophauth (type 'help' for commands)")
	a.actions.Bootstrap(ctx)
	a.greet()

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) user() *models.User {
	return a.store.State().User
}

func (a *App) isLoggedIn() bool {
	return a.user() != nil
}

func (a *App) getStatus() string {
	s, _ := a.status.Load().(string)
	return s
}

// onSession follows session changes so the prompt shows who is signed in.
func (a *App) onSession(st session.State) {
	switch u := st.User; {
	case u == nil:
		a.status.Store("")
	case u.Username != nil:
		a.status.Store(fmt.Sprintf("(%s)", *u.Username))
	default:
		a.status.Store(fmt.Sprintf("(%s)", u.Email))
	}
}

// greet reports the session after a sign in and nudges towards completing
// the profile.
func (a *App) greet() {
	u := a.user()
	if u == nil {
		return
	}
	name := u.Email
	if u.DisplayName != nil {
		name = *u.DisplayName
	}
	fmt.Fprintf(a.out, "Signed in as %s\n", name)
	if !u.HasCompleteProfile() {
		missing := services.MissingFields(u)
		fmt.Fprintf(a.out, "Your profile is missing %s, run 'complete' to fill it in\n", strings.Join(missing, " and "))
	}
}

// report prints the user-facing message for err unless the store has already
// shown a notice for it.
func (a *App) report(err error) {
	if err == nil || a.notified {
		return
	}
	if msg := common.UserMessage(err); msg != "" {
		fmt.Fprintln(a.out, msg)
	}
}

// AuthorizationResponse shows the Facebook login URL and reads back the
// code or the redirect URL the browser landed on.
func (a *App) AuthorizationResponse(ctx context.Context, authURL string) (string, error) {
	fmt.Fprintln(a.out, "Open this URL in a browser and sign in with Facebook:")
	fmt.Fprintln(a.out, authURL)
	return getSimpleText(a.reader, "Paste the redirect URL or the code (empty to cancel)", a.out)
}
