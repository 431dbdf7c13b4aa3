package config

import (
	"flag"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

var knownFlags = []string{
	"-identity", "-api-key", "-identity-endpoint",
	"-profiles", "-project", "-namespace", "-dsn",
	"-db", "-device-key",
	"-fb-app-id", "-fb-app-secret", "-fb-redirect",
	"-recent-login", "-log-level",
}

// parseFlags overlays cfg with command-line flags. args is filtered with
// flagx.FilterArgs first so flags owned by other components are ignored.
// Malformed values panic.
func parseFlags(cfg *Config, args []string) {
	fs := flag.NewFlagSet("gophauth", flag.ContinueOnError)

	fs.StringVar(&cfg.IdentityBackend, "identity", cfg.IdentityBackend, "identity backend: identitytoolkit or memory")
	fs.StringVar(&cfg.IdentityAPIKey, "api-key", cfg.IdentityAPIKey, "identity toolkit API key")
	fs.StringVar(&cfg.IdentityEndpoint, "identity-endpoint", cfg.IdentityEndpoint, "override identity toolkit endpoint (emulators)")
	fs.StringVar(&cfg.ProfileBackend, "profiles", cfg.ProfileBackend, "profile store: datastore, postgres or memory")
	fs.StringVar(&cfg.DatastoreProject, "project", cfg.DatastoreProject, "datastore project id")
	fs.StringVar(&cfg.DatastoreNamespace, "namespace", cfg.DatastoreNamespace, "datastore namespace")
	fs.StringVar(&cfg.PostgresDSN, "dsn", cfg.PostgresDSN, "postgres DSN")
	fs.StringVar(&cfg.CredentialDBPath, "db", cfg.CredentialDBPath, "local credential database")
	fs.StringVar(&cfg.DeviceKeyPath, "device-key", cfg.DeviceKeyPath, "device secret used to seal stored credentials")
	fs.StringVar(&cfg.FacebookAppID, "fb-app-id", cfg.FacebookAppID, "facebook app id")
	fs.StringVar(&cfg.FacebookAppSecret, "fb-app-secret", cfg.FacebookAppSecret, "facebook app secret")
	fs.StringVar(&cfg.FacebookRedirectURL, "fb-redirect", cfg.FacebookRedirectURL, "facebook OAuth redirect URL")
	fs.DurationVar(&cfg.RecentLoginWindow, "recent-login", cfg.RecentLoginWindow, "how long a sign-in counts as recent")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		panic(err)
	}
}
