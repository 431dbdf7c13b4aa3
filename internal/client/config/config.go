package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Identity backends.
const (
	IdentityToolkit = "identitytoolkit"
	IdentityMemory  = "memory"
)

// Profile store backends.
const (
	ProfilesDatastore = "datastore"
	ProfilesPostgres  = "postgres"
	ProfilesMemory    = "memory"
)

// Config holds runtime settings for the gophauth CLI.
type Config struct {
	IdentityBackend  string
	IdentityAPIKey   string
	IdentityEndpoint string

	ProfileBackend     string
	DatastoreProject   string
	DatastoreNamespace string
	PostgresDSN        string

	CredentialDBPath string
	DeviceKeyPath    string

	FacebookAppID       string
	FacebookAppSecret   string
	FacebookRedirectURL string

	RecentLoginWindow time.Duration
	LogLevel          string
}

// stateDir is where the local database and device key live by default.
func stateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "gophauth")
	}
	return ".gophauth"
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	dir := stateDir()

	c.IdentityBackend = IdentityMemory
	c.ProfileBackend = ProfilesMemory
	c.CredentialDBPath = filepath.Join(dir, "client.db")
	c.DeviceKeyPath = filepath.Join(dir, "device.key")
	c.FacebookRedirectURL = "https://www.facebook.com/connect/login_success.html"
	c.RecentLoginWindow = 5 * time.Minute
	c.LogLevel = "info"
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	switch c.IdentityBackend {
	case IdentityMemory:
	case IdentityToolkit:
		if c.IdentityAPIKey == "" {
			return fmt.Errorf("identity backend %q needs an API key", c.IdentityBackend)
		}
	default:
		return fmt.Errorf("unknown identity backend %q", c.IdentityBackend)
	}

	switch c.ProfileBackend {
	case ProfilesMemory:
	case ProfilesDatastore:
		if c.DatastoreProject == "" {
			return fmt.Errorf("profile backend %q needs a project id", c.ProfileBackend)
		}
	case ProfilesPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("profile backend %q needs a DSN", c.ProfileBackend)
		}
	default:
		return fmt.Errorf("unknown profile backend %q", c.ProfileBackend)
	}

	if c.RecentLoginWindow <= 0 {
		return fmt.Errorf("recent login window must be positive, got %s", c.RecentLoginWindow)
	}
	return nil
}

// FacebookEnabled reports whether a Facebook app is configured.
func (c *Config) FacebookEnabled() bool {
	return c.FacebookAppID != "" && c.FacebookAppSecret != ""
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	return loadFromArgs(os.Args[1:])
}

func loadFromArgs(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseFlags(cfg, args)
	return cfg
}
