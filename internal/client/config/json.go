package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Empty fields
// leave the current value alone.
type JsonConfig struct {
	IdentityBackend     string         `json:"identity_backend"`
	IdentityAPIKey      string         `json:"identity_api_key"`
	IdentityEndpoint    string         `json:"identity_endpoint"`
	ProfileBackend      string         `json:"profile_backend"`
	DatastoreProject    string         `json:"datastore_project"`
	DatastoreNamespace  string         `json:"datastore_namespace"`
	PostgresDSN         string         `json:"postgres_dsn"`
	CredentialDBPath    string         `json:"credential_db_path"`
	DeviceKeyPath       string         `json:"device_key_path"`
	FacebookAppID       string         `json:"facebook_app_id"`
	FacebookAppSecret   string         `json:"facebook_app_secret"`
	FacebookRedirectURL string         `json:"facebook_redirect_url"`
	RecentLoginWindow   timex.Duration `json:"recent_login_window"`
	LogLevel            string         `json:"log_level"`
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseJson overlays cfg with the JSON file named by -c/-config in args.
// Without such a flag nothing happens. Read and decode errors panic.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigPath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	overlay(&cfg.IdentityBackend, jc.IdentityBackend)
	overlay(&cfg.IdentityAPIKey, jc.IdentityAPIKey)
	overlay(&cfg.IdentityEndpoint, jc.IdentityEndpoint)
	overlay(&cfg.ProfileBackend, jc.ProfileBackend)
	overlay(&cfg.DatastoreProject, jc.DatastoreProject)
	overlay(&cfg.DatastoreNamespace, jc.DatastoreNamespace)
	overlay(&cfg.PostgresDSN, jc.PostgresDSN)
	overlay(&cfg.CredentialDBPath, jc.CredentialDBPath)
	overlay(&cfg.DeviceKeyPath, jc.DeviceKeyPath)
	overlay(&cfg.FacebookAppID, jc.FacebookAppID)
	overlay(&cfg.FacebookAppSecret, jc.FacebookAppSecret)
	overlay(&cfg.FacebookRedirectURL, jc.FacebookRedirectURL)
	overlay(&cfg.LogLevel, jc.LogLevel)
	if jc.RecentLoginWindow.Duration != 0 {
		cfg.RecentLoginWindow = time.Duration(jc.RecentLoginWindow.Duration)
	}
}
