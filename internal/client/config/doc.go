// Package config loads runtime configuration for the gophauth CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// # JSON schema
//
// Durations use timex.Duration, so they can be strings like "5m" or integer
// nanoseconds:
//
//	{
//	  "identity_backend": "identitytoolkit",
//	  "identity_api_key": "AIza...",
//	  "profile_backend": "datastore",
//	  "datastore_project": "my-project",
//	  "recent_login_window": "5m",
//	  "log_level": "debug"
//	}
//
// The package does not read environment variables, apart from what the
// Google client libraries pick up on their own (DATASTORE_EMULATOR_HOST,
// application default credentials).
package config
