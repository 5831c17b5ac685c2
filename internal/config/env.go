package config

import "os"

// Environment variable names for overrides. The unprefixed CLIENT_ID,
// CLIENT_SECRET and PORT are honored as fallbacks for existing deployments.
const (
	EnvConfig       = "SPWALK_CONFIG"
	EnvClientID     = "SPWALK_CLIENT_ID"
	EnvClientSecret = "SPWALK_CLIENT_SECRET"
	EnvListen       = "SPWALK_LISTEN"
	EnvSite         = "SPWALK_SITE"
	EnvLogLevel     = "SPWALK_LOG_LEVEL"
	EnvUserToken    = "SPWALK_USER_TOKEN" //nolint:gosec // G101: variable name, not a credential

	envLegacyClientID     = "CLIENT_ID"
	envLegacyClientSecret = "CLIENT_SECRET"
	envLegacyPort         = "PORT"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath   string
	ClientID     string
	ClientSecret string
	Listen       string
	Site         string
	LogLevel     string
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	env := EnvOverrides{
		ConfigPath:   os.Getenv(EnvConfig),
		ClientID:     firstEnv(EnvClientID, envLegacyClientID),
		ClientSecret: firstEnv(EnvClientSecret, envLegacyClientSecret),
		Listen:       os.Getenv(EnvListen),
		Site:         os.Getenv(EnvSite),
		LogLevel:     os.Getenv(EnvLogLevel),
	}

	if env.Listen == "" {
		if port := os.Getenv(envLegacyPort); port != "" {
			env.Listen = ":" + port
		}
	}

	return env
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}

	return ""
}
