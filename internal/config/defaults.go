package config

// Default values for configuration options. These represent the "layer 0"
// of the four-layer override chain.
const (
	defaultTenant             = "common"
	defaultBaseURL            = "https://graph.microsoft.com/v1.0"
	defaultSite               = "root"
	defaultMimeType           = "application/pdf"
	defaultRateLimitMode      = "fixed"
	defaultRateLimitDelay     = "120ms"
	defaultRateLimitBurst     = 1
	defaultListen             = ":3000"
	defaultAllowedOrigin      = "http://localhost:5173"
	defaultMaxConcurrentWalks = 4
	defaultWalkTimeout        = "5m"
	defaultMaxBodySize        = "64KiB"
	defaultShutdownTimeout    = "15s"
	defaultRequestTimeout     = "30s"
	defaultUserAgent          = "spwalk/0.1"
	defaultLogLevel           = "info"
	defaultLogFormat          = "auto"
)

// defaultScopes are requested on the on-behalf-of exchange.
var defaultScopes = []string{"Files.Read.All", "Sites.Read.All", "Sites.ReadWrite.All"}

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Identity: IdentityConfig{
			Tenant: defaultTenant,
			Scopes: append([]string(nil), defaultScopes...),
		},
		Graph: GraphConfig{
			BaseURL:          defaultBaseURL,
			Site:             defaultSite,
			DocumentMimeType: defaultMimeType,
		},
		RateLimit: RateLimitConfig{
			Mode:  defaultRateLimitMode,
			Delay: defaultRateLimitDelay,
			Burst: defaultRateLimitBurst,
		},
		Server: ServerConfig{
			Listen:             defaultListen,
			AllowedOrigins:     []string{defaultAllowedOrigin},
			MaxConcurrentWalks: defaultMaxConcurrentWalks,
			WalkTimeout:        defaultWalkTimeout,
			MaxBodySize:        defaultMaxBodySize,
			ShutdownTimeout:    defaultShutdownTimeout,
		},
		Network: NetworkConfig{
			RequestTimeout: defaultRequestTimeout,
			UserAgent:      defaultUserAgent,
		},
		Logging: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
	}
}
