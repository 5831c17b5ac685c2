package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"
)

// Validation range constants.
const (
	minConcurrentWalks = 1
	maxConcurrentWalks = 64
	maxRateLimitBurst  = 100
	minBodySize        = 1024
	maxRateLimitDelay  = time.Minute
	minRequestTimeout  = time.Second
	minWalkTimeout     = time.Second
)

var (
	validRateLimitModes = map[string]bool{"fixed": true, "token_bucket": true, "none": true}
	validLogLevels      = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats     = map[string]bool{"auto": true, "text": true, "json": true}
)

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass. Client
// credentials are not required here: they are checked where the exchange
// is built, so commands that never exchange tokens still run.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateIdentity(&cfg.Identity)...)
	errs = append(errs, validateGraph(&cfg.Graph)...)
	errs = append(errs, validateSelection(&cfg.Selection)...)
	errs = append(errs, validateRateLimit(&cfg.RateLimit)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

// ErrMissingCredentials is returned by RequireCredentials.
var ErrMissingCredentials = errors.New("identity client_id and client_secret are required")

// RequireCredentials reports whether the confidential client is configured.
func RequireCredentials(cfg *Config) error {
	if cfg.Identity.ClientID == "" || cfg.Identity.ClientSecret == "" {
		return fmt.Errorf("%w (set %s and %s)", ErrMissingCredentials, EnvClientID, EnvClientSecret)
	}

	return nil
}

func validateIdentity(c *IdentityConfig) []error {
	var errs []error

	if c.TokenURL != "" {
		if err := validateURL(c.TokenURL); err != nil {
			errs = append(errs, fmt.Errorf("identity.token_url: %w", err))
		}
	}

	if c.Tenant == "" && c.TokenURL == "" {
		errs = append(errs, errors.New("identity.tenant: must not be empty when token_url is unset"))
	}

	if len(c.Scopes) == 0 {
		errs = append(errs, errors.New("identity.scopes: at least one scope is required"))
	}

	return errs
}

func validateGraph(c *GraphConfig) []error {
	var errs []error

	if err := validateURL(c.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("graph.base_url: %w", err))
	}

	if strings.TrimSpace(c.Site) == "" {
		errs = append(errs, errors.New("graph.site: must not be empty"))
	}

	if !strings.Contains(c.DocumentMimeType, "/") {
		errs = append(errs, fmt.Errorf("graph.document_mime_type: %q is not a mime type", c.DocumentMimeType))
	}

	return errs
}

func validateSelection(c *SelectionConfig) []error {
	if c.FolderPath == "" {
		return nil
	}

	blank := strings.TrimFunc(c.FolderPath, func(r rune) bool {
		return r == '/' || unicode.IsSpace(r)
	})

	if blank == "" {
		return []error{fmt.Errorf("selection.folder_path: %q names no drive or folder (leave it empty for the first folder)", c.FolderPath)}
	}

	return nil
}

func validateRateLimit(c *RateLimitConfig) []error {
	var errs []error

	if !validRateLimitModes[c.Mode] {
		errs = append(errs, fmt.Errorf("rate_limit.mode: must be fixed, token_bucket, or none, got %q", c.Mode))
	}

	d, err := time.ParseDuration(c.Delay)

	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("rate_limit.delay: %w", err))
	case d < 0 || d > maxRateLimitDelay:
		errs = append(errs, fmt.Errorf("rate_limit.delay: must be between 0 and %s, got %s", maxRateLimitDelay, d))
	case c.Mode == "token_bucket" && d == 0:
		errs = append(errs, errors.New("rate_limit.delay: token_bucket requires a positive delay"))
	}

	if c.Burst < 1 || c.Burst > maxRateLimitBurst {
		errs = append(errs, fmt.Errorf("rate_limit.burst: must be between 1 and %d, got %d", maxRateLimitBurst, c.Burst))
	}

	return errs
}

func validateServer(c *ServerConfig) []error {
	var errs []error

	if c.Listen == "" {
		errs = append(errs, errors.New("server.listen: must not be empty"))
	}

	if c.MaxConcurrentWalks < minConcurrentWalks || c.MaxConcurrentWalks > maxConcurrentWalks {
		errs = append(errs, fmt.Errorf("server.max_concurrent_walks: must be between %d and %d, got %d",
			minConcurrentWalks, maxConcurrentWalks, c.MaxConcurrentWalks))
	}

	if err := validateMinDuration(c.WalkTimeout, minWalkTimeout); err != nil {
		errs = append(errs, fmt.Errorf("server.walk_timeout: %w", err))
	}

	if err := validateMinDuration(c.ShutdownTimeout, 0); err != nil {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout: %w", err))
	}

	size, err := ParseSize(c.MaxBodySize)

	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("server.max_body_size: %w", err))
	case size < minBodySize:
		errs = append(errs, fmt.Errorf("server.max_body_size: must be at least %d bytes", minBodySize))
	}

	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			errs = append(errs, errors.New("server.allowed_origins: \"*\" cannot be combined with credentials"))
		}
	}

	return errs
}

func validateNetwork(c *NetworkConfig) []error {
	if err := validateMinDuration(c.RequestTimeout, minRequestTimeout); err != nil {
		return []error{fmt.Errorf("network.request_timeout: %w", err)}
	}

	return nil
}

func validateLogging(c *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[c.LogLevel] {
		errs = append(errs, fmt.Errorf("logging.log_level: must be debug, info, warn, or error, got %q", c.LogLevel))
	}

	if !validLogFormats[c.LogFormat] {
		errs = append(errs, fmt.Errorf("logging.log_format: must be auto, text, or json, got %q", c.LogFormat))
	}

	return errs
}

func validateMinDuration(s string, minimum time.Duration) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	if d < minimum {
		return fmt.Errorf("must be at least %s, got %s", minimum, d)
	}

	return nil
}

func validateURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must be an http(s) URL, got %q", s)
	}

	if u.Host == "" {
		return fmt.Errorf("missing host in %q", s)
	}

	return nil
}
