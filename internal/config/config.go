// Package config implements TOML configuration loading, validation, and
// path resolution for spwalk. It supports a four-layer override chain
// (defaults -> config file -> environment -> CLI flags) and live reload of
// the config file through a shared Holder.
package config

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	Identity  IdentityConfig  `toml:"identity"`
	Graph     GraphConfig     `toml:"graph"`
	Selection SelectionConfig `toml:"selection"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
	Server    ServerConfig    `toml:"server"`
	Network   NetworkConfig   `toml:"network"`
	Logging   LoggingConfig   `toml:"logging"`
	History   HistoryConfig   `toml:"history"`
}

// IdentityConfig describes the confidential client that performs the
// on-behalf-of and refresh exchanges. The secret is normally supplied through
// the environment rather than the file.
type IdentityConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	Tenant       string   `toml:"tenant"`
	TokenURL     string   `toml:"token_url"`
	Scopes       []string `toml:"scopes"`
}

// GraphConfig locates the SharePoint site and the document type to collect.
type GraphConfig struct {
	BaseURL          string `toml:"base_url"`
	Site             string `toml:"site"`
	DocumentMimeType string `toml:"document_mime_type"`
}

// SelectionConfig picks the folder whose documents are listed. An empty
// folder_path keeps the positional rule: first drive, first folder.
type SelectionConfig struct {
	DriveID    string `toml:"drive_id"`
	FolderPath string `toml:"folder_path"`
}

// RateLimitConfig paces folder descents during a walk.
type RateLimitConfig struct {
	Mode  string `toml:"mode"`
	Delay string `toml:"delay"`
	Burst int    `toml:"burst"`
}

// ServerConfig controls the HTTP front end.
type ServerConfig struct {
	Listen             string   `toml:"listen"`
	AllowedOrigins     []string `toml:"allowed_origins"`
	MaxConcurrentWalks int      `toml:"max_concurrent_walks"`
	WalkTimeout        string   `toml:"walk_timeout"`
	MaxBodySize        string   `toml:"max_body_size"`
	ShutdownTimeout    string   `toml:"shutdown_timeout"`
}

// NetworkConfig controls outbound HTTP behavior.
type NetworkConfig struct {
	RequestTimeout string `toml:"request_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// LoggingConfig controls log output: level and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// HistoryConfig enables the run history database. An empty path disables it.
type HistoryConfig struct {
	Path string `toml:"path"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Empty strings mean "not specified".
type CLIOverrides struct {
	ConfigPath string // --config flag (empty = use default)
	Listen     string // --listen flag
	Site       string // --site flag
	FolderPath string // --folder flag
}
