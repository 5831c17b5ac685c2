package config

import "time"

// parseDurationOr parses s, falling back to def for values Validate would
// have rejected. Accessors below never fail so callers can read a snapshot
// without re-checking.
func parseDurationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}

	return d
}

// DelayDuration returns the parsed rate_limit.delay.
func (c *RateLimitConfig) DelayDuration() time.Duration {
	return parseDurationOr(c.Delay, 120*time.Millisecond)
}

// WalkTimeoutDuration returns the parsed server.walk_timeout.
func (c *ServerConfig) WalkTimeoutDuration() time.Duration {
	return parseDurationOr(c.WalkTimeout, 5*time.Minute)
}

// ShutdownTimeoutDuration returns the parsed server.shutdown_timeout.
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return parseDurationOr(c.ShutdownTimeout, 15*time.Second)
}

// MaxBodyBytes returns the parsed server.max_body_size.
func (c *ServerConfig) MaxBodyBytes() int64 {
	n, err := ParseSize(c.MaxBodySize)
	if err != nil {
		return 64 << 10
	}

	return n
}

// RequestTimeoutDuration returns the parsed network.request_timeout.
func (c *NetworkConfig) RequestTimeoutDuration() time.Duration {
	return parseDurationOr(c.RequestTimeout, 30*time.Second)
}
