// Package config loads runtime settings for the cvkit CLI. Sources are
// applied in order — defaults, then a JSON file, then command-line flags —
// with later sources taking precedence.
package config

import "time"

// Config holds runtime settings for the client.
type Config struct {
	// APIBaseURL is the root of the backend REST API, including the common
	// prefix, e.g. "http://localhost:3000/api".
	APIBaseURL string

	// RequestTimeout bounds every backend call.
	RequestTimeout time.Duration

	// HydrationTimeout bounds the initial durable-storage read before the
	// session is forced out of the loading state.
	HydrationTimeout time.Duration

	// DatabaseDSN locates the local sqlite database holding the persisted
	// token, edit secrets and owned-resume index.
	DatabaseDSN string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:3000/api"
	c.RequestTimeout = 15 * time.Second
	c.HydrationTimeout = 2 * time.Second
	c.DatabaseDSN = "cvkit.db"
}

// LoadConfig constructs a Config from defaults, JSON (if a config file was
// given) and command-line flags, in that order.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
