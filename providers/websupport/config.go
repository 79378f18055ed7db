package websupport

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Configuration defaults.
const (
	// DefaultTTL is the TTL of challenge records, in seconds.
	DefaultTTL = 120

	// DefaultTimeout bounds a single API request.
	DefaultTimeout = 30 * time.Second

	// DefaultPropagationTimeout is how long to wait for a record to be visible.
	DefaultPropagationTimeout = 2 * time.Minute

	// DefaultPollingInterval is the delay between propagation checks.
	DefaultPollingInterval = 5 * time.Second
)

// Config holds Websupport-specific configuration.
type Config struct {
	APIKey      string // API key identifier
	APISecret   string // API secret used as the HMAC key
	APIEndpoint string // Defaults to DefaultAPIEndpoint
	TTL         int    // Record TTL in seconds

	Timeout            time.Duration // Per-request timeout
	PropagationTimeout time.Duration // Upper bound on waiting for DNS propagation
	PollingInterval    time.Duration // Delay between propagation checks
}

// DefaultConfig returns a Config with every optional field set to its default.
func DefaultConfig() *Config {
	return &Config{
		APIEndpoint:        DefaultAPIEndpoint,
		TTL:                DefaultTTL,
		Timeout:            DefaultTimeout,
		PropagationTimeout: DefaultPropagationTimeout,
		PollingInterval:    DefaultPollingInterval,
	}
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	var errs []string

	if c.APIKey == "" {
		errs = append(errs, "API_KEY is required (obtain one from "+AccountURL+")")
	}
	if c.APISecret == "" {
		errs = append(errs, "API_SECRET is required (obtain one from "+AccountURL+")")
	}
	if c.TTL < 1 {
		errs = append(errs, "TTL must be at least 1 second")
	}
	if c.APIEndpoint != "" {
		u, err := url.Parse(c.APIEndpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("API_ENDPOINT %q must be an absolute URL", c.APIEndpoint))
		}
	}
	if c.Timeout < 0 {
		errs = append(errs, "TIMEOUT must not be negative")
	}
	if c.PropagationTimeout < 0 {
		errs = append(errs, "PROPAGATION_TIMEOUT must not be negative")
	}
	if c.PollingInterval < 0 {
		errs = append(errs, "POLLING_INTERVAL must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("websupport config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// LoadConfigFromMap builds a Config from provider settings keyed by upper-case
// names, as produced by internal/config.
//
// Supported keys:
//   - API_KEY, API_SECRET: credentials (required)
//   - API_ENDPOINT: API base URL (optional)
//   - TTL: record TTL in seconds (optional, defaults to 120)
//   - TIMEOUT, PROPAGATION_TIMEOUT, POLLING_INTERVAL: Go durations (optional)
func LoadConfigFromMap(name string, settings map[string]string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.APIKey = strings.TrimSpace(settings["API_KEY"])
	cfg.APISecret = strings.TrimSpace(settings["API_SECRET"])
	if v := settings["API_ENDPOINT"]; v != "" {
		cfg.APIEndpoint = strings.TrimSuffix(v, "/")
	}

	if v := settings["TTL"]; v != "" {
		ttl, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("configuration for %s: invalid TTL value %q: %w", name, v, err)
		}
		cfg.TTL = ttl
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"TIMEOUT", &cfg.Timeout},
		{"PROPAGATION_TIMEOUT", &cfg.PropagationTimeout},
		{"POLLING_INTERVAL", &cfg.PollingInterval},
	}
	for _, d := range durations {
		v := settings[d.key]
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("configuration for %s: invalid %s value %q: %w", name, d.key, v, err)
		}
		*d.dst = parsed
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration for %s: %w", name, err)
	}

	return cfg, nil
}
