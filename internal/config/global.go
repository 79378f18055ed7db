package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Global configuration defaults.
const (
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "json"
	DefaultListenPort          = 8080
	DefaultWait                = false
	DefaultPropagationTimeout  = 2 * time.Minute
	DefaultPropagationInterval = 5 * time.Second
)

// GlobalConfig holds application-wide settings that are not specific to the
// Websupport account.
type GlobalConfig struct {
	// Logging configuration
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text

	// Hook server
	ListenPort   int    // Port for /present, /cleanup, health and metrics
	HookUsername string // Basic auth user for hook endpoints; empty disables auth
	HookPassword string

	// Propagation checks
	Wait                bool          // Block in "present" until the record resolves
	PropagationTimeout  time.Duration // Upper bound on the propagation wait
	PropagationInterval time.Duration // Delay between propagation checks
	Nameservers         []string      // host[:port]; empty means /etc/resolv.conf
}

func defaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		LogLevel:            DefaultLogLevel,
		LogFormat:           DefaultLogFormat,
		ListenPort:          DefaultListenPort,
		Wait:                DefaultWait,
		PropagationTimeout:  DefaultPropagationTimeout,
		PropagationInterval: DefaultPropagationInterval,
	}
}

// mergeGlobalConfig applies WSDNS_* environment overrides to base, which holds
// defaults or values from the config file. Environment variables always win.
// Returns a list of validation errors (may be empty).
func mergeGlobalConfig(base *GlobalConfig) (*GlobalConfig, []string) {
	if base == nil {
		base = defaultGlobalConfig()
	}

	var errs []string
	cfg := *base

	if v := getEnv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := getEnv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("WSDNS_LOG_LEVEL: invalid value %q (must be debug, info, warn, or error)", cfg.LogLevel))
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("WSDNS_LOG_FORMAT: invalid value %q (must be json or text)", cfg.LogFormat))
	}

	if v := getEnv(EnvPrefix + "LISTEN_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("WSDNS_LISTEN_PORT: invalid integer %q", v))
		} else {
			cfg.ListenPort = port
		}
	}
	if cfg.ListenPort < 1 || cfg.ListenPort > 65535 {
		errs = append(errs, fmt.Sprintf("WSDNS_LISTEN_PORT: must be between 1 and 65535, got %d", cfg.ListenPort))
	}

	if v := getEnv(EnvPrefix + "HOOK_USERNAME"); v != "" {
		cfg.HookUsername = v
	}
	if v := getSecret("HOOK_PASSWORD"); v != "" {
		cfg.HookPassword = v
	}

	if v := getEnv(EnvPrefix + "WAIT"); v != "" {
		cfg.Wait = parseBool(v, cfg.Wait)
	}

	if v := getEnv(EnvPrefix + "PROPAGATION_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			errs = append(errs, fmt.Sprintf("WSDNS_PROPAGATION_TIMEOUT: invalid duration %q (use format like 90s, 2m)", v))
		} else {
			cfg.PropagationTimeout = d
		}
	}

	if v := getEnv(EnvPrefix + "PROPAGATION_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("WSDNS_PROPAGATION_INTERVAL: invalid duration %q (use format like 5s)", v))
		} else {
			cfg.PropagationInterval = d
		}
	}
	if cfg.PropagationInterval < 100*time.Millisecond {
		errs = append(errs, "WSDNS_PROPAGATION_INTERVAL: must be at least 100ms")
	}

	if v := getEnv(EnvPrefix + "NAMESERVERS"); v != "" {
		cfg.Nameservers = splitList(v)
	}

	return &cfg, errs
}
