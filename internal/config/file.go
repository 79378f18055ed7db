package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig represents the YAML configuration file structure.
type FileConfig struct {
	Logging     *FileLoggingConfig     `yaml:"logging,omitempty"`
	Websupport  *FileWebsupportConfig  `yaml:"websupport,omitempty"`
	Propagation *FilePropagationConfig `yaml:"propagation,omitempty"`
	Server      *FileServerConfig      `yaml:"server,omitempty"`
}

// FileLoggingConfig holds logging settings.
type FileLoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error
	Format string `yaml:"format,omitempty"` // json, text
}

// FileWebsupportConfig holds the account and API settings.
type FileWebsupportConfig struct {
	APIKey          string `yaml:"api_key,omitempty"`
	APISecret       string `yaml:"api_secret,omitempty"`
	APIEndpoint     string `yaml:"api_endpoint,omitempty"`
	CredentialsFile string `yaml:"credentials_file,omitempty"` // TOML file with api_key/api_secret
	TTL             int    `yaml:"ttl,omitempty"`
	Timeout         string `yaml:"timeout,omitempty"` // Go duration format (e.g., "30s")
}

// FilePropagationConfig holds DNS propagation check settings.
type FilePropagationConfig struct {
	Wait        *bool    `yaml:"wait,omitempty"` // Pointer to distinguish unset from false
	Timeout     string   `yaml:"timeout,omitempty"`
	Interval    string   `yaml:"interval,omitempty"`
	Nameservers []string `yaml:"nameservers,omitempty"`
}

// FileServerConfig holds hook/health/metrics server settings.
type FileServerConfig struct {
	Port         int    `yaml:"port,omitempty"`
	HookUsername string `yaml:"hook_username,omitempty"`
	HookPassword string `yaml:"hook_password,omitempty"`
}

// envVarPattern matches ${VAR} or ${VAR:-default} syntax.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// InterpolateEnvVars replaces ${VAR} patterns with environment variable values.
// Supports ${VAR:-default} syntax for default values.
func InterpolateEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		defaultValue := ""
		if len(groups) >= 3 {
			defaultValue = groups[2]
		}

		if value := os.Getenv(groups[1]); value != "" {
			return value
		}
		return defaultValue
	})
}

func (c *FileConfig) interpolateEnvVars() {
	if c.Logging != nil {
		c.Logging.Level = InterpolateEnvVars(c.Logging.Level)
		c.Logging.Format = InterpolateEnvVars(c.Logging.Format)
	}

	if ws := c.Websupport; ws != nil {
		ws.APIKey = InterpolateEnvVars(ws.APIKey)
		ws.APISecret = InterpolateEnvVars(ws.APISecret)
		ws.APIEndpoint = InterpolateEnvVars(ws.APIEndpoint)
		ws.CredentialsFile = InterpolateEnvVars(ws.CredentialsFile)
		ws.Timeout = InterpolateEnvVars(ws.Timeout)
	}

	if p := c.Propagation; p != nil {
		p.Timeout = InterpolateEnvVars(p.Timeout)
		p.Interval = InterpolateEnvVars(p.Interval)
		for i := range p.Nameservers {
			p.Nameservers[i] = InterpolateEnvVars(p.Nameservers[i])
		}
	}

	if s := c.Server; s != nil {
		s.HookUsername = InterpolateEnvVars(s.HookUsername)
		s.HookPassword = InterpolateEnvVars(s.HookPassword)
	}
}

// LoadFile reads and parses a YAML configuration file.
// Environment variables in ${VAR} format are interpolated.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML config: %w", err)
	}

	cfg.interpolateEnvVars()

	return &cfg, nil
}

// ToGlobalConfig converts file config to GlobalConfig, applying defaults.
// Returns errors for values that are present but unparseable.
func (c *FileConfig) ToGlobalConfig() (*GlobalConfig, []string) {
	cfg := defaultGlobalConfig()
	var errs []string

	if c.Logging != nil {
		if c.Logging.Level != "" {
			cfg.LogLevel = strings.ToLower(c.Logging.Level)
		}
		if c.Logging.Format != "" {
			cfg.LogFormat = strings.ToLower(c.Logging.Format)
		}
	}

	if p := c.Propagation; p != nil {
		if p.Wait != nil {
			cfg.Wait = *p.Wait
		}
		if p.Timeout != "" {
			if d, err := time.ParseDuration(p.Timeout); err == nil && d >= 0 {
				cfg.PropagationTimeout = d
			} else {
				errs = append(errs, fmt.Sprintf("propagation.timeout: invalid duration %q", p.Timeout))
			}
		}
		if p.Interval != "" {
			if d, err := time.ParseDuration(p.Interval); err == nil {
				cfg.PropagationInterval = d
			} else {
				errs = append(errs, fmt.Sprintf("propagation.interval: invalid duration %q", p.Interval))
			}
		}
		if len(p.Nameservers) > 0 {
			cfg.Nameservers = p.Nameservers
		}
	}

	if s := c.Server; s != nil {
		if s.Port != 0 {
			cfg.ListenPort = s.Port
		}
		cfg.HookUsername = s.HookUsername
		cfg.HookPassword = s.HookPassword
	}

	return cfg, errs
}

// providerSettings returns the websupport section as a settings map using the
// same upper-case keys as the environment.
func (c *FileConfig) providerSettings() map[string]string {
	settings := make(map[string]string)
	ws := c.Websupport
	if ws == nil {
		return settings
	}

	set := func(key, value string) {
		if value != "" {
			settings[key] = value
		}
	}
	set("API_KEY", ws.APIKey)
	set("API_SECRET", ws.APISecret)
	set("API_ENDPOINT", ws.APIEndpoint)
	set("TIMEOUT", ws.Timeout)
	if ws.TTL != 0 {
		settings["TTL"] = strconv.Itoa(ws.TTL)
	}
	return settings
}
