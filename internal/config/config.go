// Package config handles loading and validation of wsdns configuration.
//
// Values are layered, later layers winning: built-in defaults, the YAML file
// named by WSDNS_CONFIG_FILE, the TOML credentials file named by
// WSDNS_CREDENTIALS_FILE (or websupport.credentials_file), and finally
// WSDNS_* environment variables. Secrets also accept the _FILE suffix.
package config

import (
	"fmt"
	"time"
)

// Config holds the fully resolved application configuration.
type Config struct {
	Global *GlobalConfig

	// Provider holds the Websupport settings keyed like the environment
	// (API_KEY, API_SECRET, API_ENDPOINT, TTL, TIMEOUT, PROPAGATION_TIMEOUT,
	// POLLING_INTERVAL), ready for websupport.NewFromMap.
	Provider map[string]string

	// ConfigFile and CredentialsFile record which files were read, if any.
	ConfigFile      string
	CredentialsFile string
}

// GetConfigFilePath returns the config file path from the environment.
// Returns empty string if no config file is specified.
func GetConfigFilePath() string {
	return getEnv(EnvPrefix + "CONFIG_FILE")
}

// Load resolves configuration using the path in WSDNS_CONFIG_FILE.
func Load() (*Config, error) {
	return LoadWithPath(GetConfigFilePath())
}

// LoadWithPath resolves configuration using the given YAML file path. An
// empty path skips the file layer. All problems are collected and returned as
// a single *ValidationError.
func LoadWithPath(path string) (*Config, error) {
	var errs []string

	fileGlobal, fileSettings, credsPath, fileErrs := loadFromFile(path)
	errs = append(errs, fileErrs...)

	global, globalErrs := mergeGlobalConfig(fileGlobal)
	errs = append(errs, globalErrs...)

	if v := getEnv(EnvPrefix + "CREDENTIALS_FILE"); v != "" {
		credsPath = v
	}
	if credsPath != "" {
		creds, err := LoadCredentials(credsPath)
		if err != nil {
			errs = append(errs, err.Error())
		} else {
			creds.apply(fileSettings)
		}
	}

	settings := mergeProviderSettings(fileSettings)
	settings["PROPAGATION_TIMEOUT"] = global.PropagationTimeout.String()
	settings["POLLING_INTERVAL"] = global.PropagationInterval.String()

	cfg := &Config{
		Global:          global,
		Provider:        settings,
		ConfigFile:      path,
		CredentialsFile: credsPath,
	}

	errs = append(errs, validateConfig(cfg)...)
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return cfg, nil
}

// RequestTimeout returns the per-request API timeout.
func (c *Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Provider["TIMEOUT"])
	if err != nil {
		return DefaultTimeout
	}
	return d
}

// String renders the configuration for debug logging with secrets masked.
func (c *Config) String() string {
	return fmt.Sprintf("log_level=%s log_format=%s api_key=%s api_secret=%s endpoint=%s ttl=%s listen_port=%d wait=%t",
		c.Global.LogLevel, c.Global.LogFormat,
		mask(c.Provider["API_KEY"]), mask(c.Provider["API_SECRET"]),
		c.Provider["API_ENDPOINT"], c.Provider["TTL"],
		c.Global.ListenPort, c.Global.Wait)
}

func mask(s string) string {
	if s == "" {
		return "<unset>"
	}
	return "****"
}
