package config

import (
	"log/slog"
	"time"
)

// Default provider settings applied when neither file nor environment set them.
const (
	DefaultTTL     = "120"
	DefaultTimeout = 30 * time.Second
)

// loadFromFile loads configuration from a YAML file and converts it to
// runtime types. Returns nil/empty values if no file is configured.
func loadFromFile(path string) (*GlobalConfig, map[string]string, string, []string) {
	if path == "" {
		return nil, make(map[string]string), "", nil
	}

	fileCfg, err := LoadFile(path)
	if err != nil {
		return nil, make(map[string]string), "", []string{"config file: " + err.Error()}
	}

	slog.Info("loaded configuration from file", slog.String("path", path))

	global, errs := fileCfg.ToGlobalConfig()

	credsPath := ""
	if fileCfg.Websupport != nil {
		credsPath = fileCfg.Websupport.CredentialsFile
	}

	return global, fileCfg.providerSettings(), credsPath, errs
}

// mergeProviderSettings merges WSDNS_* environment overrides into the
// provider settings from the file. Environment variables always take
// precedence.
func mergeProviderSettings(base map[string]string) map[string]string {
	settings := make(map[string]string, len(base)+4)
	for k, v := range base {
		settings[k] = v
	}

	for _, key := range []string{"API_KEY", "API_SECRET"} {
		if v := getSecret(key); v != "" {
			settings[key] = v
		}
	}
	for _, key := range []string{"API_ENDPOINT", "TTL", "TIMEOUT"} {
		if v := getEnv(EnvPrefix + key); v != "" {
			settings[key] = v
		}
	}

	if settings["TTL"] == "" {
		settings["TTL"] = DefaultTTL
	}

	return settings
}
