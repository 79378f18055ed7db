package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Credentials is the content of a TOML credentials file:
//
//	api_key    = "..."
//	api_secret = "..."
type Credentials struct {
	APIKey      string `toml:"api_key"`
	APISecret   string `toml:"api_secret"`
	APIEndpoint string `toml:"api_endpoint"`
}

// LoadCredentials reads a TOML credentials file. Unknown keys are rejected so
// that a typo does not silently leave a credential empty.
func LoadCredentials(path string) (*Credentials, error) {
	var creds Credentials
	md, err := toml.DecodeFile(path, &creds)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("credentials file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	creds.APIKey = strings.TrimSpace(creds.APIKey)
	creds.APISecret = strings.TrimSpace(creds.APISecret)
	return &creds, nil
}

// apply copies the non-empty credentials into settings.
func (c *Credentials) apply(settings map[string]string) {
	if c.APIKey != "" {
		settings["API_KEY"] = c.APIKey
	}
	if c.APISecret != "" {
		settings["API_SECRET"] = c.APISecret
	}
	if c.APIEndpoint != "" {
		settings["API_ENDPOINT"] = c.APIEndpoint
	}
}
