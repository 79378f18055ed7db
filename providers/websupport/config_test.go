package websupport

import (
	"strings"
	"testing"
	"time"
)

func TestConfig_Validate_Success(t *testing.T) {
	config := DefaultConfig()
	config.APIKey = "key"
	config.APISecret = "secret"

	if err := config.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestConfig_Validate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantMsg string
	}{
		{"missing key", func(c *Config) { c.APIKey = "" }, "API_KEY is required"},
		{"missing secret", func(c *Config) { c.APISecret = "" }, "API_SECRET is required"},
		{"zero ttl", func(c *Config) { c.TTL = 0 }, "TTL must be at least 1 second"},
		{"relative endpoint", func(c *Config) { c.APIEndpoint = "rest.websupport.sk" }, "must be an absolute URL"},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "TIMEOUT must not be negative"},
		{"negative propagation timeout", func(c *Config) { c.PropagationTimeout = -time.Second }, "PROPAGATION_TIMEOUT"},
		{"negative polling interval", func(c *Config) { c.PollingInterval = -time.Second }, "POLLING_INTERVAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			config.APIKey = "key"
			config.APISecret = "secret"
			tt.modify(config)

			err := config.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestConfig_Validate_MissingCredentialsMentionsAccountURL(t *testing.T) {
	err := DefaultConfig().Validate()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), AccountURL) {
		t.Errorf("expected error to point at %s, got %v", AccountURL, err)
	}
	if !strings.Contains(err.Error(), "API_KEY") || !strings.Contains(err.Error(), "API_SECRET") {
		t.Errorf("expected both credentials to be reported, got %v", err)
	}
}

func TestLoadConfigFromMap_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromMap("websupport", map[string]string{
		"API_KEY":    " key ",
		"API_SECRET": "secret\n",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIKey != "key" || cfg.APISecret != "secret" {
		t.Errorf("expected trimmed credentials, got %q/%q", cfg.APIKey, cfg.APISecret)
	}
	if cfg.APIEndpoint != DefaultAPIEndpoint {
		t.Errorf("expected endpoint %s, got %s", DefaultAPIEndpoint, cfg.APIEndpoint)
	}
	if cfg.TTL != DefaultTTL {
		t.Errorf("expected TTL %d, got %d", DefaultTTL, cfg.TTL)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("expected timeout %v, got %v", DefaultTimeout, cfg.Timeout)
	}
	if cfg.PropagationTimeout != DefaultPropagationTimeout {
		t.Errorf("expected propagation timeout %v, got %v", DefaultPropagationTimeout, cfg.PropagationTimeout)
	}
	if cfg.PollingInterval != DefaultPollingInterval {
		t.Errorf("expected polling interval %v, got %v", DefaultPollingInterval, cfg.PollingInterval)
	}
}

func TestLoadConfigFromMap_Overrides(t *testing.T) {
	cfg, err := LoadConfigFromMap("websupport", map[string]string{
		"API_KEY":             "key",
		"API_SECRET":          "secret",
		"API_ENDPOINT":        "http://localhost:9999/",
		"TTL":                 "600",
		"TIMEOUT":             "5s",
		"PROPAGATION_TIMEOUT": "10m",
		"POLLING_INTERVAL":    "15s",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIEndpoint != "http://localhost:9999" {
		t.Errorf("expected endpoint without trailing slash, got %s", cfg.APIEndpoint)
	}
	if cfg.TTL != 600 {
		t.Errorf("expected TTL 600, got %d", cfg.TTL)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Timeout)
	}
	if cfg.PropagationTimeout != 10*time.Minute {
		t.Errorf("expected propagation timeout 10m, got %v", cfg.PropagationTimeout)
	}
	if cfg.PollingInterval != 15*time.Second {
		t.Errorf("expected polling interval 15s, got %v", cfg.PollingInterval)
	}
}

func TestLoadConfigFromMap_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"TTL", "abc"},
		{"TTL", "0"},
		{"TIMEOUT", "soon"},
		{"PROPAGATION_TIMEOUT", "5"},
		{"POLLING_INTERVAL", "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			_, err := LoadConfigFromMap("ws", map[string]string{
				"API_KEY":    "key",
				"API_SECRET": "secret",
				tt.key:       tt.value,
			})
			if err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), "configuration for ws") {
				t.Errorf("expected error to name the instance, got %v", err)
			}
		})
	}
}
