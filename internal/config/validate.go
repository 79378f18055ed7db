package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gitlab.bluewillows.net/root/wsdns/pkg/provider"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration error: %s", e.Errors[0])
	}
	return fmt.Sprintf("configuration errors:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// validateConfig performs cross-field validation on the complete configuration.
// Returns a list of validation errors.
func validateConfig(cfg *Config) []string {
	var errs []string
	s := cfg.Provider

	for _, key := range []string{"API_KEY", "API_SECRET"} {
		if s[key] == "" {
			errs = append(errs, provider.ErrConfigMissing(EnvPrefix+key).Error())
		}
	}

	if v := s["TTL"]; v != "" {
		if ttl, err := strconv.Atoi(v); err != nil || ttl < 1 {
			errs = append(errs, provider.ErrConfigInvalid(EnvPrefix+"TTL", v, "must be a positive integer").Error())
		}
	}

	if v := s["TIMEOUT"]; v != "" {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			errs = append(errs, provider.ErrConfigInvalid(EnvPrefix+"TIMEOUT", v, "must be a positive duration like 30s").Error())
		}
	}

	if v := s["API_ENDPOINT"]; v != "" {
		if u, err := url.Parse(v); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, provider.ErrConfigInvalid(EnvPrefix+"API_ENDPOINT", v, "must be an absolute URL").Error())
		}
	}

	g := cfg.Global
	if (g.HookUsername == "") != (g.HookPassword == "") {
		errs = append(errs, "WSDNS_HOOK_USERNAME and WSDNS_HOOK_PASSWORD must be set together")
	}

	return errs
}
