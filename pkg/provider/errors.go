package provider

import (
	"errors"
	"fmt"
)

// Sentinels for challenge record operations. Callers match them with errors.Is.
var (
	// ErrNotFound indicates the zone has no record listing or no matching record.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized indicates the provider rejected the credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrZoneNotFound indicates the domain could not be resolved to a zone
	// managed by the account.
	ErrZoneNotFound = errors.New("zone not found")

	// ErrRecordCreate indicates the provider refused to create a record.
	ErrRecordCreate = errors.New("record create failed")

	// ErrTransport indicates a network or HTTP-layer failure, including
	// malformed responses.
	ErrTransport = errors.New("provider transport error")
)

// ConfigError reports a missing or malformed setting. Field is the name the
// user sets (usually the environment variable).
type ConfigError struct {
	Field   string
	Value   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("configuration error: %s=%q: %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// ErrConfigMissing reports a required setting that is empty.
func ErrConfigMissing(field string) error {
	return &ConfigError{Field: field, Message: "required but not set"}
}

// ErrConfigInvalid reports a setting whose value cannot be used.
func ErrConfigInvalid(field, value, message string) error {
	return &ConfigError{Field: field, Value: value, Message: message}
}

// ProviderError records which provider instance and which challenge
// operation failed.
type ProviderError struct {
	Provider  string
	Operation string
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Operation, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError attaches provider and operation to err. A nil err stays nil.
func WrapError(provider, operation string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Operation: operation, Err: err}
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized reports whether the API rejected the key or signature.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsZoneNotFound returns true if the domain is not associated with the account.
func IsZoneNotFound(err error) bool {
	return errors.Is(err, ErrZoneNotFound)
}

// IsRecordCreate returns true if the provider refused to create a record.
func IsRecordCreate(err error) bool {
	return errors.Is(err, ErrRecordCreate)
}

// IsTransport returns true if the error came from the HTTP layer.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
