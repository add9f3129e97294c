package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for field %q: %s", e.Field, e.Message)
}

// Validator collects configuration validation errors
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{
		errors: []ValidationError{},
	}
}

func (v *Validator) add(field, message string) *Validator {
	v.errors = append(v.errors, ValidationError{Field: field, Message: message})
	return v
}

// RequireNonEmpty validates that a string field is not empty
func (v *Validator) RequireNonEmpty(field, value string) *Validator {
	if value == "" {
		return v.add(field, "value cannot be empty")
	}
	return v
}

// RequirePositiveDuration validates that a duration is greater than 0
func (v *Validator) RequirePositiveDuration(field string, value time.Duration) *Validator {
	if value <= 0 {
		return v.add(field, fmt.Sprintf("value must be positive, got %s", value))
	}
	return v
}

// ValidateRange validates that an integer field is within [min, max]
func (v *Validator) ValidateRange(field string, value, min, max int) *Validator {
	if value < min || value > max {
		return v.add(field, fmt.Sprintf("value must be between %d and %d, got %d", min, max, value))
	}
	return v
}

// ValidatePort validates that a port number is valid (1-65535)
func (v *Validator) ValidatePort(field string, port int) *Validator {
	return v.ValidateRange(field, port, 1, 65535)
}

// ValidateOneOf validates that a string value is one of the allowed options
func (v *Validator) ValidateOneOf(field string, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if a == value {
			return v
		}
	}
	return v.add(field, fmt.Sprintf("value must be one of %v, got %q", allowed, value))
}

// ValidateURL validates that a field is an absolute http(s) URL
func (v *Validator) ValidateURL(field, value string) *Validator {
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return v.add(field, fmt.Sprintf("value must be an absolute http(s) URL, got %q", value))
	}
	return v
}

// HasErrors returns true if there are any validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Error returns a combined error or nil if no errors
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}

	var b strings.Builder
	b.WriteString("configuration validation failed:\n")
	for _, e := range v.errors {
		fmt.Fprintf(&b, "  - %s: %s\n", e.Field, e.Message)
	}
	return errors.New(b.String())
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Validate checks a loaded configuration. An empty Gemini API key is valid;
// requests then report MissingCredential.
func Validate(cfg *Config) error {
	v := NewValidator()

	v.RequireNonEmpty("server.host", cfg.Server.Host)
	v.ValidatePort("server.port", cfg.Server.Port)
	v.RequirePositiveDuration("server.read_timeout", cfg.Server.ReadTimeout)
	v.RequirePositiveDuration("server.write_timeout", cfg.Server.WriteTimeout)
	v.RequirePositiveDuration("server.idle_timeout", cfg.Server.IdleTimeout)
	v.ValidateOneOf("server.status_policy", cfg.Server.StatusPolicy, StatusPolicyStrict, StatusPolicyLegacy)
	v.ValidateURL("gemini.base_url", cfg.Gemini.BaseURL)
	if cfg.Speech.Enabled {
		v.ValidateURL("speech.base_url", cfg.Speech.BaseURL)
		v.RequireNonEmpty("speech.lang", cfg.Speech.Lang)
	}
	v.ValidateOneOf("log.level", cfg.Log.Level, "debug", "info", "warn", "error")
	v.ValidateOneOf("log.format", cfg.Log.Format, "json", "text")
	if cfg.Telemetry.Enabled {
		v.RequireNonEmpty("telemetry.service_name", cfg.Telemetry.ServiceName)
		if r := cfg.Telemetry.SampleRatio; r < 0 || r > 1 {
			v.add("telemetry.sample_ratio", "must be between 0 and 1")
		}
	}

	return v.Error()
}
