package config

import (
	"errors"
	"fmt"
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

// Validator provides configuration validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{
		errors: []ValidationError{},
	}
}

// RequireNonEmpty validates that a string field is not empty
func (v *Validator) RequireNonEmpty(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: "value cannot be empty",
		})
	}
	return v
}

// RequirePositive validates that an integer field is greater than 0
func (v *Validator) RequirePositive(field string, value int) *Validator {
	if value <= 0 {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be positive, got %d", value),
		})
	}
	return v
}

// RequirePositiveDuration validates that a duration is greater than 0
func (v *Validator) RequirePositiveDuration(field string, value time.Duration) *Validator {
	if value <= 0 {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("duration must be positive, got %s", value),
		})
	}
	return v
}

// ValidateRange validates that an integer field is within a range [min, max]
func (v *Validator) ValidateRange(field string, value, min, max int) *Validator {
	if value < min || value > max {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be between %d and %d, got %d", min, max, value),
		})
	}
	return v
}

// ValidateFloatRange validates that a float field is within a range [min, max]
func (v *Validator) ValidateFloatRange(field string, value, min, max float64) *Validator {
	if value < min || value > max {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be between %.2f and %.2f, got %.2f", min, max, value),
		})
	}
	return v
}

// ValidateDBNumber validates that a database number is valid (0-15 for Redis)
func (v *Validator) ValidateDBNumber(field string, db int) *Validator {
	return v.ValidateRange(field, db, 0, 15)
}

// ValidateOneOf validates that a string value is one of the allowed options
func (v *Validator) ValidateOneOf(field string, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if a == value {
			return v
		}
	}
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be one of %v, got %q", allowed, value),
	})
	return v
}

// RequireContains validates that a template text carries every placeholder.
func (v *Validator) RequireContains(field, value string, placeholders ...string) *Validator {
	for _, p := range placeholders {
		if !strings.Contains(value, p) {
			v.errors = append(v.errors, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("must include %s", p),
			})
		}
	}
	return v
}

// RequireUnique validates that no value appears twice.
func (v *Validator) RequireUnique(field string, values []string) *Validator {
	seen := make(map[string]bool, len(values))
	for _, value := range values {
		if seen[value] {
			v.errors = append(v.errors, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate value %q", value),
			})
		}
		seen[value] = true
	}
	return v
}

// RequireLess validates that a is strictly below b.
func (v *Validator) RequireLess(field string, a, b int) *Validator {
	if a >= b {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be less than %d, got %d", b, a),
		})
	}
	return v
}

// HasErrors returns true if there are any validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Error returns a combined error message or nil if no errors
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, e := range v.errors {
		fmt.Fprintf(&sb, "  - %s: %s\n", e.Field, e.Message)
	}
	return errors.New(sb.String())
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ValidatePostgresConfig validates PostgreSQL configuration
func ValidatePostgresConfig(host string, port int, user string, dbName string, sslMode string) error {
	v := NewValidator()

	v.RequireNonEmpty("host", host)
	v.ValidateRange("port", port, 1, 65535)
	v.RequireNonEmpty("user", user)
	v.RequireNonEmpty("dbName", dbName)
	v.ValidateOneOf("sslMode", sslMode, "disable", "require", "verify-ca", "verify-full")

	return v.Error()
}

// ValidateRedisConfig validates Redis configuration
func ValidateRedisConfig(addr string, db int, prefix string) error {
	v := NewValidator()

	v.RequireNonEmpty("addr", addr)
	v.ValidateDBNumber("db", db)
	v.RequireNonEmpty("prefix", prefix)

	return v.Error()
}

// ValidateMongoDBConfig validates MongoDB configuration
func ValidateMongoDBConfig(uri string, database string, collection string) error {
	v := NewValidator()

	v.RequireNonEmpty("uri", uri)
	v.RequireNonEmpty("database", database)
	v.RequireNonEmpty("collection", collection)

	return v.Error()
}

// ValidateLLMConfig validates language model provider configuration. Hosted
// providers need an API key; a local Ollama server does not.
func ValidateLLMConfig(provider, apiKey, model string, temperature float64) error {
	v := NewValidator()

	v.ValidateOneOf("provider", provider, ProviderOllama, ProviderOpenAI, ProviderClaude, ProviderGemini, ProviderGroq, ProviderCohere)
	if provider != ProviderOllama {
		v.RequireNonEmpty("apiKey", apiKey)
	}
	v.RequireNonEmpty("model", model)
	v.ValidateFloatRange("temperature", temperature, 0.0, 2.0)

	return v.Error()
}

// ValidateGroundingConfig validates the answer verification policy.
func ValidateGroundingConfig(g Grounding) error {
	v := NewValidator()

	v.ValidateFloatRange("threshold", g.Threshold, 0.0, 1.0)
	v.RequirePositive("descriptionWindow", g.DescriptionWindow)
	v.RequireLess("descriptionOverlap", g.DescriptionOverlap, g.DescriptionWindow)
	v.RequirePositive("answerWindow", g.AnswerWindow)
	v.RequireLess("answerOverlap", g.AnswerOverlap, g.AnswerWindow)
	v.RequirePositive("maxAttempts", g.MaxAttempts)

	return v.Error()
}

// ValidateInterviewConfig validates interview timeouts.
func ValidateInterviewConfig(i Interview) error {
	v := NewValidator()

	v.RequirePositiveDuration("inputTimeout", i.InputTimeout)
	v.RequirePositiveDuration("outputTimeout", i.OutputTimeout)
	v.RequirePositiveDuration("processTimeout", i.ProcessTimeout)
	v.RequirePositiveDuration("sessionExpiry", i.SessionExpiry)

	return v.Error()
}
