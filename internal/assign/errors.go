package assign

import (
	"errors"
	"fmt"
)

// ErrConfigInvalid is the sentinel all configuration validation
// failures match via errors.Is.
var ErrConfigInvalid = errors.New("invalid configuration")

// ErrAllTrialsFailed is returned when no trial produced a result.
var ErrAllTrialsFailed = errors.New("all trials failed")

// ConfigError reports a single invalid configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

// Error returns the string representation of the error.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Is matches ErrConfigInvalid so callers can test the error kind
// without knowing the field.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfigInvalid
}

func configErrorf(field, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// TrialError wraps a failure inside a single trial. Trials are
// isolated: a TrialError is counted in Diagnostics, never propagated
// as a search failure.
type TrialError struct {
	Trial   int
	Attempt int
	Err     error
}

// Error returns the string representation of the error.
func (e *TrialError) Error() string {
	return fmt.Sprintf("trial %d (attempt %d): %v", e.Trial, e.Attempt, e.Err)
}

// Unwrap returns the underlying error.
func (e *TrialError) Unwrap() error {
	return e.Err
}
