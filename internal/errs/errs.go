// Package errs defines the error taxonomy shared by the gateway's services.
// Callers discover the kind of a failure with errors.As and map it to an
// HTTP status at the edge.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports caller-supplied input that is missing or malformed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "invalid " + e.Field
}

// Missing returns a ValidationError for a required field that was empty.
func Missing(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "Missing " + field}
}

// ConfigurationError reports a required credential or identifier that is
// absent from the running configuration.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return "missing configuration: " + strings.Join(e.Missing, ", ")
}

// Attempt records the outcome of one (endpoint, method) pair tried against
// an upstream.
type Attempt struct {
	Endpoint   string `json:"url"`
	Method     string `json:"method"`
	Status     int    `json:"status,omitempty"`
	Error      string `json:"error,omitempty"`
	Diagnostic string `json:"text,omitempty"`
}

// UpstreamExhaustedError is returned when every candidate endpoint/method
// combination failed to yield a token.
type UpstreamExhaustedError struct {
	Attempts []Attempt
}

func (e *UpstreamExhaustedError) Error() string {
	return fmt.Sprintf("all token endpoints failed (%d attempts)", len(e.Attempts))
}

// PersistenceError wraps a failed write to a durable collaborator.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

// NotificationError wraps a failed summarization or notification send. It is
// only ever logged.
type NotificationError struct {
	Op  string
	Err error
}

func (e *NotificationError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *NotificationError) Unwrap() error { return e.Err }

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
