package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMissing(t *testing.T) {
	err := Missing("email")
	if err.Error() != "Missing email" {
		t.Errorf("Error() = %q, want %q", err.Error(), "Missing email")
	}
	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}

func TestIsValidation_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("intake: %w", Missing("transcript"))
	if !IsValidation(wrapped) {
		t.Error("IsValidation(wrapped) = false, want true")
	}
	if IsValidation(errors.New("boom")) {
		t.Error("IsValidation(plain) = true, want false")
	}
}

func TestConfigurationError_ListsMissing(t *testing.T) {
	err := &ConfigurationError{Missing: []string{"ELEVEN_API_KEY", "AGENT_ID"}}
	msg := err.Error()
	for _, want := range []string{"ELEVEN_API_KEY", "AGENT_ID"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, want to contain %q", msg, want)
		}
	}
}

func TestUpstreamExhaustedError_As(t *testing.T) {
	var err error = fmt.Errorf("token: %w", &UpstreamExhaustedError{
		Attempts: []Attempt{{Endpoint: "http://a", Method: "POST", Status: 500}},
	})

	var ue *UpstreamExhaustedError
	if !errors.As(err, &ue) {
		t.Fatal("errors.As failed for UpstreamExhaustedError")
	}
	if len(ue.Attempts) != 1 {
		t.Errorf("len(Attempts) = %d, want 1", len(ue.Attempts))
	}
	if !strings.Contains(ue.Error(), "1 attempts") {
		t.Errorf("Error() = %q, want attempt count", ue.Error())
	}
}

func TestPersistenceError_Unwrap(t *testing.T) {
	base := errors.New("disk full")
	err := &PersistenceError{Op: "save transcript", Err: base}
	if !errors.Is(err, base) {
		t.Error("errors.Is(err, base) = false, want true")
	}
	if err.Error() != "save transcript: disk full" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestNotificationError_Unwrap(t *testing.T) {
	base := errors.New("smtp down")
	err := &NotificationError{Op: "send", Err: base}
	if !errors.Is(err, base) {
		t.Error("errors.Is(err, base) = false, want true")
	}
}
