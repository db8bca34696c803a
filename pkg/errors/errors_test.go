package errors_test

import (
	"fmt"
	"testing"

	"github.com/go-httpd/httpd/pkg/errors"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      *errors.Error
		expected errors.Kind
	}{
		{"duplicate key", errors.NewDuplicateKeyError("port"), errors.ConfigError},
		{"unknown key", errors.NewUnknownKeyError("frobnicate"), errors.ConfigError},
		{"invalid value", errors.NewInvalidValueError("port", "-1", fmt.Errorf("negative")), errors.ConfigError},
		{"missing required", errors.NewMissingRequiredError("port"), errors.ConfigError},
		{"busy", errors.NewBusyError("add-tls-host"), errors.Busy},
		{"certificate invalid", errors.NewCertificateInvalidError("example.com", fmt.Errorf("bad pem")), errors.CertificateInvalid},
		{"key invalid", errors.NewKeyInvalidError("example.com", fmt.Errorf("bad pem")), errors.KeyInvalid},
		{"listen failed", errors.NewListenFailedError(8443, fmt.Errorf("address in use")), errors.ListenFailed},
			{"config error", errors.NewConfigError("tls-profile", "unknown profile"), errors.ConfigError},
		{"argument not found", errors.NewArgumentNotFoundError("q"), errors.ArgumentNotFound},
		{"handler fault", errors.NewHandlerFaultError("accept", fmt.Errorf("boom")), errors.HandlerFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.expected {
				t.Errorf("expected kind %v, got %v", tt.expected, tt.err.Kind)
			}
			if tt.err.Error() == "" {
				t.Error("error message should not be empty")
			}
			if tt.err.Timestamp.IsZero() {
				t.Error("timestamp should be set")
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := errors.NewKeyInvalidError("example.com", cause)

	if err.Unwrap() != cause {
		t.Errorf("expected unwrapped error to be %v, got %v", cause, err.Unwrap())
	}
}

func TestErrorIs(t *testing.T) {
	err1 := errors.NewBusyError("add-tls-host")
	err2 := &errors.Error{Kind: errors.Busy}

	if !err1.Is(err2) {
		t.Error("errors with same kind should match")
	}

	err3 := &errors.Error{Kind: errors.ConfigError}
	if err1.Is(err3) {
		t.Error("errors with different kinds should not match")
	}
}

func TestGetKind(t *testing.T) {
	err := errors.NewMissingRequiredError("port")
	if got := errors.GetKind(err); got != errors.ConfigError {
		t.Errorf("expected %v, got %v", errors.ConfigError, got)
	}

	regularErr := fmt.Errorf("regular error")
	if got := errors.GetKind(regularErr); got != "" {
		t.Errorf("expected empty kind for regular error, got %v", got)
	}
}
