package textgen

import (
	"errors"
	"testing"
)

func TestErrorFromStatusCode(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
		check     func(error) bool
	}{
		{400, false, func(err error) bool { var e *InvalidRequestError; return errors.As(err, &e) }},
		{401, false, func(err error) bool { var e *AuthenticationError; return errors.As(err, &e) }},
		{403, false, func(err error) bool { var e *AccessDeniedError; return errors.As(err, &e) }},
		{404, false, func(err error) bool { var e *NotFoundError; return errors.As(err, &e) }},
		{413, false, func(err error) bool { var e *ContextLengthError; return errors.As(err, &e) }},
		{429, true, func(err error) bool { var e *RateLimitError; return errors.As(err, &e) }},
		{500, true, func(err error) bool { var e *ServerError; return errors.As(err, &e) }},
		{503, true, func(err error) bool { var e *ServerError; return errors.As(err, &e) }},
	}

	for _, tt := range tests {
		err := ErrorFromStatusCode(tt.status, "boom", "testprov", nil)
		if !tt.check(err) {
			t.Errorf("status %d produced %T", tt.status, err)
		}
		if got := IsRetryable(err); got != tt.retryable {
			t.Errorf("status %d: IsRetryable = %v, want %v", tt.status, got, tt.retryable)
		}
	}
}

func TestUnknownStatusIsRetryableProviderError(t *testing.T) {
	err := ErrorFromStatusCode(418, "teapot", "testprov", nil)
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %T", err)
	}
	if !IsRetryable(err) {
		t.Error("unknown status should default to retryable")
	}
}

func TestServiceErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &ServiceError{Message: "wrapped", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Unwrap must expose the cause")
	}
	if err.Error() != "wrapped: root cause" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestIsRetryableNil(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil error must not be retryable")
	}
}

func TestIsRetryableUnknownErrorDefaultsTrue(t *testing.T) {
	if !IsRetryable(errors.New("mystery")) {
		t.Error("unknown errors default to retryable")
	}
}
