package adapters

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for registrar calls.
type ErrorCategory string

const (
	// ErrorAuthentication indicates rejected or expired credentials.
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorRateLimited indicates the vendor throttled the request.
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorNetwork indicates the vendor was unreachable or timed out.
	ErrorNetwork ErrorCategory = "network"

	// ErrorVendorOutage indicates a 5xx or maintenance response.
	ErrorVendorOutage ErrorCategory = "vendor_outage"

	// ErrorBadData indicates the vendor returned a malformed payload.
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorNotFound indicates the requested domain does not exist at the vendor.
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorInternal indicates an unexpected adapter-side failure.
	ErrorInternal ErrorCategory = "internal"
)

// AdapterError wraps registrar failures with normalized categorization so the
// engine and handlers can react to the class of failure, not the vendor's
// phrasing of it.
type AdapterError struct {
	Category   ErrorCategory
	Registrar  string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *AdapterError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("registrar %s [%s]: %s: %v", e.Registrar, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("registrar %s [%s]: %s", e.Registrar, e.Category, e.Message)
}

func (e *AdapterError) Unwrap() error { return e.Underlying }

// NewAdapterError creates a normalized adapter error. Transient categories are
// marked retryable.
func NewAdapterError(category ErrorCategory, registrar, message string, underlying error) *AdapterError {
	retryable := category == ErrorNetwork ||
		category == ErrorVendorOutage ||
		category == ErrorRateLimited

	return &AdapterError{
		Category:   category,
		Registrar:  registrar,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

// CategoryOf extracts the error category from an error chain.
func CategoryOf(err error) ErrorCategory {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Category
	}
	return ErrorInternal
}

// ErrUnsupportedRegistrar is returned by the factory for unknown codes.
var ErrUnsupportedRegistrar = errors.New("unsupported registrar")
