package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error is a coded error that can be reported to API callers.
type Error interface {
	error
	GetCode() string
	GetMessage() string
}

// BusinessError is a sentinel error with a stable code and a caller-safe message.
type BusinessError struct {
	Code    string
	Message string
}

// NewBusinessError creates a new coded error
func NewBusinessError(code, message string) *BusinessError {
	return &BusinessError{Code: code, Message: message}
}

func (e *BusinessError) Error() string      { return e.Message }
func (e *BusinessError) GetCode() string    { return e.Code }
func (e *BusinessError) GetMessage() string { return e.Message }

// Wrap attaches a cause to e. The result still matches e with errors.Is.
func (e *BusinessError) Wrap(cause error) Error {
	return &wrappedError{BusinessError: e, cause: cause}
}

// WithField attaches a cause related to a specific request field.
func (e *BusinessError) WithField(field string, cause error) FieldError {
	return &wrappedError{BusinessError: e, field: field, cause: cause}
}

// Wrapf is Wrap with a formatted cause.
func (e *BusinessError) Wrapf(format string, args ...any) Error {
	return e.Wrap(fmt.Errorf(format, args...))
}

type wrappedError struct {
	*BusinessError
	field string
	cause error
}

func (w *wrappedError) Error() string {
	if w.cause == nil {
		return w.Message
	}
	return w.Message + ": " + w.cause.Error()
}

func (w *wrappedError) Unwrap() []error {
	return []error{w.BusinessError, w.cause}
}

// Field returns the request field the error refers to, if any.
func (w *wrappedError) Field() string { return w.field }

// Cause returns the underlying error.
func (w *wrappedError) Cause() error { return w.cause }

// FieldError is implemented by errors that carry per-field detail.
type FieldError interface {
	Error
	Field() string
	Cause() error
}

// ValidationError reports every failed field of a request. It matches the
// code of its first failure with errors.Is and errors.As.
type ValidationError struct {
	Violations []FieldError
}

// NewValidationError groups violations. At least one is required.
func NewValidationError(violations []FieldError) *ValidationError {
	return &ValidationError{Violations: violations}
}

func (e *ValidationError) first() FieldError { return e.Violations[0] }

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) GetCode() string    { return e.first().GetCode() }
func (e *ValidationError) GetMessage() string { return e.first().GetMessage() }
func (e *ValidationError) Unwrap() error      { return e.first() }

var (
	ErrInvalidField       = NewBusinessError("S0001", "Invalid field")
	ErrInvalidRequestBody = NewBusinessError("S0002", "Invalid request body")
	ErrInvalidHash        = NewBusinessError("S0003", "Invalid client secret hash")
	ErrEmptyClientList    = NewBusinessError("S0004", "Clients array is empty")
	ErrDuplicateClientID  = NewBusinessError("S0005", "Duplicate client_id in request")
	ErrMissingClientID    = NewBusinessError("S0006", "Missing client_id")

	ErrClientNotFound = NewBusinessError("S0010", "Client not found")

	ErrClientExpired = NewBusinessError("S0020", "Client has expired")

	ErrUpstreamUnavailable = NewBusinessError("S0030", "Authorization server admin API unavailable")

	ErrDatabaseQuery    = NewBusinessError("S0040", "Database query failed")
	ErrTenantUnresolved = NewBusinessError("S0041", "Network ID unavailable")
	ErrStoreUnavailable = NewBusinessError("S0042", "Database connection failed")

	ErrInternal = NewBusinessError("S0050", "Internal server error")

	ErrRateLimited = NewBusinessError("S0060", "Rate limit exceeded")
)

// UpstreamStatusError reports a non-success answer from the admin API.
type UpstreamStatusError struct {
	StatusCode int
	Body       []byte
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("admin API returned %d: %s", e.StatusCode, string(e.Body))
}

func (e *UpstreamStatusError) GetCode() string    { return "S0031" }
func (e *UpstreamStatusError) GetMessage() string { return "Authorization server rejected the request" }

// IsClientError reports whether the upstream refused the request itself,
// as opposed to failing while handling it.
func (e *UpstreamStatusError) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// AsError returns err as a domain Error, falling back to ErrInternal.
func AsError(err error) Error {
	var de Error
	if errors.As(err, &de) {
		return de
	}
	return ErrInternal.Wrap(err)
}
