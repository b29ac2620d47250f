package domain

import "fmt"

// ErrorKind buckets compression failures for UI presentation and batch
// summary rollups.
type ErrorKind string

const (
	ErrorKindValidation   ErrorKind = "validation"
	ErrorKindTranscoder   ErrorKind = "transcoder"
	ErrorKindSystem       ErrorKind = "system"
	ErrorKindCancellation ErrorKind = "cancellation"
	ErrorKindHardware     ErrorKind = "hardware"
	ErrorKindUnknown      ErrorKind = "unknown"
)

// CompressionError is a classified task failure with remediation context.
type CompressionError struct {
	Kind            ErrorKind `json:"kind"`
	Message         string    `json:"message"`
	Detail          string    `json:"detail,omitempty"`
	Recoverable     bool      `json:"recoverable"`
	SuggestedAction string    `json:"suggestedAction,omitempty"`
	Err             error     `json:"-"`
}

// Error formats the failure for logs and result lists.
func (e *CompressionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Detail)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *CompressionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewValidationError builds a non-recoverable validation failure.
func NewValidationError(message string) *CompressionError {
	return &CompressionError{
		Kind:    ErrorKindValidation,
		Message: message,
	}
}
