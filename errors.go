package clientsdk

import (
	"errors"
	"fmt"
)

// ClientError represents an SDK-specific error
type ClientError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`

	cause error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As chains.
func (e *ClientError) Unwrap() error {
	return e.cause
}

// Common error codes
const (
	ErrCodeInvalidInput          = "invalid_input"
	ErrCodeUnsupportedProvider   = "unsupported_provider"
	ErrCodeDetectionFailed       = "detection_failed"
	ErrCodeInitializationFailed  = "initialization_failed"
	ErrCodeNetworkSwitchRejected = "network_switch_rejected"
	ErrCodeUnsupportedNetwork    = "unsupported_network"
	ErrCodeTransactionRejected   = "transaction_rejected"
	ErrCodeTransactionFailed     = "transaction_failed"
	ErrCodeTimeout               = "timeout"
	ErrCodeProofInvalid          = "proof_invalid"
)

// NewClientError creates a new client error
func NewClientError(code, message string, details map[string]interface{}) *ClientError {
	return &ClientError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WrapError creates a client error that wraps an underlying cause.
// The cause's message is appended so callers see both layers.
func WrapError(code, message string, cause error) *ClientError {
	if cause != nil {
		message = fmt.Sprintf("%s: %v", message, cause)
	}
	return &ClientError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// CodeOf resolves any error to a taxonomy code. Errors that are not
// ClientError instances resolve to transaction_failed, which is the
// catch-all for provider-level failures.
func CodeOf(err error) string {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeTransactionFailed
}

// IsCode reports whether err resolves to the given taxonomy code.
func IsCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}
