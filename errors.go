package tpke

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of a TPKE error
type ErrorCategory string

const (
	ErrorCategoryValidation    ErrorCategory = "validation"
	ErrorCategoryThreshold     ErrorCategory = "threshold"
	ErrorCategoryKey           ErrorCategory = "key"
	ErrorCategoryCryptographic ErrorCategory = "cryptographic"
	ErrorCategoryEncoding      ErrorCategory = "encoding"
	ErrorCategoryProof         ErrorCategory = "proof"
	ErrorCategoryInternal      ErrorCategory = "internal"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	ErrorSeverityLow      ErrorSeverity = "low"      // Non-critical, operation can continue
	ErrorSeverityMedium   ErrorSeverity = "medium"   // Caller can retry with different inputs
	ErrorSeverityHigh     ErrorSeverity = "high"     // Operation must stop
	ErrorSeverityCritical ErrorSeverity = "critical" // System-level failure
)

// TPKEError represents a structured error returned by every operation in
// this package. Sentinels are compared by Code, so errors.Is matches copies
// produced by WithCause, WithContext and WithDetails.
type TPKEError struct {
	Category    ErrorCategory          `json:"category"`
	Severity    ErrorSeverity          `json:"severity"`
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	Details     string                 `json:"details,omitempty"`
	Cause       error                  `json:"-"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Recoverable bool                   `json:"recoverable"`
}

// Error implements the error interface
func (e *TPKEError) Error() string {
	msg := fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *TPKEError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a TPKEError with the same code.
func (e *TPKEError) Is(target error) bool {
	var t *TPKEError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func (e *TPKEError) clone() *TPKEError {
	newError := &TPKEError{
		Category:    e.Category,
		Severity:    e.Severity,
		Code:        e.Code,
		Message:     e.Message,
		Details:     e.Details,
		Cause:       e.Cause,
		Recoverable: e.Recoverable,
		Context:     make(map[string]interface{}, len(e.Context)),
	}
	for k, v := range e.Context {
		newError.Context[k] = v
	}
	return newError
}

// WithContext adds context information to a copy of the error
func (e *TPKEError) WithContext(key string, value interface{}) *TPKEError {
	newError := e.clone()
	newError.Context[key] = value
	return newError
}

// WithCause returns a copy of the error with the underlying cause set
func (e *TPKEError) WithCause(cause error) *TPKEError {
	newError := e.clone()
	newError.Cause = cause
	return newError
}

// WithDetails returns a copy of the error carrying a human readable detail
func (e *TPKEError) WithDetails(details string) *TPKEError {
	newError := e.clone()
	newError.Details = details
	return newError
}

// Detailf is WithDetails with formatting.
func (e *TPKEError) Detailf(format string, args ...interface{}) *TPKEError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// IsRecoverable returns whether the error is recoverable
func (e *TPKEError) IsRecoverable() bool {
	return e.Recoverable
}

// NewTPKEError creates a new TPKE error
func NewTPKEError(category ErrorCategory, severity ErrorSeverity, code, message string) *TPKEError {
	return &TPKEError{
		Category:    category,
		Severity:    severity,
		Code:        code,
		Message:     message,
		Context:     make(map[string]interface{}),
		Recoverable: severity == ErrorSeverityLow || severity == ErrorSeverityMedium,
	}
}

// Parameter Errors
var (
	ErrInvalidParameters = NewTPKEError(
		ErrorCategoryValidation, ErrorSeverityHigh, "INVALID_PARAMETERS",
		"threshold parameters are invalid")

	ErrParameterMismatch = NewTPKEError(
		ErrorCategoryValidation, ErrorSeverityHigh, "PARAMETER_MISMATCH",
		"input does not match the context")
)

// Threshold Errors
var (
	ErrInsufficientShares = NewTPKEError(
		ErrorCategoryThreshold, ErrorSeverityMedium, "INSUFFICIENT_SHARES",
		"fewer contributions than the threshold")

	ErrDuplicateIndex = NewTPKEError(
		ErrorCategoryThreshold, ErrorSeverityHigh, "DUPLICATE_INDEX",
		"node index appears more than once")

	ErrUnknownIndex = NewTPKEError(
		ErrorCategoryThreshold, ErrorSeverityHigh, "UNKNOWN_INDEX",
		"node index is not part of the context")
)

// Key Errors
var (
	ErrInvalidSecretKey = NewTPKEError(
		ErrorCategoryKey, ErrorSeverityMedium, "INVALID_SECRET_KEY",
		"secret key does not match the registered public key")

	ErrInvalidKeyProof = NewTPKEError(
		ErrorCategoryKey, ErrorSeverityHigh, "INVALID_KEY_PROOF",
		"key possession proof is missing or invalid")
)

// Cryptographic Errors
var (
	ErrAuthenticationFailure = NewTPKEError(
		ErrorCategoryCryptographic, ErrorSeverityHigh, "AUTHENTICATION_FAILURE",
		"ciphertext authentication failed")

	ErrDecodeFailure = NewTPKEError(
		ErrorCategoryCryptographic, ErrorSeverityHigh, "DECODE_FAILURE",
		"decrypted group element is outside the decodable range")

	ErrDecryptionFailure = NewTPKEError(
		ErrorCategoryCryptographic, ErrorSeverityHigh, "DECRYPTION_FAILURE",
		"threshold decryption failed")

	ErrNoInverse = NewTPKEError(
		ErrorCategoryCryptographic, ErrorSeverityHigh, "NO_INVERSE",
		"zero has no multiplicative inverse")

	ErrRandomnessGeneration = NewTPKEError(
		ErrorCategoryCryptographic, ErrorSeverityCritical, "RANDOMNESS_GENERATION_FAILED",
		"failed to generate secure randomness")
)

// Encoding Errors
var (
	ErrInvalidEncoding = NewTPKEError(
		ErrorCategoryEncoding, ErrorSeverityHigh, "INVALID_ENCODING",
		"malformed encoding")
)

// Proof Errors
var (
	ErrProofVerification = NewTPKEError(
		ErrorCategoryProof, ErrorSeverityHigh, "PROOF_VERIFICATION_FAILED",
		"attached proof does not verify")
)

// Internal Errors
var (
	ErrInvalidState = NewTPKEError(
		ErrorCategoryInternal, ErrorSeverityHigh, "INVALID_STATE",
		"operation not allowed in the current state")
)

// Low level group errors. Decoders in encoding.go wrap them in
// ErrInvalidEncoding.
var (
	ErrInvalidScalarLength = errors.New("invalid scalar length")
	ErrInvalidPointLength  = errors.New("invalid point length")
	ErrInvalidScalar       = errors.New("invalid scalar value")
	ErrInvalidPoint        = errors.New("invalid point")
)

// Error helper functions

// WrapError wraps an existing error with TPKE error context
func WrapError(err error, category ErrorCategory, severity ErrorSeverity, code, message string) *TPKEError {
	return NewTPKEError(category, severity, code, message).WithCause(err)
}

// IsErrorCategory checks if an error belongs to a specific category
func IsErrorCategory(err error, category ErrorCategory) bool {
	var tErr *TPKEError
	if errors.As(err, &tErr) {
		return tErr.Category == category
	}
	return false
}

// IsRecoverableError checks if an error is recoverable
func IsRecoverableError(err error) bool {
	var tErr *TPKEError
	if errors.As(err, &tErr) {
		return tErr.IsRecoverable()
	}
	return true
}

// GetErrorContext extracts context from a TPKE error
func GetErrorContext(err error) map[string]interface{} {
	var tErr *TPKEError
	if errors.As(err, &tErr) {
		return tErr.Context
	}
	return nil
}
