// Package errors provides structured error types for the vault query engine.
// All errors include a category, code, message, and retryable flag for
// consistent error handling across components.
package errors

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryTypeResolution ErrorCategory = "TYPE_RESOLUTION"
	ErrCategoryCriteria       ErrorCategory = "CRITERIA"
	ErrCategoryPaging         ErrorCategory = "PAGING"
	ErrCategoryCodec          ErrorCategory = "CODEC"
	ErrCategoryStorage        ErrorCategory = "STORAGE"
	ErrCategoryVault          ErrorCategory = "VAULT"
	ErrCategoryInternal       ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Type resolution codes
	CodeUnknownType = "UNKNOWN_TYPE"

	// Criteria codes
	CodeUnsupportedCriteria = "UNSUPPORTED_CRITERIA"

	// Paging codes
	CodeInvalidPage = "INVALID_PAGE"

	// Codec codes
	CodeDeserializationFailed = "DESERIALIZATION_FAILED"

	// Storage codes
	CodeQueryFailed        = "QUERY_FAILED"
	CodeSessionUnavailable = "SESSION_UNAVAILABLE"

	// Vault codes
	CodeNotImplemented = "NOT_IMPLEMENTED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// Sentinels for errors.Is. Matching compares category and code only.
var (
	ErrTypeResolution      = New(ErrCategoryTypeResolution, CodeUnknownType, "type resolution failed")
	ErrUnsupportedCriteria = New(ErrCategoryCriteria, CodeUnsupportedCriteria, "unsupported criteria")
	ErrInvalidPage         = New(ErrCategoryPaging, CodeInvalidPage, "invalid page")
	ErrDeserialization     = New(ErrCategoryCodec, CodeDeserializationFailed, "deserialization failed")
	ErrStorage             = New(ErrCategoryStorage, CodeQueryFailed, "storage query failed")
	ErrVaultQuery          = New(ErrCategoryVault, CodeQueryFailed, "vault query failed")
	ErrNotImplemented      = New(ErrCategoryVault, CodeNotImplemented, "not implemented")
)

// VaultError is the structured error type used throughout the system.
type VaultError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *VaultError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *VaultError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *VaultError) Is(target error) bool {
	var t *VaultError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// GRPCStatus maps the most specific category in the chain to a gRPC status,
// so that status.FromError and status.Code work on vault errors.
func (e *VaultError) GRPCStatus() *status.Status {
	return status.New(grpcCode(e), e.Error())
}

// New creates a new VaultError.
func New(category ErrorCategory, code, message string) *VaultError {
	return &VaultError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new VaultError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *VaultError {
	return &VaultError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *VaultError) WithDetails(details map[string]interface{}) *VaultError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var ae *VaultError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a VaultError.
func GetCategory(err error) ErrorCategory {
	var ae *VaultError
	if errors.As(err, &ae) {
		return ae.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a VaultError.
func GetCode(err error) string {
	var ae *VaultError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// Innermost returns the deepest VaultError in the chain, or nil.
func Innermost(err error) *VaultError {
	var last *VaultError
	for err != nil {
		var ve *VaultError
		if !errors.As(err, &ve) {
			break
		}
		last = ve
		err = ve.Cause
	}
	return last
}

// isRetryable determines if an error code is retryable. Nothing in this module
// retries; the flag tells callers which failures are transient.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryStorage && code == CodeQueryFailed:
		return true
	case category == ErrCategoryStorage && code == CodeSessionUnavailable:
		return true
	default:
		return false
	}
}

func grpcCode(e *VaultError) codes.Code {
	inner := Innermost(e)
	if inner == nil {
		inner = e
	}
	switch inner.Category {
	case ErrCategoryCriteria, ErrCategoryPaging:
		return codes.InvalidArgument
	case ErrCategoryTypeResolution:
		return codes.FailedPrecondition
	case ErrCategoryCodec:
		return codes.DataLoss
	case ErrCategoryStorage:
		return codes.Unavailable
	case ErrCategoryVault:
		if inner.Code == CodeNotImplemented {
			return codes.Unimplemented
		}
		return codes.Internal
	default:
		return codes.Internal
	}
}

// Convenience constructors for common errors.

func NewTypeResolutionError(typeName string, cause error) *VaultError {
	return Wrap(ErrCategoryTypeResolution, CodeUnknownType,
		fmt.Sprintf("cannot resolve stored type %q", typeName), cause).
		WithDetails(map[string]interface{}{"type": typeName})
}

func NewUnsupportedCriteriaError(message string) *VaultError {
	return New(ErrCategoryCriteria, CodeUnsupportedCriteria, message)
}

func NewInvalidPageError(message string) *VaultError {
	return New(ErrCategoryPaging, CodeInvalidPage, message)
}

func NewDeserializationError(message string, cause error) *VaultError {
	return Wrap(ErrCategoryCodec, CodeDeserializationFailed, message, cause)
}

func NewStorageError(code, message string, cause error) *VaultError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewVaultQueryError(message string, cause error) *VaultError {
	return Wrap(ErrCategoryVault, CodeQueryFailed, message, cause)
}

func NewNotImplementedError(message string) *VaultError {
	return New(ErrCategoryVault, CodeNotImplemented, message)
}

func NewInternalError(message string, cause error) *VaultError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
