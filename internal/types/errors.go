package types

import "fmt"

// ErrorCode represents a specific error type
type ErrorCode string

const (
	// Configuration errors
	ErrNoActiveConfig           ErrorCode = "NO_ACTIVE_CONFIG"
	ErrConfigInvariantViolation ErrorCode = "CONFIG_INVARIANT_VIOLATION"
	ErrConfigNotFound           ErrorCode = "CONFIG_NOT_FOUND"

	// Settlement errors
	ErrInsufficientFunds    ErrorCode = "INSUFFICIENT_FUNDS"
	ErrRateLimited          ErrorCode = "RATE_LIMITED"
	ErrDuplicateSubmission  ErrorCode = "DUPLICATE_SUBMISSION"
	ErrTransactionNotFound  ErrorCode = "TRANSACTION_NOT_FOUND"
	ErrOfferNotFound        ErrorCode = "OFFER_NOT_FOUND"
	ErrOfferAlreadyResolved ErrorCode = "OFFER_ALREADY_RESOLVED"

	// Audit errors
	ErrIntegrityCheckFailed ErrorCode = "INTEGRITY_CHECK_FAILED"

	// Request errors
	ErrInvalidArgument  ErrorCode = "INVALID_ARGUMENT"
	ErrPermissionDenied ErrorCode = "PERMISSION_DENIED"

	// System errors
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
	ErrDatabaseError ErrorCode = "DATABASE_ERROR"
)

// WagerError represents a settlement-related error
type WagerError struct {
	Code    ErrorCode
	Message string
	Err     error // Underlying error, if any
}

// Error implements the error interface
func (e *WagerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *WagerError) Unwrap() error {
	return e.Err
}

// NewWagerError creates a new WagerError
func NewWagerError(code ErrorCode, message string) *WagerError {
	return &WagerError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error in a WagerError
func WrapError(code ErrorCode, message string, err error) *WagerError {
	return &WagerError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsWagerError checks if an error is a WagerError and has a specific code
func IsWagerError(err error, code ErrorCode) bool {
	var wagerErr *WagerError
	if err == nil {
		return false
	}
	if ok := As(err, &wagerErr); !ok {
		return false
	}
	return wagerErr.Code == code
}

// As is a helper function to safely type assert an error to a WagerError
func As(err error, target **WagerError) bool {
	if target == nil {
		return false
	}
	if wagerErr, ok := err.(*WagerError); ok {
		*target = wagerErr
		return true
	}
	return false
}
