package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Standard error codes
const (
	CodeValidationError        = "VALIDATION_ERROR"
	CodeNotFound               = "RESOURCE_NOT_FOUND"
	CodeInsufficientInventory  = "INSUFFICIENT_INVENTORY"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeStoreUnavailable       = "STORE_UNAVAILABLE"
	CodeInternalError          = "INTERNAL_ERROR"
	CodeBadRequest             = "BAD_REQUEST"
)

// AppError represents an application error with HTTP status and error code
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Wrap wraps an existing error
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError creates a new AppError
func NewAppError(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// ErrValidation creates a validation error
func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// ErrNotFound creates a not found error
func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ErrNotFoundWithID creates a not found error with ID
func ErrNotFoundWithID(resource, id string) *AppError {
	return ErrNotFound(resource).WithDetail("id", id)
}

// ErrInsufficientInventory creates an insufficient inventory error for a product.
// Recoverable by the caller: reduce the requested quantity or restock.
func ErrInsufficientInventory(productID string, requested, available int) *AppError {
	return NewAppError(
		CodeInsufficientInventory,
		fmt.Sprintf("insufficient inventory for product %s", productID),
		http.StatusConflict,
	).WithDetails(map[string]string{
		"productId": productID,
		"requested": strconv.Itoa(requested),
		"available": strconv.Itoa(available),
	})
}

// ErrConcurrentModification creates an error for an allocation that lost the
// revision race after exhausting its retries
func ErrConcurrentModification(productID string) *AppError {
	return NewAppError(
		CodeConcurrentModification,
		fmt.Sprintf("allocation for product %s lost a concurrent update race", productID),
		http.StatusConflict,
	).WithDetail("productId", productID)
}

// ErrStoreUnavailable creates an error for an unreachable lot store
func ErrStoreUnavailable() *AppError {
	return NewAppError(CodeStoreUnavailable, "lot store is unavailable", http.StatusServiceUnavailable)
}

// ErrInternal creates an internal error
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalError, message, http.StatusInternalServerError)
}

// ErrBadRequest creates a bad request error
func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromError converts a standard error to an AppError
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	return ErrInternal("").Wrap(err)
}
