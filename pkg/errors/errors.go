package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// Ledger errors
	ErrCodeInvalidTransaction ErrorCode = "INVALID_TRANSACTION_TYPE"
	ErrCodeMissingLinkedTx    ErrorCode = "MISSING_LINKED_TRANSACTION"
	ErrCodeInsufficientUnits  ErrorCode = "INSUFFICIENT_HOLDINGS"
	ErrCodeRateUnavailable    ErrorCode = "RATE_UNAVAILABLE"
	ErrCodeOutOfOrderEvent    ErrorCode = "OUT_OF_ORDER_EVENT"

	// Resource errors
	ErrCodeAssetNotFound   ErrorCode = "ASSET_NOT_FOUND"
	ErrCodeAccountNotFound ErrorCode = "ACCOUNT_NOT_FOUND"
	ErrCodeUserNotFound    ErrorCode = "USER_NOT_FOUND"

	// System errors
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
)

// AppError represents a standardized error
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
}

func (e AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: getHTTPStatusCode(code),
		Details:    make(map[string]interface{}),
	}
}

// NewWithDetails creates a new AppError with details
func NewWithDetails(code ErrorCode, message string, details map[string]interface{}) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: getHTTPStatusCode(code),
		Details:    details,
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	details := map[string]interface{}{
		"original_error": err.Error(),
	}
	return NewWithDetails(code, message, details)
}

// AddDetail adds a detail to the error
func (e *AppError) AddDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// getHTTPStatusCode maps error codes to HTTP status codes
func getHTTPStatusCode(code ErrorCode) int {
	switch code {
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeMissingField:
		return http.StatusBadRequest
	case ErrCodeAssetNotFound, ErrCodeAccountNotFound, ErrCodeUserNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidTransaction, ErrCodeMissingLinkedTx, ErrCodeInsufficientUnits,
		ErrCodeRateUnavailable, ErrCodeOutOfOrderEvent:
		return http.StatusUnprocessableEntity
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeTimeout:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors
func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func NotFound(code ErrorCode, resource string) *AppError {
	return New(code, fmt.Sprintf("%s not found", resource))
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func ServiceUnavailable(service string) *AppError {
	return New(ErrCodeServiceUnavailable, fmt.Sprintf("%s service unavailable", service))
}
