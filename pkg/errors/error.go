// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories matching how callers react:
//   - Configuration errors (100-199): fatal to the operation, never retried
//   - Data/Resource errors (200-299): no decision this cycle, loop continues
//   - Indicator errors (300-399): indicator construction and calculation
//   - Strategy errors (400-499): strategy configuration and runtime
//   - Trading/state errors (500-599): position sizing and transitions
//   - Backtest errors (600-699): backtest store and report handling
//   - Market data errors (700-799): transient IO, retried with backoff
//
// Usage:
//
//	err := errors.New(errors.ErrCodeInvalidParameter, "invalid parameter value")
//	err := errors.Newf(errors.ErrCodeDataUnavailable, "no data for %s", ticker)
//	err := errors.Wrap(errors.ErrCodeQueryFailed, "failed to execute query", originalErr)
//	if errors.HasCode(err, errors.ErrCodeRateLimited) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsConfiguration reports whether the error belongs to the configuration
// category. Configuration errors are fatal to the operation that raised them.
func IsConfiguration(err error) bool {
	code := GetCode(err)

	return code >= 100 && code < 200
}

// IsDataUnavailable reports whether the error belongs to the data category.
// Callers treat these as "no decision this cycle" and keep looping.
func IsDataUnavailable(err error) bool {
	code := GetCode(err)

	return (code >= 200 && code < 300) || code == ErrCodeInsufficientData
}

// IsTransient reports whether the error is eligible for retry with backoff.
// Only rate limits and transport failures qualify; other market data errors
// (bad ticker, malformed response) are permanent.
func IsTransient(err error) bool {
	code := GetCode(err)

	return code == ErrCodeRateLimited || code == ErrCodeTransportFailure
}

// InsufficientDataError is returned when a series does not carry enough bars
// for a calculation (e.g. an indicator's minimum lookback).
type InsufficientDataError struct {
	Required int    // Minimum bars required
	Actual   int    // Actual bars available
	Ticker   string // Optional: ticker context
	Message  string // Human-readable message
}

// NewInsufficientDataError creates a new InsufficientDataError.
func NewInsufficientDataError(required, actual int, ticker, message string) *InsufficientDataError {
	return &InsufficientDataError{
		Required: required,
		Actual:   actual,
		Ticker:   ticker,
		Message:  message,
	}
}

// NewInsufficientDataErrorf creates a new InsufficientDataError with a formatted message.
func NewInsufficientDataErrorf(required, actual int, ticker, format string, args ...any) *InsufficientDataError {
	return &InsufficientDataError{
		Required: required,
		Actual:   actual,
		Ticker:   ticker,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	return e.Message
}

// IsInsufficientDataError checks if an error is an InsufficientDataError.
func IsInsufficientDataError(err error) bool {
	var insufficientErr *InsufficientDataError

	return errors.As(err, &insufficientErr)
}

// MissingColumnError is returned when a named source column does not exist in
// the series an indicator was constructed with.
type MissingColumnError struct {
	Column string
}

// NewMissingColumnError creates a new MissingColumnError.
func NewMissingColumnError(column string) *MissingColumnError {
	return &MissingColumnError{Column: column}
}

// Error implements the error interface.
func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %q not found in series", e.Column)
}

// IsMissingColumnError checks if an error is a MissingColumnError.
func IsMissingColumnError(err error) bool {
	var missingErr *MissingColumnError

	return errors.As(err, &missingErr)
}
