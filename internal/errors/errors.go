package errors

import (
	"errors"
	"fmt"
)

// Basic error check functions from standard library
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

// ErrorCode represents a unique identifier for each error type
type ErrorCode string

// Error represents a domain-specific error with context
type Error interface {
	error
	Code() ErrorCode
	GetData() any
	Unwrap() error
}

// appError implements the Error interface
type appError struct {
	code    ErrorCode
	message string
	err     error
	data    any
}

func (e *appError) Error() string {
	if e.message == "" {
		e.message = GetErrorMessage(e.code)
	}

	if e.data != nil {
		return fmt.Sprintf("%s: %v", e.message, e.data)
	}

	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

func (e *appError) Code() ErrorCode {
	return e.code
}

func (e *appError) GetData() any {
	return e.data
}

func (e *appError) Unwrap() error {
	return e.err
}

// New creates an error carrying the given code
func New(code ErrorCode) Error {
	return &appError{code: code}
}

// Wrap attaches a code to an underlying cause
func Wrap(code ErrorCode, err error) Error {
	return &appError{code: code, err: err}
}

// WithMessage creates an error with a code and a custom message
func WithMessage(code ErrorCode, msg string) Error {
	return &appError{code: code, message: msg}
}

// WithData creates an error with a code and structured context data
func WithData(code ErrorCode, data any) Error {
	return &appError{code: code, data: data}
}

// CodeOf extracts the ErrorCode from err, or empty when err is not a domain error
func CodeOf(err error) ErrorCode {
	var appErr Error
	if As(err, &appErr) {
		return appErr.Code()
	}

	return ""
}
