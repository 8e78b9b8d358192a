// Package errors provides structured error handling for the table access layer.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeSchema represents a malformed or duplicate-name table description
	ErrorTypeSchema ErrorType = "schema"
	// ErrorTypeNoSuchColumn represents a lookup of a column the table does not have
	ErrorTypeNoSuchColumn ErrorType = "no_such_column"
	// ErrorTypeTypeMismatch represents a value whose type disagrees with the column's data type
	ErrorTypeTypeMismatch ErrorType = "type_mismatch"
	// ErrorTypeShapeMismatch represents a value whose shape disagrees with the column's cell shape
	ErrorTypeShapeMismatch ErrorType = "shape_mismatch"
	// ErrorTypeRowIndex represents a row index outside the table's current row range
	ErrorTypeRowIndex ErrorType = "row_index_out_of_range"
	// ErrorTypeRowCount represents a full-column buffer whose row dimension disagrees with the table
	ErrorTypeRowCount ErrorType = "row_count_mismatch"
	// ErrorTypeColumnRead represents an engine-level failure while reading column data
	ErrorTypeColumnRead ErrorType = "column_read"
	// ErrorTypeColumnWrite represents an engine-level failure while writing column data
	ErrorTypeColumnWrite ErrorType = "column_write"
	// ErrorTypeOpen represents a table that does not exist or is locked by another process
	ErrorTypeOpen ErrorType = "open"
	// ErrorTypeEngine represents any other storage engine failure
	ErrorTypeEngine ErrorType = "engine"
	// ErrorTypeClosed represents an operation on a closed table
	ErrorTypeClosed ErrorType = "closed"
	// ErrorTypePartialRowWrite represents a multi-column row commit that failed part way
	ErrorTypePartialRowWrite ErrorType = "partial_row_write"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// TypeOf returns the category of err, or the empty string if err does not
// carry one.
func TypeOf(err error) ErrorType {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Type
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
