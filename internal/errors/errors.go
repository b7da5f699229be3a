// Package errors provides structured error handling for metricsd operations.
// It defines error codes, error types, and utilities for creating and
// inspecting errors raised by the metrics manager and its API layer.
package errors

import (
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeConfiguration ErrorCode = "CONFIGURATION"

	// Metrics manager errors.
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeKindConflict    ErrorCode = "KIND_CONFLICT"
	CodeSelfTestFailure ErrorCode = "SELF_TEST_FAILURE"
)

// MetricError represents an error raised by the metrics manager. Scope and
// Instrument carry the identity the failed operation was addressed to, when
// known.
type MetricError struct {
	Code       ErrorCode
	Message    string
	Scope      string
	Instrument string
	Cause      error
	Context    map[string]interface{}
}

// Error implements the error interface.
func (e *MetricError) Error() string {
	switch {
	case e.Scope != "" && e.Instrument != "":
		return fmt.Sprintf("[%s] %s (scope: %s, instrument: %s)", e.Code, e.Message, e.Scope, e.Instrument)
	case e.Scope != "":
		return fmt.Sprintf("[%s] %s (scope: %s)", e.Code, e.Message, e.Scope)
	default:
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying error for error unwrapping.
func (e *MetricError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *MetricError) WithContext(key string, value interface{}) *MetricError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewMetricError creates a new metric error with the specified code and message.
func NewMetricError(code ErrorCode, message string) *MetricError {
	return &MetricError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// NewMetricErrorWithID creates a metric error addressed to a specific
// (scope, instrument) pair.
func NewMetricErrorWithID(code ErrorCode, message, scope, instrument string) *MetricError {
	return &MetricError{
		Code:       code,
		Message:    message,
		Scope:      scope,
		Instrument: instrument,
		Context:    make(map[string]interface{}),
	}
}

// WrapMetricError wraps an existing error as a metric error.
func WrapMetricError(code ErrorCode, message string, err error) *MetricError {
	return &MetricError{
		Code:    code,
		Message: message,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigError creates a new configuration error.
func NewConfigError(code ErrorCode, message string) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
	}
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Field:   field,
		Value:   value,
	}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Utility functions for common error operations

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	switch e := err.(type) {
	case *MetricError:
		return e.Code == code
	case *ConfigError:
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error if it has one.
func GetCode(err error) ErrorCode {
	switch e := err.(type) {
	case *MetricError:
		return e.Code
	case *ConfigError:
		return e.Code
	}
	return CodeUnknown
}

// IsInvalidArgument reports whether err is an INVALID_ARGUMENT error.
func IsInvalidArgument(err error) bool {
	return IsCode(err, CodeInvalidArgument)
}

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsKindConflict reports whether err is a KIND_CONFLICT error.
func IsKindConflict(err error) bool {
	return IsCode(err, CodeKindConflict)
}

// IsSelfTestFailure reports whether err is a SELF_TEST_FAILURE error.
func IsSelfTestFailure(err error) bool {
	return IsCode(err, CodeSelfTestFailure)
}

// Common error creation functions

// ErrMissingScopeName creates an error for an empty scope name.
func ErrMissingScopeName() *MetricError {
	return NewMetricError(CodeInvalidArgument, "missing scope name")
}

// ErrMissingInstrumentName creates an error for an empty instrument name.
func ErrMissingInstrumentName() *MetricError {
	return NewMetricError(CodeInvalidArgument, "missing instrument name")
}

// ErrScopeNotFound creates an error for a scope that was never created.
func ErrScopeNotFound(scope string) *MetricError {
	return &MetricError{
		Code:    CodeNotFound,
		Message: "scope not found",
		Scope:   scope,
		Context: make(map[string]interface{}),
	}
}

// ErrInstrumentNotFound creates an error for an instrument that was never created.
func ErrInstrumentNotFound(scope, instrument string) *MetricError {
	return NewMetricErrorWithID(CodeNotFound, "instrument not found", scope, instrument)
}

// ErrKindConflict creates an error for re-declaring an instrument with a
// different kind.
func ErrKindConflict(scope, instrument, existing, requested string) *MetricError {
	msg := fmt.Sprintf("instrument already registered as %s, requested %s", existing, requested)
	return NewMetricErrorWithID(CodeKindConflict, msg, scope, instrument)
}

// ErrSelfTest creates an error for a failed manager self-test.
func ErrSelfTest(diagnostic string) *MetricError {
	return NewMetricError(CodeSelfTestFailure, "self-test failed: "+diagnostic)
}
