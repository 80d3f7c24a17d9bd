// SPDX-License-Identifier: Apache-2.0
// Package errors classifies skill resolution, contract and execution failures.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies skill runtime failures for logs, metrics and callers.
type ErrorCode string

const (
	// CodeInternal indicates an unexpected runtime error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeNotFound indicates the skill id is unknown or the skill is disabled.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeInvalidInput indicates raw input failed the skill's input contract.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeExecutionFailure indicates the skill implementation returned an error or panicked.
	CodeExecutionFailure ErrorCode = "EXECUTION_FAILURE"

	// CodeInvalidOutput indicates the implementation result failed the output contract.
	CodeInvalidOutput ErrorCode = "INVALID_OUTPUT"

	// CodeTimeout indicates the implementation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeParseFailure indicates structured data could not be recovered from free text.
	CodeParseFailure ErrorCode = "PARSE_FAILURE"

	// CodePrecondition indicates a caller programming error, such as mismatched sequence inputs.
	CodePrecondition ErrorCode = "PRECONDITION_FAILED"
)

// SkillError is a typed error carrying a classification code and context.
// It implements the error interface and can be unwrapped with errors.As().
type SkillError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]interface{}
	Recoverable bool
}

// Error implements the error interface.
func (e *SkillError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *SkillError) Unwrap() error {
	return e.Err
}

// Detail returns the message and cause without the code prefix.
func (e *SkillError) Detail() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *SkillError) MarshalJSON() ([]byte, error) {
	var cause string
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return json.Marshal(&struct {
		Code        string                 `json:"code"`
		Message     string                 `json:"message"`
		Err         string                 `json:"error,omitempty"`
		Context     map[string]interface{} `json:"context,omitempty"`
		Recoverable bool                   `json:"recoverable"`
	}{
		Code:        string(e.Code),
		Message:     e.Message,
		Err:         cause,
		Context:     e.Context,
		Recoverable: e.Recoverable,
	})
}

// New creates a new SkillError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *SkillError {
	return &SkillError{
		Code:    code,
		Message: msg,
		Err:     cause,
		Context: make(map[string]interface{}),
	}
}

// Newf creates a SkillError with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...any) *SkillError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *SkillError) WithContext(key string, value interface{}) *SkillError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the caller may retry the operation.
func (e *SkillError) WithRecoverable(recoverable bool) *SkillError {
	e.Recoverable = recoverable
	return e
}

// AsSkillError returns err as a SkillError, searching the wrap chain.
// Unknown errors are wrapped as internal.
func AsSkillError(err error) *SkillError {
	if err == nil {
		return nil
	}
	var se *SkillError
	if stderrors.As(err, &se) {
		return se
	}
	return New(CodeInternal, "wrapped error", err)
}

// CodeOf returns the code of the first SkillError in the chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var se *SkillError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
