// Copyright 2026 © The Kairos Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/jllopis/skillrt/pkg/errors"
	"github.com/jllopis/skillrt/pkg/runtime"
)

// CLIError wraps SkillError with CLI-specific formatting and hints.
type CLIError struct {
	*errors.SkillError
	Hint string
}

// NewCLIError creates a new CLI error.
func NewCLIError(se *errors.SkillError, hint string) *CLIError {
	return &CLIError{
		SkillError: se,
		Hint:       hint,
	}
}

// Error returns the formatted error message with hints.
func (e *CLIError) Error() string {
	if e.SkillError == nil {
		return "unknown error"
	}

	msg := e.SkillError.Error()
	if e.Hint != "" {
		msg += "\n  Hint: " + e.Hint
	}
	return msg
}

// Unwrap exposes the SkillError.
func (e *CLIError) Unwrap() error {
	return e.SkillError
}

// PrintError prints the error with appropriate formatting.
func (e *CLIError) PrintError(asJSON bool) {
	if asJSON {
		payload := map[string]any{"error": map[string]string{
			"code":    string(e.Code),
			"message": e.Detail(),
			"hint":    e.Hint,
		}}
		_ = json.NewEncoder(os.Stderr).Encode(payload)
		return
	}

	fmt.Fprintf(os.Stderr, "Error [%s]: %s\n", e.Code, e.Detail())
	if e.Hint != "" {
		fmt.Fprintf(os.Stderr, "  Hint: %s\n", e.Hint)
	}
}

// NewRunError reports a failed skill run. The result itself was already printed.
func NewRunError(res *runtime.Result) *CLIError {
	se := errors.New(res.Code, res.Error, nil).
		WithContext("skill_id", res.Metadata.SkillID).
		WithContext("run_id", res.Metadata.RunID)
	hint := ""
	switch res.Code {
	case errors.CodeNotFound:
		hint = "run 'skillrt list --all' to see registered skills"
	case errors.CodeInvalidInput:
		hint = "inputs are parsed as JSON; quote strings that look like numbers"
	case errors.CodeTimeout:
		se = se.WithRecoverable(true)
		hint = "raise runtime.timeout_ms or retry"
	}
	return NewCLIError(se, hint)
}

// NewNotFoundError creates a not found error with CLI hints.
func NewNotFoundError(resource, name string) *CLIError {
	se := errors.New(errors.CodeNotFound, fmt.Sprintf("%s '%s' not found or disabled", resource, name), nil).
		WithContext("resource", resource).
		WithContext("name", name)
	return NewCLIError(se, fmt.Sprintf("run 'skillrt list --all' to check the %s exists", resource))
}

// NewInvalidArgumentError creates an invalid argument error with CLI hints.
func NewInvalidArgumentError(arg, reason string) *CLIError {
	se := errors.New(errors.CodePrecondition, fmt.Sprintf("invalid argument: %s", reason), nil).
		WithContext("argument", arg).
		WithContext("reason", reason)
	return NewCLIError(se, "run 'skillrt help' for usage information")
}

// NewConfigError creates a configuration error with CLI hints.
func NewConfigError(err error, configPath string) *CLIError {
	se := errors.New(errors.CodePrecondition, "configuration error", err).
		WithContext("config_path", configPath)

	hint := "check your configuration file syntax"
	if configPath != "" {
		hint = fmt.Sprintf("check %s for syntax errors", configPath)
	}
	return NewCLIError(se, hint)
}

// printError prints CLI errors with their hints and anything else plainly.
func printError(err error, asJSON bool) {
	var cliErr *CLIError
	if stderrors.As(err, &cliErr) {
		cliErr.PrintError(asJSON)
		return
	}
	if asJSON {
		_ = json.NewEncoder(os.Stderr).Encode(map[string]any{"error": map[string]string{
			"code":    "UNKNOWN",
			"message": err.Error(),
		}})
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
}
