package errors

import (
	"fmt"
)

// ParseError represents a workflow document parsing failure with optional
// line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures graph or configuration validation issues.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExecutionError represents a runtime failure inside an executor or one of
// its adapter calls.
type ExecutionError struct {
	Executor string
	Err      error
}

// NewExecutionError constructs an ExecutionError.
func NewExecutionError(executor string, err error) error {
	return &ExecutionError{Executor: executor, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Executor != "" {
		return fmt.Sprintf("execution error in %s: %v", e.Executor, e.Err)
	}
	return fmt.Sprintf("execution error: %v", e.Err)
}

// Unwrap exposes the root error.
func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// LedgerUnavailableError indicates a transient ledger failure (network
// error or 5xx). The caller skips the current step; the next poll
// re-observes the un-advanced state and retries.
type LedgerUnavailableError struct {
	Op     string
	Status int
	Err    error
}

// NewLedgerUnavailableError constructs a LedgerUnavailableError.
func NewLedgerUnavailableError(op string, status int, err error) error {
	return &LedgerUnavailableError{Op: op, Status: status, Err: err}
}

func (e *LedgerUnavailableError) Error() string {
	if e == nil {
		return ""
	}
	if e.Status > 0 {
		return fmt.Sprintf("ledger unavailable: %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("ledger unavailable: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying error.
func (e *LedgerUnavailableError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// LedgerRejectedError indicates the ledger rejected a request (4xx).
// It is a definite signal and is never retried.
type LedgerRejectedError struct {
	Op     string
	Status int
	Body   string
}

// NewLedgerRejectedError constructs a LedgerRejectedError.
func NewLedgerRejectedError(op string, status int, body string) error {
	return &LedgerRejectedError{Op: op, Status: status, Body: body}
}

func (e *LedgerRejectedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Body != "" {
		return fmt.Sprintf("ledger rejected %s: status %d: %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("ledger rejected %s: status %d", e.Op, e.Status)
}

// GraphViolationError indicates executor/graph drift: an undeclared result
// type, an unknown act, or an unresolvable edge container. The affected run
// halts for the current cycle and reappears on the next poll so operators
// can unblock it by fixing the graph.
type GraphViolationError struct {
	Act     string
	Message string
}

// NewGraphViolationError constructs a GraphViolationError.
func NewGraphViolationError(act, message string) error {
	return &GraphViolationError{Act: act, Message: message}
}

func (e *GraphViolationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Act != "" {
		return fmt.Sprintf("graph violation at %s: %s", e.Act, e.Message)
	}
	return fmt.Sprintf("graph violation: %s", e.Message)
}
