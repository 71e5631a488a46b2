// Package errors provides centralized error definitions and error handling
// utilities for mob. It defines domain-specific errors, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - ConfigError: a configuration layer is malformed or a key has the wrong type
//   - ExecutionError: a task's external operation (fetch, build, ...) failed
//   - AbortError: a task was cancelled because a sibling failed or the run
//     was interrupted
//
// Semantic errors represent common error conditions:
//   - TaskNotFoundError: a task selector resolved to nothing
//   - ValidationError: invalid input or state
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewConfigError("value is not a boolean", errors.ErrInvalidValue)
//
//	// With context
//	err := errors.NewConfigError("value is not a boolean", nil).
//	    WithSource("file:mob.yaml").WithKey("task/enabled")
//
// Checking errors:
//
//	// Check for specific sentinel errors
//	if errors.Is(err, errors.ErrTaskNotFound) { ... }
//
//	// Check for error types
//	var cfgErr *errors.ConfigError
//	if errors.As(err, &cfgErr) { ... }
//
//	// Use classification helpers
//	if errors.IsAbort(err) { ... }
//	if errors.IsUserFacing(err) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Abort: collateral cancellation, distinct from a real failure
//   - UserFacing: errors safe to display to users (vs internal errors)
//   - Severity: Debug, Info, Warning, Error, Critical
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Configuration-related sentinel errors
var (
	// ErrConfigNotFound indicates that a required configuration file is missing.
	ErrConfigNotFound = New("configuration file not found")
	// ErrMissingKey indicates that a required configuration key is absent.
	ErrMissingKey = New("missing configuration key")
	// ErrInvalidValue indicates that a configuration value has the wrong type or range.
	ErrInvalidValue = New("invalid configuration value")
)

// Task-related sentinel errors
var (
	// ErrTaskNotFound indicates that a task name, alias or pattern matched nothing.
	ErrTaskNotFound = New("task not found")
	// ErrTaskFailed indicates that a task execution failed.
	ErrTaskFailed = New("task failed")
	// ErrAborted indicates that a task was cancelled before or during execution.
	ErrAborted = New("task aborted")
	// ErrInterrupted indicates that the run was interrupted from outside.
	ErrInterrupted = New("run interrupted")
)

// General sentinel errors
var (
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrOperationFailed indicates a general operation failure.
	ErrOperationFailed = New("operation failed")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// MobError is the base interface for all mob errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type MobError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	// This is used by errors.Is() for error comparison.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ConfigError represents a malformed configuration layer or an invalid value
// at a key. Configuration errors are fatal before any task runs.
//
// Example:
//
//	err := errors.NewConfigError("value is not a boolean", errors.ErrInvalidValue)
//	err = err.WithSource("file:mob.yaml").WithKey("task/enabled")
//	fmt.Println(err) // "config error [source=file:mob.yaml, key=task/enabled]: value is not a boolean: ..."
type ConfigError struct {
	baseError
	Source string // layer source identifier (file path, env, cli)
	Key    string // section/key path
}

// NewConfigError creates a new ConfigError.
func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithSource adds the originating layer's source identifier to the error context.
func (e *ConfigError) WithSource(source string) *ConfigError {
	e.Source = source
	return e
}

// WithKey adds the offending section/key path to the error context.
func (e *ConfigError) WithKey(key string) *ConfigError {
	e.Key = key
	return e
}

// WithSeverity sets the error severity.
func (e *ConfigError) WithSeverity(s Severity) *ConfigError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *ConfigError) Error() string {
	var parts []string
	if e.Source != "" {
		parts = append(parts, fmt.Sprintf("source=%s", e.Source))
	}
	if e.Key != "" {
		parts = append(parts, fmt.Sprintf("key=%s", e.Key))
	}

	prefix := "config error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("config error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ConfigError) Is(target error) bool {
	if _, ok := target.(*ConfigError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ExecutionError represents a failed external operation of one task. It is
// recorded as that task's Failed reason and never propagated as a run-level
// error.
//
// Example:
//
//	err := errors.NewExecutionError("cmake configure failed", cause).
//	    WithTask("modorganizer-uibase").WithPhase("build")
type ExecutionError struct {
	baseError
	Task   string
	Phase  string
	Output string // captured command output, if any
}

// NewExecutionError creates a new ExecutionError.
func NewExecutionError(message string, cause error) *ExecutionError {
	return &ExecutionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithTask adds the task name to the error context.
func (e *ExecutionError) WithTask(name string) *ExecutionError {
	e.Task = name
	return e
}

// WithPhase adds the phase name (clean, fetch, build) to the error context.
func (e *ExecutionError) WithPhase(phase string) *ExecutionError {
	e.Phase = phase
	return e
}

// WithOutput adds captured command output to the error context.
func (e *ExecutionError) WithOutput(output string) *ExecutionError {
	e.Output = output
	return e
}

// WithSeverity sets the error severity.
func (e *ExecutionError) WithSeverity(s Severity) *ExecutionError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *ExecutionError) Error() string {
	var parts []string
	if e.Task != "" {
		parts = append(parts, fmt.Sprintf("task=%s", e.Task))
	}
	if e.Phase != "" {
		parts = append(parts, fmt.Sprintf("phase=%s", e.Phase))
	}

	prefix := "execution error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("execution error [%s]", strings.Join(parts, ", "))
	}

	msg := e.message
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.Output != "" {
		msg = fmt.Sprintf("%s\ncommand output: %s", msg, e.Output)
	}

	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Is checks if this error matches the target.
func (e *ExecutionError) Is(target error) bool {
	if _, ok := target.(*ExecutionError); ok {
		return true
	}
	if errors.Is(target, ErrTaskFailed) {
		return true
	}
	return e.baseError.Is(target)
}

// AbortError represents a task that was cancelled because a sibling task
// failed or the run was interrupted. Aborted is distinct from Failed in all
// reporting so operators can tell root cause from collateral stoppage.
//
// Example:
//
//	err := errors.NewAbortError("modorganizer-archive")
type AbortError struct {
	baseError
	Task string
}

// NewAbortError creates a new AbortError for the given task.
func NewAbortError(task string) *AbortError {
	return &AbortError{
		baseError: baseError{
			message:    "aborted",
			cause:      ErrAborted,
			severity:   SeverityWarning,
			userFacing: true,
		},
		Task: task,
	}
}

// WithCause replaces the default cause (e.g. with context.Canceled).
func (e *AbortError) WithCause(cause error) *AbortError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *AbortError) Error() string {
	if e.Task != "" {
		return fmt.Sprintf("abort [task=%s]: %s", e.Task, e.message)
	}
	return fmt.Sprintf("abort: %s", e.message)
}

// Is checks if this error matches the target.
func (e *AbortError) Is(target error) bool {
	if _, ok := target.(*AbortError); ok {
		return true
	}
	if errors.Is(target, ErrAborted) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// TaskNotFoundError represents a task selector (name, alias, or glob from an
// explicit selection) that resolved to no known task. Fatal before scheduling.
//
// Example:
//
//	err := errors.NewTaskNotFoundError("installer_*")
//	fmt.Println(err) // "task selector 'installer_*' matched nothing"
type TaskNotFoundError struct {
	baseError
	Selector string
}

// NewTaskNotFoundError creates a new TaskNotFoundError.
func NewTaskNotFoundError(selector string) *TaskNotFoundError {
	return &TaskNotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("task selector '%s' matched nothing", selector),
			cause:      ErrTaskNotFound,
			severity:   SeverityError,
			userFacing: true,
		},
		Selector: selector,
	}
}

// Error returns the formatted error message.
func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task selector '%s' matched nothing", e.Selector)
}

// Is checks if this error matches the target.
func (e *TaskNotFoundError) Is(target error) bool {
	if _, ok := target.(*TaskNotFoundError); ok {
		return true
	}
	if errors.Is(target, ErrTaskNotFound) {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state, such as a duplicate task
// name at registry construction.
//
// Example:
//
//	err := errors.NewValidationError("task name already registered")
//	err = err.WithField("name").WithValue("usvfs")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsAbort returns true if the error represents collateral cancellation rather
// than a genuine failure. This checks for:
//   - AbortError instances
//   - Errors wrapping ErrAborted or ErrInterrupted
//   - context.Canceled (the shape a cancelled external operation reports)
//
// The scheduler uses this, together with its own cancelled run context, to
// bucket a terminated task as Aborted instead of Failed.
func IsAbort(err error) bool {
	if err == nil {
		return false
	}

	var abortErr *AbortError
	if As(err, &abortErr) {
		return true
	}
	if Is(err, ErrAborted) || Is(err, ErrInterrupted) {
		return true
	}
	return Is(err, context.Canceled)
}

// IsUserFacing returns true if the error message is safe to display to end users.
// This checks for:
//   - Errors implementing MobError with IsUserFacing() returning true
//   - Semantic errors (TaskNotFoundError, ValidationError)
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var mobErr MobError
	if As(err, &mobErr) {
		return mobErr.IsUserFacing()
	}

	var notFound *TaskNotFoundError
	var validation *ValidationError
	if As(err, &notFound) || As(err, &validation) {
		return true
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement MobError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var mobErr MobError
	if As(err, &mobErr) {
		return mobErr.Severity()
	}

	return SeverityError
}

// IsFatal returns true if the error must stop the run before any task
// executes: configuration errors and unresolvable task selections.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var cfgErr *ConfigError
	var notFound *TaskNotFoundError
	return As(err, &cfgErr) || As(err, &notFound)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to load layer")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to load layer %s", source)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
