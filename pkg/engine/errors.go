package engine

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of an engine error.
type ErrorClass string

const (
	// ErrorClassLifecycle indicates an operation that is invalid in the engine's current state.
	// Example: configuring an engine twice. The engine state is left untouched.
	ErrorClassLifecycle ErrorClass = "lifecycle"

	// ErrorClassInvalidArgument indicates a rejected argument.
	// Example: an empty root folder. The previous value is preserved.
	ErrorClassInvalidArgument ErrorClass = "invalid_argument"

	// ErrorClassUnmappedSeverity indicates a diagnostic severity with no trace level.
	ErrorClassUnmappedSeverity ErrorClass = "unmapped_severity"

	// ErrorClassConfiguration indicates a configuration script that failed to run.
	ErrorClassConfiguration ErrorClass = "configuration"

	// ErrorClassPipeline indicates a pipeline that failed during execution.
	ErrorClassPipeline ErrorClass = "pipeline"

	// ErrorClassCancelled indicates execution stopped because the context was done.
	ErrorClassCancelled ErrorClass = "cancelled"
)

// EngineError represents a classified error with context.
// nolint:revive // EngineError is intentionally named to distinguish from standard errors
type EngineError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Pipeline is the name of the pipeline that failed, if applicable.
	Pipeline string `json:"pipeline,omitempty"`

	// Ordinal is the 1-based position of the failed pipeline, if applicable.
	Ordinal int `json:"ordinal,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Pipeline != "" {
		msg = fmt.Sprintf("%s (pipeline=%s, ordinal=%d)", msg, e.Pipeline, e.Ordinal)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
// Two engine errors match when their class and code match.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// WithPipeline adds pipeline context to an error.
func (e *EngineError) WithPipeline(name string, ordinal int) *EngineError {
	e.Pipeline = name
	e.Ordinal = ordinal
	return e
}

// WithDetail adds a detail field to the error context.
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func newError(class ErrorClass, code, message string, err error) *EngineError {
	return &EngineError{
		Class:   class,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewLifecycleError creates a new lifecycle error.
func NewLifecycleError(message string) *EngineError {
	return newError(ErrorClassLifecycle, ErrCodeAlreadyConfigured, message, nil)
}

// NewInvalidArgumentError creates a new invalid argument error for the named argument.
func NewInvalidArgumentError(argument, message string) *EngineError {
	return newError(ErrorClassInvalidArgument, ErrCodeInvalidArgument, message, nil).
		WithDetail("argument", argument)
}

// NewConfigurationError creates a new configuration error.
func NewConfigurationError(message string, err error) *EngineError {
	return newError(ErrorClassConfiguration, ErrCodeScriptFailed, message, err)
}

// NewPipelineError creates a new pipeline execution error.
func NewPipelineError(name string, ordinal int, err error) *EngineError {
	return newError(ErrorClassPipeline, ErrCodePipelineFailed, "pipeline execution failed", err).
		WithPipeline(name, ordinal)
}

// Sentinel errors for errors.Is checks.
var (
	// ErrAlreadyConfigured is returned by Configure on an engine that is already configured.
	ErrAlreadyConfigured = &EngineError{Class: ErrorClassLifecycle, Code: ErrCodeAlreadyConfigured}

	// ErrInvalidArgument is returned when an argument fails validation.
	ErrInvalidArgument = &EngineError{Class: ErrorClassInvalidArgument, Code: ErrCodeInvalidArgument}

	// ErrUnmappedSeverity is returned when a diagnostic severity has no trace level.
	ErrUnmappedSeverity = &EngineError{Class: ErrorClassUnmappedSeverity, Code: ErrCodeUnmappedSeverity}
)

func hasClass(err error, class ErrorClass) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == class
	}
	return false
}

// IsLifecycle returns true if the error is a lifecycle violation.
func IsLifecycle(err error) bool {
	return hasClass(err, ErrorClassLifecycle)
}

// IsInvalidArgument returns true if the error is an invalid argument.
func IsInvalidArgument(err error) bool {
	return hasClass(err, ErrorClassInvalidArgument)
}

// IsUnmappedSeverity returns true if the error is an unmapped diagnostic severity.
func IsUnmappedSeverity(err error) bool {
	return hasClass(err, ErrorClassUnmappedSeverity)
}

// IsConfiguration returns true if the error came from a failed configuration.
func IsConfiguration(err error) bool {
	return hasClass(err, ErrorClassConfiguration)
}

// IsPipelineFailure returns true if the error came from a failed pipeline.
func IsPipelineFailure(err error) bool {
	return hasClass(err, ErrorClassPipeline)
}

// IsCancelled returns true if execution stopped because its context was done.
func IsCancelled(err error) bool {
	return hasClass(err, ErrorClassCancelled)
}

// Common error codes.
const (
	ErrCodeAlreadyConfigured = "ALREADY_CONFIGURED"
	ErrCodeInvalidArgument   = "INVALID_ARGUMENT"
	ErrCodeUnmappedSeverity  = "UNMAPPED_SEVERITY"
	ErrCodeScriptFailed      = "SCRIPT_FAILED"
	ErrCodePipelineFailed    = "PIPELINE_FAILED"
	ErrCodeCancelled         = "CANCELLED"
)
