package diffusion

import (
	"errors"
	"fmt"
)

// ConfigError reports a configuration problem found while building an
// Engine. It is always returned before the first iteration and is fatal to
// the run.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	// Parameter names the offending parameter, if any.
	Parameter string

	// Node names the offending node, if any.
	Node string
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeMissingParameter indicates a required parameter was not given.
	ErrCodeMissingParameter ConfigErrorCode = "MISSING_PARAMETER"

	// ErrCodeOutOfRange indicates a value outside its declared range.
	ErrCodeOutOfRange ConfigErrorCode = "OUT_OF_RANGE"

	// ErrCodeUnknownParameter indicates a parameter the model does not recognize.
	ErrCodeUnknownParameter ConfigErrorCode = "UNKNOWN_PARAMETER"

	// ErrCodeUnknownNode indicates a reference to a node not in the graph.
	ErrCodeUnknownNode ConfigErrorCode = "UNKNOWN_NODE"

	// ErrCodeUnknownStatus indicates a status name the model does not define.
	ErrCodeUnknownStatus ConfigErrorCode = "UNKNOWN_STATUS"

	// ErrCodeDuplicateNode indicates a node given two initial statuses.
	ErrCodeDuplicateNode ConfigErrorCode = "DUPLICATE_NODE"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	switch {
	case e.Parameter != "" && e.Node != "":
		return fmt.Sprintf("%s: %s (parameter=%s, node=%s)", e.Code, e.Message, e.Parameter, e.Node)
	case e.Parameter != "":
		return fmt.Sprintf("%s: %s (parameter=%s)", e.Code, e.Message, e.Parameter)
	case e.Node != "":
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// StateError reports a broken engine invariant. It indicates a programming
// error rather than bad input and is not recoverable.
type StateError struct {
	Message   string
	Iteration int
	Node      string
}

// Error implements the error interface.
func (e *StateError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("state error at iteration %d: %s (node=%s)", e.Iteration, e.Message, e.Node)
	}
	return fmt.Sprintf("state error at iteration %d: %s", e.Iteration, e.Message)
}

// IsConfigError returns true if err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsStateError returns true if err is or wraps a *StateError.
func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// ConfigErrorCodeOf returns the code of a wrapped *ConfigError, or "".
func ConfigErrorCodeOf(err error) ConfigErrorCode {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
