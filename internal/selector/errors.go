package selector

import (
	"errors"
	"fmt"
)

// ErrNodeReleased is returned when subscribing to a node whose last
// reference has been dropped.
var ErrNodeReleased = errors.New("selector: node released")

// ErrNilObserver is returned by Subscribe when given a nil observer.
var ErrNilObserver = errors.New("selector: nil observer")

// ConfigErrorCode categorizes graph construction errors.
type ConfigErrorCode string

const (
	// ErrCodeForeignDependency indicates a dependency owned by another graph.
	ErrCodeForeignDependency ConfigErrorCode = "FOREIGN_DEPENDENCY"

	// ErrCodeNilDependency indicates a nil dependency.
	ErrCodeNilDependency ConfigErrorCode = "NIL_DEPENDENCY"

	// ErrCodeReleasedDependency indicates a dependency with no references left.
	ErrCodeReleasedDependency ConfigErrorCode = "RELEASED_DEPENDENCY"

	// ErrCodeNilProducer indicates a missing producer function.
	ErrCodeNilProducer ConfigErrorCode = "NIL_PRODUCER"

	// ErrCodeNilSource indicates a graph built without a state source.
	ErrCodeNilSource ConfigErrorCode = "NIL_SOURCE"

	// ErrCodeEqualityMismatch indicates an equality option for the wrong type.
	ErrCodeEqualityMismatch ConfigErrorCode = "EQUALITY_MISMATCH"
)

// ConfigError is a graph construction error. These are programming errors:
// they are reported when the node is created and never at evaluation time.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	// Node is the name of the node being created, if known.
	Node string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigError reports whether err is, or wraps, a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsForeignDependency reports whether err is a foreign-graph dependency error.
func IsForeignDependency(err error) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeForeignDependency
	}
	return false
}

func newConfigError(code ConfigErrorCode, node, format string, args ...any) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Node:    node,
	}
}
