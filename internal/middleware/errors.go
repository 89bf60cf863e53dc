package middleware

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError reports a composition problem. Config errors are raised by
// Compose, before any action is dispatched.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	// Unit is the middleware the error is about.
	Unit string

	// Dependency is the missing dependency (MISSING_DEPENDENCY only).
	Dependency string

	// Path is the cycle, first node repeated at the end (CIRCULAR_DEPENDENCY only).
	Path []string
}

// ConfigErrorCode categorizes composition errors.
type ConfigErrorCode string

const (
	// ErrCodeDuplicate indicates two units registered under one name.
	ErrCodeDuplicate ConfigErrorCode = "DUPLICATE_MIDDLEWARE"

	// ErrCodeMissingDependency indicates a dependency on an unregistered unit.
	ErrCodeMissingDependency ConfigErrorCode = "MISSING_DEPENDENCY"

	// ErrCodeCircular indicates the dependency graph has a cycle.
	ErrCodeCircular ConfigErrorCode = "CIRCULAR_DEPENDENCY"

	// ErrCodeInvalidUnit indicates a unit without a name or function.
	ErrCodeInvalidUnit ConfigErrorCode = "INVALID_MIDDLEWARE"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if len(e.Path) > 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(e.Path, " -> "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigError returns true if err is a composition error of any kind.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsCycleError returns true if err reports a dependency cycle.
func IsCycleError(err error) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeCircular
	}
	return false
}

func newDuplicateError(name string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeDuplicate,
		Message: fmt.Sprintf("middleware %q is already registered", name),
		Unit:    name,
	}
}

func newMissingDependencyError(unit, dep string) *ConfigError {
	return &ConfigError{
		Code:       ErrCodeMissingDependency,
		Message:    fmt.Sprintf("middleware %q depends on %q, but it doesn't exist", unit, dep),
		Unit:       unit,
		Dependency: dep,
	}
}

func newCycleError(path []string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeCircular,
		Message: fmt.Sprintf("circular dependency detected involving %q", path[0]),
		Unit:    path[0],
		Path:    path,
	}
}
