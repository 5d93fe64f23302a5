package models

import "fmt"

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrPrecondition ErrorType = iota
	ErrInvalidConfig
	ErrPackageNotFound
	ErrExternalTool
	ErrStateStore
	ErrIndexing
	ErrFileOp
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrPrecondition:
		return "Precondition"
	case ErrInvalidConfig:
		return "InvalidConfig"
	case ErrPackageNotFound:
		return "PackageNotFound"
	case ErrExternalTool:
		return "ExternalTool"
	case ErrStateStore:
		return "StateStore"
	case ErrIndexing:
		return "Indexing"
	case ErrFileOp:
		return "FileOp"
	default:
		return "Unknown"
	}
}

// BuildError represents an error during a repository build
type BuildError struct {
	Type    ErrorType
	Package string
	Err     error
}

// Error implements the error interface
func (e *BuildError) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Package, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *BuildError) Unwrap() error {
	return e.Err
}
