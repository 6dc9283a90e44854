package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeStore represents relational store errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeNotFound represents missing-record errors
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeExtraction represents document extraction errors
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// ErrNoOperations is returned when undo is requested on an empty operation log
var ErrNoOperations = errors.New("no operations to undo")

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Graph Errors

// ErrGraphConnectionFailed is returned when the Neo4j connection fails
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// ErrGraphQueryFailed is returned when a graph query fails
type ErrGraphQueryFailed struct {
	*BaseError
	Operation string
}

func NewGraphQueryFailed(operation string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("graph operation failed: %s", operation), err),
		Operation: operation,
	}
}

// Not-found Errors

// ErrSubgraphNotFound is returned when a subgraph does not exist
type ErrSubgraphNotFound struct {
	*BaseError
	SubgraphID int64
}

func NewSubgraphNotFound(subgraphID int64) *ErrSubgraphNotFound {
	return &ErrSubgraphNotFound{
		BaseError:  NewBaseError(ErrorTypeNotFound, fmt.Sprintf("subgraph not found: %d", subgraphID), nil),
		SubgraphID: subgraphID,
	}
}

// ErrUserNotFound is returned when a user does not exist
type ErrUserNotFound struct {
	*BaseError
	UserID int64
}

func NewUserNotFound(userID int64) *ErrUserNotFound {
	return &ErrUserNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("user not found: %d", userID), nil),
		UserID:    userID,
	}
}

// ErrPersonaNotFound is returned when a user has no persona record
type ErrPersonaNotFound struct {
	*BaseError
	UserID int64
}

func NewPersonaNotFound(userID int64) *ErrPersonaNotFound {
	return &ErrPersonaNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("persona not found for user: %d", userID), nil),
		UserID:    userID,
	}
}

// Store Errors

// ErrStoreQueryFailed is returned when a relational store query fails
type ErrStoreQueryFailed struct {
	*BaseError
	Operation string
}

func NewStoreQueryFailed(operation string, err error) *ErrStoreQueryFailed {
	return &ErrStoreQueryFailed{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("store operation failed: %s", operation), err),
		Operation: operation,
	}
}

// Extraction Errors

// ErrMalformedExtraction is returned when the extraction payload has no usable shape.
// Callers treat this as "no graph change", not as a hard failure.
type ErrMalformedExtraction struct {
	*BaseError
}

func NewMalformedExtraction(err error) *ErrMalformedExtraction {
	return &ErrMalformedExtraction{
		BaseError: NewBaseError(ErrorTypeExtraction, "extraction payload malformed", err),
	}
}

// Helper functions

// Category returns the error's type; promoted into every typed error
// that embeds BaseError.
func (e *BaseError) Category() ErrorType { return e.Type }

type categorized interface{ Category() ErrorType }

// IsErrorType checks if an error (or any error it wraps) is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if c, ok := err.(categorized); ok {
			return c.Category() == errType
		}
		err = errors.Unwrap(err)
	}
	return false
}

// IsNotFound reports whether err is a missing-record error
func IsNotFound(err error) bool {
	return IsErrorType(err, ErrorTypeNotFound)
}
