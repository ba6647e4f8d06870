package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph storage operations.
//
// Backends wrap these with detail via fmt.Errorf("...: %w", Err...) so that
// callers classify failures with errors.Is while still seeing the message.
// Wire adapters are the only layer that translates these categories into
// transport status codes.
var (
	// ErrConnectionFailed — backend unreachable. Retryable.
	ErrConnectionFailed = errors.New("connection failed")
	// ErrQueryFailed — malformed or unsupported query. Not retryable.
	ErrQueryFailed = errors.New("query failed")
	// ErrNodeNotFound — explicit node absence. Not retryable.
	ErrNodeNotFound = errors.New("node not found")
	// ErrEdgeNotFound — explicit edge absence. Not retryable.
	ErrEdgeNotFound = errors.New("edge not found")
	// ErrConstraintViolation — capacity cap, uniqueness breach, or invalid
	// temporal interval. Not retryable.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrTenantIsolation — a caller attempted to touch a record it does not
	// own. Never silently succeeds, never reveals existence.
	ErrTenantIsolation = errors.New("tenant isolation violation")
	// ErrTransactionFailed — backend transaction aborted. Potentially
	// retryable.
	ErrTransactionFailed = errors.New("transaction failed")
	// ErrTimeout — deadline exceeded. Retryable at the caller's discretion.
	ErrTimeout = errors.New("timeout")
	// ErrDatabase — backend-internal error with no finer category.
	ErrDatabase = errors.New("database error")
	// ErrTenantRequired — an operation that needs a tenant was invoked
	// without one. Raised by the tenant-validation plugin before the
	// operation executes.
	ErrTenantRequired = errors.New("tenant required")
)

// Retryable reports whether the error category permits a retry.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrConnectionFailed),
		errors.Is(err, ErrTransactionFailed),
		errors.Is(err, ErrTimeout):
		return true
	}
	return false
}

// ConstraintViolationf wraps ErrConstraintViolation with a formatted detail.
func ConstraintViolationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConstraintViolation, fmt.Sprintf(format, args...))
}

// NodeNotFoundf wraps ErrNodeNotFound with a formatted detail.
func NodeNotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNodeNotFound, fmt.Sprintf(format, args...))
}

// QueryFailedf wraps ErrQueryFailed with a formatted detail.
func QueryFailedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrQueryFailed, fmt.Sprintf(format, args...))
}

// Databasef wraps ErrDatabase with a formatted detail.
func Databasef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDatabase, fmt.Sprintf(format, args...))
}
