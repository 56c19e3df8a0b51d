package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error kinds. Handlers map them to HTTP status codes with errors.Is.
var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnavailable     = errors.New("temporarily unavailable")
	ErrStorage         = errors.New("storage error")
)

// Error carries a kind, a message safe to show to the caller, and the underlying cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func validationError(msg string) error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func notFoundError(msg string) error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func conflictError(msg string) error {
	return &Error{Kind: ErrConflict, Message: msg}
}

func unauthenticatedError() error {
	return &Error{Kind: ErrUnauthenticated, Message: "Please log in first."}
}

// storageError classifies a collaborator failure. Deadlines and cancellations become
// ErrUnavailable so callers can tell the user to retry.
func storageError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: ErrUnavailable, Message: "The service is busy, please retry.", Err: fmt.Errorf("%s: %w", op, err)}
	}
	return &Error{Kind: ErrStorage, Message: "Internal server error.", Err: fmt.Errorf("%s: %w", op, err)}
}

// lookupError turns a record-not-found into msg as NotFound and anything else into a storage error.
func lookupError(op, msg string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundError(msg)
	}
	return storageError(op, err)
}

// passThrough keeps already classified errors intact when they bubble out of a transaction.
func passThrough(op string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return storageError(op, err)
}

// PublicMessage returns the caller-facing text of err.
func PublicMessage(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return "Internal server error."
}

func isConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
