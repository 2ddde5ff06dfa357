package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures so the API layer can map them to a status
type ErrorKind string

const (
	KindInvalidRecord        ErrorKind = "invalid_record"
	KindNotFound             ErrorKind = "not_found"
	KindStoreUnavailable     ErrorKind = "store_unavailable"
	KindRoundConflict        ErrorKind = "round_conflict"
	KindUnexpectedResultType ErrorKind = "unexpected_result_type"
	KindModelUnavailable     ErrorKind = "model_unavailable"
)

// Error is a pipeline error carrying its kind and the underlying cause
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works on wrapped errors
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Retryable reports whether the caller may retry the same request
func (e *Error) Retryable() bool {
	return e.Kind == KindStoreUnavailable
}

// Sentinels for errors.Is checks
var (
	ErrInvalidRecord        = &Error{Kind: KindInvalidRecord}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrStoreUnavailable     = &Error{Kind: KindStoreUnavailable}
	ErrRoundConflict        = &Error{Kind: KindRoundConflict}
	ErrUnexpectedResultType = &Error{Kind: KindUnexpectedResultType}
	ErrModelUnavailable     = &Error{Kind: KindModelUnavailable}
)

// NewError creates a kinded error
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func InvalidRecord(message string) *Error {
	return NewError(KindInvalidRecord, message, nil)
}

func StoreUnavailable(message string, err error) *Error {
	return NewError(KindStoreUnavailable, message, err)
}

// KindOf returns the kind of the first *Error in the chain, or "" when there is none
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
