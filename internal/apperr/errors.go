// Package apperr defines the typed errors shared by form intake, the resume
// stores and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind identifies a specific failure.
type Kind string

const (
	KindMissingField Kind = "MISSING_FIELD"
	KindInvalidField Kind = "INVALID_FIELD"
	KindMissingFile  Kind = "MISSING_FILE"
	KindFileTooLarge Kind = "FILE_TOO_LARGE"

	KindMissingCredentials Kind = "MISSING_CREDENTIALS"
	KindAccessDenied       Kind = "ACCESS_DENIED"

	KindBackend Kind = "BACKEND_ERROR"
	KindIO      Kind = "IO_ERROR"
)

// Category groups kinds by who is at fault.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryAuth       Category = "auth"
	CategoryStorage    Category = "storage"
)

// Category reports the group a kind belongs to. Unknown kinds are storage
// failures.
func (k Kind) Category() Category {
	switch k {
	case KindMissingField, KindInvalidField, KindMissingFile, KindFileTooLarge:
		return CategoryValidation
	case KindMissingCredentials, KindAccessDenied:
		return CategoryAuth
	default:
		return CategoryStorage
	}
}

// Status maps a kind to the HTTP status returned to the applicant.
func (k Kind) Status() int {
	switch k {
	case KindMissingField, KindInvalidField, KindMissingFile:
		return http.StatusBadRequest
	case KindFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindAccessDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Message is safe to show to the applicant;
// Cause is for logs only.
type Error struct {
	Kind    Kind
	Message string
	Fields  []string
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if len(e.Fields) > 0 {
		msg += ": " + strings.Join(e.Fields, ", ")
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Status returns the HTTP status for the error.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies err under kind.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: err}
}

// MissingFields reports required form fields that were absent or blank.
func MissingFields(fields ...string) *Error {
	return &Error{Kind: KindMissingField, Message: "missing required fields", Fields: fields}
}

// InvalidFields reports form fields that are present but malformed.
func InvalidFields(fields ...string) *Error {
	return &Error{Kind: KindInvalidField, Message: "fields must be whole non-negative numbers", Fields: fields}
}

// MissingFile reports an absent file part or an empty filename.
func MissingFile(message string) *Error {
	return &Error{Kind: KindMissingFile, Message: message}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindBackend when err is unclassified.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindBackend
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	return KindOf(err).Status()
}
