// Package apperror defines the stable error kinds surfaced to API callers.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the stable, caller-visible classification of a failure.
type Kind string

const (
	KindValidation           Kind = "ValidationError"
	KindNotFound             Kind = "NotFound"
	KindUnsupportedMediaType Kind = "UnsupportedMediaType"
	KindPayloadTooLarge      Kind = "PayloadTooLarge"
	KindImageDecode          Kind = "ImageDecodeError"
	KindProcessing           Kind = "ProcessingError"
	KindStorageUnavailable   Kind = "StorageUnavailable"
	KindPersistence          Kind = "PersistenceError"
	KindInternal             Kind = "Internal"
)

// FieldError names one violated input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a classified failure. Message is safe to show to clients; Err is
// the internal cause and is only logged.
type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation builds a ValidationError listing every offending field.
func Validation(fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: "Invalid input", Fields: fields}
}

// NotFound hides whether the target never existed or was soft-deleted.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Status maps a kind to its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindValidation, KindUnsupportedMediaType, KindPayloadTooLarge, KindImageDecode:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
