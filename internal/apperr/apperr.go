// Package apperr classifies failures so the HTTP layer and CLI can map them
// to status codes and user-facing notifications.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindImport     Kind = "import"
	KindStorage    Kind = "storage"
	// KindCorrupt marks persisted data that could not be decoded at startup.
	KindCorrupt Kind = "corrupt"
)

// StorageMessage is shown instead of the underlying storage error.
const StorageMessage = "não foi possível salvar os dados"

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Import(err error, format string, args ...any) *Error {
	return &Error{Kind: KindImport, Message: fmt.Sprintf(format, args...), Err: err}
}

func Storage(err error) *Error {
	return &Error{Kind: KindStorage, Message: StorageMessage, Err: err}
}

func Corrupt(err error, format string, args ...any) *Error {
	return &Error{Kind: KindCorrupt, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or KindStorage
// for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// HTTPStatus maps an error to the response code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindCorrupt:
		return http.StatusConflict
	case KindImport:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Message is the text safe to show a user. Storage causes are never exposed.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindStorage {
		if e.Err != nil && e.Kind == KindImport {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
	return StorageMessage
}
