// Package apperror defines the error taxonomy shared by the services,
// repositories and HTTP handlers.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind string

const (
	// KindInvalidReference: a required related entity does not exist.
	KindInvalidReference Kind = "INVALID_REFERENCE"
	// KindReferenceConflict: supplied related entities disagree with each other.
	KindReferenceConflict Kind = "REFERENCE_CONFLICT"
	// KindDuplicateKey: a unique constraint was violated on insert or update.
	KindDuplicateKey Kind = "DUPLICATE_KEY"
	// KindNotFound: an id did not resolve.
	KindNotFound Kind = "NOT_FOUND"
	// KindEmptyInput: an upload carried no bytes.
	KindEmptyInput Kind = "EMPTY_INPUT"
	// KindPayloadTooLarge: an upload exceeded the allowed size.
	KindPayloadTooLarge Kind = "PAYLOAD_TOO_LARGE"
	// KindValidation: a request field failed validation.
	KindValidation Kind = "VALIDATION"
	// KindStorageUnavailable: the store could not be reached.
	KindStorageUnavailable Kind = "STORAGE_UNAVAILABLE"
	// KindInternal: anything else.
	KindInternal Kind = "INTERNAL"
)

// Error is an application error with a kind and a client-facing message.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func InvalidReference(message string) *Error  { return New(KindInvalidReference, message) }
func ReferenceConflict(message string) *Error { return New(KindReferenceConflict, message) }
func DuplicateKey(message string) *Error      { return New(KindDuplicateKey, message) }
func NotFound(message string) *Error          { return New(KindNotFound, message) }
func EmptyInput(message string) *Error        { return New(KindEmptyInput, message) }
func PayloadTooLarge(message string) *Error   { return New(KindPayloadTooLarge, message) }
func Validation(message string) *Error        { return New(KindValidation, message) }

// StorageUnavailable wraps a connectivity failure.
func StorageUnavailable(err error) *Error {
	return Wrap(KindStorageUnavailable, "storage unavailable", err)
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// Message returns the client-facing message of err.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		if ae.Kind == KindInternal {
			return "internal server error"
		}
		return ae.Message
	}
	return "internal server error"
}

// HTTPStatus maps an error to the status code the REST surface reports.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidReference, KindReferenceConflict, KindDuplicateKey,
		KindEmptyInput, KindPayloadTooLarge, KindValidation:
		return http.StatusBadRequest
	case KindStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
