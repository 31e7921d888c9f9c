package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind string

const (
	KindNotFound               Kind = "NOT_FOUND"
	KindValidation             Kind = "VALIDATION_FAILED"
	KindDuplicateKey           Kind = "DUPLICATE_KEY"
	KindAlreadyPosted          Kind = "ALREADY_POSTED"
	KindInvalidPhone           Kind = "INVALID_PHONE"
	KindUnsupportedForProvider Kind = "UNSUPPORTED_FOR_PROVIDER"
	KindPollURLMissing         Kind = "POLL_URL_MISSING"
	KindGatewayRejected        Kind = "GATEWAY_REJECTED"
	KindGatewayUnreachable     Kind = "GATEWAY_UNREACHABLE"
	KindPermissionDenied       Kind = "PERMISSION_DENIED"
	KindSignMismatch           Kind = "SIGN_MISMATCH"
	KindIDCollision            Kind = "ID_COLLISION"
	KindInternal               Kind = "INTERNAL"
)

// Error is a business error carrying a kind and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a business error.
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind of an error, KindInternal for uncategorized ones.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is lets business errors match on kind, so callers can compare against
// sentinel kinds with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// HTTPStatus maps an error kind to its response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindInvalidPhone, KindUnsupportedForProvider,
		KindPollURLMissing, KindGatewayRejected:
		return http.StatusBadRequest
	case KindDuplicateKey, KindAlreadyPosted:
		return http.StatusConflict
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindGatewayUnreachable:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Wrappers in common use across the services.

func NotFound(entity, id string) *Error {
	return New(KindNotFound, fmt.Sprintf("%s %s not found", entity, id), nil)
}

func Validation(message string) *Error {
	return New(KindValidation, message, nil)
}

func AlreadyPosted(event, ref string) *Error {
	return New(KindAlreadyPosted, fmt.Sprintf("%s already posted for %s", event, ref), nil)
}

func DuplicateKey(constraint string, err error) *Error {
	return New(KindDuplicateKey, fmt.Sprintf("duplicate key on %s", constraint), err)
}

func InvalidPhone(phone string) *Error {
	return New(KindInvalidPhone, fmt.Sprintf("phone %q is not a valid mobile number", phone), nil)
}

func UnsupportedForProvider(provider string) *Error {
	return New(KindUnsupportedForProvider, fmt.Sprintf("operation not supported for provider %s", provider), nil)
}

func PollURLMissing(paymentID string) *Error {
	return New(KindPollURLMissing, fmt.Sprintf("payment %s has no poll url", paymentID), nil)
}

func GatewayRejected(message string) *Error {
	return New(KindGatewayRejected, message, nil)
}

func GatewayUnreachable(err error) *Error {
	return New(KindGatewayUnreachable, "payment gateway unreachable", err)
}

func PermissionDenied(message string) *Error {
	return New(KindPermissionDenied, message, nil)
}

func SignMismatch(category string) *Error {
	return New(KindSignMismatch, fmt.Sprintf("ledger amount sign violates category %s", category), nil)
}

func IDCollision(prefix string, attempts int) *Error {
	return New(KindIDCollision, fmt.Sprintf("could not allocate %s identifier after %d attempts", prefix, attempts), nil)
}

func Internal(message string, err error) *Error {
	return New(KindInternal, message, err)
}
