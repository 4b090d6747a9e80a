package repositories

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed backend call
type ErrorKind int

const (
	// KindTransport covers unreachable hosts, timeouts and 5xx responses
	KindTransport ErrorKind = iota
	// KindAuth is a 401 or 403 on a protected call
	KindAuth
	// KindNotFound is a 404
	KindNotFound
	// KindValidation is a response whose shape could not be decoded
	KindValidation
	// KindRejection is any other 4xx; the message is shown verbatim
	KindRejection
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindRejection:
		return "rejection"
	default:
		return "unknown"
	}
}

// BackendError is the error type returned by InventoryBackend implementations
type BackendError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s error", e.Kind)
	}
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the user may reasonably try the call again
func (e *BackendError) Retryable() bool {
	return e.Kind == KindTransport
}

func kindOf(err error) (ErrorKind, bool) {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return 0, false
}

// IsAuthFailure reports whether err is a rejected or expired credential
func IsAuthFailure(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindAuth
}

// IsNotFound reports whether err is a 404 from the backend
func IsNotFound(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindNotFound
}

// IsRejection reports whether the backend declined the call on business grounds
func IsRejection(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindRejection
}

// IsTransport reports whether err is a network-level or server-side failure
func IsTransport(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindTransport
}

// IsValidation reports whether err is a malformed response
func IsValidation(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindValidation
}
