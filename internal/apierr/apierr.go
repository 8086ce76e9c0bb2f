// Package apierr implements the kind-tagged error taxonomy from spec §7.
// Handlers map a Kind to an HTTP status or an outbound frame code; the
// kind, not the Go type, is what callers branch on.
package apierr

import "fmt"

// Kind is one row of the spec §7 error taxonomy.
type Kind string

const (
	KindInputValidation  Kind = "input_validation"
	KindAuth             Kind = "auth"
	KindAuthorization    Kind = "authorization"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindRemoteDependency Kind = "remote_dependency"
	KindInternal         Kind = "internal"
)

// Error is a kind-tagged error carrying a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error; otherwise it returns KindInternal, the conservative default.
func KindOf(err error) Kind {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind
	}
	return KindInternal
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// HTTPStatus maps a Kind to the status code spec §7 prescribes.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInputValidation:
		return 400
	case KindAuth:
		return 401
	case KindAuthorization:
		return 403
	case KindNotFound:
		return 404
	case KindConflict:
		return 400
	case KindRemoteDependency:
		return 502
	default:
		return 500
	}
}
