package odoo

import (
	"errors"
	"fmt"
)

// Sentinels for server-side exception classes. A *TransportError matches the
// sentinel for its mapped class and every ancestor, so
// errors.Is(err, ErrUserError) holds for an access error too.
var (
	// ErrUserError is odoo.exceptions.UserError: a generic, expected,
	// user-facing failure (roughly a 400-class problem).
	ErrUserError = errors.New("odoo: user error")
	// ErrAccessDenied is odoo.exceptions.AccessDenied: login or API-key
	// authentication was rejected.
	ErrAccessDenied = errors.New("odoo: access denied")
	// ErrAccessError is odoo.exceptions.AccessError: the authenticated user
	// lacks the required ACL or record-rule rights.
	ErrAccessError = errors.New("odoo: access error")
	// ErrMissingRecord is odoo.exceptions.MissingError: the referenced
	// record no longer exists.
	ErrMissingRecord = errors.New("odoo: missing record")
	// ErrValidation is odoo.exceptions.ValidationError: a constraint was
	// violated during create/write.
	ErrValidation = errors.New("odoo: validation failed")

	// ErrServiceCallUnsupported is returned by the JSON-2 transport, which
	// has no generic service envelope.
	ErrServiceCallUnsupported = errors.New("odoo: service calls are not supported on the JSON-2 transport")
)

// serverExceptionMap maps fully-qualified server exception class names
// (data.name in error payloads) to sentinels. Unrecognized names map to
// nothing: the error stays a plain *TransportError.
var serverExceptionMap = map[string]error{
	"odoo.exceptions.UserError":       ErrUserError,
	"odoo.exceptions.AccessDenied":    ErrAccessDenied,
	"odoo.exceptions.AccessError":     ErrAccessError,
	"odoo.exceptions.MissingError":    ErrMissingRecord,
	"odoo.exceptions.ValidationError": ErrValidation,
}

// sentinelParent encodes the server exception hierarchy: the four specific
// classes all inherit from UserError.
var sentinelParent = map[error]error{
	ErrAccessDenied:  ErrUserError,
	ErrAccessError:   ErrUserError,
	ErrMissingRecord: ErrUserError,
	ErrValidation:    ErrUserError,
}

// TransportError is a protocol- or HTTP-level failure from either wire
// binding. Code carries the JSON-RPC error code or HTTP status; Data is the
// raw structured payload from the server, when present.
type TransportError struct {
	Code    int
	Message string
	Data    map[string]any

	kind error // most specific mapped sentinel, nil when unrecognized
}

// newTransportError builds the most specific error for a server payload by
// inspecting data["name"].
func newTransportError(message string, code int, data map[string]any) *TransportError {
	te := &TransportError{Code: code, Message: message, Data: data}
	if data != nil {
		if name, ok := data["name"].(string); ok {
			te.kind = serverExceptionMap[name]
		}
	}
	return te
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Is matches the mapped sentinel and its ancestors.
func (e *TransportError) Is(target error) bool {
	for kind := e.kind; kind != nil; kind = sentinelParent[kind] {
		if kind == target {
			return true
		}
	}
	return false
}

// AuthError reports that credentials were rejected or the identity could not
// be resolved. Err carries the underlying transport failure, if any.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return "authentication failed: " + e.Reason
}

func (e *AuthError) Unwrap() error { return e.Err }

// NotFoundError reports that a read expected to match exactly one record
// matched none.
type NotFoundError struct {
	Model string
	ID    int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("record %d not found in %s", e.ID, e.Model)
}
