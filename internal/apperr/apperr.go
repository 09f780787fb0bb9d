// Package apperr defines the typed application error used across the control plane,
// generalizing the status/code/message shape of the HTTP middleware error handler to the
// kind taxonomy the upstream-provider and admission layers need.
package apperr

import (
	"errors"
	"net/http"
)

// Kind tags an Error with the category driving its HTTP status code and retry behavior.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindUnauthenticated    Kind = "unauthenticated"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "notfound"
	KindConflict           Kind = "conflict"
	KindUpstreamTransient  Kind = "upstream-transient"
	KindUpstreamPermanent  Kind = "upstream-permanent"
	KindQuotaExhausted     Kind = "quota-exhausted"
	KindCapacityUnavailable Kind = "capacity-unavailable"
	KindInternal           Kind = "internal"

	// KindSettingsConflict is the SPEC_FULL settings-versioning guard's distinct kind:
	// unlike KindConflict (a 400 per spec.md §6.1/§7/§8), a stale admin-settings write
	// is the one place this system deliberately returns 409, so it gets its own kind
	// rather than overloading KindConflict's status.
	KindSettingsConflict Kind = "settings-conflict"
)

// statusByKind is the fixed mapping from Kind to HTTP status (§7). KindConflict and
// KindQuotaExhausted map into spec.md §6.1's closed status set (400 and 403
// respectively, per §8's "yields 400 conflict" and §6.1's "403 ... or over quota");
// KindSettingsConflict is the sole SPEC_FULL addition outside that set.
var statusByKind = map[Kind]int{
	KindValidation:          http.StatusBadRequest,
	KindUnauthenticated:     http.StatusUnauthorized,
	KindForbidden:           http.StatusForbidden,
	KindNotFound:            http.StatusNotFound,
	KindConflict:            http.StatusBadRequest,
	KindUpstreamTransient:   http.StatusBadGateway,
	KindUpstreamPermanent:   http.StatusBadGateway,
	KindQuotaExhausted:      http.StatusForbidden,
	KindCapacityUnavailable: http.StatusServiceUnavailable,
	KindInternal:            http.StatusInternalServerError,
	KindSettingsConflict:    http.StatusConflict,
}

// Error is the typed error carried through the service and API layers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	Details map[string]interface{}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status for the error's kind, defaulting to 500 for an
// unrecognized or zero-value kind.
func (e *Error) StatusCode() int {
	if code, ok := statusByKind[e.Kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// Retryable reports whether the caller should retry the request that produced this
// error: true for upstream-transient and capacity-unavailable errors.
func (e *Error) Retryable() bool {
	return e.Kind == KindUpstreamTransient || e.Kind == KindCapacityUnavailable
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(KindValidation, message)
}

func Unauthenticated(message string) *Error {
	return New(KindUnauthenticated, message)
}

func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

func NotFound(resource string) *Error {
	return New(KindNotFound, resource+" not found")
}

func Conflict(message string) *Error {
	return New(KindConflict, message)
}

func SettingsConflict(message string) *Error {
	return New(KindSettingsConflict, message)
}

func UpstreamTransient(message string, err error) *Error {
	return Wrap(KindUpstreamTransient, message, err)
}

func UpstreamPermanent(message string, err error) *Error {
	return Wrap(KindUpstreamPermanent, message, err)
}

func QuotaExhausted(message string) *Error {
	return New(KindQuotaExhausted, message)
}

func CapacityUnavailable(message string) *Error {
	return New(KindCapacityUnavailable, message)
}

func Internal(err error) *Error {
	return Wrap(KindInternal, "internal error", err)
}

// As extracts an *Error from err, if any exists in its chain.
func As(err error) (*Error, bool) {
	var ae *Error
	ok := errors.As(err, &ae)
	return ae, ok
}
