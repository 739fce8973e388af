// Package looperr defines the error taxonomy the route-generation pipeline
// branches on. There is no HTTP-transport mapping layer here: callers are
// expected to inspect errors with errors.Is/errors.As and decide for
// themselves how (or whether) to surface them.
package looperr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline error. See spec §7 for the propagation policy
// attached to each kind.
type Kind string

const (
	// KindInvalidRequest marks a malformed request: out-of-range distance,
	// non-positive tolerance, invalid coordinates, malformed preferences.
	// Surfaced to the caller; never retried.
	KindInvalidRequest Kind = "invalid_request"
	// KindStorage marks a POI repository failure. Surfaced.
	KindStorage Kind = "storage_error"
	// KindRouter marks a road-router failure. Swallowed mid-retry; surfaced
	// only if it prevents the geometric fallback from completing.
	KindRouter Kind = "router_error"
	// KindNoPOIsFound marks too few POI candidates for the waypoint
	// selector to pick from. Never surfaced: the generator moves on to the
	// next retry.
	KindNoPOIsFound Kind = "no_pois_found"
	// KindExhausted marks a generation that ran out of options: a single
	// attempt whose retries all missed the tolerance (logged, not
	// surfaced), or a failed geometric-loop fallback (surfaced).
	KindExhausted Kind = "route_generation_exhausted"
	// KindCache marks a cache backend failure. Never surfaced.
	KindCache Kind = "cache_error"
	// KindTimeout marks a request-deadline abort. Surfaced.
	KindTimeout Kind = "timeout"
)

// Error is a typed pipeline error carrying a Kind for branching plus a
// human-readable message and optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, looperr.New(kind, "")) match any *Error of the same
// Kind, whatever its message or cause. For a plain Kind value, use the
// package-level Is(err, kind).
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New builds an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err (or any error it wraps) has the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, or "" if err does not wrap an *Error.
// Useful for metrics labels, which need a plain string rather than an
// errors.Is branch per kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// InvalidRequest, Storage, Router, NoPOIsFound, Exhausted, Cache, and Timeout
// are terse constructors for the matching Kind, mirroring the teacher's
// NewError(code, message) convenience constructors in style.
func InvalidRequest(format string, args ...any) *Error {
	return New(KindInvalidRequest, fmt.Sprintf(format, args...))
}

func Storage(cause error, format string, args ...any) *Error {
	return Wrap(KindStorage, fmt.Sprintf(format, args...), cause)
}

func Router(cause error, format string, args ...any) *Error {
	return Wrap(KindRouter, fmt.Sprintf(format, args...), cause)
}

func NoPOIsFound(format string, args ...any) *Error {
	return New(KindNoPOIsFound, fmt.Sprintf(format, args...))
}

func Exhausted(format string, args ...any) *Error {
	return New(KindExhausted, fmt.Sprintf(format, args...))
}

func Cache(cause error, format string, args ...any) *Error {
	return Wrap(KindCache, fmt.Sprintf(format, args...), cause)
}

func Timeout(cause error, format string, args ...any) *Error {
	return Wrap(KindTimeout, fmt.Sprintf(format, args...), cause)
}
