package weather

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can branch on it.
type Kind string

const (
	KindUnknown              Kind = "unknown"
	KindNetworkFailure       Kind = "network_failure"
	KindAPIError             Kind = "api_error"
	KindInvalidResponseShape Kind = "invalid_response_shape"
	KindConfiguration        Kind = "configuration_error"
	KindInvalidInput         Kind = "invalid_input"
	KindLocationUnavailable  Kind = "location_unavailable"
	KindLocationTimeout      Kind = "location_timeout"
	KindLocationDenied       Kind = "location_denied"
)

// Error is a classified failure with a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status for KindAPIError, zero otherwise.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind, so sentinel comparisons work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is checks against a kind.
var (
	ErrNetworkFailure       = &Error{Kind: KindNetworkFailure}
	ErrAPIError             = &Error{Kind: KindAPIError}
	ErrInvalidResponseShape = &Error{Kind: KindInvalidResponseShape}
	ErrConfiguration        = &Error{Kind: KindConfiguration}
	ErrInvalidInput         = &Error{Kind: KindInvalidInput}
	ErrLocationUnavailable  = &Error{Kind: KindLocationUnavailable}
	ErrLocationTimeout      = &Error{Kind: KindLocationTimeout}
	ErrLocationDenied       = &Error{Kind: KindLocationDenied}
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the user-facing message for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

// NewError returns a classified error wrapping cause, which may be nil.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// IsLocationError reports whether err came from resolving the device location.
func IsLocationError(err error) bool {
	switch KindOf(err) {
	case KindLocationUnavailable, KindLocationTimeout, KindLocationDenied:
		return true
	}
	return false
}
