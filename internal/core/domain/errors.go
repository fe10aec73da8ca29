package domain

import (
	"errors"
	"fmt"
)

// Kind is the stable category of a failure. The HTTP layer maps each kind to a
// status code; nothing below it knows about transports.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindInvalidToken Kind = "invalid_token"
	KindRateLimited  Kind = "rate_limited"
	KindInternal     Kind = "internal"
)

// Error carries a Kind, a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Cause == nil:
		return string(e.Kind)
	case e.Cause == nil:
		return e.Message
	case e.Message == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	default:
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrNotFound) match any *Error of the same kind. Only
// bare kind sentinels (no message, no cause) match by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" && t.Cause == nil {
		return t.Kind == e.Kind
	}
	return false
}

// Kind sentinels.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrInvalidToken = &Error{Kind: KindInvalidToken}
	ErrRateLimited  = &Error{Kind: KindRateLimited}
	ErrInternal     = &Error{Kind: KindInternal}
)

// Named sentinels returned by repositories and collaborators.
var (
	ErrUserNotFound       = &Error{Kind: KindNotFound, Message: "user does not exist"}
	ErrUserExists         = &Error{Kind: KindConflict, Message: "user with email or username already exists"}
	ErrChannelNotFound    = &Error{Kind: KindNotFound, Message: "channel does not exist"}
	ErrStaleRefreshToken  = &Error{Kind: KindUnauthorized, Message: "refresh token is expired or used"}
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Message: "invalid user credentials"}
)

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

func InvalidToken(cause error) error {
	return &Error{Kind: KindInvalidToken, Message: "invalid token", Cause: cause}
}

func Internal(msg string, cause error) error {
	return &Error{Kind: KindInternal, Message: msg, Cause: cause}
}

// KindOf reports the kind of err; errors that are not *Error are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message for err. Internal failures get a
// generic message so causes are not leaked.
func MessageOf(err error) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal {
		return "internal server error"
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}
