// Package apperrors defines the outcome taxonomy shared by every service:
// a caller must always be able to distinguish "you may not" from "it does
// not exist" from "your request is malformed".
package apperrors

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindAccessDenied
	KindNotFound
	KindInvalidRequest
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindAccessDenied:
		return "access_denied"
	case KindNotFound:
		return "not_found"
	case KindInvalidRequest:
		return "invalid_request"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

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

func (e *Error) Unwrap() error {
	return e.Err
}

func AccessDenied(message string) error {
	return &Error{Kind: KindAccessDenied, Message: message}
}

func NotFound(what string) error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func InvalidRequest(message string) error {
	return &Error{Kind: KindInvalidRequest, Message: message}
}

func Conflict(message string) error {
	return &Error{Kind: KindConflict, Message: message}
}

func Internal(message string, err error) error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf classifies any error; unrecognized errors are internal faults.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsAccessDenied(err error) bool   { return err != nil && KindOf(err) == KindAccessDenied }
func IsNotFound(err error) bool       { return err != nil && KindOf(err) == KindNotFound }
func IsInvalidRequest(err error) bool { return err != nil && KindOf(err) == KindInvalidRequest }
func IsConflict(err error) bool       { return err != nil && KindOf(err) == KindConflict }
