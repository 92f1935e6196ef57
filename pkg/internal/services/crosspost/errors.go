package crosspost

import (
	"errors"
	"fmt"
)

// Error is a categorized cross-posting error.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on the code so wrapped sentinels compare equal.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

const (
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeConfiguration      = "CONFIGURATION_ERROR"
	ErrCodeAlreadyCrossposted = "ALREADY_CROSSPOSTED"
	ErrCodeInvalidRelation    = "INVALID_RELATION"
)

var (
	// ErrNotFound is returned by ports when the requested record does not exist.
	ErrNotFound = &Error{Code: ErrCodeNotFound, Message: "record not found"}

	// ErrAlreadyCrossposted rejects a second fan-out of the same logical event.
	ErrAlreadyCrossposted = &Error{Code: ErrCodeAlreadyCrossposted, Message: "topic already has cross-posted copies"}

	// ErrInvalidRelation rejects links that would break the one-level star graph.
	ErrInvalidRelation = &Error{Code: ErrCodeInvalidRelation, Message: "relation would nest duplicates"}
)

func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func NewErrorWithCause(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

func IsNotFound(err error) bool {
	var xerr *Error
	if errors.As(err, &xerr) {
		return xerr.Code == ErrCodeNotFound
	}
	return false
}
