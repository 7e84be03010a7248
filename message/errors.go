package message

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownMessage = errors.New("unknown message id")
	ErrMalformed      = errors.New("malformed message")
	ErrDuplicateID    = errors.New("message id already registered")
	ErrListTooLong    = errors.New("list too long")
	ErrNoMessage      = errors.New("constructor returned no message")
)

// UnknownMessageError is returned when a frame carries an id that no message
// type was registered for. It is a protocol error, unlike a known message that
// simply has no handler.
type UnknownMessageError struct {
	ID ID
}

func (e *UnknownMessageError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnknownMessage, e.ID)
}

func (e *UnknownMessageError) Is(target error) bool {
	return target == ErrUnknownMessage
}
