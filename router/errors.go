package router

import "errors"

var (
	ErrDuplicateRequest    = errors.New("duplicate request")
	ErrNotCallable         = errors.New("handler is not callable")
	ErrIncompatibleMessage = errors.New("incompatible message type")
	ErrIncompatibleContext = errors.New("incompatible context type")
	ErrIncompatibleOwner   = errors.New("incompatible owner instance")
	ErrUnknownContainer    = errors.New("container is not registered")
)
