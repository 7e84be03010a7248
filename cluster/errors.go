package cluster

import "errors"

var (
	ErrInvalidConfig     = errors.New("invalid config")
	ErrReservedID        = errors.New("message id is reserved for the membership protocol")
	ErrUnexpectedMessage = errors.New("unexpected message")
	ErrStopped           = errors.New("stopped")
)
