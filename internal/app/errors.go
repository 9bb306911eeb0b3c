package app

import "errors"

var (
	ErrSessionClosed      = errors.New("session closed")
	ErrManagerStopped     = errors.New("session manager stopped")
	ErrInvariantViolation = errors.New("internal invariant violation")
)
