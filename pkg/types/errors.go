package types

import "errors"

// Validation errors shared across the gateway and coordinator.
var (
	ErrInvalidSessionCode = errors.New("session code must be 4-12 uppercase alphanumeric characters")
	ErrInvalidUserID      = errors.New("user ID must be 1-50 characters, alphanumeric + underscore/hyphen only")
	ErrInvalidRole        = errors.New("role must be 'player', 'admin' or 'display'")
	ErrInvalidMessageType = errors.New("invalid message type")
)
