package game

import "errors"

// Coordinator error types. These are precondition failures surfaced to
// the caller; transient storage failures are wrapped separately and
// retried by the scheduler.
var (
	ErrInvalidSession       = errors.New("session does not exist or cannot be started")
	ErrNoLocationsAvailable = errors.New("no eligible locations available for this session")
	ErrGameNotFound         = errors.New("no active game for this session")
)
