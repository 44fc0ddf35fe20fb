package interfaces

// Connection is the narrow capability the coordinator needs from a live
// client transport: push pre-serialized bytes, check liveness, close.
// The broadcast fan-out serializes an event once and hands the same byte
// slice to every connection, so Send must not retain or mutate data.
type Connection interface {
	// ID returns a unique identifier for this connection instance.
	// Distinct from the user: one user may reconnect and hold a new ID.
	ID() string

	// UserID returns the identity supplied at upgrade time.
	UserID() string

	// Role returns the client role ("player", "admin" or "display").
	Role() string

	// SessionCode returns the session this connection joined.
	SessionCode() string

	// Send queues pre-serialized bytes for delivery. Thread-safe; all
	// implementations funnel writes through a single writer to keep the
	// underlying transport race-free.
	Send(data []byte) error

	// IsOpen reports whether the connection can still accept sends.
	IsOpen() bool

	// Close tears down the transport and releases resources. Idempotent.
	Close() error
}
