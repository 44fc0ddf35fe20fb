package interfaces

import (
	"context"
	"time"

	"bingohall/pkg/types"
)

// SessionStore is the durable collaborator behind the coordinator: the
// record of sessions, the location pool and the append-only reveal
// history. Every method may block on storage and therefore takes a
// context.
//
// The revealed_locations rows are the source of truth for reveal
// progress; the current_reveal_index column on sessions is a best-effort
// mirror kept for the CRUD side of the application.
type SessionStore interface {
	// GetSessionByCode retrieves a session by its shareable code.
	// Returns ErrSessionNotFound when no such session exists.
	GetSessionByCode(ctx context.Context, code string) (*types.Session, error)

	// ListEligibleLocationIDs returns the identifiers of every location
	// currently eligible for play. Games snapshot this set at start.
	ListEligibleLocationIDs(ctx context.Context) ([]string, error)

	// ListRevealedLocationIDs returns the location identifiers already
	// drawn for a session, in reveal-index order.
	ListRevealedLocationIDs(ctx context.Context, sessionID string) ([]string, error)

	// ListReveals returns the full reveal history for a session in
	// reveal-index order, for the connected snapshot sent to new clients.
	ListReveals(ctx context.Context, sessionID string) ([]*types.RevealedLocation, error)

	// MaxRevealIndex returns the highest reveal index durably recorded
	// for a session, 0 when nothing has been revealed. This is the
	// authoritative counter the reveal engine re-syncs from.
	MaxRevealIndex(ctx context.Context, sessionID string) (int, error)

	// CreateRevealedLocation appends one reveal row. The UNIQUE
	// constraints on (session_id, location_id) and (session_id,
	// reveal_index) make duplicate draws and duplicate indices a storage
	// error rather than silent corruption.
	CreateRevealedLocation(ctx context.Context, reveal *types.RevealedLocation) error

	// UpdateSessionRevealIndex mirrors the advanced index onto the
	// session row. Best-effort from the engine's point of view.
	UpdateSessionRevealIndex(ctx context.Context, sessionID string, index int) error

	// UpdateSessionStatus persists a status transition. When at is
	// non-nil it is written to started_at (transition to active) or
	// ended_at (transition to ended).
	UpdateSessionStatus(ctx context.Context, sessionID, status string, at *time.Time) error

	// GetLocationDetail fetches the renderable payload for one location.
	// Returns ErrLocationNotFound when absent.
	GetLocationDetail(ctx context.Context, locationID string) (*types.Location, error)

	// HealthCheck verifies storage connectivity for the health endpoint.
	HealthCheck(ctx context.Context) error

	// Close releases the store. Pending writes complete first.
	Close() error
}
