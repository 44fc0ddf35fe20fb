package game

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"bingohall/pkg/types"
)

// Terminal reasons carried on RevealResult.
const (
	TerminalMaxReveals    = "max-reveals"
	TerminalPoolExhausted = "pool-exhausted"
)

// RevealResult is the outcome of one revealNext call. Exactly one of
// these shapes comes back:
//   - Terminal: the game ended instead of revealing (designed completion).
//   - committed reveal: Index/LocationID/RevealedAt set, Location set
//     when the detail fetch succeeded.
//
// A retryable failure returns an error instead; the caller may retry on
// the next tick because no durable row was written.
type RevealResult struct {
	Terminal   bool
	Reason     string
	LocationID string
	Location   *types.Location
	Index      int
	RevealedAt time.Time
}

// Payload returns the broadcastable slice of a committed reveal.
func (r *RevealResult) Payload() *RevealPayload {
	if r == nil || r.Terminal {
		return nil
	}
	return &RevealPayload{
		Location:    r.Location,
		LocationID:  r.LocationID,
		RevealIndex: r.Index,
		RevealedAt:  r.RevealedAt,
	}
}

// revealNext advances one session's reveal state by exactly one step.
// Manual triggers and timer fires share this single code path, guarded
// by the game's revealMu, and both re-read the durable index before
// deciding, so indices stay contiguous no matter how calls interleave.
//
// When announce is true the committed reveal is broadcast as a
// location-revealed event; Start passes false and embeds the payload in
// game-started instead.
func (c *Coordinator) revealNext(ctx context.Context, g *ActiveGame, announce bool) (*RevealResult, error) {
	g.revealMu.Lock()
	defer g.revealMu.Unlock()

	// Re-sync from the authoritative rows. This defends against drift
	// from a previously failed mirror write and against a concurrent
	// reveal from another process sharing the database.
	index, err := c.store.MaxRevealIndex(ctx, g.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to sync reveal index: %w", err)
	}
	g.setRevealIndex(index)

	if index >= g.MaxReveals {
		c.endGame(ctx, g)
		return &RevealResult{Terminal: true, Reason: TerminalMaxReveals}, nil
	}

	revealed, err := c.store.ListRevealedLocationIDs(ctx, g.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list revealed locations: %w", err)
	}

	unrevealed := subtract(g.LocationIDs(), revealed)
	if len(unrevealed) == 0 {
		// Pool ran dry before max_reveals: a configuration
		// inconsistency, but the game still ends cleanly.
		log.Warn().
			Str("code", g.Code).
			Int("index", index).
			Int("max_reveals", g.MaxReveals).
			Msg("location pool exhausted before max reveals")
		c.endGame(ctx, g)
		return &RevealResult{Terminal: true, Reason: TerminalPoolExhausted}, nil
	}

	locationID := unrevealed[rand.IntN(len(unrevealed))]
	next := index + 1

	reveal := &types.RevealedLocation{
		ID:          uuid.New().String(),
		SessionID:   g.SessionID,
		LocationID:  locationID,
		RevealIndex: next,
		RevealedAt:  time.Now().UTC(),
	}

	// The in-memory counter advances first, then the authoritative row.
	// If the write fails the counter rolls back, so memory never claims
	// a reveal storage does not hold.
	g.setRevealIndex(next)
	if err := c.store.CreateRevealedLocation(ctx, reveal); err != nil {
		g.setRevealIndex(index)
		return nil, fmt.Errorf("failed to persist reveal %d: %w", next, err)
	}

	// Mirror the counter onto the session row. Best-effort: the reveal
	// row is the source of truth and the next sync heals any gap.
	if err := c.store.UpdateSessionRevealIndex(ctx, g.SessionID, next); err != nil {
		log.Warn().Err(err).
			Str("code", g.Code).
			Int("index", next).
			Msg("failed to mirror reveal index onto session")
	}

	result := &RevealResult{
		LocationID: locationID,
		Index:      next,
		RevealedAt: reveal.RevealedAt,
	}

	// The reveal is committed regardless of whether the detail fetch
	// succeeds; callers must not retry it.
	location, err := c.store.GetLocationDetail(ctx, locationID)
	if err != nil {
		log.Warn().Err(err).
			Str("code", g.Code).
			Str("location", locationID).
			Msg("reveal committed but location detail unavailable")
	} else {
		result.Location = location
	}

	log.Info().
		Str("code", g.Code).
		Str("location", locationID).
		Int("index", next).
		Msg("location revealed")

	if announce {
		c.broadcast(g, newLocationRevealedEvent(*result.Payload()), nil)
	}

	return result, nil
}

// subtract returns the members of all that do not appear in used.
func subtract(all, used []string) []string {
	usedSet := make(map[string]struct{}, len(used))
	for _, id := range used {
		usedSet[id] = struct{}{}
	}

	var remaining []string
	for _, id := range all {
		if _, ok := usedSet[id]; !ok {
			remaining = append(remaining, id)
		}
	}
	return remaining
}
