package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"bingohall/pkg/interfaces"
	"bingohall/pkg/types"
)

// Coordinator owns the table of live games: one ActiveGame per session
// code while the session is live. It exposes the lifecycle operations
// (start, pause, resume, end, manual reveal), routes inbound client
// messages, and is the only writer of the table.
//
// The coordinator is constructed once at process start and handed to
// the gateway and the HTTP surface; there is no ambient global state.
type Coordinator struct {
	store interfaces.SessionStore

	mu    sync.RWMutex
	games map[string]*ActiveGame
}

// NewCoordinator creates a coordinator backed by the given store.
func NewCoordinator(store interfaces.SessionStore) *Coordinator {
	return &Coordinator{
		store: store,
		games: make(map[string]*ActiveGame),
	}
}

// lookup returns the live game for a code, or nil.
func (c *Coordinator) lookup(code string) *ActiveGame {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.games[code]
}

// getOrCreate returns the live game for a code, creating a placeholder
// waiting game when none exists. Clients may connect before the game
// officially starts; Start later reuses the placeholder and its
// connection set.
func (c *Coordinator) getOrCreate(code string) *ActiveGame {
	c.mu.Lock()
	defer c.mu.Unlock()

	if g, ok := c.games[code]; ok {
		return g
	}
	g := newActiveGame(code)
	c.games[code] = g
	return g
}

// removeGame deletes a game from the table if the instance still
// matches, so a reconstruction racing an end cannot remove the wrong
// record.
func (c *Coordinator) removeGame(g *ActiveGame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.games[g.Code]; ok && current == g {
		delete(c.games, g.Code)
	}
}

// Start brings a session live: loads it from storage, snapshots the
// eligible location pool, starts the reveal scheduler, performs one
// immediate reveal so the first location appears without waiting a full
// interval, and broadcasts game-started.
//
// Storage errors during start propagate; the game is not live until
// Start returns nil error. Calling Start again while the game is
// already running returns the existing snapshot without drawing again.
func (c *Coordinator) Start(ctx context.Context, code string) (Snapshot, error) {
	session, err := c.store.GetSessionByCode(ctx, code)
	if err != nil {
		if errors.Is(err, interfaces.ErrSessionNotFound) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrInvalidSession, code)
		}
		return Snapshot{}, fmt.Errorf("failed to load session %s: %w", code, err)
	}

	if !types.IsStartableStatus(session.Status) {
		return Snapshot{}, fmt.Errorf("%w: %s is %s", ErrInvalidSession, code, session.Status)
	}

	if g := c.lookup(code); g != nil && g.Status() == types.StatusActive && g.scheduler.Running() {
		return g.Snapshot(), nil
	}

	locationIDs, err := c.store.ListEligibleLocationIDs(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load eligible locations: %w", err)
	}
	if len(locationIDs) == 0 {
		return Snapshot{}, ErrNoLocationsAvailable
	}

	// Reuse the placeholder created by early connections, preserving
	// its connection set.
	g := c.getOrCreate(code)

	g.startMu.Lock()
	defer g.startMu.Unlock()

	// Re-check under the lock: a concurrent start may have won the race
	// since the fast path above.
	if g.Status() == types.StatusActive && g.scheduler.Running() {
		return g.Snapshot(), nil
	}

	g.SessionID = session.ID
	g.MaxReveals = session.MaxReveals
	g.RevealInterval = intervalDuration(session.RevealInterval)
	g.setLocationIDs(locationIDs)
	g.setRevealIndex(session.CurrentRevealIndex)
	g.setStatus(types.StatusActive)

	now := time.Now().UTC()
	if err := c.store.UpdateSessionStatus(ctx, session.ID, types.StatusActive, &now); err != nil {
		g.setStatus(types.StatusWaiting)
		return Snapshot{}, fmt.Errorf("failed to persist session start: %w", err)
	}

	g.scheduler.Start(g.RevealInterval, func() bool { return c.timerTick(code) })

	// First reveal rides inside game-started rather than as a separate
	// location-revealed event. A transient failure here is not a start
	// failure: the scheduler retries on its first tick.
	result, err := c.revealNext(ctx, g, false)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("initial reveal failed, scheduler will retry")
	}

	if result != nil && result.Terminal {
		// Session was already at its limit; endGame has run.
		return g.Snapshot(), nil
	}

	c.broadcast(g, newGameStartedEvent(result.Payload()), nil)
	log.Info().Str("code", code).Int("locations", len(locationIDs)).Msg("game started")

	return g.Snapshot(), nil
}

// timerTick is the scheduler callback: one automatic reveal, then a
// decision whether the chain continues.
func (c *Coordinator) timerTick(code string) bool {
	g := c.lookup(code)
	if g == nil {
		return false
	}

	result, err := c.revealNext(context.Background(), g, true)
	if err != nil {
		// Transient storage failure: nothing was committed, so the
		// next tick retries from a re-synced index.
		log.Error().Err(err).Str("code", code).Msg("automatic reveal failed, will retry")
		return true
	}

	return !result.Terminal
}

// ManualReveal triggers one reveal outside the timer cadence. If no
// in-memory game exists (for example after a process restart) it is
// reconstructed from durable state first.
func (c *Coordinator) ManualReveal(ctx context.Context, code string) (*RevealResult, error) {
	g, err := c.getOrRestore(ctx, code)
	if err != nil {
		return nil, err
	}
	return c.revealNext(ctx, g, true)
}

// getOrRestore returns the live game for a code, reconstructing one
// from the durable session when the table has no entry. A placeholder
// holding early connections does not count: reveals need the durable
// fields Start populates. Sessions that never started or already ended
// are refused.
func (c *Coordinator) getOrRestore(ctx context.Context, code string) (*ActiveGame, error) {
	if g := c.lookup(code); g != nil && g.SessionID != "" && g.Status() != types.StatusEnded {
		return g, nil
	}

	session, err := c.store.GetSessionByCode(ctx, code)
	if err != nil {
		if errors.Is(err, interfaces.ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrGameNotFound, code)
		}
		return nil, fmt.Errorf("failed to load session %s: %w", code, err)
	}
	if types.IsTerminalStatus(session.Status) {
		return nil, fmt.Errorf("%w: %s has ended", ErrGameNotFound, code)
	}
	if session.Status != types.StatusActive && session.Status != types.StatusPaused {
		return nil, fmt.Errorf("%w: %s has not started", ErrGameNotFound, code)
	}

	locationIDs, err := c.store.ListEligibleLocationIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load eligible locations: %w", err)
	}

	index, err := c.store.MaxRevealIndex(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read reveal index: %w", err)
	}

	g := c.getOrCreate(code)
	g.SessionID = session.ID
	g.MaxReveals = session.MaxReveals
	g.RevealInterval = intervalDuration(session.RevealInterval)
	g.setLocationIDs(locationIDs)
	g.setRevealIndex(index)
	g.setStatus(session.Status)

	// An active session regains its automatic cadence; the first
	// reveal after reconstruction waits a full fresh interval.
	if session.Status == types.StatusActive {
		g.scheduler.Start(g.RevealInterval, func() bool { return c.timerTick(code) })
	}

	log.Info().
		Str("code", code).
		Str("status", session.Status).
		Int("index", index).
		Msg("reconstructed game from durable state")

	return g, nil
}

// Pause stops the automatic cadence. No-op when no game or no running
// timer exists. The status write is best-effort: gameplay must not
// stall on a transient storage failure.
func (c *Coordinator) Pause(ctx context.Context, code string) error {
	g := c.lookup(code)
	if g == nil || !g.scheduler.Running() {
		return nil
	}

	g.scheduler.Stop()
	g.setStatus(types.StatusPaused)

	if err := c.store.UpdateSessionStatus(ctx, g.SessionID, types.StatusPaused, nil); err != nil {
		log.Warn().Err(err).Str("code", code).Msg("failed to persist pause")
	}

	c.broadcast(g, gamePausedEvent(), nil)
	log.Info().Str("code", code).Msg("game paused")
	return nil
}

// Resume restarts the automatic cadence with a full fresh interval.
// No-op unless a started game is currently paused; in particular a
// pre-start lobby holding early connections must not gain a cadence it
// never had.
func (c *Coordinator) Resume(ctx context.Context, code string) error {
	g := c.lookup(code)
	if g == nil || g.SessionID == "" || g.Status() != types.StatusPaused {
		return nil
	}

	g.scheduler.Start(g.RevealInterval, func() bool { return c.timerTick(code) })
	g.setStatus(types.StatusActive)

	if err := c.store.UpdateSessionStatus(ctx, g.SessionID, types.StatusActive, nil); err != nil {
		log.Warn().Err(err).Str("code", code).Msg("failed to persist resume")
	}

	c.broadcast(g, gameResumedEvent(), nil)
	log.Info().Str("code", code).Msg("game resumed")
	return nil
}

// End terminates a game. No-op when no game exists.
func (c *Coordinator) End(ctx context.Context, code string) error {
	g := c.lookup(code)
	if g == nil {
		return nil
	}
	c.endGame(ctx, g)
	return nil
}

// endGame is the single termination path: stop the scheduler, persist
// ended status (best-effort), broadcast game-ended, drop the game from
// the table. Called from End, from the reveal engine's terminal paths,
// and idempotent across them.
func (c *Coordinator) endGame(ctx context.Context, g *ActiveGame) {
	if g.Status() == types.StatusEnded {
		return
	}

	g.scheduler.Stop()
	g.setStatus(types.StatusEnded)

	// A placeholder that never started has no durable identity yet.
	if g.SessionID != "" {
		now := time.Now().UTC()
		if err := c.store.UpdateSessionStatus(ctx, g.SessionID, types.StatusEnded, &now); err != nil {
			log.Warn().Err(err).Str("code", g.Code).Msg("failed to persist game end")
		}
	}

	c.broadcast(g, gameEndedEvent(), nil)
	c.removeGame(g)
	log.Info().Str("code", g.Code).Int("reveals", g.RevealIndex()).Msg("game ended")
}

// AddClient registers a connection under a session code, creating a
// placeholder waiting game when none exists. Always succeeds.
func (c *Coordinator) AddClient(code string, conn interfaces.Connection) {
	g := c.getOrCreate(code)
	g.AddConnection(conn)
}

// RemoveClient unregisters a connection. No-op when the game or the
// connection is absent.
func (c *Coordinator) RemoveClient(code string, conn interfaces.Connection) {
	if g := c.lookup(code); g != nil {
		g.RemoveConnection(conn.ID())
	}
}

// ConnectionCount reports the number of live connections for a code.
func (c *Coordinator) ConnectionCount(code string) int {
	if g := c.lookup(code); g != nil {
		return g.ConnectionCount()
	}
	return 0
}

// HandleMessage routes one inbound tagged message from a connection.
// Malformed or unknown messages are answered with an error event to the
// offending connection only.
func (c *Coordinator) HandleMessage(ctx context.Context, conn interfaces.Connection, data []byte) {
	var msg types.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		_ = c.SendTo(conn, ErrorEvent("malformed message"))
		return
	}

	code := conn.SessionCode()

	switch msg.Type {
	case types.MessageTypePing:
		_ = c.SendTo(conn, PongEvent())

	case types.MessageTypeManualReveal:
		if _, err := c.ManualReveal(ctx, code); err != nil {
			_ = c.SendTo(conn, ErrorEvent(err.Error()))
		}

	case types.MessageTypePause:
		if err := c.Pause(ctx, code); err != nil {
			_ = c.SendTo(conn, ErrorEvent(err.Error()))
		}

	case types.MessageTypeResume:
		if err := c.Resume(ctx, code); err != nil {
			_ = c.SendTo(conn, ErrorEvent(err.Error()))
		}

	case types.MessageTypeEnd:
		if err := c.End(ctx, code); err != nil {
			_ = c.SendTo(conn, ErrorEvent(err.Error()))
		}

	case types.MessageTypeBingoClaimed:
		userID := msg.UserID
		if userID == "" {
			userID = conn.UserID()
		}
		// Claim validation happens outside the coordinator; the live
		// surface only announces it.
		c.Broadcast(code, WinnerEvent(userID, msg.Place))

	default:
		_ = c.SendTo(conn, ErrorEvent(fmt.Sprintf("unknown message type %q", msg.Type)))
	}
}

// Stats reports table-level counters for the health surface.
func (c *Coordinator) Stats() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	connections := 0
	for _, g := range c.games {
		connections += g.ConnectionCount()
	}

	return map[string]int{
		"active_games": len(c.games),
		"connections":  connections,
	}
}

// Shutdown stops every scheduler and closes every connection. In-memory
// game state is not persisted; reconstruction-on-demand rebuilds it
// after restart.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	games := make([]*ActiveGame, 0, len(c.games))
	for _, g := range c.games {
		games = append(games, g)
	}
	c.games = make(map[string]*ActiveGame)
	c.mu.Unlock()

	for _, g := range games {
		g.scheduler.Stop()
		for _, conn := range g.Connections() {
			_ = conn.Close()
		}
	}
}

// intervalDuration converts the session's configured interval, stored
// in minutes, into a wall-clock duration. Converted once at schedule
// time.
func intervalDuration(minutes int) time.Duration {
	if minutes <= 0 {
		minutes = 1
	}
	return time.Duration(minutes) * time.Minute
}
