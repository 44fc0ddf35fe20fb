package game

import (
	"sync"
	"time"

	"bingohall/pkg/interfaces"
	"bingohall/pkg/types"
)

// ActiveGame is the in-memory runtime record for one live session. It
// mirrors the durable session fields the coordinator needs at reveal
// time, owns the per-game scheduler, and holds the set of live
// connections. It exists from the first client connection or the start
// command (whichever comes first) until the session ends.
type ActiveGame struct {
	// Immutable after Start populates them. A placeholder game created
	// by an early connection has an empty SessionID until then.
	SessionID      string
	Code           string
	RevealInterval time.Duration
	MaxReveals     int

	// revealMu serializes revealNext for this game: manual triggers and
	// timer fires both take it, so two reveals can never interleave
	// their read-decide-write sequence.
	revealMu sync.Mutex

	// startMu serializes Start for this game, so two concurrent start
	// calls cannot both pass the idempotency check and each draw a
	// first reveal.
	startMu sync.Mutex

	scheduler *Scheduler

	mu          sync.RWMutex
	status      string
	revealIndex int
	locationIDs []string
	conns       map[string]interfaces.Connection
}

// newActiveGame creates a placeholder game for a session code. Start
// fills in the durable fields later.
func newActiveGame(code string) *ActiveGame {
	return &ActiveGame{
		Code:      code,
		status:    types.StatusWaiting,
		scheduler: NewScheduler(),
		conns:     make(map[string]interfaces.Connection),
	}
}

// Status returns the current in-memory status.
func (g *ActiveGame) Status() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.status
}

func (g *ActiveGame) setStatus(status string) {
	g.mu.Lock()
	g.status = status
	g.mu.Unlock()
}

// RevealIndex returns the in-memory reveal counter. It may briefly run
// ahead of the session row while a reveal is being persisted.
func (g *ActiveGame) RevealIndex() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.revealIndex
}

func (g *ActiveGame) setRevealIndex(index int) {
	g.mu.Lock()
	g.revealIndex = index
	g.mu.Unlock()
}

// LocationIDs returns the immutable eligible-location snapshot taken at
// start.
func (g *ActiveGame) LocationIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.locationIDs
}

func (g *ActiveGame) setLocationIDs(ids []string) {
	g.mu.Lock()
	g.locationIDs = ids
	g.mu.Unlock()
}

// AddConnection inserts a connection into the game's registry. Always
// succeeds; a reconnect with the same connection ID replaces the entry.
func (g *ActiveGame) AddConnection(conn interfaces.Connection) {
	g.mu.Lock()
	g.conns[conn.ID()] = conn
	g.mu.Unlock()
}

// RemoveConnection removes a connection if present; no-op otherwise.
func (g *ActiveGame) RemoveConnection(connID string) {
	g.mu.Lock()
	delete(g.conns, connID)
	g.mu.Unlock()
}

// Connections returns a snapshot of the current connection set, safe to
// iterate while clients connect and disconnect concurrently.
func (g *ActiveGame) Connections() []interfaces.Connection {
	g.mu.RLock()
	defer g.mu.RUnlock()

	conns := make([]interfaces.Connection, 0, len(g.conns))
	for _, conn := range g.conns {
		conns = append(conns, conn)
	}
	return conns
}

// ConnectionCount returns the number of registered connections.
func (g *ActiveGame) ConnectionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.conns)
}

// Snapshot is the caller-facing view of an ActiveGame, returned by
// Start and the inspection API.
type Snapshot struct {
	Code            string        `json:"code"`
	Status          string        `json:"status"`
	RevealIndex     int           `json:"reveal_index"`
	MaxReveals      int           `json:"max_reveals"`
	RevealInterval  time.Duration `json:"reveal_interval"`
	ConnectionCount int           `json:"connection_count"`
}

// Snapshot captures the game's current state.
func (g *ActiveGame) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Snapshot{
		Code:            g.Code,
		Status:          g.status,
		RevealIndex:     g.revealIndex,
		MaxReveals:      g.MaxReveals,
		RevealInterval:  g.RevealInterval,
		ConnectionCount: len(g.conns),
	}
}
