package types

import (
	"time"
)

// Session status values. A session moves waiting -> starting -> active,
// may oscillate active <-> paused, and terminates at ended. Ended is
// terminal: no transition leaves it.
const (
	StatusWaiting  = "waiting"
	StatusStarting = "starting"
	StatusActive   = "active"
	StatusPaused   = "paused"
	StatusEnded    = "ended"
)

// Client roles accepted by the connection gateway.
const (
	RolePlayer  = "player"
	RoleAdmin   = "admin"
	RoleDisplay = "display"
)

// Inbound message tags (client -> coordinator).
const (
	MessageTypePing         = "ping"
	MessageTypeManualReveal = "manual-reveal"
	MessageTypePause        = "pause"
	MessageTypeResume       = "resume"
	MessageTypeEnd          = "end"
	MessageTypeBingoClaimed = "bingo-claimed"
)

// Outbound event tags (coordinator -> all connections in a session).
const (
	EventConnected        = "connected"
	EventGameStarted      = "game-started"
	EventLocationRevealed = "location-revealed"
	EventGamePaused       = "game-paused"
	EventGameResumed      = "game-resumed"
	EventGameEnded        = "game-ended"
	EventWinnerFound      = "winner-found"
	EventPlayerJoined     = "player-joined"
	EventPlayerLeft       = "player-left"
	EventError            = "error"
	EventPong             = "pong"
)

// Session is the durable record of one game, identified by a short
// human-shareable code. Only status, current_reveal_index and the two
// timestamps change after creation; everything else is immutable, which
// keeps the in-memory mirror in the coordinator simple.
type Session struct {
	ID                 string     `json:"id" db:"id"`
	Code               string     `json:"code" db:"code"`
	Status             string     `json:"status" db:"status"`
	RevealInterval     int        `json:"reveal_interval_minutes" db:"reveal_interval_minutes"`
	CurrentRevealIndex int        `json:"current_reveal_index" db:"current_reveal_index"`
	MaxReveals         int        `json:"max_reveals" db:"max_reveals"`
	StartedAt          *time.Time `json:"started_at,omitempty" db:"started_at"`
	EndedAt            *time.Time `json:"ended_at,omitempty" db:"ended_at"`
}

// Location is one spot on the bingo board. The coordinator only ever
// reads locations; board curation happens elsewhere.
type Location struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	ImageURL    string `json:"image_url" db:"image_url"`
	Category    string `json:"category" db:"category"`
}

// RevealedLocation is the append-only record of one draw. Within a
// session, RevealIndex values form a contiguous strictly-increasing
// sequence starting at 1, and no LocationID appears twice.
type RevealedLocation struct {
	ID          string    `json:"id" db:"id"`
	SessionID   string    `json:"session_id" db:"session_id"`
	LocationID  string    `json:"location_id" db:"location_id"`
	RevealIndex int       `json:"reveal_index" db:"reveal_index"`
	RevealedAt  time.Time `json:"revealed_at" db:"revealed_at"`
}

// ClientMessage is the decoded form of every inbound tagged message.
// Fields beyond Type are only populated for the tags that use them.
type ClientMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id,omitempty"`
	Place  int    `json:"place,omitempty"`
}

// IsTerminalStatus reports whether a session status admits no further
// transitions.
func IsTerminalStatus(status string) bool {
	return status == StatusEnded
}

// IsStartableStatus reports whether Start may act on a session in the
// given status. Active is included so a repeated start is idempotent
// rather than an error.
func IsStartableStatus(status string) bool {
	switch status {
	case StatusWaiting, StatusStarting, StatusActive:
		return true
	default:
		return false
	}
}
