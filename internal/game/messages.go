package game

import (
	"time"

	"bingohall/pkg/types"
)

// Outbound event envelopes. Each constructor returns a value the
// broadcast fan-out serializes exactly once.

type simpleEvent struct {
	Type string `json:"type"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type winnerEvent struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Place  int    `json:"place"`
}

type presenceEvent struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// RevealPayload is the renderable slice of one reveal. Location may be
// nil when the reveal committed but the detail fetch failed; clients
// fall back to the identifier.
type RevealPayload struct {
	Location    *types.Location `json:"location,omitempty"`
	LocationID  string          `json:"location_id"`
	RevealIndex int             `json:"reveal_index"`
	RevealedAt  time.Time       `json:"revealed_at"`
}

type locationRevealedEvent struct {
	Type string `json:"type"`
	RevealPayload
}

type gameStartedEvent struct {
	Type   string         `json:"type"`
	Reveal *RevealPayload `json:"reveal,omitempty"`
}

type sessionInfo struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Status string `json:"status"`
}

type connectedEvent struct {
	Type    string                    `json:"type"`
	Session sessionInfo               `json:"session"`
	Reveals []*types.RevealedLocation `json:"reveals"`
}

// PongEvent answers an inbound ping.
func PongEvent() any {
	return simpleEvent{Type: types.EventPong}
}

// ErrorEvent carries a human-readable failure back to one connection.
func ErrorEvent(message string) any {
	return errorEvent{Type: types.EventError, Message: message}
}

// WinnerEvent announces a claimed bingo to the whole session.
func WinnerEvent(userID string, place int) any {
	return winnerEvent{Type: types.EventWinnerFound, UserID: userID, Place: place}
}

// PlayerJoinedEvent announces a new connection's presence.
func PlayerJoinedEvent(userID, role string) any {
	return presenceEvent{Type: types.EventPlayerJoined, UserID: userID, Role: role}
}

// PlayerLeftEvent announces a departed connection.
func PlayerLeftEvent(userID, role string) any {
	return presenceEvent{Type: types.EventPlayerLeft, UserID: userID, Role: role}
}

// ConnectedEvent is the initial snapshot sent to a newly joined client:
// the session identity plus every prior reveal in index order.
func ConnectedEvent(session *types.Session, reveals []*types.RevealedLocation) any {
	if reveals == nil {
		reveals = []*types.RevealedLocation{}
	}
	return connectedEvent{
		Type: types.EventConnected,
		Session: sessionInfo{
			ID:     session.ID,
			Code:   session.Code,
			Status: session.Status,
		},
		Reveals: reveals,
	}
}

func gamePausedEvent() any  { return simpleEvent{Type: types.EventGamePaused} }
func gameResumedEvent() any { return simpleEvent{Type: types.EventGameResumed} }
func gameEndedEvent() any   { return simpleEvent{Type: types.EventGameEnded} }

func newGameStartedEvent(reveal *RevealPayload) any {
	return gameStartedEvent{Type: types.EventGameStarted, Reveal: reveal}
}

func newLocationRevealedEvent(payload RevealPayload) any {
	return locationRevealedEvent{Type: types.EventLocationRevealed, RevealPayload: payload}
}
