package game

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"bingohall/pkg/interfaces"
)

// broadcast serializes event once and pushes the bytes to every live
// connection in the game. Send failures and closed connections are
// collected, never propagated, and the offenders are pruned from the
// registry after the loop so membership is self-healing.
func (c *Coordinator) broadcast(g *ActiveGame, event any, excluded interfaces.Connection) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("code", g.Code).Msg("failed to serialize broadcast event")
		return
	}

	var dead []interfaces.Connection
	for _, conn := range g.Connections() {
		if excluded != nil && conn.ID() == excluded.ID() {
			continue
		}
		if !conn.IsOpen() {
			dead = append(dead, conn)
			continue
		}
		if err := conn.Send(data); err != nil {
			dead = append(dead, conn)
		}
	}

	for _, conn := range dead {
		g.RemoveConnection(conn.ID())
		_ = conn.Close()
		log.Debug().
			Str("code", g.Code).
			Str("user", conn.UserID()).
			Msg("pruned dead connection during broadcast")
	}
}

// Broadcast sends an event to every connection in the session's game.
// No-op if no game exists for the code.
func (c *Coordinator) Broadcast(code string, event any) {
	if g := c.lookup(code); g != nil {
		c.broadcast(g, event, nil)
	}
}

// BroadcastExcept sends an event to every connection except one, so a
// newly joined client does not receive its own join notification.
func (c *Coordinator) BroadcastExcept(code string, excluded interfaces.Connection, event any) {
	if g := c.lookup(code); g != nil {
		c.broadcast(g, event, excluded)
	}
}

// SendTo serializes an event for a single connection, used for direct
// replies (pong, error, connected snapshot).
func (c *Coordinator) SendTo(conn interfaces.Connection, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return conn.Send(data)
}
