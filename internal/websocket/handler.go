package websocket

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"bingohall/internal/game"
	"bingohall/pkg/interfaces"
	"bingohall/pkg/types"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The gateway sits behind the same origin as the web app in
		// deployment; origin policy is enforced at the proxy.
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Handler is the connection gateway: it validates the upgrade request,
// hands the connection to the coordinator, replays the session snapshot
// and pumps inbound messages until the client disconnects.
type Handler struct {
	coordinator *game.Coordinator
	store       interfaces.SessionStore
}

// NewHandler creates a gateway bound to a coordinator and store.
func NewHandler(coordinator *game.Coordinator, store interfaces.SessionStore) *Handler {
	return &Handler{
		coordinator: coordinator,
		store:       store,
	}
}

// HandleWebSocket validates query parameters, checks the session exists
// and is not over, upgrades, and registers the client. Validation runs
// before the upgrade so invalid requests get proper HTTP errors instead
// of a dropped socket.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	userID := r.URL.Query().Get("user_id")
	role := r.URL.Query().Get("role")

	if code == "" || userID == "" || role == "" {
		http.Error(w, "missing required query parameters: code, user_id, role", http.StatusBadRequest)
		return
	}
	if !types.IsValidSessionCode(code) {
		http.Error(w, types.ErrInvalidSessionCode.Error(), http.StatusBadRequest)
		return
	}
	if !types.IsValidUserID(userID) {
		http.Error(w, types.ErrInvalidUserID.Error(), http.StatusBadRequest)
		return
	}
	if !types.IsValidRole(role) {
		http.Error(w, types.ErrInvalidRole.Error(), http.StatusBadRequest)
		return
	}

	session, err := h.store.GetSessionByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, interfaces.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
		} else {
			http.Error(w, "session lookup failed", http.StatusInternalServerError)
		}
		return
	}
	if types.IsTerminalStatus(session.Status) {
		http.Error(w, "session has ended", http.StatusGone)
		return
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("code", code).Msg("websocket upgrade failed")
		return
	}

	conn := NewConnection(wsConn, userID, role, code)
	h.coordinator.AddClient(code, conn)

	log.Info().
		Str("code", code).
		Str("user", userID).
		Str("role", role).
		Msg("client connected")

	h.sendSnapshot(conn, session)
	h.coordinator.BroadcastExcept(code, conn, game.PlayerJoinedEvent(userID, role))

	go h.handleConnection(conn, wsConn)
}

// sendSnapshot delivers the connected event: session identity plus the
// full reveal history in index order. A history read failure downgrades
// to an empty history rather than dropping the connection.
func (h *Handler) sendSnapshot(conn *Connection, session *types.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reveals, err := h.store.ListReveals(ctx, session.ID)
	if err != nil {
		log.Warn().Err(err).Str("code", session.Code).Msg("failed to load reveal history for snapshot")
	}

	if err := h.coordinator.SendTo(conn, game.ConnectedEvent(session, reveals)); err != nil {
		log.Warn().Err(err).Str("code", session.Code).Msg("failed to send connected snapshot")
	}
}

// handleConnection owns the read side of one connection: heartbeat
// deadlines, the inbound message pump, and cleanup on disconnect.
func (h *Handler) handleConnection(conn *Connection, wsConn *websocket.Conn) {
	code := conn.SessionCode()

	defer func() {
		h.coordinator.RemoveClient(code, conn)
		_ = conn.Close()
		h.coordinator.Broadcast(code, game.PlayerLeftEvent(conn.UserID(), conn.Role()))
		log.Info().Str("code", code).Str("user", conn.UserID()).Msg("client disconnected")
	}()

	if err := wsConn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return
	}
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := wsConn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	for {
		messageType, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("user", conn.UserID()).Msg("websocket read error")
			}
			return
		}

		if messageType == websocket.TextMessage {
			h.coordinator.HandleMessage(context.Background(), conn, data)
		}
	}
}
