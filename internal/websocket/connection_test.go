package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bingohall/pkg/types"
)

// newConnPair upgrades a loopback websocket and returns the wrapped
// server side plus the raw client side.
func newConnPair(t *testing.T) (*Connection, *websocket.Conn) {
	t.Helper()

	upgraded := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wsConn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		upgraded <- wsConn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	var serverSide *websocket.Conn
	select {
	case serverSide = <-upgraded:
	case <-time.After(time.Second):
		t.Fatal("server side never upgraded")
	}

	conn := NewConnection(serverSide, "alice", types.RolePlayer, "ABC123")
	t.Cleanup(func() { _ = conn.Close() })

	return conn, client
}

func TestConnectionIdentity(t *testing.T) {
	conn, _ := newConnPair(t)

	assert.NotEmpty(t, conn.ID())
	assert.Equal(t, "alice", conn.UserID())
	assert.Equal(t, types.RolePlayer, conn.Role())
	assert.Equal(t, "ABC123", conn.SessionCode())
	assert.True(t, conn.IsOpen())
}

func TestConnectionDistinctIDs(t *testing.T) {
	a, _ := newConnPair(t)
	b, _ := newConnPair(t)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestSendDeliversInOrder(t *testing.T) {
	conn, client := newConnPair(t)

	payloads := []string{`{"type":"pong"}`, `{"type":"game-paused"}`, `{"type":"game-resumed"}`}
	for _, p := range payloads {
		require.NoError(t, conn.Send([]byte(p)))
	}

	for _, want := range payloads {
		require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
		messageType, data, err := client.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, messageType)
		assert.Equal(t, want, string(data))
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	conn, _ := newConnPair(t)

	require.NoError(t, conn.Close())
	assert.False(t, conn.IsOpen())

	err := conn.Send([]byte(`{}`))
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestCloseIsIdempotent(t *testing.T) {
	conn, _ := newConnPair(t)

	first := conn.Close()
	second := conn.Close()

	assert.NoError(t, first)
	assert.NoError(t, second)
}

func TestPeerDisconnectMarksConnectionClosed(t *testing.T) {
	conn, client := newConnPair(t)

	require.NoError(t, client.Close())

	// The write loop notices the broken transport on its next write.
	require.Eventually(t, func() bool {
		_ = conn.Send([]byte(`{}`))
		return !conn.IsOpen()
	}, 2*time.Second, 10*time.Millisecond)
}
