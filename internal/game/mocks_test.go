package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"bingohall/pkg/interfaces"
	"bingohall/pkg/types"
)

// mockStore is an in-memory SessionStore with per-method failure
// injection. It enforces the same uniqueness rules as the SQLite schema
// so a duplicate draw surfaces as an error in tests too.
type mockStore struct {
	mu sync.Mutex

	sessions  map[string]*types.Session // keyed by code
	locations map[string]*types.Location
	eligible  []string
	reveals   []*types.RevealedLocation

	statusWrites []string // "<sessionID>:<status>" in write order
	mirrorWrites []int

	failMaxIndex     bool
	failListRevealed bool
	failCreateReveal bool
	failMirror       bool
	failStatus       bool
	failDetail       bool
}

func newMockStore() *mockStore {
	return &mockStore{
		sessions:  make(map[string]*types.Session),
		locations: make(map[string]*types.Location),
	}
}

// addSession registers a session and returns it for later inspection.
func (m *mockStore) addSession(code, status string, maxReveals int) *types.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	session := &types.Session{
		ID:             uuid.New().String(),
		Code:           code,
		Status:         status,
		RevealInterval: 5,
		MaxReveals:     maxReveals,
	}
	m.sessions[code] = session
	return session
}

// addLocations creates n eligible locations and returns their IDs.
func (m *mockStore) addLocations(n int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		loc := &types.Location{
			ID:   uuid.New().String(),
			Name: fmt.Sprintf("Location %d", i+1),
		}
		m.locations[loc.ID] = loc
		m.eligible = append(m.eligible, loc.ID)
		ids = append(ids, loc.ID)
	}
	return ids
}

// seedReveal inserts a pre-existing reveal row, simulating history left
// behind by a previous process.
func (m *mockStore) seedReveal(sessionID, locationID string, index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reveals = append(m.reveals, &types.RevealedLocation{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		LocationID:  locationID,
		RevealIndex: index,
		RevealedAt:  time.Now().UTC(),
	})
}

func (m *mockStore) revealCount(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, r := range m.reveals {
		if r.SessionID == sessionID {
			count++
		}
	}
	return count
}

func (m *mockStore) GetSessionByCode(_ context.Context, code string) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[code]
	if !ok {
		return nil, interfaces.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *mockStore) ListEligibleLocationIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.eligible...), nil
}

func (m *mockStore) ListRevealedLocationIDs(_ context.Context, sessionID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failListRevealed {
		return nil, fmt.Errorf("injected list failure")
	}
	var ids []string
	for _, r := range m.reveals {
		if r.SessionID == sessionID {
			ids = append(ids, r.LocationID)
		}
	}
	return ids, nil
}

func (m *mockStore) ListReveals(_ context.Context, sessionID string) ([]*types.RevealedLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*types.RevealedLocation
	for _, r := range m.reveals {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockStore) MaxRevealIndex(_ context.Context, sessionID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMaxIndex {
		return 0, fmt.Errorf("injected index failure")
	}
	max := 0
	for _, r := range m.reveals {
		if r.SessionID == sessionID && r.RevealIndex > max {
			max = r.RevealIndex
		}
	}
	return max, nil
}

func (m *mockStore) CreateRevealedLocation(_ context.Context, reveal *types.RevealedLocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreateReveal {
		return fmt.Errorf("injected write failure")
	}
	for _, r := range m.reveals {
		if r.SessionID == reveal.SessionID && r.LocationID == reveal.LocationID {
			return fmt.Errorf("UNIQUE constraint failed: revealed_locations.session_id, revealed_locations.location_id")
		}
		if r.SessionID == reveal.SessionID && r.RevealIndex == reveal.RevealIndex {
			return fmt.Errorf("UNIQUE constraint failed: revealed_locations.session_id, revealed_locations.reveal_index")
		}
	}
	copied := *reveal
	m.reveals = append(m.reveals, &copied)
	return nil
}

func (m *mockStore) UpdateSessionRevealIndex(_ context.Context, sessionID string, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMirror {
		return fmt.Errorf("injected mirror failure")
	}
	m.mirrorWrites = append(m.mirrorWrites, index)
	for _, session := range m.sessions {
		if session.ID == sessionID {
			session.CurrentRevealIndex = index
		}
	}
	return nil
}

func (m *mockStore) UpdateSessionStatus(_ context.Context, sessionID, status string, at *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failStatus {
		return fmt.Errorf("injected status failure")
	}
	m.statusWrites = append(m.statusWrites, sessionID+":"+status)
	for _, session := range m.sessions {
		if session.ID == sessionID {
			session.Status = status
			switch status {
			case types.StatusActive:
				if session.StartedAt == nil {
					session.StartedAt = at
				}
			case types.StatusEnded:
				session.EndedAt = at
			}
		}
	}
	return nil
}

func (m *mockStore) GetLocationDetail(_ context.Context, locationID string) (*types.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDetail {
		return nil, fmt.Errorf("injected detail failure")
	}
	loc, ok := m.locations[locationID]
	if !ok {
		return nil, interfaces.ErrLocationNotFound
	}
	copied := *loc
	return &copied, nil
}

func (m *mockStore) HealthCheck(context.Context) error { return nil }

func (m *mockStore) Close() error { return nil }

// mockConn records everything sent to it.
type mockConn struct {
	id     string
	userID string
	role   string
	code   string

	mu       sync.Mutex
	sent     [][]byte
	open     bool
	failSend bool
}

func newMockConn(userID, role, code string) *mockConn {
	return &mockConn{
		id:     uuid.New().String(),
		userID: userID,
		role:   role,
		code:   code,
		open:   true,
	}
}

func (c *mockConn) ID() string          { return c.id }
func (c *mockConn) UserID() string      { return c.userID }
func (c *mockConn) Role() string        { return c.role }
func (c *mockConn) SessionCode() string { return c.code }

func (c *mockConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open || c.failSend {
		return fmt.Errorf("connection closed")
	}
	c.sent = append(c.sent, append([]byte(nil), data...))
	return nil
}

func (c *mockConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *mockConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

// messages decodes everything the connection received into generic
// maps, in delivery order.
func (c *mockConn) messages() []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.sent))
	for _, data := range c.sent {
		var m map[string]any
		if err := json.Unmarshal(data, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// eventTypes returns the "type" tag of every received event in order.
func (c *mockConn) eventTypes() []string {
	var tags []string
	for _, m := range c.messages() {
		if t, ok := m["type"].(string); ok {
			tags = append(tags, t)
		}
	}
	return tags
}
