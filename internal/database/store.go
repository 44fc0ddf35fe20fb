package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	dbconfig "bingohall/pkg/database"
	"bingohall/pkg/interfaces"
	"bingohall/pkg/types"
)

// Store implements interfaces.SessionStore on SQLite.
//
// Reads run concurrently against the pool; every write funnels through a
// single goroutine, which is how SQLite stays contention-free under WAL.
type Store struct {
	db           *sql.DB
	config       *dbconfig.Config
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex
}

// writeOperation represents a queued database write.
type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewStore opens the database, applies pragmas and starts the writer
// goroutine.
func NewStore(config *dbconfig.Config) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}

	if dir := filepath.Dir(config.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", config.DatabasePath+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := applySQLitePragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply SQLite pragmas: %w", err)
	}

	store := &Store{
		db:           db,
		config:       config,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
	}

	store.wg.Add(1)
	go store.writeLoop()

	return store, nil
}

// writeLoop processes all write operations in a single goroutine.
func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case op := <-s.writeChannel:
			op.result <- op.operation(s.db)

		case <-s.shutdown:
			// Drain queued writes so callers blocked on results unwind.
			for {
				select {
				case op := <-s.writeChannel:
					op.result <- op.operation(s.db)
				default:
					log.Debug().Msg("database write loop shutting down")
					return
				}
			}
		}
	}
}

// executeWrite queues a write operation and waits for completion.
func (s *Store) executeWrite(ctx context.Context, operation func(*sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("session store is closed")
	}
	s.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case s.writeChannel <- writeOperation{operation: operation, result: result}:
		select {
		case err := <-result:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	case <-ctx.Done():
		return ctx.Err()
	case <-s.shutdown:
		return fmt.Errorf("session store is shutting down")
	}
}

// GetSessionByCode retrieves a session by its shareable code.
func (s *Store) GetSessionByCode(ctx context.Context, code string) (*types.Session, error) {
	query := `
		SELECT id, code, status, reveal_interval_minutes, current_reveal_index,
		       max_reveals, started_at, ended_at
		FROM sessions
		WHERE code = ?
	`

	row := s.db.QueryRowContext(ctx, query, code)

	var session types.Session
	var startedAt, endedAt sql.NullTime

	err := row.Scan(
		&session.ID,
		&session.Code,
		&session.Status,
		&session.RevealInterval,
		&session.CurrentRevealIndex,
		&session.MaxReveals,
		&startedAt,
		&endedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, interfaces.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if startedAt.Valid {
		session.StartedAt = &startedAt.Time
	}
	if endedAt.Valid {
		session.EndedAt = &endedAt.Time
	}

	return &session, nil
}

// ListEligibleLocationIDs returns the identifiers of every active
// location.
func (s *Store) ListEligibleLocationIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM locations WHERE active = 1")
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible locations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan location id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ListRevealedLocationIDs returns the location ids already drawn for a
// session, in reveal-index order.
func (s *Store) ListRevealedLocationIDs(ctx context.Context, sessionID string) ([]string, error) {
	query := `
		SELECT location_id FROM revealed_locations
		WHERE session_id = ?
		ORDER BY reveal_index ASC
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query revealed locations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan revealed location id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// ListReveals returns the full reveal history for a session in
// reveal-index order.
func (s *Store) ListReveals(ctx context.Context, sessionID string) ([]*types.RevealedLocation, error) {
	query := `
		SELECT id, session_id, location_id, reveal_index, revealed_at
		FROM revealed_locations
		WHERE session_id = ?
		ORDER BY reveal_index ASC
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reveals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reveals []*types.RevealedLocation
	for rows.Next() {
		var reveal types.RevealedLocation
		err := rows.Scan(
			&reveal.ID,
			&reveal.SessionID,
			&reveal.LocationID,
			&reveal.RevealIndex,
			&reveal.RevealedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reveal row: %w", err)
		}
		reveals = append(reveals, &reveal)
	}

	return reveals, rows.Err()
}

// MaxRevealIndex returns the highest durably recorded reveal index for a
// session, 0 when nothing has been revealed yet.
func (s *Store) MaxRevealIndex(ctx context.Context, sessionID string) (int, error) {
	var index int
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(reveal_index), 0) FROM revealed_locations WHERE session_id = ?",
		sessionID,
	).Scan(&index)
	if err != nil {
		return 0, fmt.Errorf("failed to query max reveal index: %w", err)
	}
	return index, nil
}

// CreateRevealedLocation appends one reveal row.
func (s *Store) CreateRevealedLocation(ctx context.Context, reveal *types.RevealedLocation) error {
	return s.executeWrite(ctx, func(db *sql.DB) error {
		query := `
			INSERT INTO revealed_locations (id, session_id, location_id, reveal_index, revealed_at)
			VALUES (?, ?, ?, ?, ?)
		`
		_, err := db.ExecContext(ctx, query,
			reveal.ID,
			reveal.SessionID,
			reveal.LocationID,
			reveal.RevealIndex,
			reveal.RevealedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert revealed location: %w", err)
		}
		return nil
	})
}

// UpdateSessionRevealIndex mirrors the advanced index onto the session
// row.
func (s *Store) UpdateSessionRevealIndex(ctx context.Context, sessionID string, index int) error {
	return s.executeWrite(ctx, func(db *sql.DB) error {
		_, err := db.ExecContext(ctx,
			"UPDATE sessions SET current_reveal_index = ? WHERE id = ?",
			index, sessionID,
		)
		if err != nil {
			return fmt.Errorf("failed to update session reveal index: %w", err)
		}
		return nil
	})
}

// UpdateSessionStatus persists a status transition. A non-nil timestamp
// lands in started_at for the transition to active and in ended_at for
// the transition to ended.
func (s *Store) UpdateSessionStatus(ctx context.Context, sessionID, status string, at *time.Time) error {
	return s.executeWrite(ctx, func(db *sql.DB) error {
		var err error
		switch {
		case status == types.StatusActive && at != nil:
			_, err = db.ExecContext(ctx,
				"UPDATE sessions SET status = ?, started_at = COALESCE(started_at, ?) WHERE id = ?",
				status, at, sessionID,
			)
		case status == types.StatusEnded && at != nil:
			_, err = db.ExecContext(ctx,
				"UPDATE sessions SET status = ?, ended_at = ? WHERE id = ?",
				status, at, sessionID,
			)
		default:
			_, err = db.ExecContext(ctx,
				"UPDATE sessions SET status = ? WHERE id = ?",
				status, sessionID,
			)
		}
		if err != nil {
			return fmt.Errorf("failed to update session status: %w", err)
		}
		return nil
	})
}

// GetLocationDetail fetches the renderable payload for one location.
func (s *Store) GetLocationDetail(ctx context.Context, locationID string) (*types.Location, error) {
	query := `
		SELECT id, name, description, image_url, category
		FROM locations
		WHERE id = ?
	`

	row := s.db.QueryRowContext(ctx, query, locationID)

	var location types.Location
	err := row.Scan(
		&location.ID,
		&location.Name,
		&location.Description,
		&location.ImageURL,
		&location.Category,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, interfaces.ErrLocationNotFound
		}
		return nil, fmt.Errorf("failed to query location: %w", err)
	}

	return &location, nil
}

// CreateSession inserts a new session row. Session creation normally
// happens in the CRUD application; this exists for the HTTP surface and
// tests.
func (s *Store) CreateSession(ctx context.Context, session *types.Session) error {
	return s.executeWrite(ctx, func(db *sql.DB) error {
		query := `
			INSERT INTO sessions (id, code, status, reveal_interval_minutes,
			                      current_reveal_index, max_reveals, started_at, ended_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := db.ExecContext(ctx, query,
			session.ID,
			session.Code,
			session.Status,
			session.RevealInterval,
			session.CurrentRevealIndex,
			session.MaxReveals,
			session.StartedAt,
			session.EndedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
		return nil
	})
}

// CreateLocation inserts a new location row. Board curation normally
// happens in the CRUD application; this exists for seeding and tests.
func (s *Store) CreateLocation(ctx context.Context, location *types.Location, active bool) error {
	return s.executeWrite(ctx, func(db *sql.DB) error {
		query := `
			INSERT INTO locations (id, name, description, image_url, category, active)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		_, err := db.ExecContext(ctx, query,
			location.ID,
			location.Name,
			location.Description,
			location.ImageURL,
			location.Category,
			active,
		)
		if err != nil {
			return fmt.Errorf("failed to insert location: %w", err)
		}
		return nil
	})
}

// ListActiveSessions returns sessions that are live or about to be, for
// the HTTP inspection surface.
func (s *Store) ListActiveSessions(ctx context.Context) ([]*types.Session, error) {
	query := `
		SELECT id, code, status, reveal_interval_minutes, current_reveal_index,
		       max_reveals, started_at, ended_at
		FROM sessions
		WHERE status IN (?, ?, ?, ?)
		ORDER BY started_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query,
		types.StatusWaiting, types.StatusStarting, types.StatusActive, types.StatusPaused)
	if err != nil {
		return nil, fmt.Errorf("failed to query active sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*types.Session
	for rows.Next() {
		var session types.Session
		var startedAt, endedAt sql.NullTime

		err := rows.Scan(
			&session.ID,
			&session.Code,
			&session.Status,
			&session.RevealInterval,
			&session.CurrentRevealIndex,
			&session.MaxReveals,
			&startedAt,
			&endedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}

		if startedAt.Valid {
			session.StartedAt = &startedAt.Time
		}
		if endedAt.Valid {
			session.EndedAt = &endedAt.Time
		}

		sessions = append(sessions, &session)
	}

	return sessions, rows.Err()
}

// HealthCheck validates database connectivity.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&count); err != nil {
		return fmt.Errorf("database read test failed: %w", err)
	}

	return nil
}

// GetDB returns the underlying handle for migrations.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// Close shuts down the store. Queued writes drain before the connection
// closes.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

// applySQLitePragmas applies performance settings to the pool.
func applySQLitePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	return nil
}
