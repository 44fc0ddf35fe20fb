package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"bingohall/internal/database"
	"bingohall/internal/game"
	"bingohall/pkg/interfaces"
	"bingohall/pkg/types"
)

const qrSize = 256

// Server is the read-only HTTP surface next to the websocket gateway:
// health, session inspection and the join QR code. Session CRUD lives
// in the companion web application, not here.
type Server struct {
	store       *database.Store
	coordinator *game.Coordinator
	joinBaseURL string
	router      *http.ServeMux
}

// NewServer wires the inspection routes. joinBaseURL is the externally
// reachable base the QR code points at, e.g. "https://bingo.example.com".
func NewServer(store *database.Store, coordinator *game.Coordinator, joinBaseURL string) *Server {
	s := &Server{
		store:       store,
		coordinator: coordinator,
		joinBaseURL: strings.TrimSuffix(joinBaseURL, "/"),
		router:      http.NewServeMux(),
	}

	s.router.Handle("/api/sessions", s.jsonMiddleware(http.HandlerFunc(s.listSessions)))
	s.router.Handle("/api/sessions/", http.HandlerFunc(s.handleSessionByCode))
	s.router.Handle("/health", s.jsonMiddleware(http.HandlerFunc(s.healthCheck)))

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type sessionWithConnections struct {
	*types.Session
	ConnectionCount int `json:"connection_count"`
}

type sessionDetailResponse struct {
	Session         *types.Session            `json:"session"`
	Reveals         []*types.RevealedLocation `json:"reveals"`
	ConnectionCount int                       `json:"connection_count"`
}

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Database  string         `json:"database"`
	Games     map[string]int `json:"games"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// listSessions returns every non-ended session with its current
// connection count.
func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions, err := s.store.ListActiveSessions(r.Context())
	if err != nil {
		s.sendError(w, "failed to list sessions", http.StatusInternalServerError)
		return
	}

	out := make([]sessionWithConnections, len(sessions))
	for i, session := range sessions {
		out[i] = sessionWithConnections{
			Session:         session,
			ConnectionCount: s.coordinator.ConnectionCount(session.Code),
		}
	}

	_ = json.NewEncoder(w).Encode(map[string]any{"sessions": out})
}

// handleSessionByCode serves GET /api/sessions/{code} and
// GET /api/sessions/{code}/qr.
func (s *Server) handleSessionByCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(path, "/")
	code := parts[0]
	if code == "" || !types.IsValidSessionCode(code) {
		s.sendError(w, "invalid session code", http.StatusBadRequest)
		return
	}

	if len(parts) > 1 && parts[1] == "qr" {
		s.serveJoinQR(w, code)
		return
	}

	s.getSession(w, r, code)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request, code string) {
	w.Header().Set("Content-Type", "application/json")

	session, err := s.store.GetSessionByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, interfaces.ErrSessionNotFound) {
			s.sendError(w, "session not found", http.StatusNotFound)
		} else {
			s.sendError(w, "failed to get session", http.StatusInternalServerError)
		}
		return
	}

	reveals, err := s.store.ListReveals(r.Context(), session.ID)
	if err != nil {
		s.sendError(w, "failed to load reveal history", http.StatusInternalServerError)
		return
	}
	if reveals == nil {
		reveals = []*types.RevealedLocation{}
	}

	_ = json.NewEncoder(w).Encode(sessionDetailResponse{
		Session:         session,
		Reveals:         reveals,
		ConnectionCount: s.coordinator.ConnectionCount(code),
	})
}

// serveJoinQR renders a PNG QR code pointing at the join URL for a
// session, for the projector view at live events.
func (s *Server) serveJoinQR(w http.ResponseWriter, code string) {
	url := fmt.Sprintf("%s/join/%s", s.joinBaseURL, code)

	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		s.sendError(w, "failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// healthCheck proves storage connectivity and reports coordinator
// counters. Returns 503 when the database is unreachable.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	dbStatus := "healthy"

	if err := s.store.HealthCheck(ctx); err != nil {
		status = "unhealthy"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	response := healthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Database:  dbStatus,
		Games:     s.coordinator.Stats(),
	}

	if status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	_ = json.NewEncoder(w).Encode(response)
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
