package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"bingohall/internal/api"
	"bingohall/internal/config"
	"bingohall/internal/database"
	"bingohall/internal/game"
	"bingohall/internal/websocket"
	pkgdatabase "bingohall/pkg/database"
)

// Application wires all components and owns their lifecycle.
// Initialization follows dependency order: store -> migrations ->
// coordinator -> gateway -> API -> HTTP server.
type Application struct {
	config      *config.Config
	store       *database.Store
	coordinator *game.Coordinator
	apiServer   *api.Server
	httpServer  *http.Server
}

// NewApplication builds the full component graph from configuration.
func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	dbConfig := &pkgdatabase.Config{
		DatabasePath:    cfg.Database.Path,
		MaxConnections:  10,
		ConnMaxLifetime: cfg.Database.Timeout,
		ConnMaxIdleTime: cfg.Database.Timeout / 3,
	}

	store, err := database.NewStore(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	migrator := pkgdatabase.NewMigrationManager(store.GetDB())
	if err := migrator.ApplyMigrations(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	if err := migrator.ValidateSchema(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	coordinator := game.NewCoordinator(store)
	wsHandler := websocket.NewHandler(coordinator, store)
	apiServer := api.NewServer(store, coordinator, cfg.JoinURL)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:      cfg,
		store:       store,
		coordinator: coordinator,
		apiServer:   apiServer,
		httpServer:  httpServer,
	}, nil
}

// Start begins serving. It returns once the listener is up or startup
// has failed.
func (app *Application) Start(ctx context.Context) error {
	log.Info().Str("addr", app.httpServer.Addr).Msg("starting bingohall")

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-time.After(100 * time.Millisecond):
		log.Info().Msg("bingohall started")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop shuts down in reverse dependency order: listener, live games,
// store. Game state is in-memory only; reconstruction-on-demand
// rebuilds it after the next start.
func (app *Application) Stop(ctx context.Context) error {
	log.Info().Msg("shutting down bingohall")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown error")
	}

	app.coordinator.Shutdown()

	if err := app.store.Close(); err != nil {
		log.Warn().Err(err).Msg("store shutdown error")
	}

	log.Info().Msg("bingohall shutdown complete")
	return nil
}

// Addr returns the server address for external connections.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}
