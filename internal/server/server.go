package server

import (
	"net/http"
	"sync"

	"prompt-rush/internal/config"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

type Server struct {
	store    *Store
	db       *gorm.DB
	cfg      config.Config
	clock    clockwork.Clock
	registry *sessionRegistry
	images   ImageGenerator
	timersMu sync.Mutex
	timers   map[string]*roundTimer
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	clock := clockwork.NewRealClock()
	return &Server{
		store:    NewStore(),
		db:       conn,
		cfg:      cfg,
		clock:    clock,
		registry: newSessionRegistry(clock),
		images:   newImageGenerator(cfg),
		timers:   make(map[string]*roundTimer),
	}
}

// newWithClock wires a caller-supplied clock through the registry and timers.
func newWithClock(conn *gorm.DB, cfg config.Config, clock clockwork.Clock) *Server {
	srv := New(conn, cfg)
	srv.clock = clock
	srv.registry = newSessionRegistry(clock)
	return srv
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Drain announces the restart to every room, stops all timers, and closes
// every connection. Clients must leave their games rather than retry.
func (s *Server) Drain() {
	for _, summary := range s.store.ListGameSummaries() {
		s.broadcastToGame(summary.ID, msgServerRestart, map[string]any{
			"message": "server is restarting",
		})
		s.stopRoundTimer(summary.ID)
	}
	s.registry.Drain()
}
