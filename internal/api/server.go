package api

import (
	"log"
	"net/http"
	"time"

	"glowgrid/internal/grid"
	"glowgrid/internal/render"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with the viewer hub for real-time delivery.
type Server struct {
	engine      *grid.Engine
	broadcaster *render.Broadcaster
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
}

// NewServer creates an API server with default production configuration
// and wires the hub into the engine: the hub carries frames and events
// out, and input and resize messages back in. The hub is passed in because
// the broadcaster needs it as its frame sink before the server exists.
//
// IMPORTANT: background workers do NOT start until Start() is called.
// This lets tests construct the server without goroutines or listeners.
// For testing HTTP endpoints without WebSocket support, use NewRouter()
// directly.
func NewServer(engine *grid.Engine, broadcaster *render.Broadcaster, hub *WebSocketHub, staticDir string) *Server {
	s := &Server{
		engine:      engine,
		broadcaster: broadcaster,
		wsHub:       hub,
	}

	s.wsHub.SetResizer(broadcaster)
	engine.SetAnnouncer(NewHubAnnouncer(s.wsHub))

	s.rateLimiter = NewIPRateLimiter(DefaultRateLimitConfig)

	s.router = NewRouter(RouterConfig{
		Engine:         engine,
		Broadcaster:    broadcaster,
		RateLimiter:    s.rateLimiter,
		StaticFilesDir: staticDir,
	})

	// WebSocket route needs the hub instance, so it can't live in the
	// pure NewRouter factory
	s.router.Get("/ws", s.handleWS)

	return s
}

// Start begins the HTTP server AND starts background workers.
// This is the only method that starts goroutines or opens listeners.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()
	go s.progressLoop()

	log.Printf("api server starting on %s", addr)
	log.Printf("viewer: http://localhost%s/viewer/", addr)

	return http.ListenAndServe(addr, s.router)
}

// Router returns the HTTP handler for use with httptest.
//
// Example:
//
//	server := api.NewServer(engine, broadcaster, hub, "./viewer")
//	ts := httptest.NewServer(server.Router())
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/progress")
func (s *Server) Router() http.Handler {
	return s.router
}

// Stop performs graceful shutdown of background workers.
func (s *Server) Stop() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// progressLoop periodically pushes grid progress to viewers and refreshes
// the engine gauges.
func (s *Server) progressLoop() {
	ticker := time.NewTicker(100 * time.Millisecond) // 10 updates per second
	var lastDropped uint64
	for range ticker.C {
		_, dropped, _ := s.engine.EventLog().Stats()
		AddEventsDropped(dropped - lastDropped)
		lastDropped = dropped

		if s.wsHub.ViewerCount() == 0 {
			continue
		}

		snap := s.engine.Snapshot()
		if snap == nil {
			continue
		}

		s.wsHub.Broadcast("grid:state", map[string]interface{}{
			"flipped":          snap.FlippedCount,
			"total":            snap.TotalCells,
			"completionActive": snap.CompletionActive,
			"cursor":           map[string]int{"row": snap.CursorRow, "col": snap.CursorCol},
		})

		UpdateFlippedCells(snap.FlippedCount)
		UpdateParticleCount(s.engine.ParticleCount())
		UpdateParticlePoolSize(s.engine.PoolSize())
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}
