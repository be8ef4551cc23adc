package api

import (
	"net/http"
	"time"

	"glowgrid/internal/grid"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the grid engine methods used by the API.
// This interface enables mocking for tests without spinning up the full
// tick loop. Keep this minimal - only what the API layer actually calls.
type EngineInterface interface {
	// Activate requests a flip for the cell at (row, col)
	Activate(row, col int) (bool, error)
	// Reset returns every cell to idle and clears all effects
	Reset()
	// Progress returns the flipped count and the total cell count
	Progress() (flipped, total int)
	// Snapshot returns the latest lock-free immutable snapshot
	Snapshot() *grid.GridSnapshot
}

// BroadcasterInterface defines the frame broadcaster methods used by the
// API. Enables mocking for tests that don't need actual rendering.
type BroadcasterInterface interface {
	// IsRunning reports whether the frame loop is active
	IsRunning() bool
	// Stats returns current rendering statistics
	Stats() map[string]interface{}
}

// RouterConfig contains all dependencies needed to construct the HTTP
// router. Designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine:      mockEngine,
//	    Broadcaster: mockBroadcaster,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the grid engine (required)
	Engine EngineInterface

	// Broadcaster is the frame broadcaster (required)
	Broadcaster BroadcasterInterface

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one is created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses
	// DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses the default development origins.
	CORSOrigins []string

	// StaticFilesDir is the directory the viewer page is served from.
	// If empty, defaults to "./viewer".
	StaticFilesDir string

	// DisableLogging disables the request logger middleware (useful for
	// benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	engine      EngineInterface
	broadcaster BroadcasterInterface
	muted       int32 // atomic; audio is a stub, only the flag round-trips
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: this function is PURE - it has no side effects:
//   - No goroutines are started
//   - No network listeners are opened
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - order matters
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(requestMetrics)

	// Rate limiting before CORS to reject early and save CPU
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{
		engine:      cfg.Engine,
		broadcaster: cfg.Broadcaster,
	}

	r.Route("/api", func(r chi.Router) {
		// Grid state
		r.Get("/state", h.handleGetState)
		r.Get("/progress", h.handleGetProgress)
		r.Get("/stats", h.handleGetStats)
		r.Get("/help", h.handleGetHelp)

		// Input
		r.Post("/activate", h.handleActivate)
		r.Post("/reset", h.handleReset)
		r.Post("/mute", h.handleMute)
	})

	// Viewer page
	staticDir := cfg.StaticFilesDir
	if staticDir == "" {
		staticDir = "./viewer"
	}
	r.Handle("/viewer/*", http.StripPrefix("/viewer/", http.FileServer(http.Dir(staticDir))))
	r.Get("/viewer", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/viewer/", http.StatusMovedPermanently)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/viewer/", http.StatusFound)
	})

	return r
}

// requestMetrics records latency and status per route pattern. The pattern,
// not the raw URL, keeps the metric cardinality bounded.
func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := chi.RouteContext(r.Context()).RoutePattern()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		RecordRequest(r.Method, endpoint, ww.Status(), time.Since(start))
	})
}
