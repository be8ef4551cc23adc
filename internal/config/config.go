// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all grid and render settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
)

// =============================================================================
// CANVAS CONFIGURATION
// =============================================================================

// CanvasConfig holds the rendering surface settings.
// These values are shared between the grid engine and the frame broadcaster.
type CanvasConfig struct {
	Width  int // Canvas width in pixels
	Height int // Canvas height in pixels
	FPS    int // Frames per second (also used as engine tick rate)
}

// DefaultCanvas returns the default canvas configuration.
func DefaultCanvas() CanvasConfig {
	return CanvasConfig{
		Width:  960,
		Height: 960,
		FPS:    30,
	}
}

// CanvasFromEnv returns canvas configuration with environment variable overrides.
// Environment variables take precedence over defaults.
func CanvasFromEnv() CanvasConfig {
	cfg := DefaultCanvas()

	if w := getEnvInt("CANVAS_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvInt("CANVAS_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}
	if fps := getEnvInt("CANVAS_FPS", 0); fps > 0 {
		cfg.FPS = fps
	}

	return cfg
}

// =============================================================================
// GRID CONFIGURATION
// =============================================================================

// GridConfig holds grid geometry and per-activation effect counts.
type GridConfig struct {
	Size int // Grid is Size x Size cells

	// Effect counts per forward activation
	BurstParticles         int // Canvas particles per flip
	ParticlesPerClick      int // Radial spark overlays per flip
	SmokeParticlesPerClick int // Smoke overlays per flip
	GlowEffectsPerClick    int // Glow halo overlays per flip
	FinaleParticles        int // Canvas particles in the grand finale

	// Timing in milliseconds (converted to ticks at the engine tick rate)
	FlipDurationMs   int // Forward/backward animation duration
	FlipStaggerMs    int // Upper bound of the per-activation stagger
	FlipLockoutMs    int // Extra guard hold after a forward flip completes
	FinaleDelayMs    int // Delay between completion and the finale burst
	FinaleCooldownMs int // Cooldown before a completion can retrigger
}

// DefaultGrid returns the default grid configuration.
func DefaultGrid() GridConfig {
	return GridConfig{
		Size:                   9,
		BurstParticles:         30,
		ParticlesPerClick:      12,
		SmokeParticlesPerClick: 6,
		GlowEffectsPerClick:    3,
		FinaleParticles:        100,
		FlipDurationMs:         800,
		FlipStaggerMs:          100,
		FlipLockoutMs:          750,
		FinaleDelayMs:          500,
		FinaleCooldownMs:       5000,
	}
}

// GridFromEnv returns grid configuration with environment variable overrides.
func GridFromEnv() GridConfig {
	cfg := DefaultGrid()

	if s := getEnvInt("GRID_SIZE", 0); s > 0 {
		cfg.Size = s
	}
	if n := getEnvInt("GRID_PARTICLES_PER_CLICK", 0); n > 0 {
		cfg.ParticlesPerClick = n
	}
	if n := getEnvInt("GRID_SMOKE_PER_CLICK", 0); n > 0 {
		cfg.SmokeParticlesPerClick = n
	}
	if n := getEnvInt("GRID_GLOW_PER_CLICK", 0); n > 0 {
		cfg.GlowEffectsPerClick = n
	}

	return cfg
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls hard caps that bound per-frame cost and memory.
type ResourceLimits struct {
	MaxParticles      int // Live canvas particle cap (overflow evicts oldest half)
	MaxOverlayEffects int // Live overlay effect cap (overflow evicts oldest half)
	PoolCapacity      int // Particle pool free-list bound
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxParticles:      1000,
		MaxOverlayEffects: 200,
		PoolCapacity:      100,
	}
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port      int
	StaticDir string // Directory for the browser viewer shell
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:      3000,
		StaticDir: "./viewer",
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if d := os.Getenv("STATIC_DIR"); d != "" {
		cfg.StaticDir = d
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Canvas CanvasConfig
	Grid   GridConfig
	Limits ResourceLimits
	Server ServerConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Canvas: CanvasFromEnv(),
		Grid:   GridFromEnv(),
		Limits: DefaultLimits(),
		Server: ServerFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
