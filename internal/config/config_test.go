package config_test

import (
	"testing"

	"glowgrid/internal/config"
)

// TestDefaults verifies the shipped defaults for the interactive grid
func TestDefaults(t *testing.T) {
	cfg := config.Load()

	if cfg.Grid.Size != 9 {
		t.Errorf("grid size: got %d, want 9", cfg.Grid.Size)
	}
	if cfg.Canvas.Width != 960 || cfg.Canvas.Height != 960 || cfg.Canvas.FPS != 30 {
		t.Errorf("canvas: got %dx%d@%d", cfg.Canvas.Width, cfg.Canvas.Height, cfg.Canvas.FPS)
	}
	if cfg.Limits.MaxParticles != 1000 || cfg.Limits.MaxOverlayEffects != 200 || cfg.Limits.PoolCapacity != 100 {
		t.Errorf("limits: got %+v", cfg.Limits)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("port: got %d, want 3000", cfg.Server.Port)
	}
	if cfg.Grid.FlipDurationMs != 800 || cfg.Grid.FlipLockoutMs != 750 {
		t.Errorf("flip timing: got %+v", cfg.Grid)
	}
}

// TestEnvOverrides verifies environment variables take precedence
func TestEnvOverrides(t *testing.T) {
	t.Setenv("GRID_SIZE", "5")
	t.Setenv("CANVAS_FPS", "60")
	t.Setenv("PORT", "8080")

	cfg := config.Load()

	if cfg.Grid.Size != 5 {
		t.Errorf("grid size override: got %d, want 5", cfg.Grid.Size)
	}
	if cfg.Canvas.FPS != 60 {
		t.Errorf("fps override: got %d, want 60", cfg.Canvas.FPS)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port override: got %d, want 8080", cfg.Server.Port)
	}
}

// TestInvalidEnvIgnored verifies malformed values fall back to defaults
func TestInvalidEnvIgnored(t *testing.T) {
	t.Setenv("GRID_SIZE", "not-a-number")
	t.Setenv("PORT", "-1")

	cfg := config.Load()

	if cfg.Grid.Size != 9 {
		t.Errorf("bad grid size should fall back: got %d", cfg.Grid.Size)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("negative port should fall back: got %d", cfg.Server.Port)
	}
}
