package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"glowgrid/internal/api"
	"glowgrid/internal/config"
	"glowgrid/internal/grid"
	"glowgrid/internal/render"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("no .env file found, using environment variables only")
	}

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	canvasCfg := appConfig.Canvas
	gridCfg := appConfig.Grid
	serverCfg := appConfig.Server

	log.Printf("glowgrid: %dx%d cells, %dx%d canvas @ %d fps",
		gridCfg.Size, gridCfg.Size, canvasCfg.Width, canvasCfg.Height, canvasCfg.FPS)

	// Grid engine with centralized config
	engine := grid.NewEngine(grid.Config{
		TickRate:               canvasCfg.FPS, // tick in lockstep with the frame rate
		CanvasWidth:            canvasCfg.Width,
		CanvasHeight:           canvasCfg.Height,
		GridSize:               gridCfg.Size,
		BurstParticles:         gridCfg.BurstParticles,
		ParticlesPerClick:      gridCfg.ParticlesPerClick,
		SmokeParticlesPerClick: gridCfg.SmokeParticlesPerClick,
		GlowEffectsPerClick:    gridCfg.GlowEffectsPerClick,
		FinaleParticles:        gridCfg.FinaleParticles,
		FlipDurationMs:         gridCfg.FlipDurationMs,
		FlipStaggerMs:          gridCfg.FlipStaggerMs,
		FlipLockoutMs:          gridCfg.FlipLockoutMs,
		FinaleDelayMs:          gridCfg.FinaleDelayMs,
		FinaleCooldownMs:       gridCfg.FinaleCooldownMs,
		Limits: grid.Limits{
			MaxParticles:      appConfig.Limits.MaxParticles,
			MaxOverlayEffects: appConfig.Limits.MaxOverlayEffects,
			PoolCapacity:      appConfig.Limits.PoolCapacity,
		},
	})
	log.Printf("resource limits: %d particles, %d overlays, pool %d",
		appConfig.Limits.MaxParticles, appConfig.Limits.MaxOverlayEffects, appConfig.Limits.PoolCapacity)

	// Interaction event log
	eventLogPath := getEnvWithDefault("EVENT_LOG_PATH", "events.jsonl")
	if err := engine.EventLog().Start(eventLogPath); err != nil {
		log.Printf("event log disabled: %v", err)
	} else {
		log.Printf("event log: %s", eventLogPath)
	}

	// Debug server (pprof + prometheus), localhost only
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		if err := api.StartDebugServer(api.DefaultObservabilityConfig()); err != nil {
			log.Printf("debug server disabled: %v", err)
		}
	}

	// Metrics wiring
	engine.OnTick = api.RecordTick
	engine.OnFlip = func(flipped, total int) {
		api.RecordFlip()
		api.UpdateFlippedCells(flipped)
	}
	engine.OnFinale = api.RecordFinale

	// The hub is the broadcaster's frame sink and the engine's input edge
	hub := api.NewWebSocketHub(engine)

	broadcaster := render.NewBroadcaster(engine, render.Config{
		Width:  canvasCfg.Width,
		Height: canvasCfg.Height,
		FPS:    canvasCfg.FPS,
	}, hub)
	broadcaster.OnFrame = api.RecordFrame

	server := api.NewServer(engine, broadcaster, hub, serverCfg.StaticDir)

	engine.Start()
	broadcaster.Start()

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("shutting down...")
		broadcaster.Stop()
		engine.Stop()
		engine.EventLog().Stop()
		server.Stop()
		os.Exit(0)
	}()

	addr := ":" + strconv.Itoa(serverCfg.Port)
	if err := server.Start(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func getEnvWithDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
