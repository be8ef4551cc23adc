package grid

import (
	"log"
	"math"
	"math/rand"
)

// Overlay effect timing in milliseconds. Spark and smoke durations get a
// per-effect random spread on top of the base.
const (
	sparkDurationBaseMs   = 600
	sparkDurationSpreadMs = 400
	smokeDurationBaseMs   = 1000
	smokeDurationSpreadMs = 500
	glowDurationMs        = 900
	finaleFragmentMs      = 1500
	finaleFragmentCount   = 24
)

// Dispatcher computes emission parameters for a flip and fans out to the
// canvas particle simulator and the overlay effect generators. It never
// owns state transitions; the engine calls it from inside the tick.
type Dispatcher struct {
	sim      *Simulator
	overlays *OverlaySet
	sched    *Scheduler
	rng      *rand.Rand

	gridSize int
	tickRate int

	burstParticles  int
	sparksPerClick  int
	smokePerClick   int
	glowsPerClick   int
	finaleParticles int
}

// NewDispatcher wires the dispatcher to the simulator, overlay set and
// scheduler it fans out to.
func NewDispatcher(cfg Config, sim *Simulator, overlays *OverlaySet, sched *Scheduler, rng *rand.Rand) *Dispatcher {
	return &Dispatcher{
		sim:             sim,
		overlays:        overlays,
		sched:           sched,
		rng:             rng,
		gridSize:        cfg.GridSize,
		tickRate:        cfg.TickRate,
		burstParticles:  cfg.BurstParticles,
		sparksPerClick:  cfg.ParticlesPerClick,
		smokePerClick:   cfg.SmokeParticlesPerClick,
		glowsPerClick:   cfg.GlowEffectsPerClick,
		finaleParticles: cfg.FinaleParticles,
	}
}

// HueBase maps a grid coordinate onto the blue-to-violet band: 240° at the
// top-left corner rising to 300° at the bottom-right.
func (d *Dispatcher) HueBase(row, col int) float64 {
	if d.gridSize <= 1 {
		return 240
	}
	return 240 + float64(row+col)/float64(2*(d.gridSize-1))*60
}

// EmitFlipEffects fans out all visual effects for a forward activation at
// the given grid coordinate and canvas position. Each branch fails locally:
// a panicking effect generator is logged and must not abort the cell's own
// flip transition or the other branches. Backward activations emit nothing;
// the engine simply does not call this for them.
func (d *Dispatcher) EmitFlipEffects(row, col int, x, y float64, now int64) {
	hueBase := d.HueBase(row, col)

	d.safeEmit("burst", func() {
		d.sim.SpawnBurst(x, y, hueBase, d.burstParticles)
	})
	d.safeEmit("sparks", func() {
		d.emitSparks(x, y, hueBase, now)
	})
	d.safeEmit("smoke", func() {
		d.emitSmoke(x, y, hueBase, now)
	})
	d.safeEmit("glow", func() {
		d.emitGlow(x, y, hueBase, now)
	})
}

// emitSparks spreads spark overlays at evenly spaced angles plus jitter,
// each with randomized outward distance and duration.
func (d *Dispatcher) emitSparks(x, y, hueBase float64, now int64) {
	if d.sparksPerClick <= 0 {
		return
	}
	step := 2 * math.Pi / float64(d.sparksPerClick)
	for i := 0; i < d.sparksPerClick; i++ {
		angle := step*float64(i) + (d.rng.Float64()-0.5)*step*0.5
		durMs := sparkDurationBaseMs + d.rng.Intn(sparkDurationSpreadMs)
		d.addOverlay(&OverlayEffect{
			Kind:     OverlaySpark,
			X:        x,
			Y:        y,
			Angle:    angle,
			Distance: 40 + d.rng.Float64()*60,
			Hue:      hueBase + (d.rng.Float64()-0.5)*30,
		}, durMs, now)
	}
}

// emitSmoke spawns upward-drifting smoke overlays.
func (d *Dispatcher) emitSmoke(x, y, hueBase float64, now int64) {
	for i := 0; i < d.smokePerClick; i++ {
		durMs := smokeDurationBaseMs + d.rng.Intn(smokeDurationSpreadMs)
		d.addOverlay(&OverlayEffect{
			Kind:     OverlaySmoke,
			X:        x + (d.rng.Float64()-0.5)*20,
			Y:        y,
			Angle:    -math.Pi/2 + (d.rng.Float64()-0.5)*0.6, // upward with sway
			Distance: 50 + d.rng.Float64()*40,
			Hue:      hueBase,
		}, durMs, now)
	}
}

// emitGlow spawns pulsing glow halos centered on the cell.
func (d *Dispatcher) emitGlow(x, y, hueBase float64, now int64) {
	for i := 0; i < d.glowsPerClick; i++ {
		d.addOverlay(&OverlayEffect{
			Kind:     OverlayGlow,
			X:        x,
			Y:        y,
			Distance: 30 + float64(i)*15, // halo radius
			Hue:      hueBase,
		}, glowDurationMs, now)
	}
}

// EmitFinale fires the grand-finale burst from the grid center: a large
// full-spectrum canvas burst plus radial overlay fragments.
func (d *Dispatcher) EmitFinale(centerX, centerY float64, now int64) {
	d.safeEmit("finale-burst", func() {
		d.sim.SpawnFinale(centerX, centerY, d.finaleParticles)
	})
	d.safeEmit("finale-fragments", func() {
		step := 2 * math.Pi / float64(finaleFragmentCount)
		for i := 0; i < finaleFragmentCount; i++ {
			d.addOverlay(&OverlayEffect{
				Kind:     OverlayFinaleFragment,
				X:        centerX,
				Y:        centerY,
				Angle:    step*float64(i) + (d.rng.Float64()-0.5)*step*0.5,
				Distance: 120 + d.rng.Float64()*80,
				Hue:      d.rng.Float64() * 360,
			}, finaleFragmentMs, now)
		}
	})
}

// addOverlay inserts the effect and schedules its single removal at the end
// of its animation duration. The removal is idempotent, so a cap eviction
// or reset racing ahead of the timer is harmless.
func (d *Dispatcher) addOverlay(e *OverlayEffect, durMs int, now int64) {
	e.StartTick = now
	e.Duration = d.ticksFor(durMs)
	id := d.overlays.Add(e)
	d.sched.Schedule(now+e.Duration, func() {
		d.overlays.Expire(id)
	})
}

func (d *Dispatcher) ticksFor(ms int) int64 {
	t := int64(ms) * int64(d.tickRate) / 1000
	if t < 1 {
		t = 1
	}
	return t
}

// safeEmit isolates one fan-out branch: a transient effect failure is
// caught and logged locally.
func (d *Dispatcher) safeEmit(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("effect emission %q failed: %v", name, r)
		}
	}()
	fn()
}
