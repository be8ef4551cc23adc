package grid_test

import (
	"strings"
	"testing"

	"glowgrid/internal/grid"
)

func newTestEngine(size int) *grid.Engine {
	return grid.NewEngine(grid.Config{
		TickRate:               30,
		CanvasWidth:            960,
		CanvasHeight:           960,
		GridSize:               size,
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
	})
}

func step(e *grid.Engine, n int) {
	for i := 0; i < n; i++ {
		e.Step()
	}
}

type recordingAnnouncer struct {
	statuses []string
	alerts   []string
}

func (r *recordingAnnouncer) Status(msg string) { r.statuses = append(r.statuses, msg) }
func (r *recordingAnnouncer) Alert(msg string)  { r.alerts = append(r.alerts, msg) }

// TestActivateFlipCompletes verifies a forward flip transitions Idle ->
// AnimatingForward -> Flipped within its 800ms duration plus stagger
func TestActivateFlipCompletes(t *testing.T) {
	e := newTestEngine(9)

	started, err := e.Activate(0, 0)
	if err != nil || !started {
		t.Fatalf("activate: started=%v err=%v", started, err)
	}

	// 800ms duration at 30 TPS is 24 ticks, stagger adds at most 3
	step(e, 28)

	if flipped, _ := e.Progress(); flipped != 1 {
		t.Errorf("flipped count: got %d, want 1", flipped)
	}
	snap := e.Snapshot()
	if snap.Cells[0].State != grid.CellFlipped || !snap.Cells[0].Flipped {
		t.Errorf("cell state after flip: got %v", snap.Cells[0].State)
	}
}

// TestActivateOutOfRange verifies coordinate validation
func TestActivateOutOfRange(t *testing.T) {
	e := newTestEngine(9)

	for _, c := range [][2]int{{-1, 0}, {0, -1}, {9, 0}, {0, 9}} {
		if _, err := e.Activate(c[0], c[1]); err == nil {
			t.Errorf("activate(%d,%d): expected error", c[0], c[1])
		}
	}
}

// TestActivateDuringAnimationIgnored verifies the re-entrancy guard makes
// mid-animation activations a silent no-op through the lockout window
func TestActivateDuringAnimationIgnored(t *testing.T) {
	e := newTestEngine(9)

	e.Activate(2, 3)
	if started, err := e.Activate(2, 3); err != nil || started {
		t.Errorf("mid-animation activate: started=%v err=%v, want false nil", started, err)
	}

	// Complete the flip, then probe inside the 750ms lockout
	step(e, 28)
	if started, _ := e.Activate(2, 3); started {
		t.Error("activate inside lockout should be ignored")
	}

	// Guard clears 22 ticks after completion
	step(e, 25)
	if started, _ := e.Activate(2, 3); !started {
		t.Error("activate after lockout should start the backward flip")
	}
}

// TestBackwardFlipRestoresIdle verifies the flipped -> idle path decrements
// progress and spawns no new flip effects
func TestBackwardFlipRestoresIdle(t *testing.T) {
	e := newTestEngine(9)

	e.Activate(1, 1)
	step(e, 55) // forward flip plus lockout

	before := e.ParticleCount()
	started, _ := e.Activate(1, 1)
	if !started {
		t.Fatal("backward activation refused")
	}
	if e.ParticleCount() != before {
		t.Error("backward flip must not spawn particles")
	}

	step(e, 28)
	if flipped, _ := e.Progress(); flipped != 0 {
		t.Errorf("flipped count after unflip: got %d, want 0", flipped)
	}
	snap := e.Snapshot()
	idx := 1*9 + 1
	if snap.Cells[idx].State != grid.CellIdle {
		t.Errorf("cell state after unflip: got %v", snap.Cells[idx].State)
	}
}

// TestFinaleFiresExactlyOnce verifies completion triggers the finale once,
// round-trips within the cooldown do not retrigger it, and a reset arms it
// again
func TestFinaleFiresExactlyOnce(t *testing.T) {
	e := newTestEngine(2)

	finales := 0
	e.OnFinale = func() { finales++ }

	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			e.Activate(r, c)
		}
	}
	step(e, 60)

	if finales != 1 {
		t.Fatalf("finales after completion: got %d, want 1", finales)
	}

	// Unflip and reflip one cell while the cooldown is still running
	e.Activate(0, 0)
	step(e, 30)
	e.Activate(0, 0)
	step(e, 30)

	if finales != 1 {
		t.Errorf("finale retriggered inside cooldown: got %d", finales)
	}

	// A reset clears the completion flag, so a refilled grid celebrates again
	e.Reset()
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			e.Activate(r, c)
		}
	}
	step(e, 60)

	if finales != 2 {
		t.Errorf("finales after reset and refill: got %d, want 2", finales)
	}
}

// TestResetClearsEverything verifies reset snaps cells to idle, drops all
// particles and overlays, and invalidates pending transition callbacks
func TestResetClearsEverything(t *testing.T) {
	e := newTestEngine(9)

	e.Activate(0, 0)
	e.Activate(4, 4)
	step(e, 5) // mid-animation

	e.Reset()

	if flipped, _ := e.Progress(); flipped != 0 {
		t.Errorf("flipped count after reset: got %d", flipped)
	}
	if e.ParticleCount() != 0 {
		t.Errorf("particles after reset: got %d", e.ParticleCount())
	}
	for _, c := range e.Snapshot().Cells {
		if c.State != grid.CellIdle {
			t.Fatalf("cell (%d,%d) not idle after reset", c.Row, c.Col)
		}
	}

	// The completions scheduled before the reset must never land
	step(e, 40)
	if flipped, _ := e.Progress(); flipped != 0 {
		t.Errorf("stale completion fired after reset: flipped=%d", flipped)
	}

	e.Reset() // idempotent
	if flipped, _ := e.Progress(); flipped != 0 {
		t.Errorf("double reset changed state: flipped=%d", flipped)
	}
}

// TestKeyboardCursor verifies arrow movement with edge clamping, the corner
// jumps, and space activating the cursor cell
func TestKeyboardCursor(t *testing.T) {
	e := newTestEngine(9)

	e.HandleKey("ArrowUp") // already at top edge
	e.HandleKey("ArrowRight")
	e.Step() // cursor lands in the next published snapshot
	snap := e.Snapshot()
	if snap.CursorRow != 0 || snap.CursorCol != 1 {
		t.Errorf("cursor after ArrowRight: got (%d,%d), want (0,1)", snap.CursorRow, snap.CursorCol)
	}

	e.HandleKey("End")
	e.HandleKey("ArrowDown") // clamped at bottom edge
	e.Step()
	snap = e.Snapshot()
	if snap.CursorRow != 8 || snap.CursorCol != 8 {
		t.Errorf("cursor after End: got (%d,%d), want (8,8)", snap.CursorRow, snap.CursorCol)
	}

	e.HandleKey(" ")
	step(e, 28)
	snap = e.Snapshot()
	if !snap.Cells[8*9+8].Flipped {
		t.Error("space should flip the cursor cell")
	}

	e.HandleKey("Home")
	e.Step()
	snap = e.Snapshot()
	if snap.CursorRow != 0 || snap.CursorCol != 0 {
		t.Errorf("cursor after Home: got (%d,%d), want (0,0)", snap.CursorRow, snap.CursorCol)
	}
}

// TestActivateAtRoutesPointer verifies canvas positions resolve to the cell
// under them and the outer margin is dead space
func TestActivateAtRoutesPointer(t *testing.T) {
	e := newTestEngine(9)

	x, y := e.Layout().CellCenter(4, 4)
	if !e.ActivateAt(x, y) {
		t.Fatal("pointer on cell center should activate")
	}
	step(e, 28)
	snap := e.Snapshot()
	if !snap.Cells[4*9+4].Flipped {
		t.Error("pointer activation flipped the wrong cell")
	}

	if e.ActivateAt(1, 1) {
		t.Error("pointer in the outer margin should be ignored")
	}
	if e.ActivateAt(-10, 500) {
		t.Error("pointer off-canvas should be ignored")
	}
}

// TestResizeRecomputesLayout verifies new canvas dimensions land in the
// layout and the published snapshot
func TestResizeRecomputesLayout(t *testing.T) {
	e := newTestEngine(9)

	e.Resize(640, 480)

	l := e.Layout()
	if l.Width != 640 || l.Height != 480 {
		t.Errorf("layout dims: got %dx%d, want 640x480", l.Width, l.Height)
	}
	snap := e.Snapshot()
	if snap.Width != 640 || snap.Height != 480 {
		t.Errorf("snapshot dims: got %dx%d, want 640x480", snap.Width, snap.Height)
	}

	e.Resize(0, -5) // ignored
	if l := e.Layout(); l.Width != 640 {
		t.Error("invalid resize should be ignored")
	}
}

// TestViewerGatingSuspendsParticles verifies the simulation only advances
// while at least one viewer is connected
func TestViewerGatingSuspendsParticles(t *testing.T) {
	e := newTestEngine(9)

	e.Activate(0, 0)
	if e.ParticleCount() != 30 {
		t.Fatalf("burst particles: got %d, want 30", e.ParticleCount())
	}

	// No viewers: particles are frozen, not aging
	step(e, 200)
	if e.ParticleCount() != 30 {
		t.Errorf("particles aged with no viewers: got %d", e.ParticleCount())
	}

	// Max particle life is 150 ticks
	e.SetViewerCount(1)
	step(e, 200)
	if e.ParticleCount() != 0 {
		t.Errorf("particles survived past max life: got %d", e.ParticleCount())
	}
	if e.PoolSize() == 0 {
		t.Error("expired particles should be pooled")
	}
}

// TestEngineRestart verifies the tick loop survives a stop/start cycle
func TestEngineRestart(t *testing.T) {
	e := newTestEngine(9)

	e.Start()
	e.Stop()
	e.Start()
	e.Stop()
	e.Stop() // idempotent

	// The engine still ticks deterministically after the cycles
	e.Activate(0, 0)
	step(e, 28)
	if flipped, _ := e.Progress(); flipped != 1 {
		t.Errorf("flip after restart cycle: got %d, want 1", flipped)
	}
}

// TestZeroStaggerStartsImmediately verifies FlipStaggerMs 0 means no
// stagger at all, making flip timing exact
func TestZeroStaggerStartsImmediately(t *testing.T) {
	cfg := grid.Config{
		TickRate:       30,
		CanvasWidth:    960,
		CanvasHeight:   960,
		GridSize:       9,
		BurstParticles: 30,
		FlipDurationMs: 800,
		FlipStaggerMs:  0,
		FlipLockoutMs:  750,
	}
	e := grid.NewEngine(cfg)

	e.Activate(0, 0)

	// 800ms at 30 TPS is exactly 24 ticks
	step(e, 23)
	if flipped, _ := e.Progress(); flipped != 0 {
		t.Fatal("flip completed a tick early")
	}
	e.Step()
	if flipped, _ := e.Progress(); flipped != 1 {
		t.Error("flip did not complete exactly at its duration")
	}
}

// TestAnnouncerReceivesTransitions verifies flip completions produce polite
// status updates and completion produces an assertive alert
func TestAnnouncerReceivesTransitions(t *testing.T) {
	e := newTestEngine(2)
	rec := &recordingAnnouncer{}
	e.SetAnnouncer(rec)

	e.Activate(0, 0)
	step(e, 28)

	found := false
	for _, s := range rec.statuses {
		if strings.Contains(s, "1 of 4 cells flipped") {
			found = true
		}
	}
	if !found {
		t.Errorf("no flip status announced: %v", rec.statuses)
	}

	e.Activate(0, 1)
	e.Activate(1, 0)
	e.Activate(1, 1)
	step(e, 40)

	if len(rec.alerts) != 1 || !strings.Contains(rec.alerts[0], "Grand finale") {
		t.Errorf("completion alert: got %v", rec.alerts)
	}
}
