package grid

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// Limits defines hard caps that bound per-frame cost and peak memory.
type Limits struct {
	MaxParticles      int
	MaxOverlayEffects int
	PoolCapacity      int
}

// DefaultEngineLimits provides production-safe defaults.
var DefaultEngineLimits = Limits{
	MaxParticles:      1000,
	MaxOverlayEffects: 200,
	PoolCapacity:      100,
}

// Config describes a grid engine instance. The caller constructs and owns
// the engine; there is no ambient global state.
type Config struct {
	TickRate     int // Ticks per second, normally equal to the render FPS
	CanvasWidth  int
	CanvasHeight int
	GridSize     int

	BurstParticles         int
	ParticlesPerClick      int
	SmokeParticlesPerClick int
	GlowEffectsPerClick    int
	FinaleParticles        int

	FlipDurationMs   int
	FlipStaggerMs    int
	FlipLockoutMs    int
	FinaleDelayMs    int
	FinaleCooldownMs int

	Limits Limits
}

// Announcer receives human-readable transition and completion events for
// the accessibility surface. Status maps to a polite live region, Alert to
// an assertive one. The engine calls it from inside the tick; implementors
// must not block.
type Announcer interface {
	Status(msg string)
	Alert(msg string)
}

type noopAnnouncer struct{}

func (noopAnnouncer) Status(string) {}
func (noopAnnouncer) Alert(string)  {}

// Engine is the grid controller: it owns the cells, routes input, drives
// the tick loop and aggregates progress. All grid state is mutated only
// under the engine mutex, giving the single-execution-context model the
// design requires.
type Engine struct {
	mu  sync.Mutex
	cfg Config

	cells  [][]*Cell
	layout Layout

	pool       *Pool
	sim        *Simulator
	overlays   *OverlaySet
	sched      *Scheduler
	dispatcher *Dispatcher

	flippedCount     int
	completionActive bool
	cursorRow        int
	cursorCol        int

	tickCount int64
	running   bool
	ticker    *time.Ticker
	stopChan  chan struct{}

	// viewerCount mirrors page visibility: with no connected viewers the
	// particle simulation is suspended to avoid background CPU burn.
	viewerCount int32 // atomic

	rng          *rand.Rand
	snapshotPool *SnapshotPool
	events       *EventLog
	announcer    Announcer

	// Optional observers for metrics wiring; called outside the tick's
	// hot path but still on the tick goroutine.
	OnTick   func(d time.Duration)
	OnFlip   func(flipped, total int)
	OnFinale func()
}

// NewEngine creates a grid engine. Cells are created once here and live
// until the engine is discarded.
func NewEngine(cfg Config) *Engine {
	if cfg.GridSize <= 0 {
		cfg.GridSize = 9
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 30
	}
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultEngineLimits
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	pool := NewPool(cfg.Limits.PoolCapacity)
	sim := NewSimulator(pool, cfg.Limits.MaxParticles, rng)
	overlays := NewOverlaySet(cfg.Limits.MaxOverlayEffects)
	sched := NewScheduler()

	e := &Engine{
		cfg:          cfg,
		layout:       ComputeLayout(cfg.CanvasWidth, cfg.CanvasHeight, cfg.GridSize),
		pool:         pool,
		sim:          sim,
		overlays:     overlays,
		sched:        sched,
		dispatcher:   NewDispatcher(cfg, sim, overlays, sched, rng),
		rng:          rng,
		snapshotPool: NewSnapshotPool(cfg.GridSize, cfg.Limits),
		events:       NewEventLog(),
		announcer:    noopAnnouncer{},
		stopChan:     make(chan struct{}),
	}

	e.cells = make([][]*Cell, cfg.GridSize)
	for r := 0; r < cfg.GridSize; r++ {
		e.cells[r] = make([]*Cell, cfg.GridSize)
		for c := 0; c < cfg.GridSize; c++ {
			e.cells[r][c] = &Cell{Row: r, Col: c}
		}
	}

	e.produceSnapshotLocked()
	return e
}

// SetAnnouncer installs the accessibility announcer.
func (e *Engine) SetAnnouncer(a Announcer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if a == nil {
		a = noopAnnouncer{}
	}
	e.announcer = a
}

// Start begins the tick loop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	// Fresh channel per run so the engine can be restarted after Stop
	e.stopChan = make(chan struct{})
	stop := e.stopChan
	e.mu.Unlock()

	e.ticker = time.NewTicker(time.Second / time.Duration(e.cfg.TickRate))

	go func() {
		for {
			select {
			case <-e.ticker.C:
				e.Step()
			case <-stop:
				return
			}
		}
	}()

	log.Printf("grid engine started: %dx%d cells at %d TPS",
		e.cfg.GridSize, e.cfg.GridSize, e.cfg.TickRate)
}

// Stop stops the tick loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	log.Println("grid engine stopped")
}

// Step advances exactly one tick. The ticker calls this at the configured
// rate; tests call it directly for deterministic timing.
func (e *Engine) Step() {
	start := time.Now()

	e.mu.Lock()
	e.tickCount++
	e.sched.RunDue(e.tickCount)

	// Particle advance is suspended while nothing can see it and resumes
	// automatically when a viewer connects, matching hidden-tab semantics.
	if e.sim.Active() && atomic.LoadInt32(&e.viewerCount) > 0 {
		e.sim.Advance()
	}
	e.overlays.Compact()
	e.produceSnapshotLocked()
	e.mu.Unlock()

	if e.OnTick != nil {
		e.OnTick(time.Since(start))
	}
}

// Activate requests a flip transition for the cell at (row, col).
// Out-of-range coordinates return an error; an activation while the cell's
// re-entrancy guard is set is a silent no-op and returns false.
func (e *Engine) Activate(row, col int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if row < 0 || col < 0 || row >= e.cfg.GridSize || col >= e.cfg.GridSize {
		return false, fmt.Errorf("cell (%d,%d) out of range for %dx%d grid",
			row, col, e.cfg.GridSize, e.cfg.GridSize)
	}
	return e.activateLocked(row, col), nil
}

// ActivateAt routes a pointer or touch position to the cell under it.
func (e *Engine) ActivateAt(x, y float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	row, col, ok := e.layout.CellAt(x, y)
	if !ok {
		return false
	}
	return e.activateLocked(row, col)
}

func (e *Engine) activateLocked(row, col int) bool {
	cell := e.cells[row][col]
	if cell.Animating {
		return false // re-entrancy guard: ignore, not an error
	}

	switch cell.State {
	case CellIdle:
		e.beginForwardLocked(cell)
		return true
	case CellFlipped:
		e.beginBackwardLocked(cell)
		return true
	default:
		return false
	}
}

// beginForwardLocked starts Idle -> AnimatingForward. The flip style is
// randomized per activation, and a short stagger offsets the animation
// start so rapid multi-cell activations don't move in lockstep.
func (e *Engine) beginForwardLocked(cell *Cell) {
	defer e.recoverTransition(cell)

	cell.Animating = true
	cell.State = CellAnimatingForward
	cell.Style = FlipStyle(e.rng.Intn(flipStyleCount))

	// Zero configured stagger means none at all, so ticksFor's minimum of
	// one tick must not apply here
	stagger := int64(0)
	if e.cfg.FlipStaggerMs > 0 {
		if st := int(e.ticksFor(e.cfg.FlipStaggerMs)); st > 0 {
			stagger = int64(e.rng.Intn(st + 1))
		}
	}
	cell.AnimStart = e.tickCount + stagger
	cell.AnimDuration = e.ticksFor(e.cfg.FlipDurationMs)

	x, y := e.layout.CellCenter(cell.Row, cell.Col)
	e.dispatcher.EmitFlipEffects(cell.Row, cell.Col, x, y, e.tickCount)
	e.events.Emit(EventActivate, cell.Row, cell.Col, e.tickCount)

	e.sched.Schedule(cell.AnimStart+cell.AnimDuration, func() {
		e.completeForwardLocked(cell)
	})
}

func (e *Engine) completeForwardLocked(cell *Cell) {
	cell.State = CellFlipped
	cell.Flipped = true
	e.flippedCount++
	e.events.Emit(EventFlip, cell.Row, cell.Col, e.tickCount)
	e.announcer.Status(fmt.Sprintf("%s. %d of %d cells flipped.",
		cell.Label(), e.flippedCount, e.totalCells()))

	if e.OnFlip != nil {
		e.OnFlip(e.flippedCount, e.totalCells())
	}

	// Hold the guard a little past the visual transition so overlapping
	// activations can't glitch the animation.
	e.sched.Schedule(e.tickCount+e.ticksFor(e.cfg.FlipLockoutMs), func() {
		cell.Animating = false
	})

	e.checkCompletionLocked()
}

// beginBackwardLocked starts Flipped -> AnimatingBack. No particle or
// overlay effects are spawned on the way back.
func (e *Engine) beginBackwardLocked(cell *Cell) {
	defer e.recoverTransition(cell)

	cell.Animating = true
	cell.State = CellAnimatingBack
	cell.AnimStart = e.tickCount
	cell.AnimDuration = e.ticksFor(e.cfg.FlipDurationMs)

	e.sched.Schedule(cell.AnimStart+cell.AnimDuration, func() {
		e.completeBackwardLocked(cell)
	})
}

func (e *Engine) completeBackwardLocked(cell *Cell) {
	cell.State = CellIdle
	cell.Flipped = false
	cell.Animating = false
	e.flippedCount--
	e.events.Emit(EventUnflip, cell.Row, cell.Col, e.tickCount)
	e.announcer.Status(fmt.Sprintf("%s. %d of %d cells flipped.",
		cell.Label(), e.flippedCount, e.totalCells()))

	if e.OnFlip != nil {
		e.OnFlip(e.flippedCount, e.totalCells())
	}
}

// recoverTransition keeps a panicking transition from wedging the engine.
// Worst case the cell's guard stays set until the next reset clears it.
func (e *Engine) recoverTransition(cell *Cell) {
	if r := recover(); r != nil {
		log.Printf("transition failed for cell (%d,%d): %v", cell.Row, cell.Col, r)
	}
}

// checkCompletionLocked fires the grand finale exactly once per full-grid
// state: the completion flag blocks retriggers until its cooldown expires,
// and a reset clears it so a refilled grid can celebrate again.
func (e *Engine) checkCompletionLocked() {
	if e.flippedCount != e.totalCells() || e.completionActive {
		return
	}
	e.completionActive = true
	e.announcer.Alert(fmt.Sprintf("All %d cells flipped! Grand finale!", e.totalCells()))
	e.events.Emit(EventFinale, -1, -1, e.tickCount)

	if e.OnFinale != nil {
		e.OnFinale()
	}

	cx, cy := e.layout.GridCenter()
	e.sched.Schedule(e.tickCount+e.ticksFor(e.cfg.FinaleDelayMs), func() {
		e.dispatcher.EmitFinale(cx, cy, e.tickCount)
	})
	e.sched.Schedule(e.tickCount+e.ticksFor(e.cfg.FinaleCooldownMs), func() {
		e.completionActive = false
	})
}

// Reset forces every cell back to Idle immediately, bypassing animation,
// and clears all particle and overlay state synchronously. Pending
// transition callbacks are invalidated through the scheduler epoch, so
// none of them can mutate the cleared state later. Reset is idempotent.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sched.CancelAll()
	for _, row := range e.cells {
		for _, cell := range row {
			cell.forceIdle()
		}
	}
	e.flippedCount = 0
	e.completionActive = false
	e.sim.Reset()
	e.overlays.Clear()
	e.events.Emit(EventReset, -1, -1, e.tickCount)
	e.announcer.Status("Grid reset. 0 of " + fmt.Sprint(e.totalCells()) + " cells flipped.")
	e.produceSnapshotLocked()
}

// Progress returns the flipped count and the total number of cells.
func (e *Engine) Progress() (flipped, total int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flippedCount, e.totalCells()
}

// HandleKey routes keyboard input: arrows move the cursor (independent of
// flip state), space/enter activate the cursor cell, home/end jump to the
// corners. Unknown keys are ignored.
func (e *Engine) HandleKey(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	moved := false
	switch key {
	case "ArrowUp":
		if e.cursorRow > 0 {
			e.cursorRow--
			moved = true
		}
	case "ArrowDown":
		if e.cursorRow < e.cfg.GridSize-1 {
			e.cursorRow++
			moved = true
		}
	case "ArrowLeft":
		if e.cursorCol > 0 {
			e.cursorCol--
			moved = true
		}
	case "ArrowRight":
		if e.cursorCol < e.cfg.GridSize-1 {
			e.cursorCol++
			moved = true
		}
	case "Home":
		e.cursorRow, e.cursorCol = 0, 0
		moved = true
	case "End":
		e.cursorRow, e.cursorCol = e.cfg.GridSize-1, e.cfg.GridSize-1
		moved = true
	case " ", "Enter":
		e.activateLocked(e.cursorRow, e.cursorCol)
	}

	if moved {
		e.announcer.Status(e.cells[e.cursorRow][e.cursorCol].Label())
	}
}

// Resize recomputes cell geometry for new canvas dimensions. In-flight
// particles keep their coordinates; the renderer clips anything that lands
// outside the new surface. Debouncing happens at the input edge.
func (e *Engine) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.layout = ComputeLayout(width, height, e.cfg.GridSize)
	e.events.Emit(EventResize, width, height, e.tickCount)
	e.produceSnapshotLocked()
}

// SetViewerCount reports how many clients can currently see the canvas.
// Zero viewers suspends the particle simulation and frame rendering.
func (e *Engine) SetViewerCount(n int) {
	atomic.StoreInt32(&e.viewerCount, int32(n))
}

// Snapshot returns the latest immutable snapshot for lock-free rendering.
func (e *Engine) Snapshot() *GridSnapshot {
	return e.snapshotPool.AcquireRead()
}

// EventLog exposes the interaction event log for lifecycle wiring.
func (e *Engine) EventLog() *EventLog {
	return e.events
}

// Layout returns the current cell geometry.
func (e *Engine) Layout() Layout {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layout
}

// ParticleCount returns the number of live particles.
func (e *Engine) ParticleCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sim.Len()
}

// PoolSize returns the number of pooled particle records.
func (e *Engine) PoolSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pool.Size()
}

func (e *Engine) totalCells() int {
	return e.cfg.GridSize * e.cfg.GridSize
}

func (e *Engine) ticksFor(ms int) int64 {
	t := int64(ms) * int64(e.cfg.TickRate) / 1000
	if t < 1 {
		t = 1
	}
	return t
}

// produceSnapshotLocked copies the current state into the triple buffer.
func (e *Engine) produceSnapshotLocked() {
	snap := e.snapshotPool.AcquireWrite()
	snap.Tick = e.tickCount
	snap.Width = e.layout.Width
	snap.Height = e.layout.Height
	snap.FlippedCount = e.flippedCount
	snap.TotalCells = e.totalCells()
	snap.CompletionActive = e.completionActive
	snap.CursorRow = e.cursorRow
	snap.CursorCol = e.cursorCol

	for _, row := range e.cells {
		for _, cell := range row {
			snap.Cells = append(snap.Cells, CellSnapshot{
				Row:     cell.Row,
				Col:     cell.Col,
				State:   cell.State,
				Style:   cell.Style,
				Phase:   cell.Phase(e.tickCount),
				Flipped: cell.Flipped,
				Label:   cell.Label(),
			})
		}
	}

	for _, p := range e.sim.Live() {
		if len(snap.Particles) >= cap(snap.Particles) {
			break
		}
		alpha := p.BaseAlpha * float64(p.Life) / float64(p.FullLife)
		snap.Particles = append(snap.Particles, ParticleSnapshot{
			X:     p.X,
			Y:     p.Y,
			Size:  p.Size,
			Color: p.Color,
			Alpha: alpha,
			Glow:  p.Glow,
		})
	}

	for _, o := range e.overlays.Live() {
		if len(snap.Overlays) >= cap(snap.Overlays) {
			break
		}
		snap.Overlays = append(snap.Overlays, OverlaySnapshot{
			Kind:     o.Kind,
			X:        o.X,
			Y:        o.Y,
			Angle:    o.Angle,
			Distance: o.Distance,
			Phase:    o.Phase(e.tickCount),
			Hue:      o.Hue,
		})
	}

	e.snapshotPool.PublishWrite()
}
