package grid

import (
	"sync/atomic"
	"time"
)

// CellSnapshot is an immutable copy of one cell for rendering.
type CellSnapshot struct {
	Row, Col int
	State    CellState
	Style    FlipStyle
	Phase    float64 // Animation progress in [0,1]
	Flipped  bool
	Label    string
}

// ParticleSnapshot is an immutable particle for rendering.
type ParticleSnapshot struct {
	X, Y  float64
	Size  float64
	Color string
	Alpha float64 // BaseAlpha * Life/FullLife, precomputed
	Glow  bool
}

// OverlaySnapshot is an immutable overlay effect for rendering.
type OverlaySnapshot struct {
	Kind     OverlayKind
	X, Y     float64
	Angle    float64
	Distance float64
	Phase    float64
	Hue      float64
}

// GridSnapshot is a complete immutable grid state for rendering.
// All slices are pre-allocated and capped so producing a snapshot never
// allocates on the steady path.
type GridSnapshot struct {
	Sequence  uint64 // Monotonic sequence for ordering
	Timestamp time.Time
	Tick      int64

	Width, Height int // Canvas dimensions the positions refer to

	Cells     []CellSnapshot
	Particles []ParticleSnapshot
	Overlays  []OverlaySnapshot

	FlippedCount     int
	TotalCells       int
	CompletionActive bool
	CursorRow        int
	CursorCol        int
}

// SnapshotPool pre-allocates snapshots to avoid GC pressure.
// Triple buffering gives a lock-free producer/consumer pair: the engine
// tick writes, the frame broadcaster reads, neither ever blocks the other.
type SnapshotPool struct {
	snapshots [3]GridSnapshot
	writeIdx  uint32 // atomic - producer index
	readIdx   uint32 // atomic - consumer index
	sequence  uint64 // atomic - monotonic sequence
}

// NewSnapshotPool creates a pool with pre-allocated slices sized for the
// grid and the particle/overlay caps.
func NewSnapshotPool(gridSize int, limits Limits) *SnapshotPool {
	pool := &SnapshotPool{}
	cells := gridSize * gridSize
	for i := 0; i < 3; i++ {
		pool.snapshots[i] = GridSnapshot{
			Cells:     make([]CellSnapshot, 0, cells),
			Particles: make([]ParticleSnapshot, 0, limits.MaxParticles),
			Overlays:  make([]OverlaySnapshot, 0, limits.MaxOverlayEffects),
		}
	}
	return pool
}

// AcquireWrite gets the next write slot (producer only, called from the
// engine tick). Slices are reset but keep their capacity.
func (p *SnapshotPool) AcquireWrite() *GridSnapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]

	snap.Cells = snap.Cells[:0]
	snap.Particles = snap.Particles[:0]
	snap.Overlays = snap.Overlays[:0]

	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()
	return snap
}

// PublishWrite marks the write complete and advances the read pointer.
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead gets the latest complete snapshot (consumer only).
func (p *SnapshotPool) AcquireRead() *GridSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}
