package render

import (
	"bytes"
	"image/png"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fogleman/gg"

	"glowgrid/internal/grid"
)

// FrameSink receives encoded frames for delivery to viewers. The websocket
// hub implements this.
type FrameSink interface {
	BroadcastFrame(frame []byte)
	ViewerCount() int
}

// Config holds broadcaster settings.
type Config struct {
	Width  int
	Height int
	FPS    int
}

// Broadcaster drives the render loop: every frame interval it takes the
// latest engine snapshot, draws it, encodes PNG and hands the result to the
// sink. Rendering is fully suspended while no viewer is connected.
type Broadcaster struct {
	engine *grid.Engine
	config Config
	sink   FrameSink

	mu      sync.Mutex
	running bool

	stopChan chan struct{}
	stopOnce sync.Once

	// Double buffering: render into the back context while the front one's
	// encoded bytes are in flight.
	contexts    [2]*gg.Context
	activeIndex int
	ctxMu       sync.Mutex

	renderer   *Renderer
	workerPool *RenderWorkerPool
	ringBuffer *FrameRingBuffer
	encodeBuf  bytes.Buffer
	fontPath   string

	framesSent     int64 // atomic
	framesDropped  int64 // atomic
	framesSkipped  int64 // atomic
	frameTimeAccum int64 // atomic nanoseconds
	frameTimeCount int64 // atomic

	lastScene   sceneState
	lastViewers int

	// Optional frame timing observer for metrics
	OnFrame func(d time.Duration)
}

// NewBroadcaster creates a broadcaster for the engine.
func NewBroadcaster(engine *grid.Engine, config Config, sink FrameSink) *Broadcaster {
	if config.Width == 0 {
		config.Width = 960
	}
	if config.Height == 0 {
		config.Height = 960
	}
	if config.FPS == 0 {
		config.FPS = 30
	}

	workerPool := NewRenderWorkerPool(0)

	b := &Broadcaster{
		engine:     engine,
		config:     config,
		sink:       sink,
		stopChan:   make(chan struct{}),
		workerPool: workerPool,
		renderer:   NewRenderer(config.Width, config.Height, workerPool),
		ringBuffer: NewFrameRingBuffer(config.Width * config.Height / 8),
		fontPath:   FontPath(),
	}
	b.buildContexts(config.Width, config.Height)
	return b
}

func (b *Broadcaster) buildContexts(width, height int) {
	for i := 0; i < 2; i++ {
		dc := gg.NewContext(width, height)
		if b.fontPath != "" {
			if err := dc.LoadFontFace(b.fontPath, 20); err != nil {
				log.Printf("font load failed: %v", err)
			}
		}
		b.contexts[i] = dc
	}
	b.activeIndex = 0
}

// Start begins the frame and sender loops.
func (b *Broadcaster) Start() {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.mu.Unlock()

	b.workerPool.Start()
	go b.frameLoop()
	go b.senderLoop()

	log.Printf("frame broadcaster started: %dx%d @ %d fps (%d render workers)",
		b.config.Width, b.config.Height, b.config.FPS, b.workerPool.NumWorkers())
}

// Stop shuts the loops down.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	b.mu.Unlock()

	b.stopOnce.Do(func() { close(b.stopChan) })
	b.workerPool.Stop()
	log.Println("frame broadcaster stopped")
}

// IsRunning reports whether the loops are active.
func (b *Broadcaster) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Resize rebuilds the render contexts for new canvas dimensions. Called
// from the input edge after debouncing.
func (b *Broadcaster) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	b.ctxMu.Lock()
	defer b.ctxMu.Unlock()

	b.config.Width = width
	b.config.Height = height
	b.renderer = NewRenderer(width, height, b.workerPool)
	b.buildContexts(width, height)
	b.engine.Resize(width, height)
}

func (b *Broadcaster) frameLoop() {
	ticker := time.NewTicker(time.Second / time.Duration(b.config.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.renderFrame()
		}
	}
}

// renderFrame draws and encodes one frame into the ring buffer. A panic
// here is logged and the frame skipped; the loop itself stays alive.
func (b *Broadcaster) renderFrame() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("frame render failed: %v", r)
		}
	}()

	// Nobody watching: skip the whole pass
	viewers := b.sink.ViewerCount()
	if viewers == 0 {
		b.lastViewers = 0
		return
	}
	newViewer := viewers != b.lastViewers
	b.lastViewers = viewers

	frameStart := time.Now()

	snapshot := b.engine.Snapshot()
	if snapshot == nil {
		return
	}

	// Quiescent scene: no motion and nothing changed since the last encoded
	// frame, so re-rendering would produce identical bytes. A viewer joining
	// still gets one fresh frame.
	scene := sceneOf(snapshot)
	if !newViewer && !sceneHasMotion(snapshot) && scene == b.lastScene {
		atomic.AddInt64(&b.framesSkipped, 1)
		return
	}
	b.lastScene = scene

	b.ctxMu.Lock()
	backIndex := 1 - b.activeIndex
	dc := b.contexts[backIndex]

	b.renderer.RenderFrame(dc, snapshot)

	b.encodeBuf.Reset()
	if err := png.Encode(&b.encodeBuf, dc.Image()); err != nil {
		b.ctxMu.Unlock()
		log.Printf("frame encode failed: %v", err)
		return
	}
	b.activeIndex = backIndex
	b.ctxMu.Unlock()

	if !b.ringBuffer.TryWrite(b.encodeBuf.Bytes()) {
		atomic.AddInt64(&b.framesDropped, 1)
	}

	elapsed := time.Since(frameStart)
	atomic.AddInt64(&b.frameTimeAccum, elapsed.Nanoseconds())
	atomic.AddInt64(&b.frameTimeCount, 1)
	if b.OnFrame != nil {
		b.OnFrame(elapsed)
	}
}

// sceneState is a cheap change signature for quiescence detection. Phase
// motion is covered separately by sceneHasMotion.
type sceneState struct {
	flipped    int
	completion bool
	cursorRow  int
	cursorCol  int
	width      int
	height     int
}

func sceneOf(snap *grid.GridSnapshot) sceneState {
	return sceneState{
		flipped:    snap.FlippedCount,
		completion: snap.CompletionActive,
		cursorRow:  snap.CursorRow,
		cursorCol:  snap.CursorCol,
		width:      snap.Width,
		height:     snap.Height,
	}
}

// sceneHasMotion reports whether anything in the snapshot animates between
// ticks.
func sceneHasMotion(snap *grid.GridSnapshot) bool {
	if len(snap.Particles) > 0 || len(snap.Overlays) > 0 {
		return true
	}
	for i := range snap.Cells {
		s := snap.Cells[i].State
		if s == grid.CellAnimatingForward || s == grid.CellAnimatingBack {
			return true
		}
	}
	return false
}

// senderLoop drains the ring buffer into the sink. It polls at twice the
// frame rate so a momentary encode backlog drains quickly.
func (b *Broadcaster) senderLoop() {
	ticker := time.NewTicker(time.Second / time.Duration(b.config.FPS*2))
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			for {
				frame := b.ringBuffer.TryRead()
				if frame == nil {
					break
				}
				// Clients hold frames in their send queues past slot reuse,
				// so the sink gets its own copy.
				out := make([]byte, len(frame))
				copy(out, frame)
				b.sink.BroadcastFrame(out)
				atomic.AddInt64(&b.framesSent, 1)
			}
		}
	}
}

// Stats returns broadcaster statistics.
func (b *Broadcaster) Stats() map[string]interface{} {
	sent := atomic.LoadInt64(&b.framesSent)
	dropped := atomic.LoadInt64(&b.framesDropped)
	count := atomic.LoadInt64(&b.frameTimeCount)

	avgMs := float64(0)
	if count > 0 {
		avgMs = float64(atomic.LoadInt64(&b.frameTimeAccum)) / float64(count) / 1e6
	}

	written, rbDropped, read := b.ringBuffer.Stats()
	return map[string]interface{}{
		"framesSent":    sent,
		"framesDropped": dropped,
		"framesSkipped": atomic.LoadInt64(&b.framesSkipped),
		"avgFrameMs":    avgMs,
		"ringWritten":   written,
		"ringDropped":   rbDropped,
		"ringRead":      read,
		"viewers":       b.sink.ViewerCount(),
	}
}
