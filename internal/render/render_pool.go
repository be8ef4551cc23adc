package render

import (
	"runtime"
	"sync"

	"glowgrid/internal/grid"
)

// RenderWorkerPool manages a pool of goroutines for the particle pass.
// Particles are independent pixels, so chunks of the snapshot render in
// parallel into the shared frame buffer.
type RenderWorkerPool struct {
	numWorkers int
	jobChan    chan renderJob
	wg         sync.WaitGroup
	running    bool
	mu         sync.Mutex
}

// renderJob is a unit of particle rendering work.
type renderJob struct {
	particles  []grid.ParticleSnapshot
	buffer     []byte
	width      int
	height     int
	resultChan chan<- struct{}
}

// Below this count the goroutine handoff costs more than it saves.
const parallelThreshold = 30

// NewRenderWorkerPool creates a worker pool. Zero workers defaults to
// NumCPU, capped at 16.
func NewRenderWorkerPool(numWorkers int) *RenderWorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > 16 {
		numWorkers = 16
	}
	return &RenderWorkerPool{
		numWorkers: numWorkers,
		jobChan:    make(chan renderJob, numWorkers*2),
	}
}

// Start begins the worker pool.
func (p *RenderWorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.running = true
	// Fresh channel per run; Stop closes the previous one
	p.jobChan = make(chan renderJob, p.numWorkers*2)
	// Register workers before they spawn so a prompt Stop waits for all
	// of them.
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(p.jobChan)
	}
}

// Stop stops the worker pool.
func (p *RenderWorkerPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.jobChan)
	p.wg.Wait()
}

func (p *RenderWorkerPool) worker(jobs <-chan renderJob) {
	defer p.wg.Done()

	for job := range jobs {
		renderChunk(job.particles, job.buffer, job.width, job.height)
		if job.resultChan != nil {
			job.resultChan <- struct{}{}
		}
	}
}

// RenderParticles renders snapshot particles into the buffer, in parallel
// when the count justifies it.
func (p *RenderWorkerPool) RenderParticles(particles []grid.ParticleSnapshot, buffer []byte, width, height int) {
	if len(particles) == 0 {
		return
	}

	p.mu.Lock()
	running := p.running
	jobs := p.jobChan
	p.mu.Unlock()

	if !running || len(particles) < parallelThreshold {
		renderChunk(particles, buffer, width, height)
		return
	}

	chunkSize := (len(particles) + p.numWorkers - 1) / p.numWorkers
	numJobs := 0
	resultChan := make(chan struct{}, p.numWorkers)

	for i := 0; i < len(particles); i += chunkSize {
		end := i + chunkSize
		if end > len(particles) {
			end = len(particles)
		}
		chunk := particles[i:end]
		if len(chunk) == 0 {
			continue
		}

		job := renderJob{
			particles:  chunk,
			buffer:     buffer,
			width:      width,
			height:     height,
			resultChan: resultChan,
		}

		select {
		case jobs <- job:
			numJobs++
		default:
			// Channel full, render this chunk inline
			renderChunk(chunk, buffer, width, height)
		}
	}

	for i := 0; i < numJobs; i++ {
		<-resultChan
	}
}

// renderChunk draws one slice of particles into the shared buffer.
func renderChunk(particles []grid.ParticleSnapshot, buffer []byte, width, height int) {
	renderer := NewFastRenderer(width, height, buffer)

	for i := range particles {
		pt := &particles[i]

		c := parseHexColorFast(pt.Color)
		c.A = uint8(pt.Alpha * 255)
		if c.A == 0 {
			continue
		}

		x := int(pt.X + 0.5)
		y := int(pt.Y + 0.5)
		if pt.Glow {
			renderer.DrawGlowCircle(x, y, pt.Size/2, c)
		} else {
			renderer.DrawFilledCircleBlend(x, y, pt.Size/2, c)
		}
	}
}

// NumWorkers returns the pool's worker count.
func (p *RenderWorkerPool) NumWorkers() int {
	return p.numWorkers
}

// IsRunning reports whether the pool is started.
func (p *RenderWorkerPool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
