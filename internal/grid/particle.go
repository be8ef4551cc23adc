package grid

import "math/rand"

// Physics constants for the particle simulation, in canvas units per tick.
const (
	ParticleGravity = 0.1  // Added to vertical speed every tick
	ParticleDrag    = 0.99 // Horizontal speed damping factor per tick
)

// Particle is an ephemeral simulated record owned exclusively by the
// Simulator and recycled through the Pool rather than freed.
type Particle struct {
	X, Y           float64
	SpeedX, SpeedY float64
	Life           int // Remaining life in ticks, monotonically non-increasing
	FullLife       int
	Size           float64
	Color          string  // #rrggbb
	BaseAlpha      float64 // Spawn alpha; rendered alpha fades with Life/FullLife
	Glow           bool
	Active         bool
}

// Simulator owns the set of live particles, advances them every tick and
// retires dead ones to the pool within the same pass. It is mutated only
// from the engine tick (no locking; the engine serializes access).
type Simulator struct {
	pool *Pool
	live []*Particle
	max  int
	rng  *rand.Rand
}

// NewSimulator creates a particle simulator with the given live-set cap.
func NewSimulator(pool *Pool, maxParticles int, rng *rand.Rand) *Simulator {
	if maxParticles <= 0 {
		maxParticles = 1000
	}
	return &Simulator{
		pool: pool,
		live: make([]*Particle, 0, maxParticles),
		max:  maxParticles,
		rng:  rng,
	}
}

// SpawnBurst creates count new particles at the origin with randomized
// size, velocity, life and an HSL color around hueBase.
func (s *Simulator) SpawnBurst(originX, originY, hueBase float64, count int) {
	s.reserve(count)
	for i := 0; i < count; i++ {
		p := s.pool.Acquire()
		p.X = originX
		p.Y = originY
		p.SpeedX = (s.rng.Float64() - 0.5) * 3 // [-1.5, 1.5]
		p.SpeedY = (s.rng.Float64() - 0.5) * 3
		p.Size = 2 + s.rng.Float64()*5 // [2, 7]
		p.FullLife = 50 + s.rng.Intn(101)
		p.Life = p.FullLife
		hue := hueBase + (s.rng.Float64()-0.5)*30 // ±15° jitter
		sat := 70 + s.rng.Float64()*30
		light := 50 + s.rng.Float64()*20
		p.Color = hslToHex(hue, sat, light)
		p.BaseAlpha = 0.5 + s.rng.Float64()*0.5
		p.Glow = s.rng.Float64() < 0.3
		p.Active = true
		s.live = append(s.live, p)
	}
}

// SpawnFinale emits a large radial burst from the given center using
// full-spectrum random hues.
func (s *Simulator) SpawnFinale(centerX, centerY float64, count int) {
	s.reserve(count)
	for i := 0; i < count; i++ {
		p := s.pool.Acquire()
		p.X = centerX
		p.Y = centerY
		p.SpeedX = (s.rng.Float64() - 0.5) * 3
		p.SpeedY = (s.rng.Float64() - 0.5) * 3
		p.Size = 2 + s.rng.Float64()*5
		p.FullLife = 50 + s.rng.Intn(101)
		p.Life = p.FullLife
		p.Color = hslToHex(s.rng.Float64()*360, 70+s.rng.Float64()*30, 50+s.rng.Float64()*20)
		p.BaseAlpha = 0.5 + s.rng.Float64()*0.5
		p.Glow = s.rng.Float64() < 0.3
		p.Active = true
		s.live = append(s.live, p)
	}
}

// reserve enforces the global live cap: when inserting would exceed it,
// the oldest half of the live set is retired first to bound per-frame cost.
func (s *Simulator) reserve(incoming int) {
	if len(s.live)+incoming <= s.max {
		return
	}
	half := len(s.live) / 2
	for i := 0; i < half; i++ {
		s.pool.Release(s.live[i])
		s.live[i] = nil
	}
	n := copy(s.live, s.live[half:])
	for i := n; i < len(s.live); i++ {
		s.live[i] = nil
	}
	s.live = s.live[:n]
}

// Advance runs one simulation step: integrate positions, apply gravity and
// drag, count down life, and retire dead particles to the pool in the same
// pass. Zero-allocation in-place filtering keeps GC pressure flat and is
// safe under removal-during-iteration.
func (s *Simulator) Advance() {
	n := 0
	for _, p := range s.live {
		p.X += p.SpeedX
		p.Y += p.SpeedY
		p.SpeedY += ParticleGravity
		p.SpeedX *= ParticleDrag
		p.Life--

		if p.Life > 0 && p.Active {
			s.live[n] = p
			n++
		} else {
			s.pool.Release(p)
		}
	}
	for i := n; i < len(s.live); i++ {
		s.live[i] = nil
	}
	s.live = s.live[:n]
}

// Active reports whether any particles are live. The engine only advances
// the simulation, and the broadcaster only keeps redrawing, while this
// holds; spawning into an idle simulator reactivates both lazily.
func (s *Simulator) Active() bool {
	return len(s.live) > 0
}

// Len returns the number of live particles.
func (s *Simulator) Len() int {
	return len(s.live)
}

// Live returns the live set for snapshotting. Callers must not retain it.
func (s *Simulator) Live() []*Particle {
	return s.live
}

// Reset retires every live particle to the pool immediately.
func (s *Simulator) Reset() {
	for i, p := range s.live {
		s.pool.Release(p)
		s.live[i] = nil
	}
	s.live = s.live[:0]
}
