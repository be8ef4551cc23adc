package grid

// Pool is a bounded free-list of retired particle records.
// Recycling bounds peak allocation under rapid repeated activation;
// excess records above the capacity bound are dropped to the GC.
type Pool struct {
	free     []*Particle
	capacity int

	// Stats
	reused    uint64
	allocated uint64
}

// NewPool creates a particle pool with the given capacity bound.
func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = 100
	}
	return &Pool{
		free:     make([]*Particle, 0, capacity),
		capacity: capacity,
	}
}

// Acquire returns a recycled particle record if one is available,
// otherwise a freshly zero-initialized one.
func (p *Pool) Acquire() *Particle {
	if n := len(p.free); n > 0 {
		pt := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		*pt = Particle{}
		p.reused++
		return pt
	}
	p.allocated++
	return &Particle{}
}

// Release marks the record inactive and returns it to the free list
// only if the pool is below its capacity bound.
func (p *Pool) Release(pt *Particle) {
	if pt == nil {
		return
	}
	pt.Active = false
	if len(p.free) < p.capacity {
		p.free = append(p.free, pt)
	}
}

// Size returns the current number of pooled records.
func (p *Pool) Size() int {
	return len(p.free)
}

// Capacity returns the pool's capacity bound.
func (p *Pool) Capacity() int {
	return p.capacity
}
