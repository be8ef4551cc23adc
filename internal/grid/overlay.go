package grid

// OverlayKind identifies the visual style of a transient overlay effect.
// These are the server-side rendition of the ephemeral spark/smoke/glow
// elements spawned around a flipped cell.
type OverlayKind int

const (
	OverlaySpark OverlayKind = iota
	OverlaySmoke
	OverlayGlow
	OverlayFinaleFragment
)

// OverlayEffect is a transient visual element with exactly one scheduled
// expiry equal to its animation duration. Tracked in the OverlaySet purely
// so it can be force-removed on reset or cap overflow.
type OverlayEffect struct {
	ID   uint64
	Kind OverlayKind

	X, Y     float64 // Origin
	Angle    float64 // Outward direction (sparks, finale fragments)
	Distance float64 // Travel distance over the lifetime

	StartTick int64
	Duration  int64 // Ticks; expiry fires at StartTick+Duration
	Hue       float64

	// Expired marks the effect for removal at the next compaction.
	// Setting it twice is a no-op, never an error.
	Expired bool
}

// Phase returns the effect's animation progress in [0,1] at the given tick.
func (e *OverlayEffect) Phase(tick int64) float64 {
	if e.Duration <= 0 {
		return 1
	}
	p := float64(tick-e.StartTick) / float64(e.Duration)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// OverlaySet tracks live overlay effects with a hard cap. Mutated only from
// the engine tick, matching the single execution context model.
type OverlaySet struct {
	effects []*OverlayEffect
	max     int
	nextID  uint64
}

// NewOverlaySet creates an overlay set with the given live cap.
func NewOverlaySet(maxEffects int) *OverlaySet {
	if maxEffects <= 0 {
		maxEffects = 200
	}
	return &OverlaySet{
		effects: make([]*OverlayEffect, 0, maxEffects),
		max:     maxEffects,
	}
}

// Add inserts a new effect, assigning its ID. When the cap would be
// exceeded, the oldest half of the live set is force-expired first.
func (o *OverlaySet) Add(e *OverlayEffect) uint64 {
	if len(o.effects) >= o.max {
		half := len(o.effects) / 2
		for i := 0; i < half; i++ {
			o.effects[i].Expired = true
		}
		o.compact()
	}
	o.nextID++
	e.ID = o.nextID
	o.effects = append(o.effects, e)
	return e.ID
}

// Expire marks the effect with the given ID for removal. Unknown or
// already-expired IDs are a no-op, so the scheduled removal and any
// force-removal can race harmlessly.
func (o *OverlaySet) Expire(id uint64) {
	for _, e := range o.effects {
		if e.ID == id {
			e.Expired = true
			return
		}
	}
}

// Compact drops expired effects. Called once per engine tick.
func (o *OverlaySet) Compact() {
	o.compact()
}

func (o *OverlaySet) compact() {
	n := 0
	for _, e := range o.effects {
		if !e.Expired {
			o.effects[n] = e
			n++
		}
	}
	for i := n; i < len(o.effects); i++ {
		o.effects[i] = nil
	}
	o.effects = o.effects[:n]
}

// Clear force-removes every effect immediately (reset path).
func (o *OverlaySet) Clear() {
	for i := range o.effects {
		o.effects[i] = nil
	}
	o.effects = o.effects[:0]
}

// Len returns the number of live (non-compacted) effects.
func (o *OverlaySet) Len() int {
	return len(o.effects)
}

// Live returns the tracked effects for snapshotting. Callers must not
// retain the slice.
func (o *OverlaySet) Live() []*OverlayEffect {
	return o.effects
}
