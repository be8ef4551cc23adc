package grid

import "fmt"

// CellState is the explicit tagged state of one grid cell.
// Flip transitions move Idle -> AnimatingForward -> Flipped and
// Flipped -> AnimatingBack -> Idle; Reset forces Idle from anywhere.
type CellState int

const (
	CellIdle CellState = iota
	CellAnimatingForward
	CellFlipped
	CellAnimatingBack
)

// String returns a human-readable state name for logs and announcements.
func (s CellState) String() string {
	switch s {
	case CellIdle:
		return "idle"
	case CellAnimatingForward:
		return "animating-forward"
	case CellFlipped:
		return "flipped"
	case CellAnimatingBack:
		return "animating-back"
	default:
		return "unknown"
	}
}

// FlipStyle selects the visual transform for a forward flip.
// The choice is randomized per activation, not fixed per cell.
type FlipStyle int

const (
	StyleRotateScale FlipStyle = iota
	StyleFlip
	StyleSpinShrink
	StylePulse

	flipStyleCount = 4
)

// Cell is one grid tile identified by (row, col). Cells are created once at
// grid initialization and mutated only by the engine's state machine.
type Cell struct {
	Row, Col int

	State   CellState
	Flipped bool

	// Animating is the re-entrancy guard: while set, new activation
	// requests for this cell are silently ignored.
	Animating bool

	Style FlipStyle

	// AnimStart/AnimDuration describe the in-flight transition in ticks.
	// AnimStart may lie slightly in the future due to the activation stagger.
	AnimStart    int64
	AnimDuration int64
}

// Label returns the accessibility label for the cell's current state,
// using 1-based coordinates for human readability.
func (c *Cell) Label() string {
	state := "unflipped"
	if c.Flipped {
		state = "flipped"
	}
	return fmt.Sprintf("Cell row %d column %d, %s", c.Row+1, c.Col+1, state)
}

// Phase returns the animation progress in [0,1] at the given tick.
// Before AnimStart (stagger window) the phase clamps to 0; idle states
// report 0 (unflipped) or 1 (flipped resting pose).
func (c *Cell) Phase(tick int64) float64 {
	switch c.State {
	case CellAnimatingForward, CellAnimatingBack:
		if c.AnimDuration <= 0 {
			return 1
		}
		p := float64(tick-c.AnimStart) / float64(c.AnimDuration)
		if p < 0 {
			return 0
		}
		if p > 1 {
			return 1
		}
		return p
	case CellFlipped:
		return 1
	default:
		return 0
	}
}

// forceIdle is the Reset transition: immediately back to Idle, bypassing
// any in-flight animation and clearing the re-entrancy guard.
func (c *Cell) forceIdle() {
	c.State = CellIdle
	c.Flipped = false
	c.Animating = false
	c.AnimStart = 0
	c.AnimDuration = 0
}
