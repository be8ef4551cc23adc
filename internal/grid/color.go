package grid

import (
	"fmt"
	"math"
)

// hslToHex converts HSL (h in degrees, s and l in [0,100]) to a #rrggbb string.
// Hex strings keep snapshots cheap to copy and trivial to hand to the renderer.
func hslToHex(h, s, l float64) string {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	s /= 100
	l /= 100

	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return fmt.Sprintf("#%02x%02x%02x",
		uint8((r+m)*255+0.5),
		uint8((g+m)*255+0.5),
		uint8((b+m)*255+0.5))
}
