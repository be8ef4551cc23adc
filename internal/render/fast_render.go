package render

import (
	"image/color"
	"math"
)

// FastRenderer provides direct-to-buffer rendering for the particle pass.
// This bypasses the overhead of gg.Context for simple primitives.
type FastRenderer struct {
	buffer []byte
	width  int
	height int
	stride int // bytes per row (width * 4 for RGBA)
}

// NewFastRenderer creates a fast renderer over the given RGBA buffer, or a
// fresh one if buffer is nil.
func NewFastRenderer(width, height int, buffer []byte) *FastRenderer {
	if buffer == nil {
		buffer = make([]byte, width*height*4)
	}
	return &FastRenderer{
		buffer: buffer,
		width:  width,
		height: height,
		stride: width * 4,
	}
}

// Buffer returns the underlying pixel buffer.
func (r *FastRenderer) Buffer() []byte {
	return r.buffer
}

// Clear fills the entire buffer with a solid color.
func (r *FastRenderer) Clear(c color.RGBA) {
	for i := 0; i < len(r.buffer); i += 4 {
		r.buffer[i] = c.R
		r.buffer[i+1] = c.G
		r.buffer[i+2] = c.B
		r.buffer[i+3] = c.A
	}
}

// setPixelBlend sets a pixel with alpha blending and bounds checking.
func (r *FastRenderer) setPixelBlend(x, y int, c color.RGBA) {
	if x < 0 || x >= r.width || y < 0 || y >= r.height {
		return
	}
	idx := y*r.stride + x*4
	if idx < 0 || idx+3 >= len(r.buffer) {
		return
	}

	if c.A == 255 {
		r.buffer[idx] = c.R
		r.buffer[idx+1] = c.G
		r.buffer[idx+2] = c.B
		r.buffer[idx+3] = 255
		return
	}
	if c.A == 0 {
		return
	}

	// result = src * srcA + dst * (1 - srcA)
	srcA := float64(c.A) / 255.0
	invA := 1.0 - srcA

	r.buffer[idx] = uint8(float64(c.R)*srcA + float64(r.buffer[idx])*invA)
	r.buffer[idx+1] = uint8(float64(c.G)*srcA + float64(r.buffer[idx+1])*invA)
	r.buffer[idx+2] = uint8(float64(c.B)*srcA + float64(r.buffer[idx+2])*invA)
	r.buffer[idx+3] = 255 // Destination is always opaque
}

// DrawFilledCircleBlend draws an alpha-blended filled circle.
func (r *FastRenderer) DrawFilledCircleBlend(cx, cy int, radius float64, c color.RGBA) {
	if c.A == 0 {
		return
	}
	rad := int(radius + 0.5)
	radSq := radius * radius

	y1 := max(0, cy-rad)
	y2 := min(r.height, cy+rad+1)

	for py := y1; py < y2; py++ {
		dy := float64(py - cy)
		dySq := dy * dy
		xExtent := math.Sqrt(radSq - dySq)
		x1 := max(0, cx-int(xExtent+0.5))
		x2 := min(r.width, cx+int(xExtent+0.5)+1)

		for px := x1; px < x2; px++ {
			dx := float64(px - cx)
			if dx*dx+dySq <= radSq {
				r.setPixelBlend(px, py, c)
			}
		}
	}
}

// DrawGlowCircle draws a particle with a soft halo: two enlarged low-alpha
// passes under the core circle approximate a canvas shadow blur.
func (r *FastRenderer) DrawGlowCircle(cx, cy int, radius float64, c color.RGBA) {
	halo := c
	halo.A = uint8(float64(c.A) * 0.15)
	r.DrawFilledCircleBlend(cx, cy, radius*2.5, halo)
	halo.A = uint8(float64(c.A) * 0.3)
	r.DrawFilledCircleBlend(cx, cy, radius*1.6, halo)
	r.DrawFilledCircleBlend(cx, cy, radius, c)
}

// parseHexColorFast parses #rrggbb without allocations.
func parseHexColorFast(hex string) color.RGBA {
	if len(hex) != 7 || hex[0] != '#' {
		return color.RGBA{255, 255, 255, 255}
	}
	return color.RGBA{
		R: hexToByte(hex[1], hex[2]),
		G: hexToByte(hex[3], hex[4]),
		B: hexToByte(hex[5], hex[6]),
		A: 255,
	}
}

func hexToByte(h1, h2 byte) uint8 {
	return hexCharToNibble(h1)<<4 | hexCharToNibble(h2)
}

func hexCharToNibble(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}
