package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"glowgrid/internal/grid"
)

// Renderer draws a grid snapshot into a gg context. Tiles, overlays and
// text go through gg; the particle pass writes straight into the RGBA
// buffer via the worker pool.
type Renderer struct {
	width      int
	height     int
	workerPool *RenderWorkerPool
}

// NewRenderer creates a scene renderer for the given canvas dimensions.
func NewRenderer(width, height int, pool *RenderWorkerPool) *Renderer {
	return &Renderer{
		width:      width,
		height:     height,
		workerPool: pool,
	}
}

// RenderFrame draws one complete frame from an immutable snapshot. It never
// touches engine state, so it can run concurrently with the tick.
func (r *Renderer) RenderFrame(dc *gg.Context, snap *grid.GridSnapshot) {
	r.drawBackground(dc)
	r.drawCells(dc, snap)
	r.drawOverlays(dc, snap)

	// Particle pass: direct buffer blending, parallel when worthwhile.
	// gg contexts are RGBA-backed; the blend code addresses both layouts
	// identically since it always writes opaque destination alpha.
	if len(snap.Particles) > 0 {
		var pix []byte
		switch img := dc.Image().(type) {
		case *image.RGBA:
			pix = img.Pix
		case *image.NRGBA:
			pix = img.Pix
		}
		if pix != nil && r.workerPool != nil {
			r.workerPool.RenderParticles(snap.Particles, pix, r.width, r.height)
		} else {
			r.drawParticlesFallback(dc, snap.Particles)
		}
	}

	r.drawHUD(dc, snap)
}

func (r *Renderer) drawBackground(dc *gg.Context) {
	dc.SetColor(color.RGBA{10, 12, 24, 255})
	dc.DrawRectangle(0, 0, float64(r.width), float64(r.height))
	dc.Fill()

	// Faint deterministic node field for depth
	dc.SetColor(color.RGBA{40, 45, 70, 60})
	for i := 0; i < 40; i++ {
		x := float64((i*67 + i*i*3) % r.width)
		y := float64((i*47 + i*i*2) % r.height)
		size := 1.5
		if i%3 == 0 {
			size = 2.5
		}
		dc.DrawCircle(x, y, size)
		dc.Fill()
	}
}

func (r *Renderer) drawCells(dc *gg.Context, snap *grid.GridSnapshot) {
	layout := grid.ComputeLayout(snap.Width, snap.Height, gridSizeOf(snap))
	tile := layout.CellSize * 0.88

	for i := range snap.Cells {
		cell := &snap.Cells[i]
		cx, cy := layout.CellCenter(cell.Row, cell.Col)

		scaleX, scaleY, rotation := cellTransform(cell)

		dc.Push()
		dc.Translate(cx, cy)
		dc.Rotate(rotation)
		dc.ScaleAbout(scaleX, scaleY, 0, 0)

		dc.SetColor(r.cellFill(cell, snap))
		dc.DrawRoundedRectangle(-tile/2, -tile/2, tile, tile, tile*0.12)
		dc.Fill()

		dc.SetColor(color.RGBA{255, 255, 255, 30})
		dc.SetLineWidth(1.5)
		dc.DrawRoundedRectangle(-tile/2, -tile/2, tile, tile, tile*0.12)
		dc.Stroke()

		dc.Pop()

		if cell.Row == snap.CursorRow && cell.Col == snap.CursorCol {
			dc.SetColor(color.RGBA{120, 220, 255, 200})
			dc.SetLineWidth(3)
			dc.DrawRoundedRectangle(cx-tile/2-4, cy-tile/2-4, tile+8, tile+8, tile*0.12)
			dc.Stroke()
		}
	}
}

// cellTransform derives the tile's scale and rotation from its animation
// style and phase. The mid-animation face switch happens in cellFill.
func cellTransform(cell *grid.CellSnapshot) (scaleX, scaleY, rotation float64) {
	scaleX, scaleY = 1, 1
	if cell.State != grid.CellAnimatingForward && cell.State != grid.CellAnimatingBack {
		return
	}

	phase := cell.Phase
	if cell.State == grid.CellAnimatingBack {
		phase = 1 - phase
	}

	switch cell.Style {
	case grid.StyleFlip:
		// Card flip about the vertical axis
		scaleX = math.Abs(math.Cos(math.Pi * phase))
		if scaleX < 0.02 {
			scaleX = 0.02
		}
	case grid.StyleRotateScale:
		rotation = phase * math.Pi
		s := 1 - 0.35*math.Sin(math.Pi*phase)
		scaleX, scaleY = s, s
	case grid.StyleSpinShrink:
		rotation = phase * 2 * math.Pi
		s := 1 - 0.8*math.Sin(math.Pi*phase)
		if s < 0.15 {
			s = 0.15
		}
		scaleX, scaleY = s, s
	case grid.StylePulse:
		s := 1 + 0.25*math.Sin(math.Pi*phase)
		scaleX, scaleY = s, s
	}
	return
}

// cellFill picks the tile face color. Animating tiles switch face at the
// midpoint of their transition.
func (r *Renderer) cellFill(cell *grid.CellSnapshot, snap *grid.GridSnapshot) color.RGBA {
	showFlipped := cell.Flipped
	switch cell.State {
	case grid.CellAnimatingForward:
		showFlipped = cell.Phase >= 0.5
	case grid.CellAnimatingBack:
		showFlipped = cell.Phase < 0.5
	}

	if !showFlipped {
		return color.RGBA{34, 38, 58, 255}
	}

	// Blue-to-violet gradient across the diagonal
	size := gridSizeOf(snap)
	hue := 240.0
	if size > 1 {
		hue = 240 + float64(cell.Row+cell.Col)/float64(2*(size-1))*60
	}
	return hslToRGBA(hue, 0.85, 0.6, 255)
}

func (r *Renderer) drawOverlays(dc *gg.Context, snap *grid.GridSnapshot) {
	for i := range snap.Overlays {
		o := &snap.Overlays[i]
		fade := 1 - o.Phase

		switch o.Kind {
		case grid.OverlaySpark:
			x := o.X + math.Cos(o.Angle)*o.Distance*o.Phase
			y := o.Y + math.Sin(o.Angle)*o.Distance*o.Phase
			dc.SetColor(hslToRGBA(o.Hue, 0.9, 0.65, uint8(fade*255)))
			dc.DrawCircle(x, y, 3*fade+1)
			dc.Fill()

		case grid.OverlaySmoke:
			x := o.X + math.Cos(o.Angle)*o.Distance*o.Phase
			y := o.Y + math.Sin(o.Angle)*o.Distance*o.Phase
			dc.SetColor(hslToRGBA(o.Hue, 0.3, 0.5, uint8(fade*90)))
			dc.DrawCircle(x, y, 6+o.Phase*14)
			dc.Fill()

		case grid.OverlayGlow:
			pulse := math.Sin(math.Pi * o.Phase)
			dc.SetColor(hslToRGBA(o.Hue, 0.9, 0.6, uint8(pulse*110)))
			dc.SetLineWidth(3)
			dc.DrawCircle(o.X, o.Y, o.Distance*(0.6+0.4*o.Phase))
			dc.Stroke()

		case grid.OverlayFinaleFragment:
			x := o.X + math.Cos(o.Angle)*o.Distance*o.Phase
			y := o.Y + math.Sin(o.Angle)*o.Distance*o.Phase
			tailX := o.X + math.Cos(o.Angle)*o.Distance*o.Phase*0.8
			tailY := o.Y + math.Sin(o.Angle)*o.Distance*o.Phase*0.8
			dc.SetColor(hslToRGBA(o.Hue, 0.95, 0.65, uint8(fade*255)))
			dc.SetLineWidth(4 * fade)
			dc.DrawLine(tailX, tailY, x, y)
			dc.Stroke()
			dc.DrawCircle(x, y, 4*fade+1)
			dc.Fill()
		}
	}
}

// drawParticlesFallback is the gg path used when the context image has an
// unexpected backing buffer. The halo passes mirror DrawGlowCircle.
func (r *Renderer) drawParticlesFallback(dc *gg.Context, particles []grid.ParticleSnapshot) {
	for i := range particles {
		pt := &particles[i]
		c := parseHexColorFast(pt.Color)
		c.A = uint8(pt.Alpha * 255)
		radius := pt.Size / 2

		if pt.Glow {
			halo := c
			halo.A = uint8(float64(c.A) * 0.15)
			dc.SetColor(halo)
			dc.DrawCircle(pt.X, pt.Y, radius*2.5)
			dc.Fill()
			halo.A = uint8(float64(c.A) * 0.3)
			dc.SetColor(halo)
			dc.DrawCircle(pt.X, pt.Y, radius*1.6)
			dc.Fill()
		}

		dc.SetColor(c)
		dc.DrawCircle(pt.X, pt.Y, radius)
		dc.Fill()
	}
}

func (r *Renderer) drawHUD(dc *gg.Context, snap *grid.GridSnapshot) {
	dc.SetColor(color.RGBA{200, 210, 235, 255})
	dc.DrawStringAnchored(
		fmt.Sprintf("%d / %d", snap.FlippedCount, snap.TotalCells),
		float64(r.width)/2, 24, 0.5, 0.5)

	if snap.CompletionActive {
		dc.SetColor(color.RGBA{255, 230, 120, 255})
		dc.DrawStringAnchored("GRID COMPLETE",
			float64(r.width)/2, float64(r.height)-28, 0.5, 0.5)
	}
}

func gridSizeOf(snap *grid.GridSnapshot) int {
	n := 0
	for n*n < len(snap.Cells) {
		n++
	}
	return n
}

// hslToRGBA converts HSL (h in degrees, s and l in [0,1]) to RGBA.
func hslToRGBA(h, s, l float64, a uint8) color.RGBA {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}

	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var rf, gf, bf float64
	switch {
	case h < 60:
		rf, gf, bf = c, x, 0
	case h < 120:
		rf, gf, bf = x, c, 0
	case h < 180:
		rf, gf, bf = 0, c, x
	case h < 240:
		rf, gf, bf = 0, x, c
	case h < 300:
		rf, gf, bf = x, 0, c
	default:
		rf, gf, bf = c, 0, x
	}

	return color.RGBA{
		R: uint8((rf + m) * 255),
		G: uint8((gf + m) * 255),
		B: uint8((bf + m) * 255),
		A: a,
	}
}

// FontPath locates a usable TTF for HUD text.
func FontPath() string {
	paths := []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/System/Library/Fonts/Helvetica.ttc",
		"C:\\Windows\\Fonts\\arial.ttf",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	matches, _ := filepath.Glob("*.ttf")
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}
