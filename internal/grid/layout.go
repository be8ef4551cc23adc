package grid

// Layout maps grid coordinates to canvas positions. The grid occupies the
// largest centered square that fits the canvas, with a small outer margin.
type Layout struct {
	Width, Height int
	GridSize      int

	CellSize float64 // Pitch between cell centers
	OffsetX  float64 // Canvas x of the grid's left edge
	OffsetY  float64 // Canvas y of the grid's top edge
}

// ComputeLayout derives cell geometry for the given canvas dimensions.
func ComputeLayout(width, height, gridSize int) Layout {
	l := Layout{Width: width, Height: height, GridSize: gridSize}

	side := float64(width)
	if float64(height) < side {
		side = float64(height)
	}
	side *= 0.92 // outer margin

	l.CellSize = side / float64(gridSize)
	l.OffsetX = (float64(width) - side) / 2
	l.OffsetY = (float64(height) - side) / 2
	return l
}

// CellCenter returns the canvas position of a cell's center.
func (l Layout) CellCenter(row, col int) (float64, float64) {
	x := l.OffsetX + (float64(col)+0.5)*l.CellSize
	y := l.OffsetY + (float64(row)+0.5)*l.CellSize
	return x, y
}

// GridCenter returns the canvas position of the grid's center, used as the
// finale burst origin.
func (l Layout) GridCenter() (float64, float64) {
	side := l.CellSize * float64(l.GridSize)
	return l.OffsetX + side/2, l.OffsetY + side/2
}

// CellAt resolves a canvas position to grid coordinates for pointer and
// touch input. ok is false outside the grid area.
func (l Layout) CellAt(x, y float64) (row, col int, ok bool) {
	if l.CellSize <= 0 {
		return 0, 0, false
	}
	col = int((x - l.OffsetX) / l.CellSize)
	row = int((y - l.OffsetY) / l.CellSize)
	if x < l.OffsetX || y < l.OffsetY || row < 0 || col < 0 || row >= l.GridSize || col >= l.GridSize {
		return 0, 0, false
	}
	return row, col, true
}
