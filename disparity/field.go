// Package disparity holds the dense stereo correspondence field consumed by
// cross-view consistency residuals: a grid of per-pixel left-to-right
// displacement vectors, each cell either valid or masked out.
package disparity

import (
	"math"

	"github.com/golang/geo/r2"
)

// Field is a 2D grid of optional disparity vectors indexed by left-image
// pixel. The grid is read-only once populated; lookups are safe for
// concurrent use.
type Field struct {
	width  int
	height int

	valid []bool
	flow  []r2.Point
}

// NewField allocates an all-invalid disparity field of the given dimensions.
func NewField(width, height int) *Field {
	return &Field{
		width:  width,
		height: height,
		valid:  make([]bool, width*height),
		flow:   make([]r2.Point, width*height),
	}
}

// Width returns the number of columns in the field.
func (f *Field) Width() int {
	return f.width
}

// Height returns the number of rows in the field.
func (f *Field) Height() int {
	return f.height
}

func (f *Field) index(x, y int) int {
	return y*f.width + x
}

// Set marks the cell at (x, y) valid with the given disparity vector.
func (f *Field) Set(x, y int, d r2.Point) {
	i := f.index(x, y)
	f.valid[i] = true
	f.flow[i] = d
}

// Invalidate masks out the cell at (x, y).
func (f *Field) Invalidate(x, y int) {
	i := f.index(x, y)
	f.valid[i] = false
	f.flow[i] = r2.Point{}
}

// Get returns the disparity at an integer cell and whether it is valid.
func (f *Field) Get(x, y int) (r2.Point, bool) {
	if x < 0 || y < 0 || x >= f.width || y >= f.height {
		return r2.Point{}, false
	}
	i := f.index(x, y)
	return f.flow[i], f.valid[i]
}

// InBounds reports whether the fractional pixel p can be sampled, i.e. the
// four cells surrounding it all lie inside the grid.
func (f *Field) InBounds(p r2.Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X <= float64(f.width-1) && p.Y <= float64(f.height-1)
}

// Sample looks up the disparity at a fractional pixel with bilinear
// interpolation. It reports false when p is out of bounds or any of the four
// surrounding cells is invalid.
func (f *Field) Sample(p r2.Point) (r2.Point, bool) {
	if !f.InBounds(p) {
		return r2.Point{}, false
	}
	x0 := int(math.Floor(p.X))
	y0 := int(math.Floor(p.Y))
	x1, y1 := x0+1, y0+1
	if x1 >= f.width {
		x1 = x0
	}
	if y1 >= f.height {
		y1 = y0
	}

	d00, ok00 := f.Get(x0, y0)
	d10, ok10 := f.Get(x1, y0)
	d01, ok01 := f.Get(x0, y1)
	d11, ok11 := f.Get(x1, y1)
	if !ok00 || !ok10 || !ok01 || !ok11 {
		return r2.Point{}, false
	}

	fx := p.X - float64(x0)
	fy := p.Y - float64(y0)
	top := d00.Mul(1 - fx).Add(d10.Mul(fx))
	bottom := d01.Mul(1 - fx).Add(d11.Mul(fx))
	return top.Mul(1 - fy).Add(bottom.Mul(fy)), true
}
