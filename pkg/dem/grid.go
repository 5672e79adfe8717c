package dem

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Grid is an in-memory raster elevation surface. Values are stored row-major
// with the value at (col, row) taken to sit at the center of its cell; row 0
// is the southern (minimum Y) edge. Cells holding the grid's no-data marker
// sample as the no-data sentinel.
type Grid struct {
	name   string
	origin v2.Vec // world coordinates of the grid's min corner
	cell   float64
	cols   int
	rows   int
	values []float64
	nodata float64 // marker value in the input data, NaN if none
	mode   Interpolation
}

// NewGrid creates a grid surface from row-major values. origin is the world
// position of the minimum corner, cell the square cell size, nodata the
// marker used for missing cells in values (pass NaN if the data has none),
// and mode the interpolation fixed for the surface's lifetime.
func NewGrid(name string, origin v2.Vec, cell float64, cols, rows int, values []float64, nodata float64, mode Interpolation) (*Grid, error) {
	if cols < 1 || rows < 1 {
		return nil, fmt.Errorf("dem: grid %q needs at least 1x1 cells, got %dx%d", name, cols, rows)
	}
	if cell <= 0 {
		return nil, fmt.Errorf("dem: grid %q cell size must be positive, got %v", name, cell)
	}
	if len(values) != cols*rows {
		return nil, fmt.Errorf("dem: grid %q expects %d values, got %d", name, cols*rows, len(values))
	}
	return &Grid{
		name:   name,
		origin: origin,
		cell:   cell,
		cols:   cols,
		rows:   rows,
		values: values,
		nodata: nodata,
		mode:   mode,
	}, nil
}

// Name returns the grid's display name.
func (g *Grid) Name() string { return g.name }

// Mode returns the interpolation mode fixed at creation.
func (g *Grid) Mode() Interpolation { return g.mode }

// Extent returns the world extent covered by the grid cells.
func (g *Grid) Extent() sdf.Box2 {
	return sdf.Box2{
		Min: g.origin,
		Max: v2.Vec{
			X: g.origin.X + float64(g.cols)*g.cell,
			Y: g.origin.Y + float64(g.rows)*g.cell,
		},
	}
}

// at returns the raw cell value at (col, row), mapped to the sentinel.
func (g *Grid) at(col, row int) float64 {
	v := g.values[row*g.cols+col]
	if math.IsNaN(v) || (!math.IsNaN(g.nodata) && v == g.nodata) {
		return NoData()
	}
	return v
}

// SampleAt returns the elevation at (x, y). Out-of-extent coordinates and
// cells marked no-data yield the sentinel. In bilinear mode a no-data value
// in any of the four contributing cells makes the whole sample no-data, so
// missing cells are never blended into a plausible-looking elevation.
func (g *Grid) SampleAt(x, y float64) float64 {
	if !boxContains(g.Extent(), v2.Vec{X: x, Y: y}) {
		return NoData()
	}

	// Continuous cell coordinates, with cell centers at +0.5.
	gx := (x - g.origin.X) / g.cell
	gy := (y - g.origin.Y) / g.cell

	if g.mode == Nearest {
		col := clampIndex(int(gx), g.cols)
		row := clampIndex(int(gy), g.rows)
		return g.at(col, row)
	}

	// Bilinear between the four surrounding cell centers. The continuous
	// coordinate is clamped to the center lattice first so the border
	// half-cell holds its edge value instead of extrapolating.
	fx := clampRange(gx-0.5, float64(g.cols-1))
	fy := clampRange(gy-0.5, float64(g.rows-1))
	c0 := int(math.Floor(fx))
	r0 := int(math.Floor(fy))
	c1 := clampIndex(c0+1, g.cols)
	r1 := clampIndex(r0+1, g.rows)
	tx := fx - float64(c0)
	ty := fy - float64(r0)

	v00 := g.at(c0, r0)
	v10 := g.at(c1, r0)
	v01 := g.at(c0, r1)
	v11 := g.at(c1, r1)
	if IsNoData(v00) || IsNoData(v10) || IsNoData(v01) || IsNoData(v11) {
		return NoData()
	}

	a := v00 + (v10-v00)*tx
	b := v01 + (v11-v01)*tx
	return a + (b-a)*ty
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

func clampRange(t, hi float64) float64 {
	if t < 0 {
		return 0
	}
	if t > hi {
		return hi
	}
	return t
}
