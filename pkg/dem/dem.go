// Package dem provides elevation surfaces and point sampling.
// A Surface is an opaque handle with an extent and a fixed interpolation
// mode; sampling outside the extent or over missing cells yields the
// no-data value rather than an error.
package dem

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// NoData returns the no-data sentinel. Missing elevations are represented
// as NaN so that they propagate through arithmetic without being mistaken
// for a real elevation.
func NoData() float64 {
	return math.NaN()
}

// IsNoData reports whether v is the no-data sentinel.
func IsNoData(v float64) bool {
	return math.IsNaN(v)
}

// Interpolation selects how a grid surface resolves between cell centers.
// The mode is fixed when the surface is created, not per call.
type Interpolation int

const (
	Nearest Interpolation = iota
	Bilinear
)

func (m Interpolation) String() string {
	switch m {
	case Nearest:
		return "nearest"
	case Bilinear:
		return "bilinear"
	default:
		return "unknown"
	}
}

// Surface is an elevation surface handle. Implementations must be
// deterministic: identical coordinates yield identical elevations.
type Surface interface {
	// SampleAt returns the elevation at world coordinates (x, y),
	// or the no-data sentinel for out-of-extent or missing samples.
	SampleAt(x, y float64) float64

	// Extent returns the axis-aligned world extent of the surface.
	Extent() sdf.Box2

	// Name returns the display name of the surface.
	Name() string
}

// boxContains reports whether p lies inside b (inclusive).
func boxContains(b sdf.Box2, p v2.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// unbounded is the extent used by analytic surfaces defined everywhere.
func unbounded() sdf.Box2 {
	inf := math.Inf(1)
	return sdf.Box2{
		Min: v2.Vec{X: -inf, Y: -inf},
		Max: v2.Vec{X: inf, Y: inf},
	}
}
