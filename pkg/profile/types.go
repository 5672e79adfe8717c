// Package profile turns drawn baselines into ordered elevation profiles.
// A Baseline is the user-drawn polyline, a Profile the evenly resampled
// elevations along it for one surface, and a SectionPair the two parallel
// profiles derived from a centerline by perpendicular offset.
package profile

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/danverne/terrasect/pkg/dem"
)

// MaxSamples is the largest supported per-profile sample count. The
// intersection solver is quadratic in segment count per wall pair, so the
// cap keeps worst-case pairs tractable.
const MaxSamples = 1000

// Baseline is an ordered sequence of world-coordinate vertices. It is
// immutable once created; accessors return copies.
type Baseline struct {
	pts []v2.Vec
}

// NewBaseline creates a baseline from at least two vertices with non-zero
// total length. The vertex slice is copied.
func NewBaseline(pts ...v2.Vec) (Baseline, error) {
	if len(pts) < 2 {
		return Baseline{}, GeometryError{Message: "baseline needs at least 2 vertices"}
	}
	cp := make([]v2.Vec, len(pts))
	copy(cp, pts)
	b := Baseline{pts: cp}
	if b.Length() == 0 {
		return Baseline{}, GeometryError{Message: "baseline has zero length"}
	}
	return b, nil
}

// NumVertices returns the vertex count.
func (b Baseline) NumVertices() int { return len(b.pts) }

// Vertex returns the i-th vertex.
func (b Baseline) Vertex(i int) v2.Vec { return b.pts[i] }

// Vertices returns a copy of the vertex sequence.
func (b Baseline) Vertices() []v2.Vec {
	cp := make([]v2.Vec, len(b.pts))
	copy(cp, b.pts)
	return cp
}

// Length returns the total polyline length.
func (b Baseline) Length() float64 {
	total := 0.0
	for i := 1; i < len(b.pts); i++ {
		total += b.pts[i].Sub(b.pts[i-1]).Length()
	}
	return total
}

// IsZero reports whether the baseline was never initialized.
func (b Baseline) IsZero() bool { return len(b.pts) == 0 }

// Sample is one elevation sample along a baseline.
type Sample struct {
	Distance  float64 `json:"distance"` // cumulative distance from the baseline start
	X         float64 `json:"x"`        // world coordinates of the sample point
	Y         float64 `json:"y"`
	Elevation float64 `json:"elevation"` // NaN when no data
}

// NoData reports whether the sample has no elevation.
func (s Sample) NoData() bool { return dem.IsNoData(s.Elevation) }

// Profile is an ordered run of samples along one baseline for one surface.
// The sample count is fixed at creation and the cumulative distances are
// strictly increasing.
type Profile struct {
	SurfaceName string   `json:"surface"`
	Line        Baseline `json:"-"`
	Samples     []Sample `json:"samples"`

	// AllNoData flags a profile whose every sample missed the surface.
	// This is data, not an error: downstream consumers render a gap.
	AllNoData bool `json:"all_no_data"`
}

// Len returns the fixed sample count.
func (p *Profile) Len() int { return len(p.Samples) }

// ValidCount returns the number of samples carrying real elevations.
func (p *Profile) ValidCount() int {
	n := 0
	for _, s := range p.Samples {
		if !s.NoData() {
			n++
		}
	}
	return n
}

// Stats summarizes the valid elevations of a profile.
type Stats struct {
	Valid int     `json:"valid"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Range float64 `json:"range"`
}

// Stats computes summary statistics over the valid samples. With no valid
// samples every field except Valid is NaN.
func (p *Profile) Stats() Stats {
	st := Stats{
		Min:   math.NaN(),
		Max:   math.NaN(),
		Mean:  math.NaN(),
		Std:   math.NaN(),
		Range: math.NaN(),
	}
	sum := 0.0
	for _, s := range p.Samples {
		if s.NoData() {
			continue
		}
		if st.Valid == 0 || s.Elevation < st.Min {
			st.Min = s.Elevation
		}
		if st.Valid == 0 || s.Elevation > st.Max {
			st.Max = s.Elevation
		}
		sum += s.Elevation
		st.Valid++
	}
	if st.Valid == 0 {
		return st
	}
	st.Mean = sum / float64(st.Valid)
	st.Range = st.Max - st.Min

	varSum := 0.0
	for _, s := range p.Samples {
		if s.NoData() {
			continue
		}
		d := s.Elevation - st.Mean
		varSum += d * d
	}
	st.Std = math.Sqrt(varSum / float64(st.Valid))
	return st
}

// SectionPair holds the two parallel profile sets derived from one
// centerline. A and B carry one profile per supplied surface, in supply
// order; A[0] and B[0] are the primary profiles.
type SectionPair struct {
	Center Baseline
	LineA  Baseline
	LineB  Baseline

	A []*Profile
	B []*Profile

	Offset  float64 // perpendicular separation between LineA and LineB
	Width   float64 // polygon width that generated the pair, == Offset for dual sections
	Samples int
}
