package wall

import (
	"fmt"
	"math"
	"sort"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/danverne/terrasect/pkg/profile"
)

// DefaultBaseDrop is how far the wall base sits below the lowest surface's
// minimum valid elevation, in world units.
const DefaultBaseDrop = 10.0

// Builder constructs wall meshes from section pairs.
type Builder struct {
	Thickness float64 // horizontal perpendicular extrusion, > 0
	BaseDrop  float64 // base plane depth below the lowest surface
}

// NewBuilder creates a builder with the given horizontal thickness and the
// default base drop.
func NewBuilder(thickness float64) (*Builder, error) {
	if thickness <= 0 {
		return nil, profile.ConfigurationError{
			Param:   "thickness",
			Message: fmt.Sprintf("must be positive, got %v", thickness),
		}
	}
	return &Builder{Thickness: thickness, BaseDrop: DefaultBaseDrop}, nil
}

// series is one surface's filled elevations along the A and B lines.
type series struct {
	surface string
	elevA   []float64
	elevB   []float64
	validA  []bool
	validB  []bool
	mean    float64
	valid   int
}

// Build turns a section pair into a wall mesh with one layer band per
// surface carried by the pair. No-data samples flanked by valid neighbors
// are linearly interpolated; unrecoverable samples leave explicit gaps in
// the mesh. A pair whose surfaces never produced data yields an empty
// mesh, not an error, so one bad surface cannot abort a session build.
func (b *Builder) Build(pair *profile.SectionPair) (*Mesh, error) {
	if pair == nil {
		return nil, profile.ConfigurationError{Param: "pair", Message: "nil section pair"}
	}
	if len(pair.A) == 0 || len(pair.A) != len(pair.B) {
		return nil, profile.ConfigurationError{
			Param:   "pair",
			Message: fmt.Sprintf("need matching A/B profile sets, got %d/%d", len(pair.A), len(pair.B)),
		}
	}
	n := pair.Samples
	if n < 2 {
		return nil, profile.ConfigurationError{
			Param:   "pair",
			Message: fmt.Sprintf("need at least 2 samples, got %d", n),
		}
	}
	for i := range pair.A {
		if pair.A[i].Len() != n || pair.B[i].Len() != n {
			return nil, profile.ConfigurationError{
				Param:   "pair",
				Message: fmt.Sprintf("profile %d sample count differs from pair's %d", i, n),
			}
		}
	}

	// Fill recoverable no-data and order surfaces top to bottom.
	bands := make([]*series, len(pair.A))
	for i := range pair.A {
		bands[i] = fillSeries(pair.A[i], pair.B[i])
	}
	sort.SliceStable(bands, func(i, j int) bool {
		// All-no-data surfaces sink to the bottom of the ordering.
		if bands[i].valid == 0 || bands[j].valid == 0 {
			return bands[i].valid > bands[j].valid
		}
		return bands[i].mean > bands[j].mean
	})

	m := &Mesh{Thickness: b.Thickness}
	for k, s := range bands {
		m.Bands = append(m.Bands, Band{Index: k, Surface: s.surface})
	}

	base, ok := basePlane(bands, b.BaseDrop)
	if !ok {
		// Every surface missed everywhere: an empty, excluded wall.
		m.QuadValid = make([]bool, n-1)
		m.SheetQuads = make([]Quad, n-1)
		return m, nil
	}
	m.Base = base

	// Extruded face positions: A pushed outward by thickness/2, B the
	// other way, along the horizontal A-B direction at each sample.
	posA := make([]v2.Vec, n)
	posB := make([]v2.Vec, n)
	for i := 0; i < n; i++ {
		sa := pair.A[0].Samples[i]
		sb := pair.B[0].Samples[i]
		a := v2.Vec{X: sa.X, Y: sa.Y}
		bb := v2.Vec{X: sb.X, Y: sb.Y}
		nrm := faceNormal(a, bb, posA, i)
		posA[i] = a.Add(nrm.MulScalar(b.Thickness / 2))
		posB[i] = bb.Sub(nrm.MulScalar(b.Thickness / 2))
	}

	// bottom[k][i]: the elevation closing band k under sample i, which is
	// the next lower surface with data there, else the base plane.
	botA := bandBottoms(bands, base, func(s *series) ([]float64, []bool) { return s.elevA, s.validA })
	botB := bandBottoms(bands, base, func(s *series) ([]float64, []bool) { return s.elevB, s.validB })

	for k, s := range bands {
		firstValid, lastValid := -1, -1
		for i := 0; i < n-1; i++ {
			if !segmentValid(s, i) {
				continue
			}
			if firstValid < 0 {
				firstValid = i
			}
			lastValid = i

			a0 := lift(posA[i], s.elevA[i])
			a1 := lift(posA[i+1], s.elevA[i+1])
			b0 := lift(posB[i], s.elevB[i])
			b1 := lift(posB[i+1], s.elevB[i+1])

			// Top sheet of the band.
			m.addQuad(k, a0, b0, b1, a1)

			// Side curtains down to the band bottom.
			m.addQuad(k, a0, a1, lift(posA[i+1], clampBelow(botA[k][i+1], s.elevA[i+1])), lift(posA[i], clampBelow(botA[k][i], s.elevA[i])))
			m.addQuad(k, b1, b0, lift(posB[i], clampBelow(botB[k][i], s.elevB[i])), lift(posB[i+1], clampBelow(botB[k][i+1], s.elevB[i+1])))

			// The lowest band closes the base.
			if k == len(bands)-1 {
				m.addQuad(k, lift(posA[i], base), lift(posA[i+1], base), lift(posB[i+1], base), lift(posB[i], base))
			}
		}

		// End caps at the band's extreme valid samples.
		if firstValid >= 0 {
			m.addCap(k, posA[firstValid], posB[firstValid], s, botA[k], botB[k], firstValid)
			m.addCap(k, posA[lastValid+1], posB[lastValid+1], s, botA[k], botB[k], lastValid+1)
		}
	}

	// Reference sheet for the intersection engine: the topmost band.
	top := bands[0]
	m.SheetQuads = make([]Quad, n-1)
	m.QuadValid = make([]bool, n-1)
	for i := 0; i < n-1; i++ {
		if !segmentValid(top, i) {
			continue
		}
		m.QuadValid[i] = true
		m.SheetQuads[i] = Quad{
			lift(posA[i], top.elevA[i]),
			lift(posB[i], top.elevB[i]),
			lift(posB[i+1], top.elevB[i+1]),
			lift(posA[i+1], top.elevA[i+1]),
		}
	}
	for i := 0; i < n; i++ {
		if top.validA[i] && top.validB[i] {
			m.ValidSamples++
		}
	}

	return m, nil
}

// addCap emits a vertical end face for band k at sample i.
func (m *Mesh) addCap(k int, pa, pb v2.Vec, s *series, botA, botB []float64, i int) {
	m.addQuad(k,
		lift(pa, s.elevA[i]),
		lift(pb, s.elevB[i]),
		lift(pb, clampBelow(botB[i], s.elevB[i])),
		lift(pa, clampBelow(botA[i], s.elevA[i])),
	)
}

// segmentValid reports whether all four corners of segment i have data.
func segmentValid(s *series, i int) bool {
	return s.validA[i] && s.validA[i+1] && s.validB[i] && s.validB[i+1]
}

// lift places a 2D world position at elevation z.
func lift(p v2.Vec, z float64) v3.Vec {
	return v3.Vec{X: p.X, Y: p.Y, Z: z}
}

// clampBelow keeps a band bottom at or under its top so crossing surfaces
// cannot turn a band inside out.
func clampBelow(bot, top float64) float64 {
	if bot > top {
		return top
	}
	return bot
}

// faceNormal derives the horizontal unit direction from B toward A at
// sample i, falling back to the perpendicular of the A line when the two
// lines touch.
func faceNormal(a, b v2.Vec, lineA []v2.Vec, i int) v2.Vec {
	d := a.Sub(b)
	if d.Length() > 1e-12 {
		return d.Normalize()
	}
	if i > 0 {
		seg := a.Sub(lineA[i-1])
		if seg.Length() > 1e-12 {
			s := seg.Normalize()
			return v2.Vec{X: -s.Y, Y: s.X}
		}
	}
	return v2.Vec{X: 0, Y: 1}
}

// bandBottoms computes, for every band and sample, the elevation of the
// next lower surface holding data there, defaulting to the base plane.
func bandBottoms(bands []*series, base float64, side func(*series) ([]float64, []bool)) [][]float64 {
	if len(bands) == 0 {
		return nil
	}
	elev0, _ := side(bands[0])
	out := make([][]float64, len(bands))
	for k := range bands {
		out[k] = make([]float64, len(elev0))
		for i := range out[k] {
			out[k][i] = base
			for j := k + 1; j < len(bands); j++ {
				ej, vj := side(bands[j])
				if vj[i] {
					out[k][i] = ej[i]
					break
				}
			}
		}
	}
	return out
}

// basePlane returns the base elevation: the lowest surface's minimum
// valid elevation minus drop. Surfaces without any data are skipped; ok is
// false when no surface produced data at all.
func basePlane(bands []*series, drop float64) (float64, bool) {
	for k := len(bands) - 1; k >= 0; k-- {
		s := bands[k]
		if s.valid == 0 {
			continue
		}
		low := math.Inf(1)
		for i, v := range s.validA {
			if v && s.elevA[i] < low {
				low = s.elevA[i]
			}
		}
		for i, v := range s.validB {
			if v && s.elevB[i] < low {
				low = s.elevB[i]
			}
		}
		return low - drop, true
	}
	return 0, false
}

// fillSeries copies one surface's A/B elevations, linearly interpolating
// no-data samples that have a valid neighbor on each side. Samples missing
// a flanking neighbor stay invalid and become mesh gaps.
func fillSeries(a, b *profile.Profile) *series {
	s := &series{surface: a.SurfaceName}
	s.elevA, s.validA = fillProfile(a)
	s.elevB, s.validB = fillProfile(b)

	sum := 0.0
	for i, ok := range s.validA {
		if ok {
			sum += s.elevA[i]
			s.valid++
		}
	}
	for i, ok := range s.validB {
		if ok {
			sum += s.elevB[i]
			s.valid++
		}
	}
	if s.valid > 0 {
		s.mean = sum / float64(s.valid)
	}
	return s
}

// fillProfile interpolates interior no-data runs of one profile by
// distance between the nearest valid samples.
func fillProfile(p *profile.Profile) ([]float64, []bool) {
	n := p.Len()
	elev := make([]float64, n)
	valid := make([]bool, n)
	for i, smp := range p.Samples {
		elev[i] = smp.Elevation
		valid[i] = !smp.NoData()
	}

	prev := -1
	for i := 0; i < n; i++ {
		if valid[i] {
			prev = i
			continue
		}
		if prev < 0 {
			continue // leading run: no left neighbor
		}
		next := -1
		for j := i + 1; j < n; j++ {
			if valid[j] {
				next = j
				break
			}
		}
		if next < 0 {
			break // trailing run: no right neighbor
		}
		d0 := p.Samples[prev].Distance
		d1 := p.Samples[next].Distance
		t := 0.0
		if d1 > d0 {
			t = (p.Samples[i].Distance - d0) / (d1 - d0)
		}
		elev[i] = elev[prev] + (elev[next]-elev[prev])*t
		valid[i] = true
	}
	return elev, valid
}
