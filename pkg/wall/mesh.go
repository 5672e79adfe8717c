// Package wall builds ruled 3D wall meshes from section pairs.
//
// Layer band convention: m supplied surfaces yield exactly m bands.
// Surfaces are ordered by descending mean valid elevation (topmost first).
// Band k is bounded above by surface k's sheet and below by surface k+1's;
// the last band is bounded below by the flat base plane at the lowest
// surface's minimum valid elevation minus BaseDrop, so the lowest surface
// closes the wall's base. Thickness is a horizontal extrusion perpendicular
// to the centerline: the A and B faces are each pushed outward by half of
// it. Vertical exaggeration is a renderer concern and never applied here.
package wall

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Quad is one planar-ish patch of the wall's reference sheet, one per
// sample segment. Corners run A_i, B_i, B_i+1, A_i+1.
type Quad [4]v3.Vec

// Centroid returns the mean of the four corners.
func (q Quad) Centroid() v3.Vec {
	c := q[0].Add(q[1]).Add(q[2]).Add(q[3])
	return c.MulScalar(0.25)
}

// Normal returns the unit normal of the quad's supporting plane, from the
// cross product of its diagonals. Works for mildly non-planar ruled quads.
func (q Quad) Normal() v3.Vec {
	d1 := q[2].Sub(q[0])
	d2 := q[3].Sub(q[1])
	return d1.Cross(d2).Normalize()
}

// Band describes one stratigraphic slice of the wall.
type Band struct {
	Index   int    `json:"index"`   // 0 = topmost
	Surface string `json:"surface"` // contributing surface name
}

// Mesh is a ruled wall built from one section pair. Triangle i belongs to
// layer band TriBand[i]. SheetQuads is the reference sheet the
// intersection engine consumes: one quad per sample segment between the
// paired profiles, with QuadValid false where no-data left a gap.
type Mesh struct {
	Label string

	Triangles []sdf.Triangle3
	TriBand   []int

	SheetQuads []Quad
	QuadValid  []bool

	Bands        []Band
	ValidSamples int
	Base         float64 // base plane elevation closing the lowest band
	Thickness    float64

	bbox    sdf.Box3
	hasBBox bool
}

// IsEmpty reports whether the wall carries no geometry.
func (m *Mesh) IsEmpty() bool { return len(m.Triangles) == 0 }

// TriangleCount returns the number of emitted triangles.
func (m *Mesh) TriangleCount() int { return len(m.Triangles) }

// BandCount returns the number of layer bands, equal to the number of
// surfaces supplied to the builder.
func (m *Mesh) BandCount() int { return len(m.Bands) }

// BoundingBox returns the wall's 3D axis-aligned bounding box. The second
// return is false for a wall with no geometry.
func (m *Mesh) BoundingBox() (sdf.Box3, bool) {
	return m.bbox, m.hasBBox
}

// grow extends the bounding box to include p.
func (m *Mesh) grow(p v3.Vec) {
	if !m.hasBBox {
		m.bbox = sdf.Box3{Min: p, Max: p}
		m.hasBBox = true
		return
	}
	if p.X < m.bbox.Min.X {
		m.bbox.Min.X = p.X
	}
	if p.Y < m.bbox.Min.Y {
		m.bbox.Min.Y = p.Y
	}
	if p.Z < m.bbox.Min.Z {
		m.bbox.Min.Z = p.Z
	}
	if p.X > m.bbox.Max.X {
		m.bbox.Max.X = p.X
	}
	if p.Y > m.bbox.Max.Y {
		m.bbox.Max.Y = p.Y
	}
	if p.Z > m.bbox.Max.Z {
		m.bbox.Max.Z = p.Z
	}
}

// addQuad emits a quad as two triangles in the given band. Corners are
// expected in ring order.
func (m *Mesh) addQuad(band int, a, b, c, d v3.Vec) {
	m.Triangles = append(m.Triangles,
		sdf.Triangle3{a, b, c},
		sdf.Triangle3{a, c, d},
	)
	m.TriBand = append(m.TriBand, band, band)
	m.grow(a)
	m.grow(b)
	m.grow(c)
	m.grow(d)
}

// Buffers is the flat vertex/index form handed to visualization and
// export consumers. Three floats per vertex, three indices per triangle,
// one band id per vertex.
type Buffers struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	BandIDs  []uint32  `json:"band_ids"`
}

// Flatten converts the triangle soup to flat buffers with per-vertex band
// ids for stratigraphic coloring.
func (m *Mesh) Flatten() *Buffers {
	numVerts := len(m.Triangles) * 3
	out := &Buffers{
		Vertices: make([]float32, 0, numVerts*3),
		Normals:  make([]float32, 0, numVerts*3),
		Indices:  make([]uint32, 0, numVerts),
		BandIDs:  make([]uint32, 0, numVerts),
	}
	for i, tri := range m.Triangles {
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)
		band := uint32(m.TriBand[i])
		for j := 0; j < 3; j++ {
			v := tri[j]
			out.Vertices = append(out.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			out.Normals = append(out.Normals, nx, ny, nz)
			out.Indices = append(out.Indices, uint32(i*3+j))
			out.BandIDs = append(out.BandIDs, band)
		}
	}
	return out
}
