package intersect

import (
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/danverne/terrasect/pkg/wall"
)

// plane is the supporting plane n·x = c of a quad.
type plane struct {
	n v3.Vec
	c float64
}

func quadPlane(q wall.Quad) plane {
	n := q.Normal()
	return plane{n: n, c: n.Dot(q.Centroid())}
}

// planeLine returns the intersection line of two planes as a point and a
// unit direction. ok is false when the planes are parallel within cosEps.
func planeLine(p1, p2 plane, cosEps float64) (v3.Vec, v3.Vec, bool) {
	dot := p1.n.Dot(p2.n)
	if dot > 1-cosEps || dot < -(1-cosEps) {
		return v3.Vec{}, v3.Vec{}, false
	}
	d := p1.n.Cross(p2.n)
	dd := d.Dot(d)
	// Point on both planes: ((c1·(n2×d)) + (c2·(d×n1))) / (d·d).
	pt := p2.n.Cross(d).MulScalar(p1.c).Add(d.Cross(p1.n).MulScalar(p2.c)).MulScalar(1 / dd)
	return pt, d.Normalize(), true
}

const clipEps = 1e-12

// clipToQuad clips the parametric line p + t·u against the four edge
// half-spaces of the quad (Cyrus-Beck on the quad's plane) and intersects
// with the incoming [tMin, tMax] interval. ok is false when nothing
// remains.
func clipToQuad(p, u v3.Vec, q wall.Quad, tMin, tMax float64) (float64, float64, bool) {
	n := q.Normal()
	for i := 0; i < 4; i++ {
		a := q[i]
		b := q[(i+1)%4]
		edge := b.Sub(a)
		inward := n.Cross(edge)

		f0 := p.Sub(a).Dot(inward)
		df := u.Dot(inward)
		if df > -clipEps && df < clipEps {
			// Line runs parallel to this edge's half-space boundary.
			if f0 < -clipEps {
				return 0, 0, false
			}
			continue
		}
		t := -f0 / df
		if df > 0 {
			if t > tMin {
				tMin = t
			}
		} else {
			if t < tMax {
				tMax = t
			}
		}
		if tMin > tMax {
			return 0, 0, false
		}
	}
	return tMin, tMax, true
}

// segment is one clipped piece of a pair's intersection line.
type segment struct {
	a, b v3.Vec
}

// chainSegments orders segment endpoints into a single polyline, greedily
// appending the nearest remaining point. Consecutive duplicates within
// weldTol are merged.
func chainSegments(segs []segment, weldTol float64) []v3.Vec {
	if len(segs) == 0 {
		return nil
	}
	pts := make([]v3.Vec, 0, len(segs)*2)
	for _, s := range segs {
		pts = append(pts, s.a, s.b)
	}

	used := make([]bool, len(pts))
	ordered := make([]v3.Vec, 0, len(pts))
	ordered = append(ordered, pts[0])
	used[0] = true
	for {
		last := ordered[len(ordered)-1]
		best := -1
		bestDist := 0.0
		for i, p := range pts {
			if used[i] {
				continue
			}
			d := p.Sub(last).Length()
			if best < 0 || d < bestDist {
				best = i
				bestDist = d
			}
		}
		if best < 0 {
			break
		}
		used[best] = true
		if bestDist > weldTol {
			ordered = append(ordered, pts[best])
		}
	}
	return ordered
}
