package profile

import (
	"math"

	v2 "github.com/deadsy/sdfx/vec/v2"
)

// miterClamp bounds the miter extension at sharp interior vertices so a
// near-reversal in the centerline cannot throw the offset vertex to
// infinity and fold the offset line over itself.
const miterClamp = 0.25

// leftNormal returns the unit perpendicular to the left of direction d.
func leftNormal(d v2.Vec) v2.Vec {
	n := v2.Vec{X: -d.Y, Y: d.X}
	return n.Normalize()
}

// offsetPolyline offsets the polyline by signed distance d: positive to
// the left of the direction of travel, negative to the right. Offsets are
// computed per segment; interior vertices are mitred so the result stays a
// simple polyline for sane inputs. Zero-length segments are skipped when
// deriving directions.
func offsetPolyline(pts []v2.Vec, d float64) []v2.Vec {
	dirs := make([]v2.Vec, 0, len(pts)-1)
	for i := 1; i < len(pts); i++ {
		seg := pts[i].Sub(pts[i-1])
		if seg.Length() == 0 {
			// Repeated vertex: reuse the previous direction below.
			dirs = append(dirs, v2.Vec{})
			continue
		}
		dirs = append(dirs, seg.Normalize())
	}
	// Backfill zero directions from neighbors.
	for i := range dirs {
		if dirs[i].Length() == 0 {
			if i > 0 {
				dirs[i] = dirs[i-1]
			} else {
				for j := i + 1; j < len(dirs); j++ {
					if dirs[j].Length() != 0 {
						dirs[i] = dirs[j]
						break
					}
				}
			}
		}
	}

	out := make([]v2.Vec, len(pts))
	for i := range pts {
		switch {
		case i == 0:
			out[i] = pts[i].Add(leftNormal(dirs[0]).MulScalar(d))
		case i == len(pts)-1:
			out[i] = pts[i].Add(leftNormal(dirs[len(dirs)-1]).MulScalar(d))
		default:
			n1 := leftNormal(dirs[i-1])
			n2 := leftNormal(dirs[i])
			m := n1.Add(n2)
			if m.Length() < 1e-12 {
				// Segments reverse exactly; fall back to the incoming normal.
				out[i] = pts[i].Add(n1.MulScalar(d))
				continue
			}
			m = m.Normalize()
			// Miter scale 1/cos(theta/2), clamped at sharp angles.
			cos := m.Dot(n1)
			if cos < miterClamp {
				cos = miterClamp
			}
			out[i] = pts[i].Add(m.MulScalar(d / cos))
		}
	}
	return out
}

// segmentNormal returns the unit horizontal perpendicular of the segment
// from a to b, pointing to the left of travel. Degenerate segments get the
// +Y normal.
func segmentNormal(a, b v2.Vec) v2.Vec {
	seg := b.Sub(a)
	if seg.Length() == 0 {
		return v2.Vec{X: 0, Y: 1}
	}
	return leftNormal(seg.Normalize())
}

// parallelSeparation returns the perpendicular distance from point p to
// the infinite line through a with direction d (unit). Used by tests to
// verify offset invariants.
func parallelSeparation(p, a, d v2.Vec) float64 {
	ap := p.Sub(a)
	// 2D cross product magnitude = perpendicular distance for unit d.
	return math.Abs(ap.X*d.Y - ap.Y*d.X)
}
