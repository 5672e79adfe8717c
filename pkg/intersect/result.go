// Package intersect computes 3D intersection curves between wall meshes.
// Results form a closed tagged variant: a pair of walls either produced a
// non-empty curve or an explicit degenerate marker. There is no way to
// read points off a degenerate result.
package intersect

import v3 "github.com/deadsy/sdfx/vec/v3"

// Result is the outcome for one unordered wall pair whose bounding boxes
// overlap. Concrete variants are Curve and Degenerate.
type Result interface {
	result() // marker method restricting implementations to this package

	// Walls returns the two contributing wall ids, lower id first.
	Walls() (int, int)
}

// Curve is a non-empty ordered 3D polyline where two walls cross.
type Curve struct {
	WallA  int      `json:"wall_a"`
	WallB  int      `json:"wall_b"`
	Points []v3.Vec `json:"points"`
}

func (Curve) result() {}

// Walls returns the contributing wall ids.
func (c Curve) Walls() (int, int) { return c.WallA, c.WallB }

// Length returns the polyline's total length.
func (c Curve) Length() float64 {
	total := 0.0
	for i := 1; i < len(c.Points); i++ {
		total += c.Points[i].Sub(c.Points[i-1]).Length()
	}
	return total
}

// Degenerate records a valid "no crossing" outcome: near-parallel walls,
// or overlapping bounds whose quads never meet.
type Degenerate struct {
	WallA  int    `json:"wall_a"`
	WallB  int    `json:"wall_b"`
	Reason string `json:"reason"`
}

func (Degenerate) result() {}

// Walls returns the contributing wall ids.
func (d Degenerate) Walls() (int, int) { return d.WallA, d.WallB }
