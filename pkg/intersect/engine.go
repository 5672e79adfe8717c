package intersect

import (
	"sort"

	"github.com/deadsy/sdfx/sdf"
	"github.com/dhconnelly/rtreego"

	"github.com/danverne/terrasect/pkg/wall"
)

// Wall pairs an id with its mesh. Ids are assigned by the caller (section
// builders use the wall's index within the section, sessions use section
// ids) and travel unchanged into results.
type Wall struct {
	ID   int
	Mesh *wall.Mesh
}

// Engine computes pairwise wall intersections. The zero value is not
// usable; call NewEngine.
type Engine struct {
	// CosEps is the near-parallel threshold: two quads whose plane
	// normals differ by less than about sqrt(2*CosEps) radians are
	// treated as parallel.
	CosEps float64

	// WeldTol merges curve points closer than this distance.
	WeldTol float64
}

// Defaults for the engine thresholds, in world units and radians-squared
// terms respectively.
const (
	DefaultCosEps  = 1e-6
	DefaultWeldTol = 1e-6
)

// NewEngine creates an engine with default thresholds.
func NewEngine() *Engine {
	return &Engine{CosEps: DefaultCosEps, WeldTol: DefaultWeldTol}
}

// wallItem makes a wall indexable by the R-tree.
type wallItem struct {
	rect rtreego.Rect
	idx  int
}

func (w *wallItem) Bounds() rtreego.Rect { return w.rect }

// Compute evaluates every unordered pair of walls whose 3D bounding boxes
// overlap and returns one Result per such pair; pairs without overlap are
// skipped entirely. Walls with fewer than 2 valid samples are excluded
// from all pairs. Results are ordered by (lower id, higher id).
func (e *Engine) Compute(walls []Wall) []Result {
	// Candidate walls: enough valid samples and real geometry.
	items := make([]*wallItem, 0, len(walls))
	tree := rtreego.NewTree(3, 2, 8)
	for i, w := range walls {
		if w.Mesh == nil || w.Mesh.ValidSamples < 2 {
			continue
		}
		bb, ok := w.Mesh.BoundingBox()
		if !ok {
			continue
		}
		rect, err := boxRect(bb)
		if err != nil {
			continue
		}
		item := &wallItem{rect: rect, idx: i}
		items = append(items, item)
		tree.Insert(item)
	}

	var results []Result
	seen := make(map[[2]int]bool)
	for _, item := range items {
		for _, hit := range tree.SearchIntersect(item.rect) {
			other := hit.(*wallItem)
			if other.idx == item.idx {
				continue
			}
			lo, hi := item.idx, other.idx
			if lo > hi {
				lo, hi = hi, lo
			}
			key := [2]int{lo, hi}
			if seen[key] {
				continue
			}
			seen[key] = true
			results = append(results, e.computePair(walls[lo], walls[hi]))
		}
	}

	sort.Slice(results, func(i, j int) bool {
		ai, bi := results[i].Walls()
		aj, bj := results[j].Walls()
		if ai != aj {
			return ai < aj
		}
		return bi < bj
	})
	return results
}

// computePair runs the quad-by-quad solve for one overlapping wall pair.
// Complexity is O(segmentsA x segmentsB), fine at the supported sampling
// resolutions.
func (e *Engine) computePair(wa, wb Wall) Result {
	idA, idB := wa.ID, wb.ID
	if idA > idB {
		idA, idB = idB, idA
		wa, wb = wb, wa
	}

	var segs []segment
	sawParallel := false
	for qi, qa := range wa.Mesh.SheetQuads {
		if !wa.Mesh.QuadValid[qi] {
			continue
		}
		pa := quadPlane(qa)
		for qj, qb := range wb.Mesh.SheetQuads {
			if !wb.Mesh.QuadValid[qj] {
				continue
			}
			pb := quadPlane(qb)
			pt, dir, ok := planeLine(pa, pb, e.CosEps)
			if !ok {
				sawParallel = true
				continue
			}

			tMin, tMax := -1e18, 1e18
			tMin, tMax, ok = clipToQuad(pt, dir, qa, tMin, tMax)
			if !ok {
				continue
			}
			tMin, tMax, ok = clipToQuad(pt, dir, qb, tMin, tMax)
			if !ok {
				continue
			}
			segs = append(segs, segment{
				a: pt.Add(dir.MulScalar(tMin)),
				b: pt.Add(dir.MulScalar(tMax)),
			})
		}
	}

	points := chainSegments(segs, e.WeldTol)
	if len(points) == 0 {
		reason := "no crossing within quad extents"
		if sawParallel {
			reason = "near-parallel wall surfaces"
		}
		return Degenerate{WallA: idA, WallB: idB, Reason: reason}
	}
	return Curve{WallA: idA, WallB: idB, Points: points}
}

// boxRect converts an axis-aligned box to an R-tree rectangle, padding
// flat dimensions so zero-thickness walls still index.
func boxRect(b sdf.Box3) (rtreego.Rect, error) {
	const pad = 1e-9
	lengths := []float64{
		b.Max.X - b.Min.X,
		b.Max.Y - b.Min.Y,
		b.Max.Z - b.Min.Z,
	}
	for i := range lengths {
		if lengths[i] < pad {
			lengths[i] = pad
		}
	}
	return rtreego.NewRect(rtreego.Point{b.Min.X, b.Min.Y, b.Min.Z}, lengths)
}
