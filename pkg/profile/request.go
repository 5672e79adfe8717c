package profile

import v2 "github.com/deadsy/sdfx/vec/v2"

// Request is the closed set of section extraction modes. The variant
// carries its mode-specific parameters; dispatch happens once inside
// Extract rather than in per-mode callers.
type Request interface {
	request() // marker method restricting implementations to this package
}

// SingleRequest extracts profiles along the unmodified baseline.
type SingleRequest struct {
	Line    Baseline
	Samples int
}

func (SingleRequest) request() {}

// DualRequest derives two parallel baselines from a centerline, each
// offset by Offset/2 along the per-segment perpendicular.
type DualRequest struct {
	Center  Baseline
	Offset  float64
	Samples int
}

func (DualRequest) request() {}

// PolygonRequest treats each polygon edge (wrapping last to first) as a
// dual-section centerline of the given width.
type PolygonRequest struct {
	Vertices []v2.Vec
	Width    float64
	Samples  int
}

func (PolygonRequest) request() {}

// Extraction is the mode-independent result of a Request: single mode
// fills Singles, dual and polygon modes fill Pairs.
type Extraction struct {
	Singles []*Profile
	Pairs   []*SectionPair
}
