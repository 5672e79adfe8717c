package profile

import (
	"fmt"

	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/danverne/terrasect/pkg/dem"
)

// Extract dispatches a mode request against the supplied surfaces.
// Boundary validation happens before any sampling: an invalid request
// returns a ConfigurationError or GeometryError and no partial result.
func Extract(req Request, surfaces []dem.Surface) (*Extraction, error) {
	if len(surfaces) == 0 {
		return nil, ConfigurationError{Param: "surfaces", Message: "at least one surface required"}
	}
	switch r := req.(type) {
	case SingleRequest:
		profiles, err := ExtractSingle(r.Line, surfaces, r.Samples)
		if err != nil {
			return nil, err
		}
		return &Extraction{Singles: profiles}, nil
	case DualRequest:
		pair, err := ExtractDual(r.Center, r.Offset, surfaces, r.Samples)
		if err != nil {
			return nil, err
		}
		return &Extraction{Pairs: []*SectionPair{pair}}, nil
	case PolygonRequest:
		pairs, err := ExtractPolygon(r.Vertices, r.Width, surfaces, r.Samples)
		if err != nil {
			return nil, err
		}
		return &Extraction{Pairs: pairs}, nil
	default:
		return nil, fmt.Errorf("profile: unknown request type %T", req)
	}
}

// ExtractSingle samples the unmodified baseline against every surface,
// producing one profile per surface in supply order. Every profile has
// exactly n samples at identical world positions.
func ExtractSingle(line Baseline, surfaces []dem.Surface, n int) ([]*Profile, error) {
	if err := validateSamples(n); err != nil {
		return nil, err
	}
	if line.IsZero() || line.Length() == 0 {
		return nil, GeometryError{Message: "baseline has zero length"}
	}

	profiles := make([]*Profile, 0, len(surfaces))
	for _, s := range surfaces {
		p, err := SampleAlong(s, line, n)
		if err != nil {
			return nil, fmt.Errorf("profile: surface %q: %w", s.Name(), err)
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// ExtractDual derives two baselines parallel to the centerline, A offset
// by +offset/2 and B by -offset/2 along the per-segment perpendicular
// (mitred at interior vertices), then samples each against every surface.
func ExtractDual(center Baseline, offset float64, surfaces []dem.Surface, n int) (*SectionPair, error) {
	if err := validateSamples(n); err != nil {
		return nil, err
	}
	if offset <= 0 {
		return nil, ConfigurationError{
			Param:   "offset",
			Message: fmt.Sprintf("must be positive, got %v", offset),
		}
	}
	if center.IsZero() || center.Length() == 0 {
		return nil, GeometryError{Message: "centerline has zero length"}
	}

	ptsA := offsetPolyline(center.pts, offset/2)
	ptsB := offsetPolyline(center.pts, -offset/2)
	lineA, err := NewBaseline(ptsA...)
	if err != nil {
		return nil, fmt.Errorf("profile: offset line A: %w", err)
	}
	lineB, err := NewBaseline(ptsB...)
	if err != nil {
		return nil, fmt.Errorf("profile: offset line B: %w", err)
	}

	profA, err := ExtractSingle(lineA, surfaces, n)
	if err != nil {
		return nil, err
	}
	profB, err := ExtractSingle(lineB, surfaces, n)
	if err != nil {
		return nil, err
	}

	return &SectionPair{
		Center:  center,
		LineA:   lineA,
		LineB:   lineB,
		A:       profA,
		B:       profB,
		Offset:  offset,
		Width:   offset,
		Samples: n,
	}, nil
}

// ExtractPolygon treats each consecutive vertex pair of the polygon
// (wrapping the last back to the first) as a dual-section centerline of
// the given width, producing exactly one SectionPair per edge. All edges
// share the same sample count.
func ExtractPolygon(vertices []v2.Vec, width float64, surfaces []dem.Surface, n int) ([]*SectionPair, error) {
	if len(vertices) < 3 {
		return nil, GeometryError{
			Message: fmt.Sprintf("polygon needs at least 3 vertices, got %d", len(vertices)),
		}
	}
	if err := validateSamples(n); err != nil {
		return nil, err
	}
	if width <= 0 {
		return nil, ConfigurationError{
			Param:   "width",
			Message: fmt.Sprintf("must be positive, got %v", width),
		}
	}

	// Validate every edge before sampling any of them.
	for i := range vertices {
		next := vertices[(i+1)%len(vertices)]
		if next.Sub(vertices[i]).Length() == 0 {
			return nil, GeometryError{
				Message: fmt.Sprintf("polygon edge %d has zero length", i),
			}
		}
	}

	pairs := make([]*SectionPair, 0, len(vertices))
	for i := range vertices {
		next := vertices[(i+1)%len(vertices)]
		edge, err := NewBaseline(vertices[i], next)
		if err != nil {
			return nil, fmt.Errorf("profile: polygon edge %d: %w", i, err)
		}
		pair, err := ExtractDual(edge, width, surfaces, n)
		if err != nil {
			return nil, fmt.Errorf("profile: polygon edge %d: %w", i, err)
		}
		pair.Width = width
		pairs = append(pairs, pair)
	}
	return pairs, nil
}
