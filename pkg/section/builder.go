package section

import (
	"context"
	"fmt"

	"github.com/danverne/terrasect/pkg/dem"
	"github.com/danverne/terrasect/pkg/intersect"
	"github.com/danverne/terrasect/pkg/profile"
	"github.com/danverne/terrasect/pkg/wall"
)

// Builder runs the sample -> extract -> wall -> intersect pipeline for one
// set of surfaces. It is stateless between builds and safe for concurrent
// use as long as the surfaces support concurrent sampling (wrap them with
// dem.Serialize otherwise).
type Builder struct {
	surfaces []dem.Surface
	walls    *wall.Builder
	engine   *intersect.Engine
}

// NewBuilder creates a pipeline builder. thickness is the horizontal wall
// extrusion and must be positive.
func NewBuilder(surfaces []dem.Surface, thickness float64) (*Builder, error) {
	if len(surfaces) == 0 {
		return nil, profile.ConfigurationError{Param: "surfaces", Message: "at least one surface required"}
	}
	wb, err := wall.NewBuilder(thickness)
	if err != nil {
		return nil, err
	}
	return &Builder{
		surfaces: surfaces,
		walls:    wb,
		engine:   intersect.NewEngine(),
	}, nil
}

// Build runs the full pipeline synchronously on the caller's goroutine.
// Boundary validation errors surface before any sampling; no-data and
// degenerate intersections are embedded in the returned section. The
// section is not registered anywhere; ownership passes to the caller
// (normally a Registry.Add).
func (b *Builder) Build(req profile.Request, attrs Attributes) (*Section, error) {
	return b.build(context.Background(), req, attrs, nil)
}

func (b *Builder) build(ctx context.Context, req profile.Request, attrs Attributes, progress func(Progress)) (*Section, error) {
	report(progress, "extract", 0, 1)
	ext, err := profile.Extract(req, b.surfaces)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report(progress, "extract", 1, 1)

	s := &Section{Attrs: attrs, Singles: ext.Singles, Pairs: ext.Pairs}
	for _, p := range ext.Singles {
		s.Baselines = append(s.Baselines, p.Line)
	}

	// Single-line sections stop at profiles: there is no pair to rule a
	// wall between. Dual and polygon sections grow one wall per pair.
	for i, pair := range ext.Pairs {
		s.Baselines = append(s.Baselines, pair.Center)
		m, err := b.walls.Build(pair)
		if err != nil {
			return nil, fmt.Errorf("section: wall %d: %w", i, err)
		}
		m.Label = fmt.Sprintf("Side %d", i+1)
		s.Walls = append(s.Walls, m)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report(progress, "walls", i+1, len(ext.Pairs))
	}

	if len(s.Walls) > 1 {
		report(progress, "intersections", 0, 1)
		ws := make([]intersect.Wall, len(s.Walls))
		for i, m := range s.Walls {
			ws[i] = intersect.Wall{ID: i, Mesh: m}
		}
		s.Intersections = b.engine.Compute(ws)
		report(progress, "intersections", 1, 1)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Surface names in band order; band order is identical across the
	// section's walls. Profile-only sections report supply order.
	if len(s.Walls) > 0 {
		for _, band := range s.Walls[0].Bands {
			s.Surfaces = append(s.Surfaces, band.Surface)
		}
	} else {
		for _, sf := range b.surfaces {
			s.Surfaces = append(s.Surfaces, sf.Name())
		}
	}

	return s, nil
}

// Progress is a coarse stage report emitted during background builds.
type Progress struct {
	Stage string
	Done  int
	Total int
}

func report(fn func(Progress), stage string, done, total int) {
	if fn != nil {
		fn(Progress{Stage: stage, Done: done, Total: total})
	}
}
