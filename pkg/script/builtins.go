package script

import (
	"fmt"
	"strings"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/danverne/terrasect/pkg/dem"
	"github.com/danverne/terrasect/pkg/intersect"
	"github.com/danverne/terrasect/pkg/profile"
	"github.com/danverne/terrasect/pkg/section"
)

// ---------------------------------------------------------------------------
// Custom Sexp types carrying Go values through the environment
// ---------------------------------------------------------------------------

// sexpVec2 wraps a world coordinate.
type sexpVec2 struct {
	vec v2.Vec
}

func (v *sexpVec2) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec2 %.2f %.2f)", v.vec.X, v.vec.Y)
}
func (v *sexpVec2) Type() *zygo.RegisteredType { return nil }

// sexpBaseline wraps a drawn baseline.
type sexpBaseline struct {
	line profile.Baseline
}

func (b *sexpBaseline) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(baseline %d vertices, length %.2f)", b.line.NumVertices(), b.line.Length())
}
func (b *sexpBaseline) Type() *zygo.RegisteredType { return nil }

// sexpSurface wraps a declared elevation surface.
type sexpSurface struct {
	surface dem.Surface
}

func (s *sexpSurface) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(surface %q)", s.surface.Name())
}
func (s *sexpSurface) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwArgs is a parsed mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

func parseArgs(args []zygo.Sexp) kwArgs {
	out := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		if name, ok := isKW(args[i]); ok {
			if i+1 < len(args) {
				out.kw[name] = args[i+1]
				i += 2
			} else {
				out.kw[name] = zygo.SexpNull
				i++
			}
			continue
		}
		out.positional = append(out.positional, args[i])
		i++
	}
	return out
}

// ---------------------------------------------------------------------------
// Value extraction
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts a preprocessed keyword (__kw_bilinear) or a
// plain string ("bilinear").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

func toVec2(s zygo.Sexp) (v2.Vec, error) {
	if v, ok := s.(*sexpVec2); ok {
		return v.vec, nil
	}
	return v2.Vec{}, fmt.Errorf("expected vec2, got %T (%s)", s, s.SexpString(nil))
}

func toBaseline(s zygo.Sexp) (profile.Baseline, error) {
	if b, ok := s.(*sexpBaseline); ok {
		return b.line, nil
	}
	return profile.Baseline{}, fmt.Errorf("expected baseline, got %T (%s)", s, s.SexpString(nil))
}

func toSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

func toFloatSlice(s zygo.Sexp) ([]float64, error) {
	items, err := toSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(items))
	for i, it := range items {
		f, err := toFloat64(it)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}

func toVec2Slice(s zygo.Sexp) ([]v2.Vec, error) {
	items, err := toSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]v2.Vec, len(items))
	for i, it := range items {
		v, err := toVec2(it)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// kwFloat reads an optional numeric keyword with a default.
func kwFloat(pa kwArgs, name string, def float64) (float64, error) {
	v, ok := pa.kw[name]
	if !ok {
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

// kwInt reads an optional integer keyword with a default.
func kwInt(pa kwArgs, name string, def int) (int, error) {
	v, ok := pa.kw[name]
	if !ok {
		return def, nil
	}
	i, err := toInt(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return i, nil
}

// kwString reads an optional string keyword.
func kwString(pa kwArgs, name string) (string, error) {
	v, ok := pa.kw[name]
	if !ok {
		return "", nil
	}
	s, err := toString(v)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

// buildParams are the keywords shared by every section-building form.
type buildParams struct {
	samples   int
	thickness float64
	attrs     section.Attributes
	surfaces  []dem.Surface
}

func parseBuildParams(pa kwArgs, sess *Session) (buildParams, error) {
	var bp buildParams
	var err error
	if bp.samples, err = kwInt(pa, "samples", DefaultSamples); err != nil {
		return bp, err
	}
	if bp.thickness, err = kwFloat(pa, "thickness", DefaultThickness); err != nil {
		return bp, err
	}
	if bp.attrs.Label, err = kwString(pa, "label"); err != nil {
		return bp, err
	}
	if bp.attrs.Color, err = kwString(pa, "color"); err != nil {
		return bp, err
	}
	if bp.attrs.Notes, err = kwString(pa, "notes"); err != nil {
		return bp, err
	}

	// :surfaces restricts the build to named surfaces; default all
	// declared, in declaration order.
	if v, ok := pa.kw["surfaces"]; ok {
		items, err := toSlice(v)
		if err != nil {
			return bp, fmt.Errorf("surfaces: %w", err)
		}
		for _, it := range items {
			name, err := toString(it)
			if err != nil {
				return bp, fmt.Errorf("surfaces: %w", err)
			}
			sf, ok := sess.Surface(name)
			if !ok {
				return bp, fmt.Errorf("surfaces: no surface named %q declared", name)
			}
			bp.surfaces = append(bp.surfaces, sf)
		}
	} else {
		bp.surfaces = sess.Surfaces
	}
	if len(bp.surfaces) == 0 {
		return bp, fmt.Errorf("no surfaces declared before building a section")
	}
	return bp, nil
}

// runBuild runs the pipeline for one request and registers the result.
func runBuild(sess *Session, bp buildParams, req profile.Request) (zygo.Sexp, error) {
	builder, err := section.NewBuilder(bp.surfaces, bp.thickness)
	if err != nil {
		return zygo.SexpNull, err
	}
	s, err := builder.Build(req, bp.attrs)
	if err != nil {
		return zygo.SexpNull, err
	}
	id := sess.Registry.Add(s)
	return &zygo.SexpInt{Val: int64(id)}, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the session DSL into a fresh environment. The
// builtins populate the provided session as the script runs.
func registerBuiltins(env *zygo.Zlisp, sess *Session) {

	// (vec2 x y)
	env.AddFunction("vec2", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("vec2 requires x and y")
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec2: y: %w", err)
		}
		return &sexpVec2{vec: v2.Vec{X: x, Y: y}}, nil
	})

	// (baseline (vec2 ...) (vec2 ...) ...)
	env.AddFunction("baseline", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pts := make([]v2.Vec, 0, len(args))
		for i, a := range args {
			v, err := toVec2(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("baseline: vertex %d: %w", i, err)
			}
			pts = append(pts, v)
		}
		line, err := profile.NewBaseline(pts...)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("baseline: %w", err)
		}
		return &sexpBaseline{line: line}, nil
	})

	// (flat-surface "name" :elevation 100)
	env.AddFunction("flat_surface", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("flat-surface requires a name")
		}
		sname, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("flat-surface: name: %w", err)
		}
		elev, err := kwFloat(pa, "elevation", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("flat-surface: %w", err)
		}
		sf := dem.NewFlat(sname, elev)
		sess.Surfaces = append(sess.Surfaces, sf)
		return &sexpSurface{surface: sf}, nil
	})

	// (plane-surface "name" :base 100 :dx 0.5 :dy 0 :min (vec2 ..) :max (vec2 ..))
	env.AddFunction("plane_surface", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("plane-surface requires a name")
		}
		sname, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane-surface: name: %w", err)
		}
		base, err := kwFloat(pa, "base", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane-surface: %w", err)
		}
		dx, err := kwFloat(pa, "dx", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane-surface: %w", err)
		}
		dy, err := kwFloat(pa, "dy", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("plane-surface: %w", err)
		}

		extent := sdf.Box2{
			Min: v2.Vec{X: -1e9, Y: -1e9},
			Max: v2.Vec{X: 1e9, Y: 1e9},
		}
		if v, ok := pa.kw["min"]; ok {
			if extent.Min, err = toVec2(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("plane-surface: min: %w", err)
			}
		}
		if v, ok := pa.kw["max"]; ok {
			if extent.Max, err = toVec2(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("plane-surface: max: %w", err)
			}
		}

		sf := dem.NewFunc(sname, extent, func(x, y float64) float64 {
			return base + dx*x + dy*y
		})
		sess.Surfaces = append(sess.Surfaces, sf)
		return &sexpSurface{surface: sf}, nil
	})

	// (grid-surface "name" :origin (vec2 0 0) :cell 10 :cols 3 :rows 3
	//               :values [..] :nodata -9999 :mode :bilinear)
	env.AddFunction("grid_surface", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("grid-surface requires a name")
		}
		sname, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("grid-surface: name: %w", err)
		}
		origin := v2.Vec{}
		if v, ok := pa.kw["origin"]; ok {
			if origin, err = toVec2(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("grid-surface: origin: %w", err)
			}
		}
		cell, err := kwFloat(pa, "cell", 1)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("grid-surface: %w", err)
		}
		cols, err := kwInt(pa, "cols", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("grid-surface: %w", err)
		}
		rows, err := kwInt(pa, "rows", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("grid-surface: %w", err)
		}
		nodata, err := kwFloat(pa, "nodata", dem.NoData())
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("grid-surface: %w", err)
		}

		mode := dem.Bilinear
		if v, ok := pa.kw["mode"]; ok {
			ms, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("grid-surface: mode: %w", err)
			}
			switch ms {
			case "nearest":
				mode = dem.Nearest
			case "bilinear":
				mode = dem.Bilinear
			default:
				return zygo.SexpNull, fmt.Errorf("grid-surface: mode %q, expected nearest or bilinear", ms)
			}
		}

		vals, ok := pa.kw["values"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("grid-surface requires :values")
		}
		values, err := toFloatSlice(vals)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("grid-surface: values: %w", err)
		}

		sf, err := dem.NewGrid(sname, origin, cell, cols, rows, values, nodata, mode)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("grid-surface: %w", err)
		}
		sess.Surfaces = append(sess.Surfaces, sf)
		return &sexpSurface{surface: sf}, nil
	})

	// (single-section :line bl :samples 200 :label "L1")
	env.AddFunction("single_section", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		bp, err := parseBuildParams(pa, sess)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("single-section: %w", err)
		}
		v, ok := pa.kw["line"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("single-section requires :line")
		}
		line, err := toBaseline(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("single-section: line: %w", err)
		}
		res, err := runBuild(sess, bp, profile.SingleRequest{Line: line, Samples: bp.samples})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("single-section: %w", err)
		}
		return res, nil
	})

	// (dual-section :line bl :offset 30 :samples 200 :thickness 5)
	env.AddFunction("dual_section", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		bp, err := parseBuildParams(pa, sess)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("dual-section: %w", err)
		}
		v, ok := pa.kw["line"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("dual-section requires :line")
		}
		line, err := toBaseline(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("dual-section: line: %w", err)
		}
		offset, err := kwFloat(pa, "offset", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("dual-section: %w", err)
		}
		res, err := runBuild(sess, bp, profile.DualRequest{Center: line, Offset: offset, Samples: bp.samples})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("dual-section: %w", err)
		}
		return res, nil
	})

	// (polygon-section :vertices [(vec2 ..) ...] :width 2 :samples 5)
	env.AddFunction("polygon_section", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		bp, err := parseBuildParams(pa, sess)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polygon-section: %w", err)
		}
		v, ok := pa.kw["vertices"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("polygon-section requires :vertices")
		}
		verts, err := toVec2Slice(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polygon-section: vertices: %w", err)
		}
		width, err := kwFloat(pa, "width", 0)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polygon-section: %w", err)
		}
		res, err := runBuild(sess, bp, profile.PolygonRequest{Vertices: verts, Width: width, Samples: bp.samples})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("polygon-section: %w", err)
		}
		return res, nil
	})

	// (intersections)
	env.AddFunction("intersections", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 0 {
			return zygo.SexpNull, fmt.Errorf("intersections takes no arguments")
		}
		sess.Intersections = sess.Registry.Intersections(intersect.NewEngine())
		return &zygo.SexpInt{Val: int64(len(sess.Intersections))}, nil
	})

	// (remove-section id)
	env.AddFunction("remove_section", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("remove-section requires an id")
		}
		id, err := toInt(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("remove-section: %w", err)
		}
		if !sess.Registry.Remove(id) {
			return zygo.SexpNull, fmt.Errorf("remove-section: no section with id %d", id)
		}
		return zygo.SexpNull, nil
	})

	// (clear-sections)
	env.AddFunction("clear_sections", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		sess.Registry.Clear()
		return zygo.SexpNull, nil
	})
}
