package wall

import (
	"errors"
	"math"
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/danverne/terrasect/pkg/dem"
	"github.com/danverne/terrasect/pkg/profile"
)

// straightPair builds a dual-section pair along y=0 from x=0 to x=100.
func straightPair(t *testing.T, surfaces []dem.Surface, offset float64, n int) *profile.SectionPair {
	t.Helper()
	center, err := profile.NewBaseline(v2.Vec{X: 0, Y: 0}, v2.Vec{X: 100, Y: 0})
	if err != nil {
		t.Fatalf("NewBaseline: %v", err)
	}
	pair, err := profile.ExtractDual(center, offset, surfaces, n)
	if err != nil {
		t.Fatalf("ExtractDual: %v", err)
	}
	return pair
}

func mustBuilder(t *testing.T, thickness float64) *Builder {
	t.Helper()
	b, err := NewBuilder(thickness)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

func TestNewBuilderValidation(t *testing.T) {
	var cerr profile.ConfigurationError
	for _, th := range []float64{0, -1} {
		if _, err := NewBuilder(th); !errors.As(err, &cerr) {
			t.Errorf("thickness %v: got %v, want ConfigurationError", th, err)
		}
	}
}

func TestBuildValidation(t *testing.T) {
	b := mustBuilder(t, 2)
	var cerr profile.ConfigurationError

	if _, err := b.Build(nil); !errors.As(err, &cerr) {
		t.Errorf("nil pair: got %v", err)
	}

	pair := straightPair(t, []dem.Surface{dem.NewFlat("f", 0)}, 10, 5)
	pair.B = nil
	if _, err := b.Build(pair); !errors.As(err, &cerr) {
		t.Errorf("mismatched sides: got %v", err)
	}
}

func TestBuildSingleSurface(t *testing.T) {
	pair := straightPair(t, []dem.Surface{dem.NewFlat("terrain", 100)}, 10, 5)
	m, err := mustBuilder(t, 2).Build(pair)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if m.BandCount() != 1 {
		t.Fatalf("BandCount() = %d, want 1", m.BandCount())
	}
	if m.Bands[0].Surface != "terrain" {
		t.Errorf("band surface = %q", m.Bands[0].Surface)
	}
	if m.Base != 90 {
		t.Errorf("Base = %v, want 100 - %v", m.Base, DefaultBaseDrop)
	}
	if m.ValidSamples != 5 {
		t.Errorf("ValidSamples = %d, want 5", m.ValidSamples)
	}

	// 4 segments, each with top sheet + two curtains + base closure,
	// plus two end caps: (4*4 + 2) quads at two triangles each.
	if got := m.TriangleCount(); got != 36 {
		t.Errorf("TriangleCount() = %d, want 36", got)
	}
	if len(m.TriBand) != len(m.Triangles) {
		t.Fatalf("TriBand length mismatch")
	}
	for i, band := range m.TriBand {
		if band != 0 {
			t.Fatalf("triangle %d in band %d, want 0", i, band)
		}
	}

	if len(m.SheetQuads) != 4 || len(m.QuadValid) != 4 {
		t.Fatalf("sheet sized %d/%d, want 4 segments", len(m.SheetQuads), len(m.QuadValid))
	}
	for i, ok := range m.QuadValid {
		if !ok {
			t.Errorf("segment %d unexpectedly invalid", i)
		}
	}

	// A-face at y = offset/2 + thickness/2 = 6, B-face mirrored.
	q := m.SheetQuads[0]
	if math.Abs(q[0].Y-6) > 1e-9 || math.Abs(q[1].Y+6) > 1e-9 {
		t.Errorf("extruded faces at y %v / %v, want +-6", q[0].Y, q[1].Y)
	}
	if q[0].Z != 100 {
		t.Errorf("sheet elevation = %v, want 100", q[0].Z)
	}

	bbox, ok := m.BoundingBox()
	if !ok {
		t.Fatal("no bounding box on a non-empty mesh")
	}
	want := sdf.Box3{}
	want.Min.X, want.Min.Y, want.Min.Z = 0, -6, 90
	want.Max.X, want.Max.Y, want.Max.Z = 100, 6, 100
	if diffBox(bbox, want) > 1e-9 {
		t.Errorf("bounding box %+v, want %+v", bbox, want)
	}
}

func diffBox(a, b sdf.Box3) float64 {
	d := 0.0
	for _, v := range []float64{
		a.Min.X - b.Min.X, a.Min.Y - b.Min.Y, a.Min.Z - b.Min.Z,
		a.Max.X - b.Max.X, a.Max.Y - b.Max.Y, a.Max.Z - b.Max.Z,
	} {
		d += math.Abs(v)
	}
	return d
}

func TestBuildBandOrdering(t *testing.T) {
	// Supply order is lower-first; bands still come out top-first.
	surfaces := []dem.Surface{
		dem.NewFlat("bedrock", 50),
		dem.NewFlat("terrain", 100),
	}
	pair := straightPair(t, surfaces, 10, 5)
	m, err := mustBuilder(t, 2).Build(pair)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if m.BandCount() != 2 {
		t.Fatalf("BandCount() = %d, want 2", m.BandCount())
	}
	if m.Bands[0].Surface != "terrain" || m.Bands[1].Surface != "bedrock" {
		t.Errorf("band order %q, %q; want terrain, bedrock", m.Bands[0].Surface, m.Bands[1].Surface)
	}
	if m.Bands[0].Index != 0 || m.Bands[1].Index != 1 {
		t.Errorf("band indices %d, %d", m.Bands[0].Index, m.Bands[1].Index)
	}
	// Base hangs off the lowest surface, not the topmost.
	if m.Base != 40 {
		t.Errorf("Base = %v, want 40", m.Base)
	}

	seen := map[int]bool{}
	for _, band := range m.TriBand {
		seen[band] = true
	}
	if !seen[0] || !seen[1] {
		t.Errorf("expected triangles in both bands, got %v", seen)
	}

	// The reference sheet tracks the topmost band.
	if got := m.SheetQuads[0][0].Z; got != 100 {
		t.Errorf("reference sheet elevation = %v, want topmost 100", got)
	}
}

func TestBuildEdgeGap(t *testing.T) {
	// Surface covering only x <= 50: samples at 75 and 100 have no
	// flanking right neighbor and stay gaps.
	half := dem.NewFunc("half",
		sdf.Box2{Min: v2.Vec{X: 0, Y: -20}, Max: v2.Vec{X: 50, Y: 20}},
		func(x, y float64) float64 { return 100 })
	pair := straightPair(t, []dem.Surface{half}, 10, 5)

	m, err := mustBuilder(t, 2).Build(pair)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	wantValid := []bool{true, true, false, false}
	for i, want := range wantValid {
		if m.QuadValid[i] != want {
			t.Errorf("QuadValid[%d] = %v, want %v", i, m.QuadValid[i], want)
		}
	}
	if m.ValidSamples != 3 {
		t.Errorf("ValidSamples = %d, want 3", m.ValidSamples)
	}
	if m.IsEmpty() {
		t.Error("partial coverage must still emit geometry")
	}
}

func TestBuildInteriorNoDataFilled(t *testing.T) {
	// A NaN hole in the middle sample is flanked by valid samples on
	// both sides and gets distance-interpolated, leaving no gap.
	holed := dem.NewFunc("holed",
		sdf.Box2{Min: v2.Vec{X: 0, Y: -20}, Max: v2.Vec{X: 100, Y: 20}},
		func(x, y float64) float64 {
			if x > 40 && x < 60 {
				return dem.NoData()
			}
			return x
		})
	pair := straightPair(t, []dem.Surface{holed}, 10, 5)

	m, err := mustBuilder(t, 2).Build(pair)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for i, ok := range m.QuadValid {
		if !ok {
			t.Errorf("QuadValid[%d] = false, want interpolated fill", i)
		}
	}
	// The filled middle sample lies on the line between its neighbors.
	if got := m.SheetQuads[1][3].Z; math.Abs(got-50) > 1e-9 {
		t.Errorf("filled elevation = %v, want 50", got)
	}
}

func TestBuildAllNoData(t *testing.T) {
	far := dem.NewFunc("far",
		sdf.Box2{Min: v2.Vec{X: 1000, Y: 1000}, Max: v2.Vec{X: 1010, Y: 1010}},
		func(x, y float64) float64 { return 0 })
	pair := straightPair(t, []dem.Surface{far}, 10, 5)

	m, err := mustBuilder(t, 2).Build(pair)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !m.IsEmpty() {
		t.Errorf("expected empty mesh, got %d triangles", m.TriangleCount())
	}
	if _, ok := m.BoundingBox(); ok {
		t.Error("empty mesh must not report a bounding box")
	}
	if m.ValidSamples != 0 {
		t.Errorf("ValidSamples = %d, want 0", m.ValidSamples)
	}
}

func TestFlattenBuffers(t *testing.T) {
	pair := straightPair(t, []dem.Surface{dem.NewFlat("f", 100)}, 10, 5)
	m, err := mustBuilder(t, 2).Build(pair)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	buf := m.Flatten()
	tris := m.TriangleCount()
	if len(buf.Vertices) != tris*9 {
		t.Errorf("Vertices length = %d, want %d", len(buf.Vertices), tris*9)
	}
	if len(buf.Normals) != len(buf.Vertices) {
		t.Errorf("Normals length = %d, want %d", len(buf.Normals), len(buf.Vertices))
	}
	if len(buf.Indices) != tris*3 || len(buf.BandIDs) != tris*3 {
		t.Errorf("Indices/BandIDs length = %d/%d, want %d", len(buf.Indices), len(buf.BandIDs), tris*3)
	}
	for i, idx := range buf.Indices {
		if idx != uint32(i) {
			t.Fatalf("index %d = %d, soup indices must be sequential", i, idx)
		}
	}
}
