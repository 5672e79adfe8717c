package section

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/danverne/terrasect/pkg/dem"
	"github.com/danverne/terrasect/pkg/intersect"
	"github.com/danverne/terrasect/pkg/profile"
)

func TestRegistryAddOrder(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 3; i++ {
		id := r.Add(&Section{})
		if id != i+1 {
			t.Errorf("Add %d returned id %d, want %d", i, id, i+1)
		}
	}
	if diff := cmp.Diff([]int{1, 2, 3}, r.IDs()); diff != "" {
		t.Errorf("IDs() mismatch (-want +got):\n%s", diff)
	}
	s, ok := r.Get(2)
	if !ok || s.ID != 2 {
		t.Errorf("Get(2) = %v, %v", s, ok)
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	r.Add(&Section{})
	r.Add(&Section{})
	r.Add(&Section{})

	if !r.Remove(2) {
		t.Fatal("Remove(2) = false")
	}
	if r.Remove(2) {
		t.Error("second Remove(2) = true")
	}
	if diff := cmp.Diff([]int{1, 3}, r.IDs()); diff != "" {
		t.Errorf("IDs() after remove (-want +got):\n%s", diff)
	}
	// Ids are never reused.
	if id := r.Add(&Section{}); id != 4 {
		t.Errorf("Add after remove returned id %d, want 4", id)
	}
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry()
	r.Add(&Section{})
	r.Add(&Section{})
	r.Clear()

	if r.Len() != 0 {
		t.Errorf("Len() after clear = %d", r.Len())
	}
	// Numbering continues across Clear.
	if id := r.Add(&Section{}); id != 3 {
		t.Errorf("Add after clear returned id %d, want 3", id)
	}
}

func TestRegistrySnapshots(t *testing.T) {
	r := NewRegistry()
	r.Add(&Section{})
	r.Add(&Section{})

	ids := r.IDs()
	all := r.All()
	r.Clear()
	if len(ids) != 2 || len(all) != 2 {
		t.Errorf("snapshots shrank after Clear: %d ids, %d sections", len(ids), len(all))
	}
}

func TestRegistryIntersections(t *testing.T) {
	// Two sections on different tilted surfaces, crossing at right
	// angles: one curve, tagged with the two section ids.
	big := sdf.Box2{Min: v2.Vec{X: -1e9, Y: -1e9}, Max: v2.Vec{X: 1e9, Y: 1e9}}
	slopeY := dem.NewFunc("slopeY", big, func(x, y float64) float64 { return 100 + y })
	slopeX := dem.NewFunc("slopeX", big, func(x, y float64) float64 { return 50 + x })

	reg := NewRegistry()
	for _, tc := range []struct {
		surface dem.Surface
		a, b    v2.Vec
	}{
		{slopeY, v2.Vec{X: 0, Y: 0}, v2.Vec{X: 100, Y: 0}},
		{slopeX, v2.Vec{X: 50, Y: -50}, v2.Vec{X: 50, Y: 50}},
	} {
		b, err := NewBuilder([]dem.Surface{tc.surface}, 2)
		if err != nil {
			t.Fatalf("NewBuilder: %v", err)
		}
		line, err := profile.NewBaseline(tc.a, tc.b)
		if err != nil {
			t.Fatalf("NewBaseline: %v", err)
		}
		s, err := b.Build(profile.DualRequest{Center: line, Offset: 10, Samples: 5}, Attributes{})
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		reg.Add(s)
	}

	results := reg.Intersections(intersect.NewEngine())
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	c, ok := results[0].(intersect.Curve)
	if !ok {
		t.Fatalf("result is %T, want a curve", results[0])
	}
	if a, b := c.Walls(); a != 1 || b != 2 {
		t.Errorf("curve tagged (%d, %d), want the section ids (1, 2)", a, b)
	}
}

func TestRegistryIntersectionsSkipsOwnWalls(t *testing.T) {
	// A lone polygon section's walls touch at every corner, but those
	// pairs belong to the section itself, not the registry pass.
	b, err := NewBuilder([]dem.Surface{dem.NewFlat("f", 100)}, 2)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	req := profile.PolygonRequest{
		Vertices: []v2.Vec{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}},
		Width:    2,
		Samples:  5,
	}
	s, err := b.Build(req, Attributes{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(s.Intersections) == 0 {
		t.Fatal("polygon section should carry its own corner results")
	}

	reg := NewRegistry()
	reg.Add(s)
	if got := reg.Intersections(intersect.NewEngine()); len(got) != 0 {
		t.Errorf("registry pass reported %d results for a lone section, want 0", len(got))
	}
}

func testLine(t *testing.T) profile.Baseline {
	t.Helper()
	b, err := profile.NewBaseline(v2.Vec{X: 0, Y: 0}, v2.Vec{X: 100, Y: 0})
	if err != nil {
		t.Fatalf("NewBaseline: %v", err)
	}
	return b
}

func TestBuilderSingle(t *testing.T) {
	surfaces := []dem.Surface{dem.NewFlat("upper", 100), dem.NewFlat("lower", 50)}
	b, err := NewBuilder(surfaces, 2)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	s, err := b.Build(profile.SingleRequest{Line: testLine(t), Samples: 10}, Attributes{Label: "L1"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(s.Singles) != 2 {
		t.Fatalf("got %d profiles, want one per surface", len(s.Singles))
	}
	if len(s.Walls) != 0 || len(s.Intersections) != 0 {
		t.Errorf("single section built %d walls, %d intersections", len(s.Walls), len(s.Intersections))
	}
	// Profile-only sections report surfaces in supply order.
	if diff := cmp.Diff([]string{"upper", "lower"}, s.Surfaces); diff != "" {
		t.Errorf("Surfaces (-want +got):\n%s", diff)
	}
	if s.Attrs.Label != "L1" {
		t.Errorf("Attrs.Label = %q", s.Attrs.Label)
	}
}

func TestBuilderDual(t *testing.T) {
	// Supply order is lower-first; the section reports band order.
	surfaces := []dem.Surface{dem.NewFlat("lower", 50), dem.NewFlat("upper", 100)}
	b, err := NewBuilder(surfaces, 2)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	s, err := b.Build(profile.DualRequest{Center: testLine(t), Offset: 10, Samples: 5}, Attributes{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(s.Walls) != 1 {
		t.Fatalf("got %d walls, want 1", len(s.Walls))
	}
	if s.Walls[0].Label != "Side 1" {
		t.Errorf("wall label = %q", s.Walls[0].Label)
	}
	if len(s.Intersections) != 0 {
		t.Errorf("one wall cannot intersect itself, got %d results", len(s.Intersections))
	}
	if diff := cmp.Diff([]string{"upper", "lower"}, s.Surfaces); diff != "" {
		t.Errorf("Surfaces (-want +got):\n%s", diff)
	}
}

func TestBuilderPolygon(t *testing.T) {
	b, err := NewBuilder([]dem.Surface{dem.NewFlat("f", 100)}, 2)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}

	req := profile.PolygonRequest{
		Vertices: []v2.Vec{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}},
		Width:    2,
		Samples:  5,
	}
	s, err := b.Build(req, Attributes{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(s.Walls) != 4 {
		t.Fatalf("got %d walls, want one per edge", len(s.Walls))
	}
	for i, m := range s.Walls {
		if want := "Side " + string(rune('1'+i)); m.Label != want {
			t.Errorf("wall %d label = %q, want %q", i, m.Label, want)
		}
	}
	// Adjacent flat walls share corners; every touching pair reports.
	if len(s.Intersections) == 0 {
		t.Error("expected intersection results among the fence walls")
	}
}

func TestBuilderValidation(t *testing.T) {
	if _, err := NewBuilder(nil, 2); err == nil {
		t.Error("expected error for no surfaces")
	}
	if _, err := NewBuilder([]dem.Surface{dem.NewFlat("f", 0)}, 0); err == nil {
		t.Error("expected error for zero thickness")
	}

	b, err := NewBuilder([]dem.Surface{dem.NewFlat("f", 0)}, 2)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	var cerr profile.ConfigurationError
	_, err = b.Build(profile.DualRequest{Center: testLine(t), Offset: -1, Samples: 5}, Attributes{})
	if !errors.As(err, &cerr) {
		t.Errorf("negative offset: got %v, want ConfigurationError", err)
	}
}

// gateSurface blocks every sample until the gate channel is closed, so
// tests can hold a build in flight deterministically.
type gateSurface struct {
	gate chan struct{}
}

func (g *gateSurface) SampleAt(x, y float64) float64 {
	<-g.gate
	return 100
}

func (g *gateSurface) Extent() sdf.Box2 {
	return sdf.Box2{Min: v2.Vec{X: -1e9, Y: -1e9}, Max: v2.Vec{X: 1e9, Y: 1e9}}
}

func (g *gateSurface) Name() string { return "gate" }

func asyncFixture(t *testing.T) (*AsyncBuilder, *Registry, *gateSurface) {
	t.Helper()
	gate := &gateSurface{gate: make(chan struct{})}
	b, err := NewBuilder([]dem.Surface{gate}, 2)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	reg := NewRegistry()
	return NewAsyncBuilder(b, reg), reg, gate
}

func waitOutcome(t *testing.T, ch <-chan Outcome) Outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for build outcome")
		return Outcome{}
	}
}

func TestAsyncBuildPublishes(t *testing.T) {
	ab, reg, gate := asyncFixture(t)
	close(gate.gate)

	req := profile.DualRequest{Center: testLine(t), Offset: 10, Samples: 5}
	o := waitOutcome(t, ab.Build(context.Background(), "dual", req, Attributes{}, nil))
	if o.Err != nil {
		t.Fatalf("build failed: %v", o.Err)
	}
	if o.ID != 1 || o.Section == nil {
		t.Fatalf("outcome = %+v", o)
	}
	if reg.Len() != 1 {
		t.Errorf("registry holds %d sections, want 1", reg.Len())
	}
}

func TestAsyncLastRequestWins(t *testing.T) {
	ab, reg, gate := asyncFixture(t)
	req := profile.DualRequest{Center: testLine(t), Offset: 10, Samples: 5}

	ch1 := ab.Build(context.Background(), "dual", req, Attributes{Label: "first"}, nil)
	ch2 := ab.Build(context.Background(), "dual", req, Attributes{Label: "second"}, nil)
	close(gate.gate)

	o1 := waitOutcome(t, ch1)
	o2 := waitOutcome(t, ch2)

	if o1.Err == nil {
		t.Error("superseded build published anyway")
	}
	if o2.Err != nil {
		t.Fatalf("newest build failed: %v", o2.Err)
	}
	if reg.Len() != 1 {
		t.Fatalf("registry holds %d sections, want only the newest", reg.Len())
	}
	s, _ := reg.Get(o2.ID)
	if s.Attrs.Label != "second" {
		t.Errorf("published section label = %q, want the newest request's", s.Attrs.Label)
	}
}

func TestAsyncRepeatedRebuilds(t *testing.T) {
	// Hammering a slot with rebuilds publishes exactly one section no
	// matter how the superseded goroutines and the newest build land.
	ab, reg, gate := asyncFixture(t)
	req := profile.DualRequest{Center: testLine(t), Offset: 10, Samples: 5}

	const rebuilds = 8
	chans := make([]<-chan Outcome, rebuilds)
	for i := range chans {
		chans[i] = ab.Build(context.Background(), "dual", req, Attributes{}, nil)
	}
	close(gate.gate)

	published := 0
	for _, ch := range chans {
		if o := waitOutcome(t, ch); o.Err == nil {
			published++
		}
	}
	if published != 1 {
		t.Errorf("%d builds published, want exactly 1", published)
	}
	if reg.Len() != 1 {
		t.Errorf("registry holds %d sections, want 1", reg.Len())
	}
}

func TestAsyncDistinctSlots(t *testing.T) {
	ab, reg, gate := asyncFixture(t)
	req := profile.DualRequest{Center: testLine(t), Offset: 10, Samples: 5}

	ch1 := ab.Build(context.Background(), "a", req, Attributes{}, nil)
	ch2 := ab.Build(context.Background(), "b", req, Attributes{}, nil)
	close(gate.gate)

	if o := waitOutcome(t, ch1); o.Err != nil {
		t.Errorf("slot a failed: %v", o.Err)
	}
	if o := waitOutcome(t, ch2); o.Err != nil {
		t.Errorf("slot b failed: %v", o.Err)
	}
	if reg.Len() != 2 {
		t.Errorf("registry holds %d sections, want 2", reg.Len())
	}
}

func TestAsyncCallerCancel(t *testing.T) {
	ab, reg, gate := asyncFixture(t)
	req := profile.DualRequest{Center: testLine(t), Offset: 10, Samples: 5}

	ctx, cancel := context.WithCancel(context.Background())
	ch := ab.Build(ctx, "dual", req, Attributes{}, nil)
	cancel()
	close(gate.gate)

	o := waitOutcome(t, ch)
	if o.Err == nil {
		t.Fatal("cancelled build published a section")
	}
	if reg.Len() != 0 {
		t.Errorf("registry holds %d sections after cancel, want 0", reg.Len())
	}
}

func TestAsyncProgress(t *testing.T) {
	ab, _, gate := asyncFixture(t)
	close(gate.gate)

	stages := make(chan string, 64)
	req := profile.DualRequest{Center: testLine(t), Offset: 10, Samples: 5}
	o := waitOutcome(t, ab.Build(context.Background(), "dual", req, Attributes{}, func(p Progress) {
		stages <- p.Stage
	}))
	if o.Err != nil {
		t.Fatalf("build failed: %v", o.Err)
	}
	close(stages)

	seen := map[string]bool{}
	for s := range stages {
		seen[s] = true
	}
	if !seen["extract"] || !seen["walls"] {
		t.Errorf("missing progress stages, saw %v", seen)
	}
}
