package dem

import (
	"sync"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// Flat is a constant-elevation surface defined everywhere. It is the
// simplest surface for scripted sessions and for tests.
type Flat struct {
	name string
	elev float64
}

// NewFlat creates a flat surface at the given elevation with an
// unbounded extent.
func NewFlat(name string, elev float64) *Flat {
	return &Flat{name: name, elev: elev}
}

func (f *Flat) Name() string { return f.name }

func (f *Flat) Extent() sdf.Box2 { return unbounded() }

func (f *Flat) SampleAt(x, y float64) float64 { return f.elev }

// Func is a surface backed by an arbitrary elevation function, restricted
// to an extent. It exists for analytic test terrains (planes, ramps) and
// for scripted sessions that have no raster at hand.
type Func struct {
	name   string
	extent sdf.Box2
	fn     func(x, y float64) float64
}

// NewFunc creates a function-backed surface. Samples outside extent are
// no-data; fn may itself return the no-data sentinel for holes.
func NewFunc(name string, extent sdf.Box2, fn func(x, y float64) float64) *Func {
	return &Func{name: name, extent: extent, fn: fn}
}

func (f *Func) Name() string { return f.name }

func (f *Func) Extent() sdf.Box2 { return f.extent }

func (f *Func) SampleAt(x, y float64) float64 {
	if !boxContains(f.extent, v2.Vec{X: x, Y: y}) {
		return NoData()
	}
	return f.fn(x, y)
}

// serialized wraps a surface whose backing reader is not safe for
// concurrent reads, forcing callers through one mutex.
type serialized struct {
	mu sync.Mutex
	s  Surface
}

// Serialize returns a surface that serializes all SampleAt calls to s.
// Use it when the underlying raster reader does not support concurrent
// reads; surfaces built by this package do not need it.
func Serialize(s Surface) Surface {
	return &serialized{s: s}
}

func (w *serialized) Name() string { return w.s.Name() }

func (w *serialized) Extent() sdf.Box2 { return w.s.Extent() }

func (w *serialized) SampleAt(x, y float64) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.s.SampleAt(x, y)
}
