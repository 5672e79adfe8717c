package section

import (
	"context"
	"errors"
	"sync"

	"github.com/danverne/terrasect/pkg/profile"
)

// ErrSuperseded reports that a background build was replaced by a newer
// request for the same slot before it could publish its section.
var ErrSuperseded = errors.New("section: build superseded by newer request")

// Outcome is the terminal report of a background build. Exactly one of
// Section or Err is set; ID is the registry id when the section was
// published.
type Outcome struct {
	ID      int
	Section *Section
	Err     error
}

// AsyncBuilder runs builds on background goroutines with per-slot
// last-request-wins semantics: a new build for a slot cancels the slot's
// in-flight build, and a cancelled or superseded build never publishes a
// partial section to the registry. Generations are tracked per slot the
// way the evaluation engines of scripted frontends discard stale results.
type AsyncBuilder struct {
	builder  *Builder
	registry *Registry

	mu    sync.Mutex
	slots map[string]*slotState
}

type slotState struct {
	gen    uint64
	cancel context.CancelFunc
}

// NewAsyncBuilder wraps a builder and the registry builds publish into.
func NewAsyncBuilder(b *Builder, reg *Registry) *AsyncBuilder {
	return &AsyncBuilder{
		builder:  b,
		registry: reg,
		slots:    make(map[string]*slotState),
	}
}

// Build starts a background build for the named slot and returns a channel
// that delivers exactly one Outcome. Any in-flight build for the same slot
// is cancelled. progress may be nil; when set it is called from the build
// goroutine. The caller's ctx cancels the build cooperatively.
func (ab *AsyncBuilder) Build(ctx context.Context, slot string, req profile.Request, attrs Attributes, progress func(Progress)) <-chan Outcome {
	ctx, cancel := context.WithCancel(ctx)

	ab.mu.Lock()
	st, ok := ab.slots[slot]
	if ok && st.cancel != nil {
		st.cancel()
	}
	if !ok {
		st = &slotState{}
		ab.slots[slot] = st
	}
	st.gen++
	st.cancel = cancel
	gen := st.gen
	ab.mu.Unlock()

	out := make(chan Outcome, 1)
	go func() {
		defer cancel()

		s, err := ab.builder.build(ctx, req, attrs, progress)
		if err != nil {
			out <- Outcome{Err: err}
			return
		}

		// Publish only if this build is still the slot's newest. The
		// generation check and the registry Add form one critical
		// section so a newer build for the slot cannot slip in between
		// the check and the publish.
		ab.mu.Lock()
		if ab.slots[slot].gen != gen {
			ab.mu.Unlock()
			out <- Outcome{Err: ErrSuperseded}
			return
		}
		id := ab.registry.Add(s)
		ab.mu.Unlock()

		out <- Outcome{ID: id, Section: s}
	}()
	return out
}
