// Package section owns the sections created in a session. The Registry is
// the sole owner of Section lifetime: every other component or consumer
// holds integer ids and resolves them here, never direct references.
package section

import (
	"sync"

	"github.com/danverne/terrasect/pkg/intersect"
	"github.com/danverne/terrasect/pkg/profile"
	"github.com/danverne/terrasect/pkg/wall"
)

// Attributes are the user-editable annotations of a section.
type Attributes struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Notes string `json:"notes"`
}

// Section bundles everything one build produced: the baselines that were
// sampled, their profiles, the wall meshes, and intersections among the
// section's own walls (polygon sections have one wall per edge). A Section
// is replaced, never mutated, on rebuild.
type Section struct {
	ID    int        `json:"id"` // assigned by the registry on Add
	Attrs Attributes `json:"attrs"`

	Surfaces []string `json:"surfaces"` // contributing surface names, top first

	Baselines []profile.Baseline     `json:"-"`
	Singles   []*profile.Profile     `json:"singles,omitempty"`
	Pairs     []*profile.SectionPair `json:"-"`

	Walls         []*wall.Mesh       `json:"-"`
	Intersections []intersect.Result `json:"-"`
}

// Registry is the ordered id-to-section store for one session. Mutation is
// single-writer; readers iterate over snapshots so a concurrent Clear
// cannot produce a torn view.
type Registry struct {
	mu     sync.RWMutex
	nextID int
	order  []int
	byID   map[int]*Section
}

// NewRegistry creates an empty registry. Ids start at 1.
func NewRegistry() *Registry {
	return &Registry{nextID: 1, byID: make(map[int]*Section)}
}

// Add stores a section and returns its id. Ids are monotonic sequential
// integers preserving creation order; they are never reused, even after
// Remove or Clear.
func (r *Registry) Add(s *Section) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	s.ID = id
	r.order = append(r.order, id)
	r.byID[id] = s
	return id
}

// Get returns the section with the given id.
func (r *Registry) Get(id int) (*Section, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// Remove deletes the section with the given id, reporting whether it
// existed.
func (r *Registry) Remove(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear releases every owned section. Id numbering continues from where
// it left off.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = r.order[:0]
	r.byID = make(map[int]*Section)
}

// Len returns the number of owned sections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// IDs returns a snapshot of the ids in creation order.
func (r *Registry) IDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int, len(r.order))
	copy(out, r.order)
	return out
}

// All returns a snapshot of the sections in creation order. The slice is
// the caller's; the sections stay owned by the registry.
func (r *Registry) All() []*Section {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Section, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Intersections computes the intersection curves among walls of different
// registered sections, tagged with the two contributing section ids.
// Pairs within a single section are the section's own business (they are
// carried in Section.Intersections) and are skipped here.
func (r *Registry) Intersections(e *intersect.Engine) []intersect.Result {
	var walls []intersect.Wall
	for _, s := range r.All() {
		for _, m := range s.Walls {
			walls = append(walls, intersect.Wall{ID: s.ID, Mesh: m})
		}
	}

	var out []intersect.Result
	for _, res := range e.Compute(walls) {
		if a, b := res.Walls(); a != b {
			out = append(out, res)
		}
	}
	return out
}
