// Package script evaluates session scripts: small zlisp programs that
// declare elevation surfaces and baselines and request section builds.
// It stands in for the interactive drawing collaborator in headless use;
// each evaluation produces a fresh Session so a failed script can never
// disturb the sections of the previous one.
package script

import (
	"github.com/danverne/terrasect/pkg/dem"
	"github.com/danverne/terrasect/pkg/intersect"
	"github.com/danverne/terrasect/pkg/section"
)

// DefaultSamples is the per-profile sample count used when a build form
// omits :samples.
const DefaultSamples = 200

// DefaultThickness is the horizontal wall thickness used when a build
// form omits :thickness.
const DefaultThickness = 1.0

// Session is the product of one script evaluation: the surfaces the
// script declared and the registry holding every section it built. The
// registry is the sole owner of the sections. Intersections holds the
// cross-section curves of the last (intersections) form, tagged with
// section ids.
type Session struct {
	Surfaces      []dem.Surface
	Registry      *section.Registry
	Intersections []intersect.Result
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{Registry: section.NewRegistry()}
}

// Surface returns the declared surface with the given name.
func (s *Session) Surface(name string) (dem.Surface, bool) {
	for _, sf := range s.Surfaces {
		if sf.Name() == name {
			return sf, true
		}
	}
	return nil, false
}
