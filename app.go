package main

import (
	"log"
	"math"
	"sync"

	"github.com/danverne/terrasect/pkg/intersect"
	"github.com/danverne/terrasect/pkg/profile"
	"github.com/danverne/terrasect/pkg/script"
	"github.com/danverne/terrasect/pkg/section"
	"github.com/danverne/terrasect/pkg/wall"
)

// colorPalette assigns distinct colors to sections that did not pick one.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App is the scripting front door. It owns one script engine; each
// successful Evaluate call replaces the current session wholesale.
type App struct {
	engine *script.Engine

	mu      sync.Mutex
	session *script.Session
}

// ProfileData is a JSON-serializable elevation profile summary.
type ProfileData struct {
	Surface   string  `json:"surface"`
	Samples   int     `json:"samples"`
	Valid     int     `json:"valid"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Mean      float64 `json:"mean"`
	AllNoData bool    `json:"allNoData"`
}

// WallData is a JSON-serializable wall mesh with flat render buffers.
type WallData struct {
	Label     string        `json:"label"`
	Bands     []wall.Band   `json:"bands"`
	Triangles int           `json:"triangles"`
	Base      float64       `json:"base"`
	Buffers   *wall.Buffers `json:"buffers"`
}

// CurveData is a JSON-serializable wall intersection outcome. Points is
// empty and Reason set when the pair degenerated.
type CurveData struct {
	WallA  int         `json:"wallA"`
	WallB  int         `json:"wallB"`
	Points [][]float64 `json:"points,omitempty"`
	Length float64     `json:"length"`
	Reason string      `json:"reason,omitempty"`
}

// SectionData is the JSON-serializable form of one registered section.
type SectionData struct {
	ID       int      `json:"id"`
	Label    string   `json:"label"`
	Color    string   `json:"color"`
	Notes    string   `json:"notes,omitempty"`
	Surfaces []string `json:"surfaces"`

	Profiles      []ProfileData `json:"profiles"`
	Walls         []WallData    `json:"walls"`
	Intersections []CurveData   `json:"intersections"`
}

// EvalErrorData is a JSON-serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// EvalResult is the full result of evaluating a session script.
// CrossSections holds the curves of the script's (intersections) form;
// their WallA/WallB carry section ids rather than wall indices.
type EvalResult struct {
	Sections      []SectionData   `json:"sections"`
	CrossSections []CurveData     `json:"crossSections"`
	Errors        []EvalErrorData `json:"errors"`
}

// NewApp creates an App with a fresh script engine.
func NewApp() *App {
	return &App{engine: script.NewEngine()}
}

// Evaluate runs a session script and returns the resulting sections plus
// any errors. Fatal engine failures (panic, timeout) come back as a single
// line-zero error.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Sections:      []SectionData{},
		CrossSections: []CurveData{},
		Errors:        []EvalErrorData{},
	}

	sess, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{
			Line:    0,
			Message: err.Error(),
		})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Message: e.Message,
			})
		}
		return result
	}

	a.mu.Lock()
	a.session = sess
	a.mu.Unlock()

	result.Sections = sectionList(sess)
	for _, r := range sess.Intersections {
		result.CrossSections = append(result.CrossSections, curveData(r))
	}
	return result
}

// Sections returns the sections of the current session without
// re-evaluating anything.
func (a *App) Sections() []SectionData {
	a.mu.Lock()
	sess := a.session
	a.mu.Unlock()
	if sess == nil {
		return []SectionData{}
	}
	return sectionList(sess)
}

// Clear drops every section of the current session.
func (a *App) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session != nil {
		a.session.Registry.Clear()
	}
}

func sectionList(sess *script.Session) []SectionData {
	out := []SectionData{}
	for i, s := range sess.Registry.All() {
		color := s.Attrs.Color
		if color == "" {
			color = colorPalette[i%len(colorPalette)]
		}
		out = append(out, sectionData(s, color))
	}
	return out
}

func sectionData(s *section.Section, color string) SectionData {
	out := SectionData{
		ID:            s.ID,
		Label:         s.Attrs.Label,
		Color:         color,
		Notes:         s.Attrs.Notes,
		Surfaces:      s.Surfaces,
		Profiles:      []ProfileData{},
		Walls:         []WallData{},
		Intersections: []CurveData{},
	}

	for _, p := range s.Singles {
		out.Profiles = append(out.Profiles, profileData(p))
	}
	for _, pair := range s.Pairs {
		for _, p := range pair.A {
			out.Profiles = append(out.Profiles, profileData(p))
		}
		for _, p := range pair.B {
			out.Profiles = append(out.Profiles, profileData(p))
		}
	}

	for _, m := range s.Walls {
		out.Walls = append(out.Walls, WallData{
			Label:     m.Label,
			Bands:     m.Bands,
			Triangles: m.TriangleCount(),
			Base:      m.Base,
			Buffers:   m.Flatten(),
		})
	}

	for _, r := range s.Intersections {
		out.Intersections = append(out.Intersections, curveData(r))
	}
	return out
}

func profileData(p *profile.Profile) ProfileData {
	st := p.Stats()
	d := ProfileData{
		Surface:   p.SurfaceName,
		Samples:   p.Len(),
		Valid:     st.Valid,
		Min:       st.Min,
		Max:       st.Max,
		Mean:      st.Mean,
		AllNoData: p.AllNoData,
	}
	// NaN is not valid JSON; zero the stats of an empty profile.
	if math.IsNaN(d.Min) {
		d.Min, d.Max, d.Mean = 0, 0, 0
	}
	return d
}

func curveData(r intersect.Result) CurveData {
	a, b := r.Walls()
	out := CurveData{WallA: a, WallB: b}
	switch v := r.(type) {
	case intersect.Curve:
		out.Length = v.Length()
		out.Points = make([][]float64, len(v.Points))
		for i, p := range v.Points {
			out.Points[i] = []float64{p.X, p.Y, p.Z}
		}
	case intersect.Degenerate:
		out.Reason = v.Reason
	}
	return out
}
