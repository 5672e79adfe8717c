package profile

import (
	"fmt"

	v2 "github.com/deadsy/sdfx/vec/v2"

	"github.com/danverne/terrasect/pkg/dem"
)

// SampleAlong resamples the baseline into n evenly spaced points and
// samples the surface at each. n must be at least 2 (the endpoints) and at
// most MaxSamples. Missing elevations are kept as no-data samples; a
// profile that never hit the surface comes back with AllNoData set.
//
// Sample distances are arc lengths along the baseline, not chords between
// resampled points, so they stay strictly increasing even when the
// baseline doubles back over itself.
func SampleAlong(s dem.Surface, line Baseline, n int) (*Profile, error) {
	if err := validateSamples(n); err != nil {
		return nil, err
	}
	if line.IsZero() || line.Length() == 0 {
		return nil, GeometryError{Message: "baseline has zero length"}
	}

	pts := resample(line.pts, n)
	total := line.Length()
	samples := make([]Sample, n)
	valid := 0
	for i, p := range pts {
		dist := total * float64(i) / float64(n-1)
		elev := s.SampleAt(p.X, p.Y)
		if !dem.IsNoData(elev) {
			valid++
		}
		samples[i] = Sample{Distance: dist, X: p.X, Y: p.Y, Elevation: elev}
	}

	return &Profile{
		SurfaceName: s.Name(),
		Line:        line,
		Samples:     samples,
		AllNoData:   valid == 0,
	}, nil
}

// validateSamples checks the per-profile sample count.
func validateSamples(n int) error {
	if n < 2 {
		return ConfigurationError{
			Param:   "samples",
			Message: fmt.Sprintf("need at least 2, got %d", n),
		}
	}
	if n > MaxSamples {
		return ConfigurationError{
			Param:   "samples",
			Message: fmt.Sprintf("at most %d supported, got %d", MaxSamples, n),
		}
	}
	return nil
}

// resample returns n points evenly spaced by arc length along the
// polyline, first and last coinciding with the polyline's endpoints.
func resample(pts []v2.Vec, n int) []v2.Vec {
	segLen := make([]float64, len(pts)-1)
	total := 0.0
	for i := 1; i < len(pts); i++ {
		segLen[i-1] = pts[i].Sub(pts[i-1]).Length()
		total += segLen[i-1]
	}

	out := make([]v2.Vec, n)
	out[0] = pts[0]
	out[n-1] = pts[len(pts)-1]

	seg := 0
	segStart := 0.0
	for i := 1; i < n-1; i++ {
		target := total * float64(i) / float64(n-1)
		for seg < len(segLen)-1 && segStart+segLen[seg] < target {
			segStart += segLen[seg]
			seg++
		}
		t := 0.0
		if segLen[seg] > 0 {
			t = (target - segStart) / segLen[seg]
		}
		a := pts[seg]
		b := pts[seg+1]
		out[i] = a.Add(b.Sub(a).MulScalar(t))
	}
	return out
}
