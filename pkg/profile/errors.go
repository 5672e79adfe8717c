package profile

import "fmt"

// ConfigurationError reports an invalid numeric parameter (sample count,
// offset, thickness). It is returned before any sampling runs.
type ConfigurationError struct {
	Param   string
	Message string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Param, e.Message)
}

// GeometryError reports invalid input geometry (zero-length baseline,
// polygon with too few vertices). It is returned before any sampling runs.
type GeometryError struct {
	Message string
}

func (e GeometryError) Error() string {
	return fmt.Sprintf("geometry: %s", e.Message)
}
