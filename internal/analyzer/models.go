package analyzer

import (
	"github.com/anime-shed/blur-effect-go/pkg/models"
)

// AnalysisResult is an alias to the shared models.AnalysisResult
type AnalysisResult = models.AnalysisResult

// Diagnostic is an alias to the shared models.Diagnostic
type Diagnostic = models.Diagnostic

// AxisEnergy holds the edge energies of one axis. M2 is NaN when the axis
// had no edges and was skipped.
type AxisEnergy struct {
	Axis int
	M1   float64
	M2   float64
}

// BlurResult is the outcome of one estimate
type BlurResult struct {
	// PerAxis holds one ratio per axis of the reduced image, NaN if undefined
	PerAxis []float64

	// Value is the aggregated score; NaN when aggregation is disabled
	Value float64

	Aggregated bool

	// Shape of the image the axes refer to, after channel reduction
	Shape []int

	EdgeEnergy  []AxisEnergy
	Diagnostics []Diagnostic
}

// UndefinedAxes returns the indices of axes without a blur estimate
func (r *BlurResult) UndefinedAxes() []int {
	var axes []int
	for _, d := range r.Diagnostics {
		axes = append(axes, d.Axis)
	}
	return axes
}
