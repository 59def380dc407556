package models

import (
	"math"
	"time"
)

// AnalysisResult represents the complete result of a blur analysis
type AnalysisResult struct {
	ID                string    `json:"id"`
	ImageURL          string    `json:"image_url,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
	ProcessingTimeSec float64   `json:"processing_time_sec"`

	// Quality indicators
	Quality Quality `json:"quality"`

	// Metrics
	Metrics BlurMetrics `json:"metrics"`

	// Non-fatal notices raised while estimating, one per undefined axis
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`

	// Validation errors
	Errors []string `json:"errors,omitempty"`
}

// Quality represents the blur assessment
type Quality struct {
	Blurry           bool `json:"blurry"`
	IsValid          bool `json:"is_valid"`
	HasUndefinedAxes bool `json:"has_undefined_axes,omitempty"`
	IsAnisotropic    bool `json:"is_anisotropic,omitempty"`
}

// BlurMetrics holds the raw metric values. Undefined values are null.
type BlurMetrics struct {
	BlurScore   *float64     `json:"blur_score"`
	PerAxis     []*float64   `json:"per_axis"`
	Aggregate   string       `json:"aggregate"`
	WindowSize  int          `json:"window_size"`
	ChannelAxis *int         `json:"channel_axis,omitempty"`
	Shape       []int        `json:"shape"`
	EdgeEnergy  []AxisEnergy `json:"edge_energy,omitempty"`
}

// AxisEnergy is the edge energy summed over the cropped interior of one axis
type AxisEnergy struct {
	Axis           int      `json:"axis"`
	SharpEnergy    float64  `json:"sharp_energy"`
	ResidualEnergy *float64 `json:"residual_energy"`
}

// Severity levels for diagnostics and quality issues
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Diagnostic is a structured, non-fatal notice tied to an axis
type Diagnostic struct {
	Severity string `json:"severity"`
	Axis     int    `json:"axis"`
	Message  string `json:"message"`
}

// ImageMetadata describes the decoded image an analysis ran on
type ImageMetadata struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Color  bool   `json:"color"`
	Format string `json:"format,omitempty"`
}

// OptionalFloat returns nil for NaN so undefined values encode as null
func OptionalFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// OptionalFloats maps OptionalFloat over values
func OptionalFloats(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		out[i] = OptionalFloat(v)
	}
	return out
}

// ValueOrNaN dereferences v, returning NaN for nil
func ValueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
