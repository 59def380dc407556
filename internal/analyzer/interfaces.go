package analyzer

import (
	"image"

	"github.com/anime-shed/blur-effect-go/internal/ndimage"
)

// BlurAnalyzer defines the main interface for image-level blur analysis
type BlurAnalyzer interface {
	Analyze(img image.Image) (AnalysisResult, error)
	AnalyzeWithOptions(img image.Image, options AnalysisOptions) (AnalysisResult, error)

	// Lifecycle management
	Close() error
}

// BlurEstimator computes the per-axis blur effect metric of an n-d array
type BlurEstimator interface {
	Estimate(img *ndimage.Array, opts EstimateOptions) (*BlurResult, error)
}

// ColorReducer collapses a trailing channel axis into a single intensity value
type ColorReducer interface {
	Reduce(img *ndimage.Array) (*ndimage.Array, error)
}

// RangeNormalizer converts samples to floating point in their canonical range
type RangeNormalizer interface {
	Normalize(img *ndimage.Array) *ndimage.Array
}

// DirectionalSmoother applies a box filter of windowSize samples along axis
type DirectionalSmoother interface {
	Smooth(img *ndimage.Array, windowSize, axis int) (*ndimage.Array, error)
}

// EdgeFilter returns the signed edge response along axis
type EdgeFilter interface {
	Filter(img *ndimage.Array, axis int) (*ndimage.Array, error)
}

type ColorReducerFunc func(img *ndimage.Array) (*ndimage.Array, error)

func (f ColorReducerFunc) Reduce(img *ndimage.Array) (*ndimage.Array, error) { return f(img) }

type RangeNormalizerFunc func(img *ndimage.Array) *ndimage.Array

func (f RangeNormalizerFunc) Normalize(img *ndimage.Array) *ndimage.Array { return f(img) }

type DirectionalSmootherFunc func(img *ndimage.Array, windowSize, axis int) (*ndimage.Array, error)

func (f DirectionalSmootherFunc) Smooth(img *ndimage.Array, windowSize, axis int) (*ndimage.Array, error) {
	return f(img, windowSize, axis)
}

type EdgeFilterFunc func(img *ndimage.Array, axis int) (*ndimage.Array, error)

func (f EdgeFilterFunc) Filter(img *ndimage.Array, axis int) (*ndimage.Array, error) {
	return f(img, axis)
}

// Collaborators groups the numeric building blocks used by the estimator
type Collaborators struct {
	Reducer    ColorReducer
	Normalizer RangeNormalizer
	Smoother   DirectionalSmoother
	Edges      EdgeFilter
}

// DefaultCollaborators returns the ndimage-backed implementations
func DefaultCollaborators() Collaborators {
	return Collaborators{
		Reducer:    ColorReducerFunc(ndimage.RGBToGray),
		Normalizer: RangeNormalizerFunc(ndimage.AsFloat),
		Smoother:   DirectionalSmootherFunc(ndimage.UniformFilter1D),
		Edges:      EdgeFilterFunc(ndimage.Sobel),
	}
}

// withDefaults fills any nil collaborator with its default
func (c Collaborators) withDefaults() Collaborators {
	d := DefaultCollaborators()
	if c.Reducer == nil {
		c.Reducer = d.Reducer
	}
	if c.Normalizer == nil {
		c.Normalizer = d.Normalizer
	}
	if c.Smoother == nil {
		c.Smoother = d.Smoother
	}
	if c.Edges == nil {
		c.Edges = d.Edges
	}
	return c
}
