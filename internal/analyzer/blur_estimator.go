package analyzer

import (
	"fmt"
	"math"

	"github.com/anime-shed/blur-effect-go/internal/logger"
	"github.com/anime-shed/blur-effect-go/internal/ndimage"
	"github.com/anime-shed/blur-effect-go/pkg/models"

	"github.com/sirupsen/logrus"
)

const noEdgesMessage = "couldn't estimate blur for image without edges, image may be uniform, using NaN as a blur metric"

// blurEstimator implements BlurEstimator with the Crété et al. blur effect
// metric: along every axis the image is re-blurred with a box filter and the
// share of edge energy that survives the re-blur is compared to the total.
type blurEstimator struct {
	collab Collaborators
}

// NewBlurEstimator creates an estimator backed by the ndimage filters
func NewBlurEstimator() BlurEstimator {
	return &blurEstimator{collab: DefaultCollaborators()}
}

// NewBlurEstimatorWithCollaborators creates an estimator with custom filters.
// Nil fields fall back to the defaults.
func NewBlurEstimatorWithCollaborators(c Collaborators) BlurEstimator {
	return &blurEstimator{collab: c.withDefaults()}
}

var defaultEstimator = NewBlurEstimator()

// Estimate runs the default estimator
func Estimate(img *ndimage.Array, opts EstimateOptions) (*BlurResult, error) {
	return defaultEstimator.Estimate(img, opts)
}

// Estimate computes the per-axis blur ratios of img and aggregates them
func (e *blurEstimator) Estimate(img *ndimage.Array, opts EstimateOptions) (*BlurResult, error) {
	if img == nil || img.Size() == 0 {
		return nil, ErrEmptyImage
	}

	if opts.ChannelAxis != nil {
		axis, err := ndimage.NormalizeAxis(*opts.ChannelAxis, img.NDim())
		if err != nil {
			return nil, fmt.Errorf("channel_axis must be one of the image array dimensions: %w", err)
		}
		moved, err := img.MoveAxis(axis, -1)
		if err != nil {
			return nil, err
		}
		if img, err = e.collab.Reducer.Reduce(moved); err != nil {
			return nil, err
		}
	}

	nAxes := img.NDim()
	img = e.collab.Normalizer.Normalize(img)
	shape := img.Shape()

	region := make([]ndimage.Range, nAxes)
	for i, s := range shape {
		region[i] = ndimage.Range{Start: 2, Stop: s - 1}
	}

	energies := make([]AxisEnergy, nAxes)
	errs := make([]error, nAxes)
	windowSize := opts.windowSize()

	if opts.Parallel && nAxes > 1 {
		workers := opts.MaxWorkers
		if workers <= 0 || workers > nAxes {
			workers = nAxes
		}
		pool := NewWorkerPool(workers)
		pool.Start()
		for ax := 0; ax < nAxes; ax++ {
			pool.Submit(func() {
				energies[ax], errs[ax] = e.axisEnergy(img, windowSize, ax, region)
			})
		}
		pool.Wait()
		pool.Close()
	} else {
		for ax := 0; ax < nAxes; ax++ {
			energies[ax], errs[ax] = e.axisEnergy(img, windowSize, ax, region)
			if errs[ax] != nil {
				break
			}
		}
	}

	result := &BlurResult{
		PerAxis:    make([]float64, 0, nAxes),
		Value:      math.NaN(),
		Shape:      shape,
		EdgeEnergy: energies,
	}
	for ax, energy := range energies {
		if errs[ax] != nil {
			return nil, errs[ax]
		}
		if energy.M1 == 0 {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				Severity: models.SeverityWarning,
				Axis:     ax,
				Message:  noEdgesMessage,
			})
			logger.WithFields(logrus.Fields{
				"axis":  ax,
				"shape": shape,
			}).Warn(noEdgesMessage)
			result.PerAxis = append(result.PerAxis, math.NaN())
			continue
		}
		result.PerAxis = append(result.PerAxis, math.Abs(energy.M1-energy.M2)/energy.M1)
	}

	if opts.Strict && len(result.Diagnostics) > 0 {
		return nil, fmt.Errorf("%w: axes %v", ErrUndefinedAxis, result.UndefinedAxes())
	}

	if opts.Aggregate != nil {
		result.Value = opts.Aggregate(append([]float64(nil), result.PerAxis...))
		result.Aggregated = true
	}
	return result, nil
}

// axisEnergy computes M1 (sharp edge energy) and M2 (edge energy not
// explained by re-blurring) over the cropped interior for one axis
func (e *blurEstimator) axisEnergy(img *ndimage.Array, windowSize, ax int, region []ndimage.Range) (AxisEnergy, error) {
	energy := AxisEnergy{Axis: ax, M2: math.NaN()}

	filtered, err := e.collab.Smoother.Smooth(img, windowSize, ax)
	if err != nil {
		return energy, err
	}
	sharpEdges, err := e.collab.Edges.Filter(img, ax)
	if err != nil {
		return energy, err
	}
	blurredEdges, err := e.collab.Edges.Filter(filtered, ax)
	if err != nil {
		return energy, err
	}
	sharp := sharpEdges.Abs()

	if energy.M1, err = sharp.SumRegion(region); err != nil {
		return energy, err
	}
	if energy.M1 == 0 {
		return energy, nil
	}

	residual, err := sharp.SubClampZero(blurredEdges.Abs())
	if err != nil {
		return energy, err
	}
	if energy.M2, err = residual.SumRegion(region); err != nil {
		return energy, err
	}
	return energy, nil
}
