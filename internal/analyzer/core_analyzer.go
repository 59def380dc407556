package analyzer

import (
	"context"
	"image"
	"math"
	"time"

	"github.com/anime-shed/blur-effect-go/internal/ndimage"
	"github.com/anime-shed/blur-effect-go/internal/observer"
	"github.com/anime-shed/blur-effect-go/pkg/models"
	"github.com/anime-shed/blur-effect-go/pkg/validation"

	"github.com/google/uuid"
)

// coreAnalyzer implements BlurAnalyzer on top of a BlurEstimator
type coreAnalyzer struct {
	estimator BlurEstimator
	validator *validation.QualityValidator
	events    observer.Subject
}

// NewBlurAnalyzer creates an image-level analyzer. Nil arguments fall back
// to the default estimator, the default validator and no event publishing.
func NewBlurAnalyzer(estimator BlurEstimator, validator *validation.QualityValidator, events observer.Subject) BlurAnalyzer {
	if estimator == nil {
		estimator = NewBlurEstimator()
	}
	if validator == nil {
		validator = validation.NewQualityValidator()
	}
	return &coreAnalyzer{
		estimator: estimator,
		validator: validator,
		events:    events,
	}
}

// Analyze runs the analysis with default options
func (ca *coreAnalyzer) Analyze(img image.Image) (AnalysisResult, error) {
	return ca.AnalyzeWithOptions(img, DefaultOptions())
}

// AnalyzeWithOptions converts img to an array, estimates its blur and
// classifies the result. Colour images use the trailing channel axis
// unless options name one explicitly or set NoChannelAxis.
func (ca *coreAnalyzer) AnalyzeWithOptions(img image.Image, options AnalysisOptions) (AnalysisResult, error) {
	start := time.Now()
	ca.publish(observer.AnalysisEvent{EventType: observer.AnalysisStarted, Timestamp: start})

	if img == nil || img.Bounds().Empty() {
		return ca.fail(start, ErrEmptyImage)
	}

	arr, err := ndimage.FromImage(img)
	if err != nil {
		return ca.fail(start, err)
	}

	estOpts := options.Estimate
	if estOpts.ChannelAxis == nil && !options.NoChannelAxis && ndimage.IsColor(arr) {
		estOpts.ChannelAxis = ChannelAxis(ndimage.ChannelAxis)
	}

	res, err := ca.estimator.Estimate(arr, estOpts)
	if err != nil {
		return ca.fail(start, err)
	}

	for _, d := range res.Diagnostics {
		axis := d.Axis
		ca.publish(observer.AnalysisEvent{
			EventType:    observer.AxisUndefined,
			Axis:         &axis,
			ErrorMessage: d.Message,
		})
	}

	result := AnalysisResult{
		ID:          uuid.NewString(),
		Timestamp:   start,
		Diagnostics: res.Diagnostics,
		Metrics:     buildMetrics(res, estOpts, options.AggregateName),
	}
	ca.classify(&result, res, options.BlurThreshold)

	elapsed := time.Since(start)
	result.ProcessingTimeSec = elapsed.Seconds()

	ca.publish(observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		ProcessingTime: elapsed,
		Success:        true,
		Metadata: map[string]interface{}{
			"blurry":         result.Quality.Blurry,
			"undefined_axes": len(res.Diagnostics),
		},
	})
	return result, nil
}

// classify fills Quality and Errors. Unaggregated results are classified
// on their largest defined axis.
func (ca *coreAnalyzer) classify(result *AnalysisResult, res *BlurResult, threshold float64) {
	qv := ca.validator
	if threshold > 0 && threshold != qv.Thresholds().MaxBlurScore {
		thresholds := qv.Thresholds()
		thresholds.MaxBlurScore = threshold
		qv = validation.NewQualityValidatorWithThresholds(thresholds)
	}

	score := res.Value
	if !res.Aggregated {
		score = NanMax(res.PerAxis)
	}

	issues := qv.ValidateBlur(validation.ImageQualityMetrics{
		Shape:         res.Shape,
		BlurScore:     score,
		PerAxis:       res.PerAxis,
		UndefinedAxes: res.UndefinedAxes(),
	})

	result.Quality = models.Quality{
		Blurry:           qv.IsBlurry(score),
		IsValid:          !qv.HasCriticalIssues(issues),
		HasUndefinedAxes: len(res.Diagnostics) > 0,
		IsAnisotropic:    validation.HasIssue(issues, "anisotropic_blur"),
	}
	result.Errors = qv.ConvertIssuesToMessages(issues)
}

func buildMetrics(res *BlurResult, opts EstimateOptions, aggregateName string) models.BlurMetrics {
	if aggregateName == "" {
		aggregateName = "custom"
		if opts.Aggregate == nil {
			aggregateName = "none"
		}
	}

	metrics := models.BlurMetrics{
		PerAxis:     models.OptionalFloats(res.PerAxis),
		Aggregate:   aggregateName,
		WindowSize:  opts.windowSize(),
		ChannelAxis: opts.ChannelAxis,
		Shape:       res.Shape,
		EdgeEnergy:  make([]models.AxisEnergy, len(res.EdgeEnergy)),
	}
	if res.Aggregated {
		metrics.BlurScore = models.OptionalFloat(res.Value)
	}
	for i, e := range res.EdgeEnergy {
		metrics.EdgeEnergy[i] = models.AxisEnergy{
			Axis:           e.Axis,
			SharpEnergy:    e.M1,
			ResidualEnergy: models.OptionalFloat(e.M2),
		}
	}
	return metrics
}

func (ca *coreAnalyzer) fail(start time.Time, err error) (AnalysisResult, error) {
	ca.publish(observer.AnalysisEvent{
		EventType:      observer.AnalysisFailed,
		ProcessingTime: time.Since(start),
		ErrorMessage:   err.Error(),
	})
	return AnalysisResult{}, err
}

func (ca *coreAnalyzer) publish(event observer.AnalysisEvent) {
	if ca.events == nil {
		return
	}
	ca.events.NotifyObservers(context.Background(), event)
}

// Close releases analyzer resources
func (ca *coreAnalyzer) Close() error {
	return nil
}

// Score returns the aggregated score of a result, NaN when undefined
func Score(result AnalysisResult) float64 {
	if result.Metrics.BlurScore == nil {
		return math.NaN()
	}
	return *result.Metrics.BlurScore
}
