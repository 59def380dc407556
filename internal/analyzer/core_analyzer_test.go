package analyzer

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/anime-shed/blur-effect-go/internal/observer"
	"github.com/anime-shed/blur-effect-go/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestImage creates a simple test image for testing purposes
func createTestImage(width, height int, fillColor color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fillColor)
		}
	}
	return img
}

// createEdgeImage creates a black/white image split by a vertical edge
func createEdgeImage(width, height int) *image.RGBA {
	img := createTestImage(width, height, color.RGBA{0, 0, 0, 255})
	for y := 0; y < height; y++ {
		for x := width / 2; x < width; x++ {
			img.Set(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	return img
}

// createGrayEdgeImage is createEdgeImage as a single channel image
func createGrayEdgeImage(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := width / 2; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

func nanMaxOptions() AnalysisOptions {
	opts := DefaultOptions()
	opts.Estimate.Aggregate = NanMax
	opts.AggregateName = "nanmax"
	return opts
}

func TestNewBlurAnalyzer(t *testing.T) {
	a := NewBlurAnalyzer(nil, nil, nil)
	require.NotNil(t, a)
	assert.NoError(t, a.Close())
}

func TestAnalyze_UniformImage(t *testing.T) {
	a := NewBlurAnalyzer(nil, nil, nil)

	result, err := a.Analyze(createTestImage(30, 30, color.RGBA{128, 128, 128, 255}))
	require.NoError(t, err)

	assert.NotEmpty(t, result.ID)
	assert.False(t, result.Timestamp.IsZero())
	assert.Nil(t, result.Metrics.BlurScore, "max over undefined axes is undefined")
	assert.Equal(t, []int{30, 30}, result.Metrics.Shape)
	require.Len(t, result.Metrics.PerAxis, 2)
	assert.Nil(t, result.Metrics.PerAxis[0])
	assert.Nil(t, result.Metrics.PerAxis[1])
	require.NotNil(t, result.Metrics.ChannelAxis)
	assert.Equal(t, 2, *result.Metrics.ChannelAxis)
	assert.Len(t, result.Diagnostics, 2)

	assert.True(t, result.Quality.HasUndefinedAxes)
	assert.False(t, result.Quality.Blurry)
	assert.True(t, result.Quality.IsValid)
	assert.NotEmpty(t, result.Errors)
}

func TestAnalyze_ColorEdge(t *testing.T) {
	a := NewBlurAnalyzer(nil, nil, nil)

	result, err := a.AnalyzeWithOptions(createEdgeImage(30, 30), nanMaxOptions())
	require.NoError(t, err)

	require.NotNil(t, result.Metrics.BlurScore)
	assert.InDelta(t, 2.0/11.0, *result.Metrics.BlurScore, 1e-9)
	assert.Nil(t, result.Metrics.PerAxis[0])
	require.NotNil(t, result.Metrics.PerAxis[1])
	assert.InDelta(t, 2.0/11.0, *result.Metrics.PerAxis[1], 1e-9)
	assert.Equal(t, "nanmax", result.Metrics.Aggregate)
	assert.Equal(t, DefaultWindowSize, result.Metrics.WindowSize)
	assert.False(t, result.Quality.Blurry)
	assert.True(t, result.Quality.IsValid)

	require.Len(t, result.Metrics.EdgeEnergy, 2)
	assert.Nil(t, result.Metrics.EdgeEnergy[0].ResidualEnergy)
	assert.NotNil(t, result.Metrics.EdgeEnergy[1].ResidualEnergy)
}

func TestAnalyze_GrayMatchesColor(t *testing.T) {
	a := NewBlurAnalyzer(nil, nil, nil)

	gray, err := a.AnalyzeWithOptions(createGrayEdgeImage(30, 30), nanMaxOptions())
	require.NoError(t, err)
	rgb, err := a.AnalyzeWithOptions(createEdgeImage(30, 30), nanMaxOptions())
	require.NoError(t, err)

	assert.Nil(t, gray.Metrics.ChannelAxis)
	assert.InDelta(t, *rgb.Metrics.BlurScore, *gray.Metrics.BlurScore, 1e-6)
}

func TestAnalyze_NoChannelAxis(t *testing.T) {
	a := NewBlurAnalyzer(nil, nil, nil)
	opts := DefaultOptions().WithWindowSize(3)
	opts.NoChannelAxis = true

	result, err := a.AnalyzeWithOptions(createEdgeImage(30, 30), opts)
	require.NoError(t, err)
	assert.Nil(t, result.Metrics.ChannelAxis)
	assert.Equal(t, []int{30, 30, 3}, result.Metrics.Shape)
	require.Len(t, result.Metrics.PerAxis, 3)
	assert.Nil(t, result.Metrics.PerAxis[2], "channel axis is too short for the crop")

	// Default window does not fit the three channel samples
	opts.Estimate.WindowSize = DefaultWindowSize
	_, err = a.AnalyzeWithOptions(createEdgeImage(30, 30), opts)
	assert.True(t, IsInputError(err), "got %v", err)
}

func TestAnalyze_ThresholdMarksBlurry(t *testing.T) {
	a := NewBlurAnalyzer(nil, nil, nil)

	result, err := a.AnalyzeWithOptions(createEdgeImage(30, 30), nanMaxOptions().WithThreshold(0.1))
	require.NoError(t, err)

	assert.True(t, result.Quality.Blurry)
	assert.False(t, result.Quality.IsValid)
	assert.Contains(t, result.Errors, "Image is blurry. Please hold the camera steady and try again.")
}

func TestAnalyze_WithoutAggregationClassifiesOnDefinedAxes(t *testing.T) {
	a := NewBlurAnalyzer(nil, nil, nil)

	opts := DefaultOptions().WithThreshold(0.1)
	opts.Estimate = opts.Estimate.WithoutAggregation()
	opts.AggregateName = ""

	result, err := a.AnalyzeWithOptions(createEdgeImage(30, 30), opts)
	require.NoError(t, err)

	assert.Nil(t, result.Metrics.BlurScore)
	assert.Equal(t, "none", result.Metrics.Aggregate)
	assert.True(t, result.Quality.Blurry)
}

func TestAnalyze_CustomValidator(t *testing.T) {
	validator := validation.NewQualityValidatorWithThresholds(validation.QualityThresholds{
		MaxBlurScore:  0.15,
		MaxAxisSpread: 1,
		MinAxisLength: 1,
	})
	a := NewBlurAnalyzer(nil, validator, nil)

	opts := nanMaxOptions()
	opts.BlurThreshold = 0
	result, err := a.AnalyzeWithOptions(createEdgeImage(30, 30), opts)
	require.NoError(t, err)
	assert.True(t, result.Quality.Blurry)
}

func TestAnalyze_EmptyImage(t *testing.T) {
	a := NewBlurAnalyzer(nil, nil, nil)

	_, err := a.Analyze(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.True(t, errors.Is(err, ErrEmptyImage))

	_, err = a.Analyze(nil)
	assert.True(t, errors.Is(err, ErrEmptyImage))
}

func TestAnalyze_PublishesEvents(t *testing.T) {
	pub := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	pub.Subscribe(metrics)
	a := NewBlurAnalyzer(nil, nil, pub)

	_, err := a.Analyze(createTestImage(30, 30, color.RGBA{10, 10, 10, 255}))
	require.NoError(t, err)

	opts := DefaultOptions().WithWindowSize(64)
	_, err = a.AnalyzeWithOptions(createEdgeImage(30, 30), opts)
	require.Error(t, err)

	snap := metrics.GetMetrics()
	assert.Equal(t, int64(2), snap.TotalAnalyses)
	assert.Equal(t, int64(1), snap.SuccessfulAnalyses)
	assert.Equal(t, int64(1), snap.FailedAnalyses)
	assert.Equal(t, int64(2), snap.UndefinedAxes)
}

func TestScore(t *testing.T) {
	assert.True(t, math.IsNaN(Score(AnalysisResult{})))

	v := 0.25
	var r AnalysisResult
	r.Metrics.BlurScore = &v
	assert.Equal(t, 0.25, Score(r))
}
