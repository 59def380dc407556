package analyzer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/anime-shed/blur-effect-go/internal/logger"
	"github.com/anime-shed/blur-effect-go/internal/ndimage"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// verticalEdge builds a size x size image whose left half is 0 and right half is 1
func verticalEdge(size int, dtype ndimage.DType, high float64) *ndimage.Array {
	data := make([]float64, size*size)
	for y := 0; y < size; y++ {
		for x := size / 2; x < size; x++ {
			data[y*size+x] = high
		}
	}
	return ndimage.MustFromSlice(dtype, data, size, size)
}

// randomArray builds a reproducible float image in [0, 1)
func randomArray(seed int64, shape ...int) *ndimage.Array {
	rng := rand.New(rand.NewSource(seed))
	n := 1
	for _, s := range shape {
		n *= s
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = rng.Float64()
	}
	return ndimage.MustFromSlice(ndimage.Float64, data, shape...)
}

// checkerboard builds a 2-d pattern of block x block squares
func checkerboard(size, block int) *ndimage.Array {
	data := make([]float64, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (y/block+x/block)%2 == 1 {
				data[y*size+x] = 1
			}
		}
	}
	return ndimage.MustFromSlice(ndimage.Float64, data, size, size)
}

var equateNaNs = cmpopts.EquateNaNs()

func TestEstimate_UniformImage(t *testing.T) {
	hook := test.NewLocal(logger.Logger)
	defer hook.Reset()

	img, err := ndimage.New(ndimage.Float64, 20, 20)
	require.NoError(t, err)

	res, err := Estimate(img, DefaultEstimateOptions().WithoutAggregation())
	require.NoError(t, err)
	require.Len(t, res.PerAxis, 2)
	assert.True(t, math.IsNaN(res.PerAxis[0]))
	assert.True(t, math.IsNaN(res.PerAxis[1]))
	assert.False(t, res.Aggregated)
	assert.Len(t, res.Diagnostics, 2)
	assert.Equal(t, []int{0, 1}, res.UndefinedAxes())
	for _, d := range res.Diagnostics {
		assert.Equal(t, "warning", d.Severity)
		assert.Contains(t, d.Message, "without edges")
	}

	warnings := 0
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)

	agg, err := Estimate(img, DefaultEstimateOptions())
	require.NoError(t, err)
	assert.True(t, agg.Aggregated)
	assert.True(t, math.IsNaN(agg.Value))
}

func TestEstimate_VerticalEdge(t *testing.T) {
	img := verticalEdge(30, ndimage.Float64, 1)

	res, err := Estimate(img, DefaultEstimateOptions().WithoutAggregation())
	require.NoError(t, err)
	require.Len(t, res.PerAxis, 2)

	// Rows never change along axis 0, so that axis carries no edges.
	assert.True(t, math.IsNaN(res.PerAxis[0]))
	assert.InDelta(t, 2.0/11, res.PerAxis[1], 1e-9)
	assert.InDelta(t, 54, res.EdgeEnergy[1].M1, 1e-9)
	assert.InDelta(t, 54*9.0/11, res.EdgeEnergy[1].M2, 1e-9)
	assert.True(t, math.IsNaN(res.EdgeEnergy[0].M2))
}

func TestEstimate_WindowSizeChangesRatio(t *testing.T) {
	img := verticalEdge(30, ndimage.Float64, 1)

	res, err := Estimate(img, DefaultEstimateOptions().WithWindowSize(3).WithAggregate(NanMax))
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, res.Value, 1e-9)
}

func TestEstimate_IntegerInputIsNormalized(t *testing.T) {
	f, err := Estimate(verticalEdge(30, ndimage.Float64, 1), DefaultEstimateOptions().WithoutAggregation())
	require.NoError(t, err)
	u, err := Estimate(verticalEdge(30, ndimage.Uint8, 255), DefaultEstimateOptions().WithoutAggregation())
	require.NoError(t, err)

	assert.True(t, cmp.Equal(f.PerAxis, u.PerAxis, equateNaNs, cmpopts.EquateApprox(0, 1e-12)),
		cmp.Diff(f.PerAxis, u.PerAxis, equateNaNs))
}

func TestEstimate_AxisBlurredImageScoresHigher(t *testing.T) {
	sharp := checkerboard(64, 16)
	blurred, err := ndimage.UniformFilter1D(sharp, 9, 1)
	require.NoError(t, err)

	res, err := Estimate(blurred, DefaultEstimateOptions().WithoutAggregation())
	require.NoError(t, err)
	require.Len(t, res.PerAxis, 2)
	assert.Greater(t, res.PerAxis[1], res.PerAxis[0])

	ref, err := Estimate(sharp, DefaultEstimateOptions())
	require.NoError(t, err)
	agg, err := Estimate(blurred, DefaultEstimateOptions())
	require.NoError(t, err)
	assert.Greater(t, agg.Value, ref.Value)
}

func TestEstimate_RangeProperty(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		res, err := Estimate(randomArray(seed, 16, 24), DefaultEstimateOptions().WithoutAggregation())
		require.NoError(t, err)
		for _, v := range Defined(res.PerAxis) {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestEstimate_ThreeDimensionalPassThrough(t *testing.T) {
	img := randomArray(7, 12, 13, 14)

	res, err := Estimate(img, DefaultEstimateOptions().WithoutAggregation())
	require.NoError(t, err)
	assert.Len(t, res.PerAxis, 3)
	assert.Equal(t, []int{12, 13, 14}, res.Shape)
	assert.True(t, math.IsNaN(res.Value))
	for ax, energy := range res.EdgeEnergy {
		assert.Equal(t, ax, energy.Axis)
	}
}

func TestEstimate_OneDimensional(t *testing.T) {
	img := ndimage.MustFromSlice(ndimage.Float64, []float64{0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 1}, 12)

	res, err := Estimate(img, DefaultEstimateOptions().WithWindowSize(5))
	require.NoError(t, err)
	assert.Len(t, res.PerAxis, 1)
	assert.Equal(t, res.PerAxis[0], res.Value)
	assert.False(t, math.IsNaN(res.Value))
}

func TestEstimate_ChannelAxisEquivalence(t *testing.T) {
	rgb := randomArray(11, 20, 24, 3)

	gray, err := ndimage.RGBToGray(rgb)
	require.NoError(t, err)
	want, err := Estimate(gray, DefaultEstimateOptions().WithoutAggregation())
	require.NoError(t, err)

	got, err := Estimate(rgb, DefaultEstimateOptions().WithoutAggregation().WithChannelAxis(2))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want.PerAxis, got.PerAxis, equateNaNs))

	negative, err := Estimate(rgb, DefaultEstimateOptions().WithoutAggregation().WithChannelAxis(-1))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want.PerAxis, negative.PerAxis, equateNaNs))

	channelsFirst, err := rgb.MoveAxis(2, 0)
	require.NoError(t, err)
	first, err := Estimate(channelsFirst, DefaultEstimateOptions().WithoutAggregation().WithChannelAxis(0))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want.PerAxis, first.PerAxis, equateNaNs))
	assert.Len(t, first.PerAxis, 2)
}

func TestEstimate_ChannelAxisOutOfBoundsFailsBeforeFiltering(t *testing.T) {
	calls := 0
	fail := func(*ndimage.Array, int) (*ndimage.Array, error) {
		calls++
		return nil, nil
	}
	est := NewBlurEstimatorWithCollaborators(Collaborators{
		Edges: EdgeFilterFunc(fail),
		Smoother: DirectionalSmootherFunc(func(a *ndimage.Array, _ int, axis int) (*ndimage.Array, error) {
			return fail(a, axis)
		}),
	})

	_, err := est.Estimate(randomArray(3, 10, 10, 3), DefaultEstimateOptions().WithChannelAxis(5))
	require.ErrorIs(t, err, ErrAxisOutOfBounds)
	assert.Contains(t, err.Error(), "out of bounds")
	assert.Zero(t, calls)

	_, err = est.Estimate(randomArray(3, 10, 10, 3), DefaultEstimateOptions().WithChannelAxis(-4))
	assert.ErrorIs(t, err, ErrAxisOutOfBounds)
}

func TestEstimate_WrongChannelCount(t *testing.T) {
	_, err := Estimate(randomArray(5, 10, 10, 4), DefaultEstimateOptions().WithChannelAxis(2))
	assert.ErrorIs(t, err, ndimage.ErrChannelCount)
}

func TestEstimate_WindowTooLarge(t *testing.T) {
	_, err := Estimate(randomArray(5, 6, 30), DefaultEstimateOptions())
	assert.ErrorIs(t, err, ndimage.ErrWindowTooLarge)

	_, err = Estimate(randomArray(5, 6, 30), DefaultEstimateOptions().WithParallel(2))
	assert.ErrorIs(t, err, ndimage.ErrWindowTooLarge)
}

func TestEstimate_EmptyImage(t *testing.T) {
	_, err := Estimate(nil, DefaultEstimateOptions())
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestEstimate_StrictMode(t *testing.T) {
	_, err := Estimate(verticalEdge(30, ndimage.Float64, 1), DefaultEstimateOptions().WithStrict())
	require.ErrorIs(t, err, ErrUndefinedAxis)
	assert.Contains(t, err.Error(), "[0]")

	res, err := Estimate(randomArray(9, 20, 20), DefaultEstimateOptions().WithStrict())
	require.NoError(t, err)
	assert.False(t, math.IsNaN(res.Value))
}

func TestEstimate_Deterministic(t *testing.T) {
	img := randomArray(21, 25, 25)

	a, err := Estimate(img, DefaultEstimateOptions().WithoutAggregation())
	require.NoError(t, err)
	b, err := Estimate(img, DefaultEstimateOptions().WithoutAggregation())
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(a.PerAxis, b.PerAxis, equateNaNs))
}

func TestEstimate_ParallelMatchesSequential(t *testing.T) {
	img := randomArray(13, 14, 15, 16)

	seq, err := Estimate(img, DefaultEstimateOptions().WithoutAggregation())
	require.NoError(t, err)
	par, err := Estimate(img, DefaultEstimateOptions().WithoutAggregation().WithParallel(0))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(seq.PerAxis, par.PerAxis, equateNaNs))
	assert.Empty(t, cmp.Diff(seq.EdgeEnergy, par.EdgeEnergy, equateNaNs))
}

func TestEstimate_DoesNotMutateInput(t *testing.T) {
	img := randomArray(17, 12, 12, 3)
	before := img.Data()

	_, err := Estimate(img, DefaultEstimateOptions().WithChannelAxis(2))
	require.NoError(t, err)
	assert.Equal(t, before, img.Data())
	assert.Equal(t, []int{12, 12, 3}, img.Shape())
}

func TestEstimate_ZeroWindowUsesDefault(t *testing.T) {
	img := verticalEdge(30, ndimage.Float64, 1)

	res, err := Estimate(img, EstimateOptions{Aggregate: NanMax})
	require.NoError(t, err)
	assert.InDelta(t, 2.0/11, res.Value, 1e-9)
}

func TestEstimate_CustomAggregator(t *testing.T) {
	img := randomArray(19, 20, 20)
	first := func(values []float64) float64 { return values[0] }

	res, err := Estimate(img, DefaultEstimateOptions().WithAggregate(first))
	require.NoError(t, err)
	assert.Equal(t, res.PerAxis[0], res.Value)
}
