package analyzer

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMax_PropagatesNaN(t *testing.T) {
	assert.Equal(t, 0.7, Max([]float64{0.2, 0.7, 0.1}))
	assert.True(t, math.IsNaN(Max([]float64{0.2, math.NaN()})))
	assert.True(t, math.IsNaN(Max(nil)))
}

func TestMin_PropagatesNaN(t *testing.T) {
	assert.Equal(t, 0.1, Min([]float64{0.2, 0.7, 0.1}))
	assert.True(t, math.IsNaN(Min([]float64{math.NaN(), 0.3})))
}

func TestMean(t *testing.T) {
	assert.InDelta(t, 0.5, Mean([]float64{0.25, 0.75}), 1e-12)
	assert.True(t, math.IsNaN(Mean([]float64{0.25, math.NaN()})))
	assert.True(t, math.IsNaN(Mean(nil)))
}

func TestNanMax(t *testing.T) {
	assert.Equal(t, 0.4, NanMax([]float64{math.NaN(), 0.4, 0.3}))
	assert.True(t, math.IsNaN(NanMax([]float64{math.NaN(), math.NaN()})))
}

func TestNoAggregationIsNil(t *testing.T) {
	assert.Nil(t, NoAggregation)
	assert.Nil(t, DefaultEstimateOptions().WithoutAggregation().Aggregate)
}

func TestParseChannelAxis(t *testing.T) {
	axis, err := ParseChannelAxis(" 2 ")
	require.NoError(t, err)
	require.NotNil(t, axis)
	assert.Equal(t, 2, *axis)

	axis, err = ParseChannelAxis("-1")
	require.NoError(t, err)
	assert.Equal(t, -1, *axis)

	for _, none := range []string{"", "auto", "none", "NULL"} {
		axis, err = ParseChannelAxis(none)
		require.NoError(t, err)
		assert.Nil(t, axis)
	}

	assert.True(t, IsNoChannelAxis(" None "))
	assert.False(t, IsNoChannelAxis(nil))
	assert.False(t, IsNoChannelAxis("null"))
	assert.False(t, IsNoChannelAxis(float64(2)))

	_, err = ParseChannelAxis("2.5")
	assert.ErrorIs(t, err, ErrAxisType)
	assert.Contains(t, err.Error(), "must be an integer")

	_, err = ParseChannelAxis("red")
	assert.ErrorIs(t, err, ErrAxisType)
}

func TestParseChannelAxisValue(t *testing.T) {
	axis, err := ParseChannelAxisValue(float64(2))
	require.NoError(t, err)
	assert.Equal(t, 2, *axis)

	axis, err = ParseChannelAxisValue(nil)
	require.NoError(t, err)
	assert.Nil(t, axis)

	axis, err = ParseChannelAxisValue("0")
	require.NoError(t, err)
	assert.Equal(t, 0, *axis)

	_, err = ParseChannelAxisValue(1.5)
	assert.True(t, errors.Is(err, ErrAxisType))

	_, err = ParseChannelAxisValue([]any{1})
	assert.ErrorIs(t, err, ErrAxisType)

	_, err = ParseChannelAxisValue(true)
	assert.ErrorIs(t, err, ErrAxisType)
}

func TestDefaultEstimateOptions(t *testing.T) {
	opts := DefaultEstimateOptions()
	assert.Equal(t, 11, opts.WindowSize)
	assert.Nil(t, opts.ChannelAxis)
	assert.NotNil(t, opts.Aggregate)
	assert.False(t, opts.Strict)
	assert.False(t, opts.Parallel)

	withAxis := opts.WithChannelAxis(2)
	require.NotNil(t, withAxis.ChannelAxis)
	assert.Equal(t, 2, *withAxis.ChannelAxis)
	assert.Nil(t, opts.ChannelAxis)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.BlurThreshold != DefaultBlurThreshold {
		t.Errorf("Expected BlurThreshold to be %f, got %f", DefaultBlurThreshold, opts.BlurThreshold)
	}
	if opts.AggregateName != "max" {
		t.Errorf("Expected AggregateName to be max, got %s", opts.AggregateName)
	}

	fast := FastOptions()
	if !fast.Estimate.Parallel {
		t.Error("Expected FastOptions to enable per-axis parallelism")
	}

	custom := opts.WithThreshold(0.3).WithWindowSize(7)
	if custom.BlurThreshold != 0.3 || custom.Estimate.WindowSize != 7 {
		t.Errorf("Unexpected custom options: %+v", custom)
	}
}
