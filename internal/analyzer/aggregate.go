package analyzer

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Aggregator reduces the per-axis blur vector to a single value. A nil
// Aggregator disables aggregation and the full vector is returned.
type Aggregator func(values []float64) float64

// NoAggregation is the pass-through sentinel
var NoAggregation Aggregator

// Max returns the largest value. Any NaN makes the result NaN.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	out := math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			return math.NaN()
		}
		out = math.Max(out, v)
	}
	return out
}

// Min returns the smallest value. Any NaN makes the result NaN.
func Min(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	out := math.Inf(1)
	for _, v := range values {
		if math.IsNaN(v) {
			return math.NaN()
		}
		out = math.Min(out, v)
	}
	return out
}

// Mean returns the arithmetic mean. Any NaN makes the result NaN.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

// NanMax returns the largest defined value, or NaN when every value is NaN
func NanMax(values []float64) float64 {
	return Max(Defined(values))
}

// Defined returns the non-NaN entries of values
func Defined(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
