package analyzer

// DefaultWindowSize is the re-blurring filter size of the reference metric
const DefaultWindowSize = 11

// DefaultBlurThreshold is the blur score at or above which an image is
// reported as blurry
const DefaultBlurThreshold = 0.5

// EstimateOptions configures a single blur estimate
type EstimateOptions struct {
	// WindowSize is the uniform filter length; zero means DefaultWindowSize
	WindowSize int

	// ChannelAxis is the colour axis of the input, nil for single channel
	ChannelAxis *int

	// Aggregate reduces the per-axis vector; nil returns the vector as is
	Aggregate Aggregator

	// Strict fails the estimate when any axis is undefined
	Strict bool

	// Per-axis parallelism
	Parallel   bool
	MaxWorkers int
}

// DefaultEstimateOptions returns the reference configuration: window 11,
// single channel, max aggregation
func DefaultEstimateOptions() EstimateOptions {
	return EstimateOptions{
		WindowSize: DefaultWindowSize,
		Aggregate:  Max,
	}
}

func (opts EstimateOptions) windowSize() int {
	if opts.WindowSize == 0 {
		return DefaultWindowSize
	}
	return opts.WindowSize
}

// WithWindowSize sets the uniform filter length
func (opts EstimateOptions) WithWindowSize(size int) EstimateOptions {
	opts.WindowSize = size
	return opts
}

// WithChannelAxis marks axis k as the colour channel axis
func (opts EstimateOptions) WithChannelAxis(k int) EstimateOptions {
	opts.ChannelAxis = ChannelAxis(k)
	return opts
}

// WithAggregate sets the reduction applied to the per-axis vector
func (opts EstimateOptions) WithAggregate(agg Aggregator) EstimateOptions {
	opts.Aggregate = agg
	return opts
}

// WithoutAggregation returns the per-axis vector unreduced
func (opts EstimateOptions) WithoutAggregation() EstimateOptions {
	opts.Aggregate = NoAggregation
	return opts
}

// WithStrict enables failing on undefined axes
func (opts EstimateOptions) WithStrict() EstimateOptions {
	opts.Strict = true
	return opts
}

// WithParallel runs axes concurrently on up to workers goroutines
func (opts EstimateOptions) WithParallel(workers int) EstimateOptions {
	opts.Parallel = true
	opts.MaxWorkers = workers
	return opts
}

// AnalysisOptions configures image-level analysis
type AnalysisOptions struct {
	Estimate EstimateOptions

	// AggregateName is reported alongside the result
	AggregateName string

	// BlurThreshold is the score at or above which the image is blurry
	BlurThreshold float64

	// NoChannelAxis keeps colour images as 3-D arrays instead of reducing
	// the detected channel axis
	NoChannelAxis bool
}

// DefaultOptions returns default analysis options
func DefaultOptions() AnalysisOptions {
	return AnalysisOptions{
		Estimate:      DefaultEstimateOptions(),
		AggregateName: "max",
		BlurThreshold: DefaultBlurThreshold,
	}
}

// FastOptions estimates all axes concurrently
func FastOptions() AnalysisOptions {
	opts := DefaultOptions()
	opts.Estimate = opts.Estimate.WithParallel(0)
	return opts
}

// WithThreshold sets the blurry classification threshold
func (opts AnalysisOptions) WithThreshold(threshold float64) AnalysisOptions {
	opts.BlurThreshold = threshold
	return opts
}

// WithWindowSize sets the re-blur window size
func (opts AnalysisOptions) WithWindowSize(size int) AnalysisOptions {
	opts.Estimate.WindowSize = size
	return opts
}
