package ndimage

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWindow is returned for a uniform filter size below one
	ErrInvalidWindow = errors.New("invalid filter window size")

	// ErrWindowTooLarge is returned when the uniform filter window is longer
	// than the axis it runs along
	ErrWindowTooLarge = errors.New("filter window larger than axis")
)

var (
	sobelEdge   = []float64{1, 0, -1}
	sobelSmooth = []float64{0.25, 0.5, 0.25}
)

// reflectIndex maps any integer index onto [0, n) using half-sample
// symmetric reflection: d c b a | a b c d | d c b a
func reflectIndex(j, n int) int {
	period := 2 * n
	j %= period
	if j < 0 {
		j += period
	}
	if j >= n {
		j = period - 1 - j
	}
	return j
}

// forEachLine calls fn with the offset of the first element of every 1-d
// line running along axis, together with the line length and element stride.
func (a *Array) forEachLine(axis int, fn func(base, n, stride int)) {
	n := a.shape[axis]
	stride := a.strides[axis]
	block := n * stride
	for outer := 0; outer < len(a.data); outer += block {
		for inner := 0; inner < stride; inner++ {
			fn(outer+inner, n, stride)
		}
	}
}

// UniformFilter1D applies a box filter of the given size along axis. The
// window covering output i is [i - size/2, i + size - size/2 - 1], and
// samples beyond the edges are reflected.
func UniformFilter1D(a *Array, size, axis int) (*Array, error) {
	ax, err := NormalizeAxis(axis, a.NDim())
	if err != nil {
		return nil, err
	}
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindow, size)
	}
	if size > a.shape[ax] {
		return nil, fmt.Errorf("%w: window %d exceeds length %d of axis %d", ErrWindowTooLarge, size, a.shape[ax], ax)
	}

	before := size / 2
	out := make([]float64, len(a.data))
	ext := make([]float64, a.shape[ax]+size-1)
	a.forEachLine(ax, func(base, n, stride int) {
		for k := range ext {
			ext[k] = a.data[base+reflectIndex(k-before, n)*stride]
		}
		var sum float64
		for k := 0; k < size; k++ {
			sum += ext[k]
		}
		out[base] = sum / float64(size)
		for i := 1; i < n; i++ {
			sum += ext[i+size-1] - ext[i-1]
			out[base+i*stride] = sum / float64(size)
		}
	})
	return a.withData(Float64, out), nil
}

// correlate1D correlates a with a centred 3-tap kernel along axis
func correlate1D(a *Array, weights []float64, axis int) *Array {
	out := make([]float64, len(a.data))
	a.forEachLine(axis, func(base, n, stride int) {
		for i := 0; i < n; i++ {
			var acc float64
			for k, w := range weights {
				if w == 0 {
					continue
				}
				acc += w * a.data[base+reflectIndex(i+k-1, n)*stride]
			}
			out[base+i*stride] = acc
		}
	})
	return a.withData(Float64, out)
}

// Sobel returns the signed Sobel response along axis: the [1, 0, -1]
// derivative kernel along axis and the [1, 2, 1]/4 smoothing kernel along
// every other axis.
func Sobel(a *Array, axis int) (*Array, error) {
	ax, err := NormalizeAxis(axis, a.NDim())
	if err != nil {
		return nil, err
	}
	out := correlate1D(a, sobelEdge, ax)
	for other := 0; other < a.NDim(); other++ {
		if other == ax {
			continue
		}
		out = correlate1D(out, sobelSmooth, other)
	}
	return out, nil
}
