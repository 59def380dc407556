package ndimage

import (
	"errors"
	"fmt"
	"math"
)

// ErrChannelCount is returned when a colour array does not carry exactly
// three channels on its last axis
var ErrChannelCount = errors.New("color array must have 3 channels on its last axis")

// Luminance weights for linear RGB (ITU-R BT.709)
var grayWeights = [3]float64{0.2125, 0.7154, 0.0721}

var dtypeMax = map[DType]float64{
	Uint8:  math.MaxUint8,
	Uint16: math.MaxUint16,
	Int8:   math.MaxInt8,
	Int16:  math.MaxInt16,
	Int32:  math.MaxInt32,
}

// AsFloat converts a to Float64 with the canonical range of its dtype:
// unsigned integers map to [0, 1], signed integers to [-1, 1], booleans to
// {0, 1}. Floating point data is returned unscaled.
func AsFloat(a *Array) *Array {
	out := make([]float64, len(a.data))
	switch {
	case a.dtype.IsFloat():
		copy(out, a.data)
	case a.dtype == Bool:
		for i, v := range a.data {
			if v != 0 {
				out[i] = 1
			}
		}
	default:
		scale := dtypeMax[a.dtype]
		for i, v := range a.data {
			out[i] = math.Max(v/scale, -1)
		}
	}
	return a.withData(Float64, out)
}

// RGBToGray collapses the trailing 3-channel axis into luminance. The input
// is converted with AsFloat first, so integer images end up in [0, 1].
func RGBToGray(a *Array) (*Array, error) {
	nd := a.NDim()
	if nd < 2 || a.shape[nd-1] != 3 {
		return nil, fmt.Errorf("%w: got shape %v", ErrChannelCount, a.shape)
	}
	f := AsFloat(a)
	outShape := a.shape[:nd-1]
	out, err := New(Float64, outShape...)
	if err != nil {
		return nil, err
	}
	for i := range out.data {
		px := f.data[i*3 : i*3+3]
		out.data[i] = grayWeights[0]*px[0] + grayWeights[1]*px[1] + grayWeights[2]*px[2]
	}
	return out, nil
}
