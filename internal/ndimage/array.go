// Package ndimage provides a small n-dimensional float array together with
// the filters the blur estimator needs: dtype-aware range conversion,
// grayscale reduction, a uniform (box) filter and a Sobel edge filter.
package ndimage

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrShapeMismatch is returned when data length or operand shapes disagree
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrAxisOutOfBounds is returned for an axis index outside [-ndim, ndim)
	ErrAxisOutOfBounds = errors.New("axis out of bounds")

	// ErrInvalidShape is returned for shapes with non-positive extents
	ErrInvalidShape = errors.New("invalid shape")
)

// DType records the sample type the array was built from. Values are always
// stored as float64; the tag drives range conversion in AsFloat.
type DType int

const (
	Float64 DType = iota
	Float32
	Uint8
	Uint16
	Int8
	Int16
	Int32
	Bool
)

var dtypeNames = map[DType]string{
	Float64: "float64",
	Float32: "float32",
	Uint8:   "uint8",
	Uint16:  "uint16",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Bool:    "bool",
}

func (d DType) String() string {
	if name, ok := dtypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("dtype(%d)", int(d))
}

// IsFloat reports whether the dtype is a floating point type
func (d DType) IsFloat() bool {
	return d == Float64 || d == Float32
}

// ParseDType resolves a dtype by name
func ParseDType(name string) (DType, error) {
	for d, n := range dtypeNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown dtype %q", name)
}

// Array is a dense row-major n-dimensional array
type Array struct {
	dtype   DType
	shape   []int
	strides []int
	data    []float64
}

// New allocates a zero-filled array
func New(dtype DType, shape ...int) (*Array, error) {
	size, err := shapeSize(shape)
	if err != nil {
		return nil, err
	}
	return &Array{
		dtype:   dtype,
		shape:   append([]int(nil), shape...),
		strides: rowMajorStrides(shape),
		data:    make([]float64, size),
	}, nil
}

// FromSlice builds an array over a copy of data
func FromSlice(dtype DType, data []float64, shape ...int) (*Array, error) {
	size, err := shapeSize(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != size {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShapeMismatch, len(data), shape)
	}
	return &Array{
		dtype:   dtype,
		shape:   append([]int(nil), shape...),
		strides: rowMajorStrides(shape),
		data:    append([]float64(nil), data...),
	}, nil
}

// MustFromSlice is FromSlice that panics on error, for literals in tests and examples
func MustFromSlice(dtype DType, data []float64, shape ...int) *Array {
	a, err := FromSlice(dtype, data, shape...)
	if err != nil {
		panic(err)
	}
	return a
}

func shapeSize(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, fmt.Errorf("%w: no axes", ErrInvalidShape)
	}
	size := 1
	for _, s := range shape {
		if s <= 0 {
			return 0, fmt.Errorf("%w: %v", ErrInvalidShape, shape)
		}
		size *= s
	}
	return size, nil
}

func rowMajorStrides(shape []int) []int {
	strides := make([]int, len(shape))
	step := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = step
		step *= shape[i]
	}
	return strides
}

func (a *Array) DType() DType { return a.dtype }

func (a *Array) NDim() int { return len(a.shape) }

func (a *Array) Size() int { return len(a.data) }

// Shape returns a copy of the array's extents
func (a *Array) Shape() []int {
	return append([]int(nil), a.shape...)
}

// Data returns a copy of the backing values in row-major order
func (a *Array) Data() []float64 {
	return append([]float64(nil), a.data...)
}

func (a *Array) offset(idx []int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("ndimage: %d indices for %d-d array", len(idx), len(a.shape)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= a.shape[i] {
			panic(fmt.Sprintf("ndimage: index %d out of range for axis %d with size %d", v, i, a.shape[i]))
		}
		off += v * a.strides[i]
	}
	return off
}

// At returns the value at the given index
func (a *Array) At(idx ...int) float64 {
	return a.data[a.offset(idx)]
}

// Set stores v at the given index
func (a *Array) Set(v float64, idx ...int) {
	a.data[a.offset(idx)] = v
}

// Clone returns a deep copy
func (a *Array) Clone() *Array {
	return &Array{
		dtype:   a.dtype,
		shape:   append([]int(nil), a.shape...),
		strides: append([]int(nil), a.strides...),
		data:    append([]float64(nil), a.data...),
	}
}

func (a *Array) withData(dtype DType, data []float64) *Array {
	return &Array{
		dtype:   dtype,
		shape:   append([]int(nil), a.shape...),
		strides: append([]int(nil), a.strides...),
		data:    data,
	}
}

// NormalizeAxis resolves a possibly negative axis index against ndim
func NormalizeAxis(axis, ndim int) (int, error) {
	if axis < -ndim || axis >= ndim {
		return 0, fmt.Errorf("%w: axis %d is out of bounds for array of dimension %d", ErrAxisOutOfBounds, axis, ndim)
	}
	if axis < 0 {
		axis += ndim
	}
	return axis, nil
}

// MoveAxis returns a copy of a with axis src moved to position dst, keeping
// the order of the remaining axes.
func (a *Array) MoveAxis(src, dst int) (*Array, error) {
	nd := a.NDim()
	s, err := NormalizeAxis(src, nd)
	if err != nil {
		return nil, err
	}
	d, err := NormalizeAxis(dst, nd)
	if err != nil {
		return nil, err
	}

	order := make([]int, 0, nd)
	for i := 0; i < nd; i++ {
		if i != s {
			order = append(order, i)
		}
	}
	order = append(order[:d], append([]int{s}, order[d:]...)...)

	newShape := make([]int, nd)
	srcStrides := make([]int, nd)
	for i, ax := range order {
		newShape[i] = a.shape[ax]
		srcStrides[i] = a.strides[ax]
	}

	out, err := New(a.dtype, newShape...)
	if err != nil {
		return nil, err
	}
	idx := make([]int, nd)
	for i := range out.data {
		off := 0
		for k, v := range idx {
			off += v * srcStrides[k]
		}
		out.data[i] = a.data[off]
		incrementIndex(idx, newShape)
	}
	return out, nil
}

// incrementIndex advances a row-major multi-index in place
func incrementIndex(idx, shape []int) {
	for k := len(idx) - 1; k >= 0; k-- {
		idx[k]++
		if idx[k] < shape[k] {
			return
		}
		idx[k] = 0
	}
}

// Range is a half-open index interval [Start, Stop)
type Range struct {
	Start, Stop int
}

// Len returns the number of indices covered, zero for empty or inverted ranges
func (r Range) Len() int {
	if r.Stop <= r.Start {
		return 0
	}
	return r.Stop - r.Start
}

// SumRegion sums the values inside the hyper-rectangle described by one
// Range per axis. Ranges are clipped to the array extents; an empty range on
// any axis yields zero.
func (a *Array) SumRegion(ranges []Range) (float64, error) {
	if len(ranges) != a.NDim() {
		return 0, fmt.Errorf("%w: %d ranges for %d-d array", ErrShapeMismatch, len(ranges), a.NDim())
	}
	clipped := make([]Range, len(ranges))
	for i, r := range ranges {
		r.Start = max(r.Start, 0)
		r.Stop = min(r.Stop, a.shape[i])
		if r.Len() == 0 {
			return 0, nil
		}
		clipped[i] = r
	}

	last := len(clipped) - 1
	inner := clipped[last]
	outerShape := make([]int, last)
	for i := 0; i < last; i++ {
		outerShape[i] = clipped[i].Len()
	}

	var total float64
	idx := make([]int, last)
	for {
		off := inner.Start * a.strides[last]
		for k, v := range idx {
			off += (clipped[k].Start + v) * a.strides[k]
		}
		total += floats.Sum(a.data[off : off+inner.Len()])

		if last == 0 {
			break
		}
		if !advance(idx, outerShape) {
			break
		}
	}
	return total, nil
}

// advance increments idx and reports false once it wraps past the end
func advance(idx, shape []int) bool {
	for k := len(idx) - 1; k >= 0; k-- {
		idx[k]++
		if idx[k] < shape[k] {
			return true
		}
		idx[k] = 0
	}
	return false
}

// Abs returns |a| element-wise
func (a *Array) Abs() *Array {
	out := make([]float64, len(a.data))
	for i, v := range a.data {
		out[i] = math.Abs(v)
	}
	return a.withData(Float64, out)
}

// SubClampZero returns max(0, a-b) element-wise
func (a *Array) SubClampZero(b *Array) (*Array, error) {
	if !sameShape(a.shape, b.shape) {
		return nil, fmt.Errorf("%w: %v and %v", ErrShapeMismatch, a.shape, b.shape)
	}
	out := make([]float64, len(a.data))
	for i := range a.data {
		out[i] = math.Max(0, a.data[i]-b.data[i])
	}
	return a.withData(Float64, out), nil
}

func sameShape(x, y []int) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
