package ndimage

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReflectIndex(t *testing.T) {
	cases := map[int]int{-2: 1, -1: 0, 0: 0, 3: 3, 4: 3, 5: 2, 8: 0, -5: 3}
	for in, want := range cases {
		assert.Equal(t, want, reflectIndex(in, 4), "index %d", in)
	}
	assert.Equal(t, 0, reflectIndex(-1, 1))
	assert.Equal(t, 0, reflectIndex(7, 1))
}

func TestUniformFilter1D_OddWindow(t *testing.T) {
	a := MustFromSlice(Float64, []float64{1, 2, 3, 4, 5}, 5)

	out, err := UniformFilter1D(a, 3, 0)
	require.NoError(t, err)
	want := []float64{4.0 / 3, 2, 3, 4, 14.0 / 3}
	assert.InDeltaSlice(t, want, out.Data(), 1e-12)
}

func TestUniformFilter1D_EvenWindow(t *testing.T) {
	a := MustFromSlice(Float64, []float64{1, 2, 3, 4}, 4)

	out, err := UniformFilter1D(a, 2, 0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 1.5, 2.5, 3.5}, out.Data(), 1e-12)
}

func TestUniformFilter1D_AlongSecondAxis(t *testing.T) {
	a := MustFromSlice(Float64, []float64{
		0, 3, 0,
		6, 6, 6,
	}, 2, 3)

	out, err := UniformFilter1D(a, 3, 1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 1, 1, 6, 6, 6}, out.Data(), 1e-12)
	assert.Equal(t, []float64{0, 3, 0, 6, 6, 6}, a.Data())
}

func TestUniformFilter1D_Errors(t *testing.T) {
	a := MustFromSlice(Float64, arange(5), 5)

	_, err := UniformFilter1D(a, 6, 0)
	assert.ErrorIs(t, err, ErrWindowTooLarge)

	_, err = UniformFilter1D(a, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = UniformFilter1D(a, 3, 1)
	assert.ErrorIs(t, err, ErrAxisOutOfBounds)
}

func TestSobel_1D(t *testing.T) {
	a := MustFromSlice(Float64, []float64{0, 0, 1, 1}, 4)

	out, err := Sobel(a, 0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, -1, -1, 0}, out.Data(), 1e-12)
}

func TestSobel_ConstantIsZero(t *testing.T) {
	data := make([]float64, 25)
	for i := range data {
		data[i] = 0.7
	}
	a := MustFromSlice(Float64, data, 5, 5)

	for axis := 0; axis < 2; axis++ {
		out, err := Sobel(a, axis)
		require.NoError(t, err)
		for _, v := range out.Data() {
			assert.InDelta(t, 0, v, 1e-12)
		}
	}
}

func TestSobel_VerticalEdge(t *testing.T) {
	// Columns 0-1 dark, columns 2-3 bright: only the axis-1 response is non-zero.
	a := MustFromSlice(Float64, []float64{
		0, 0, 1, 1,
		0, 0, 1, 1,
		0, 0, 1, 1,
	}, 3, 4)

	rows, err := Sobel(a, 0)
	require.NoError(t, err)
	for _, v := range rows.Data() {
		assert.InDelta(t, 0, v, 1e-12)
	}

	cols, err := Sobel(a, 1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, -1, -1, 0}, cols.Data()[4:8], 1e-12)
}

func TestAsFloat(t *testing.T) {
	u8 := MustFromSlice(Uint8, []float64{0, 51, 255}, 3)
	assert.InDeltaSlice(t, []float64{0, 0.2, 1}, AsFloat(u8).Data(), 1e-12)

	u16 := MustFromSlice(Uint16, []float64{65535}, 1)
	assert.Equal(t, []float64{1}, AsFloat(u16).Data())

	i8 := MustFromSlice(Int8, []float64{-128, 127}, 2)
	assert.Equal(t, []float64{-1, 1}, AsFloat(i8).Data())

	f := MustFromSlice(Float64, []float64{2.5, -3}, 2)
	assert.Equal(t, []float64{2.5, -3}, AsFloat(f).Data())

	b := MustFromSlice(Bool, []float64{0, 1, 1}, 3)
	out := AsFloat(b)
	assert.Equal(t, []float64{0, 1, 1}, out.Data())
	assert.Equal(t, Float64, out.DType())
}

func TestRGBToGray(t *testing.T) {
	a := MustFromSlice(Uint8, []float64{
		255, 255, 255,
		255, 0, 0,
	}, 2, 3)

	gray, err := RGBToGray(a)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, gray.Shape())
	assert.InDeltaSlice(t, []float64{1, 0.2125}, gray.Data(), 1e-12)
}

func TestRGBToGray_RejectsAlpha(t *testing.T) {
	a := MustFromSlice(Uint8, make([]float64, 8), 2, 4)

	_, err := RGBToGray(a)
	assert.ErrorIs(t, err, ErrChannelCount)
}

func TestFromImage_Gray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	img.SetGray(2, 1, color.Gray{Y: 200})

	a, err := FromImage(img)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, a.Shape())
	assert.Equal(t, Uint8, a.DType())
	assert.Equal(t, 200.0, a.At(1, 2))
	assert.False(t, IsColor(a))
}

func TestFromImage_RGBA(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	a, err := FromImage(img)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 3}, a.Shape())
	assert.Equal(t, []float64{10, 20, 30}, []float64{a.At(0, 1, 0), a.At(0, 1, 1), a.At(0, 1, 2)})
	assert.True(t, IsColor(a))
}

func TestFromImage_NRGBAIgnoresAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 0})
	img.SetNRGBA(1, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 128})

	a, err := FromImage(img)
	require.NoError(t, err)
	assert.Equal(t, Uint8, a.DType())
	for x := 0; x < 2; x++ {
		assert.Equal(t, []float64{200, 100, 50}, []float64{a.At(0, x, 0), a.At(0, x, 1), a.At(0, x, 2)}, "pixel %d", x)
	}
}

func TestFromImage_NRGBA64IgnoresAlpha(t *testing.T) {
	img := image.NewNRGBA64(image.Rect(0, 0, 1, 1))
	img.SetNRGBA64(0, 0, color.NRGBA64{R: 40000, G: 20000, B: 1000, A: 0})

	a, err := FromImage(img)
	require.NoError(t, err)
	assert.Equal(t, Uint16, a.DType())
	assert.Equal(t, []float64{40000, 20000, 1000}, []float64{a.At(0, 0, 0), a.At(0, 0, 1), a.At(0, 0, 2)})
}

func TestFromImage_PalettedUnpremultiplies(t *testing.T) {
	palette := color.Palette{color.NRGBA{R: 200, G: 100, B: 50, A: 128}}
	img := image.NewPaletted(image.Rect(0, 0, 1, 1), palette)

	a, err := FromImage(img)
	require.NoError(t, err)
	assert.InDelta(t, 200, a.At(0, 0, 0), 1)
	assert.InDelta(t, 100, a.At(0, 0, 1), 1)
	assert.InDelta(t, 50, a.At(0, 0, 2), 1)
}

func TestFromImage_RGBA64(t *testing.T) {
	img := image.NewRGBA64(image.Rect(0, 0, 1, 1))
	img.SetRGBA64(0, 0, color.RGBA64{R: 65535, G: 0, B: 1000, A: 65535})

	a, err := FromImage(img)
	require.NoError(t, err)
	assert.Equal(t, Uint16, a.DType())
	assert.Equal(t, 1000.0, a.At(0, 0, 2))
}

func TestFromImage_Empty(t *testing.T) {
	_, err := FromImage(image.NewGray(image.Rect(0, 0, 0, 4)))
	assert.ErrorIs(t, err, ErrInvalidShape)
}
