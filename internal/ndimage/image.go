package ndimage

import (
	"fmt"
	"image"
	"image/color"
)

// ChannelAxis is the channel axis of arrays produced by FromImage for
// colour sources
const ChannelAxis = 2

// FromImage converts a decoded image into an array. Gray sources produce a
// (height, width) array; everything else produces (height, width, 3) with
// alpha dropped and colour unpremultiplied. 16-bit sources keep Uint16
// samples, all others Uint8.
func FromImage(img image.Image) (*Array, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: empty image %dx%d", ErrInvalidShape, width, height)
	}

	switch src := img.(type) {
	case *image.Gray:
		a, err := New(Uint8, height, width)
		if err != nil {
			return nil, err
		}
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				a.data[y*width+x] = float64(src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
		return a, nil
	case *image.Gray16:
		a, err := New(Uint16, height, width)
		if err != nil {
			return nil, err
		}
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				a.data[y*width+x] = float64(src.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y)
			}
		}
		return a, nil
	}

	// Samples are read unpremultiplied so alpha never leaks into R, G, B
	switch src := img.(type) {
	case *image.NRGBA:
		a, err := New(Uint8, height, width, 3)
		if err != nil {
			return nil, err
		}
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := src.NRGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
				a.setRGB(y*width+x, float64(c.R), float64(c.G), float64(c.B))
			}
		}
		return a, nil
	case *image.NRGBA64:
		a, err := New(Uint16, height, width, 3)
		if err != nil {
			return nil, err
		}
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := src.NRGBA64At(bounds.Min.X+x, bounds.Min.Y+y)
				a.setRGB(y*width+x, float64(c.R), float64(c.G), float64(c.B))
			}
		}
		return a, nil
	case *image.RGBA64:
		a, err := New(Uint16, height, width, 3)
		if err != nil {
			return nil, err
		}
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := color.NRGBA64Model.Convert(src.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA64)
				a.setRGB(y*width+x, float64(c.R), float64(c.G), float64(c.B))
			}
		}
		return a, nil
	}

	a, err := New(Uint8, height, width, 3)
	if err != nil {
		return nil, err
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			a.setRGB(y*width+x, float64(c.R), float64(c.G), float64(c.B))
		}
	}
	return a, nil
}

func (a *Array) setRGB(pixel int, r, g, b float64) {
	off := pixel * 3
	a.data[off] = r
	a.data[off+1] = g
	a.data[off+2] = b
}

// IsColor reports whether an array produced by FromImage carries channels
func IsColor(a *Array) bool {
	return a.NDim() == 3 && a.shape[ChannelAxis] == 3
}
