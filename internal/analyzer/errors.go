package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/anime-shed/blur-effect-go/internal/ndimage"
)

var (
	// ErrAxisOutOfBounds indicates a channel axis outside [-ndim, ndim)
	ErrAxisOutOfBounds = ndimage.ErrAxisOutOfBounds

	// ErrAxisType indicates a channel axis that is not an integer
	ErrAxisType = errors.New("type error: axis index must be an integer")

	// ErrEmptyImage indicates a missing or zero-size input
	ErrEmptyImage = errors.New("image is empty")

	// ErrUndefinedAxis is returned in strict mode when an axis has no edges
	ErrUndefinedAxis = errors.New("blur undefined on at least one axis")
)

// ChannelAxis returns a pointer to k for use in EstimateOptions
func ChannelAxis(k int) *int {
	return &k
}

// NoChannelAxisValue requests the unreduced path even for colour images
const NoChannelAxisValue = "none"

// ParseChannelAxis parses a channel axis from text. Empty, "auto" and
// "null" leave the axis to detection. NoChannelAxisValue also yields nil;
// IsNoChannelAxis tells the two apart.
func ParseChannelAxis(s string) (*int, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "auto", "null", NoChannelAxisValue:
		return nil, nil
	}
	k, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%w: got %q", ErrAxisType, s)
	}
	return &k, nil
}

// IsNoChannelAxis reports whether v is the explicit NoChannelAxisValue
func IsNoChannelAxis(v any) bool {
	s, ok := v.(string)
	return ok && strings.EqualFold(strings.TrimSpace(s), NoChannelAxisValue)
}

// ParseChannelAxisValue converts a decoded JSON value into a channel axis
func ParseChannelAxisValue(v any) (*int, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case int:
		return ChannelAxis(val), nil
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) || math.IsNaN(val) {
			return nil, fmt.Errorf("%w: got %v", ErrAxisType, val)
		}
		return ChannelAxis(int(val)), nil
	case json.Number:
		return ParseChannelAxis(val.String())
	case string:
		return ParseChannelAxis(val)
	default:
		return nil, fmt.Errorf("%w: got %T", ErrAxisType, v)
	}
}

// IsInputError reports whether err was caused by the image or the options
// rather than by the estimator itself
func IsInputError(err error) bool {
	for _, target := range []error{
		ErrAxisOutOfBounds,
		ErrAxisType,
		ErrEmptyImage,
		ndimage.ErrWindowTooLarge,
		ndimage.ErrInvalidWindow,
		ndimage.ErrChannelCount,
		ndimage.ErrInvalidShape,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
