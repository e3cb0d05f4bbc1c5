package camera

import (
	"context"
	"errors"
	"image"
)

var (
	ErrDeviceUnavailable = errors.New("device unavailable")
	ErrReadFailure       = errors.New("read failure")
)

type Kind int

const (
	KindUnknown Kind = iota
	KindPrimary
	KindSecondary
)

func (k Kind) String() string {
	switch k {
	case KindPrimary:
		return "primary"
	case KindSecondary:
		return "secondary"
	default:
		return "unknown"
	}
}

type Property int

const (
	PropFrameWidth Property = iota
	PropFrameHeight
	// PropFourCC takes a code packed with FourCC.
	PropFourCC
	// PropCompression is a JPEG quality hint in 1..100.
	PropCompression
	PropPan
	PropTilt
	PropZoom
)

func (p Property) String() string {
	switch p {
	case PropFrameWidth:
		return "frame_width"
	case PropFrameHeight:
		return "frame_height"
	case PropFourCC:
		return "fourcc"
	case PropCompression:
		return "compression"
	case PropPan:
		return "pan"
	case PropTilt:
		return "tilt"
	case PropZoom:
		return "zoom"
	default:
		return "unknown"
	}
}

// FourCC packs a four character pixel format code, e.g. "MJPG".
func FourCC(code string) float64 {
	var v uint32
	for i := 0; i < 4 && i < len(code); i++ {
		v |= uint32(code[i]) << (8 * i)
	}
	return float64(v)
}

type Handle interface {
	Read() (image.Image, error)
	// Set reports whether the device took the value.
	Set(prop Property, value float64) bool
	// Get reports false when the device does not support prop.
	Get(prop Property) (float64, bool)
	Close() error
}

type Driver interface {
	Kind() Kind
	Name() string
	Open(ctx context.Context, index int) (Handle, error)
}
