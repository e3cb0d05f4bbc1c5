package image

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
)

type PixelFormat int

const (
	FormatMJPEG PixelFormat = iota
	FormatYUYV
	FormatRGB24
)

func RGBToRGBA(in, out []byte, width, height int) {
	outStride := width * 4
	inStride := len(in) / height

	for i := 0; i < height; i++ {
		oIndex := i * outStride
		iIndex := i * inStride
		for j := 0; j < width; j++ {
			out[oIndex] = in[iIndex]
			out[oIndex+1] = in[iIndex+1]
			out[oIndex+2] = in[iIndex+2]
			out[oIndex+3] = 0xff

			oIndex += 4
			iIndex += 3
		}
	}
}

func DecodeRGB(data []byte, width, height int) image.Image {
	i := image.NewRGBA(image.Rect(0, 0, width, height))
	RGBToRGBA(data, i.Pix, width, height)

	return i
}

// DecodeYUYV unpacks a packed 4:2:2 buffer into a YCbCr image without copying
// through RGB.
func DecodeYUYV(data []byte, width, height int) image.Image {
	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio422)
	inStride := len(data) / height
	for y := 0; y < height; y++ {
		row := data[y*inStride:]
		for x := 0; x+1 < width; x += 2 {
			i := x * 2
			img.Y[y*img.YStride+x] = row[i]
			img.Y[y*img.YStride+x+1] = row[i+2]
			ci := y*img.CStride + x/2
			img.Cb[ci] = row[i+1]
			img.Cr[ci] = row[i+3]
		}
	}

	return img
}

func Decode(data []byte, format PixelFormat, width, height int) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	switch format {
	case FormatMJPEG:
		return jpeg.Decode(bytes.NewReader(data))
	case FormatYUYV:
		if width <= 0 || height <= 0 || len(data) < width*height*2 {
			return nil, fmt.Errorf("short yuyv frame: %d bytes for %dx%d", len(data), width, height)
		}
		return DecodeYUYV(data, width, height), nil
	case FormatRGB24:
		if width <= 0 || height <= 0 || len(data) < width*height*3 {
			return nil, fmt.Errorf("short rgb24 frame: %d bytes for %dx%d", len(data), width, height)
		}
		return DecodeRGB(data, width, height), nil
	default:
		return nil, fmt.Errorf("unsupported pixel format %d", format)
	}
}

func EncodeJPEG(img image.Image, dst io.Writer, quality int) error {
	return jpeg.Encode(dst, img, &jpeg.Options{Quality: quality})
}
