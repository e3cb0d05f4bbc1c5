// Package ptz simulates pan, tilt and zoom in software for cameras that have
// no motorised head. Every transform returns a frame of the same size as its
// input.
package ptz

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

const (
	// CropFraction is the share of each dimension kept by pan and tilt.
	CropFraction = 0.8

	MinZoom = 0.5
	MaxZoom = 3.0
)

// Pan shifts the view horizontally. offset -1 is the left edge, 1 the right
// edge and 0 the centre.
func Pan(img image.Image, offset float64) image.Image {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cw, ch := cropSize(w), cropSize(h)
	x0 := shiftedOrigin(w, cw, offset)
	y0 := (h - ch) / 2

	return scaleInto(b, img, image.Rect(x0, y0, x0+cw, y0+ch).Add(b.Min))
}

// Tilt shifts the view vertically. offset -1 is the top edge, 1 the bottom.
func Tilt(img image.Image, offset float64) image.Image {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	cw, ch := cropSize(w), cropSize(h)
	x0 := (w - cw) / 2
	y0 := shiftedOrigin(h, ch, offset)

	return scaleInto(b, img, image.Rect(x0, y0, x0+cw, y0+ch).Add(b.Min))
}

// Zoom magnifies the centre of the frame by factor, clamped to
// [MinZoom, MaxZoom]. Factors below 1 shrink the whole frame onto a black
// canvas. A nil frame or a non-positive factor is returned unchanged.
func Zoom(img image.Image, factor float64) image.Image {
	if img == nil || factor <= 0 {
		return img
	}
	factor = clamp(factor, MinZoom, MaxZoom)
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return img
	}

	if factor < 1 {
		dst := image.NewRGBA(b)
		draw.Draw(dst, b, image.Black, image.Point{}, draw.Src)
		sw := max(1, int(math.Round(float64(w)*factor)))
		sh := max(1, int(math.Round(float64(h)*factor)))
		x0, y0 := (w-sw)/2, (h-sh)/2
		dr := image.Rect(x0, y0, x0+sw, y0+sh).Add(b.Min)
		draw.BiLinear.Scale(dst, dr, img, b, draw.Src, nil)
		return dst
	}

	cw := max(1, int(math.Round(float64(w)/factor)))
	ch := max(1, int(math.Round(float64(h)/factor)))
	x0, y0 := (w-cw)/2, (h-ch)/2

	return scaleInto(b, img, image.Rect(x0, y0, x0+cw, y0+ch).Add(b.Min))
}

func scaleInto(b image.Rectangle, src image.Image, sr image.Rectangle) image.Image {
	dst := image.NewRGBA(b)
	draw.BiLinear.Scale(dst, b, src, sr, draw.Src, nil)
	return dst
}

func cropSize(n int) int {
	return max(1, int(math.Round(float64(n)*CropFraction)))
}

// shiftedOrigin places a window of size c inside n so that its centre moves
// by offset times the available slack, then clamps it to stay inside.
func shiftedOrigin(n, c int, offset float64) int {
	offset = clamp(offset, -1, 1)
	slack := float64(n-c) / 2
	centre := float64(n)/2 + offset*slack
	origin := int(math.Round(centre - float64(c)/2))
	if origin < 0 {
		origin = 0
	}
	if origin > n-c {
		origin = n - c
	}
	return origin
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
