package image

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

const (
	width  = 4
	height = 2
)

func TestRGB(t *testing.T) {
	data := make([]byte, width*height*3)
	for i := range data {
		data[i] = byte(i)
	}
	img, err := Decode(data, FormatRGB24, width, height)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, a := img.At(1, 0).RGBA()
	if r>>8 != 3 || g>>8 != 4 || b>>8 != 5 || a>>8 != 0xff {
		t.Fatalf("unexpected pixel %d %d %d %d", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestYUYV(t *testing.T) {
	data := make([]byte, width*height*2)
	for i := 0; i < len(data); i += 4 {
		data[i], data[i+1], data[i+2], data[i+3] = 200, 128, 100, 128
	}
	img, err := Decode(data, FormatYUYV, width, height)
	if err != nil {
		t.Fatal(err)
	}
	ycc := img.(*image.YCbCr)
	if ycc.Y[0] != 200 || ycc.Y[1] != 100 {
		t.Fatalf("luma not unpacked: %v", ycc.Y[:2])
	}
	if _, err = Decode(data[:3], FormatYUYV, width, height); err == nil {
		t.Fatal("expected short frame error")
	}
}

func TestJPEGRoundTrip(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range src.Pix {
		src.Pix[i] = 128
	}
	src.Set(0, 0, color.Gray{Y: 0})

	var buf bytes.Buffer
	if err := EncodeJPEG(src, &buf, 90); err != nil {
		t.Fatal(err)
	}
	img, err := Decode(buf.Bytes(), FormatMJPEG, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 16 || img.Bounds().Dy() != 16 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	if _, err = Decode(nil, FormatMJPEG, 0, 0); err == nil {
		t.Fatal("expected empty frame error")
	}
}
