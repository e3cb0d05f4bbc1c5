package quality

import (
	"image"
	"image/color"
	"testing"
)

func uniform(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func checkerboard(w, h, square int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 30, G: 30, B: 30, A: 0xff}
			if (x/square+y/square)%2 == 0 {
				c = color.RGBA{R: 220, G: 220, B: 220, A: 0xff}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestUniformDarkIsBlank(t *testing.T) {
	th := DefaultThresholds()
	for _, v := range []uint8{0, 5, 10, 19} {
		res := Classify(uniform(64, 48, v), th)
		if !res.Blank {
			t.Errorf("value %d: expected blank, got %s", v, res.Diagnostics)
		}
		if res.Diagnostics.Mean != float64(v) {
			t.Errorf("value %d: mean %.1f", v, res.Diagnostics.Mean)
		}
		if res.Diagnostics.DarkFraction != 1 {
			t.Errorf("value %d: dark fraction %.3f", v, res.Diagnostics.DarkFraction)
		}
	}
}

func TestUniformBrightIsFlat(t *testing.T) {
	res := Classify(uniform(64, 48, 200), DefaultThresholds())
	if !res.Blank {
		t.Fatal("solid colour frame should be rejected")
	}
	if res.Reason() != "flat,few_edges" {
		t.Fatalf("unexpected reasons %q", res.Reason())
	}
}

func TestCheckerboardIsNotBlank(t *testing.T) {
	res := Classify(checkerboard(64, 64, 8), DefaultThresholds())
	if res.Blank {
		t.Fatalf("checkerboard rejected: %s (%s)", res.Reason(), res.Diagnostics)
	}
	d := res.Diagnostics
	if d.Edges < DefaultThresholds().Edges || d.Std < 50 {
		t.Fatalf("weak diagnostics for checkerboard: %s", d)
	}
}

func TestSingleSignalRejects(t *testing.T) {
	img := checkerboard(64, 64, 8)
	th := DefaultThresholds()
	th.Edges = 1 << 20
	res := Classify(img, th)
	if !res.Blank || res.Reason() != "few_edges" {
		t.Fatalf("edge threshold alone should reject, got blank=%v reasons=%q", res.Blank, res.Reason())
	}
}

func TestInvalidFrames(t *testing.T) {
	cases := []struct {
		name string
		img  image.Image
	}{
		{"nil", nil},
		{"empty", image.NewGray(image.Rect(0, 0, 0, 0))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Classify(tc.img, DefaultThresholds())
			if !res.Blank {
				t.Fatal("expected blank")
			}
			if res.Diagnostics.Err == "" {
				t.Fatal("expected error marker in diagnostics")
			}
		})
	}
}

func TestClassifyDoesNotMutate(t *testing.T) {
	img := checkerboard(16, 16, 4)
	before := append([]uint8(nil), img.Pix...)
	Classify(img, DefaultThresholds())
	for i := range before {
		if before[i] != img.Pix[i] {
			t.Fatal("frame modified by classifier")
		}
	}
}

func TestLumaYCbCrSubImage(t *testing.T) {
	img := image.NewYCbCr(image.Rect(0, 0, 8, 8), image.YCbCrSubsampleRatio420)
	for i := range img.Y {
		img.Y[i] = uint8(i)
	}
	sub := img.SubImage(image.Rect(2, 2, 4, 4)).(*image.YCbCr)
	l := Luma(sub)
	want := []uint8{18, 19, 26, 27}
	for i := range want {
		if l[i] != want[i] {
			t.Fatalf("luma %v, want %v", l, want)
		}
	}
}
