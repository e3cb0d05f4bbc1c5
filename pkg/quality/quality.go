package quality

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
)

// edgeMagnitude is the |gx|+|gy| Sobel response a pixel needs to count as an edge.
const edgeMagnitude = 128

type Thresholds struct {
	Mean         float64 `yaml:"mean" env:"CAMWATCH_QUALITY_MEAN"`
	DarkFraction float64 `yaml:"dark_fraction" env:"CAMWATCH_QUALITY_DARK_FRACTION"`
	Std          float64 `yaml:"std" env:"CAMWATCH_QUALITY_STD"`
	Edges        int     `yaml:"edges" env:"CAMWATCH_QUALITY_EDGES"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Mean:         20,
		DarkFraction: 0.90,
		Std:          8,
		Edges:        200,
	}
}

type Diagnostics struct {
	Mean         float64
	DarkFraction float64
	Std          float64
	Edges        int
	Err          string
}

func (d Diagnostics) String() string {
	if d.Err != "" {
		return fmt.Sprintf("error=%s", d.Err)
	}
	return fmt.Sprintf("mean=%.1f dark=%.3f std=%.1f edges=%d", d.Mean, d.DarkFraction, d.Std, d.Edges)
}

type Result struct {
	Blank       bool
	Reasons     []string
	Diagnostics Diagnostics
}

func (r Result) Reason() string {
	return strings.Join(r.Reasons, ",")
}

func Classify(img image.Image, th Thresholds) Result {
	if img == nil {
		return errResult("nil frame")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return errResult("empty frame")
	}

	luma := Luma(img)
	d := measure(luma, b.Dx(), b.Dy(), th.Mean)

	res := Result{Diagnostics: d}
	if d.Mean < th.Mean {
		res.Reasons = append(res.Reasons, "low_mean")
	}
	if d.DarkFraction >= th.DarkFraction {
		res.Reasons = append(res.Reasons, "dark")
	}
	if d.Std < th.Std {
		res.Reasons = append(res.Reasons, "flat")
	}
	if d.Edges < th.Edges {
		res.Reasons = append(res.Reasons, "few_edges")
	}
	res.Blank = len(res.Reasons) > 0

	return res
}

func errResult(msg string) Result {
	return Result{
		Blank:       true,
		Reasons:     []string{"invalid"},
		Diagnostics: Diagnostics{Err: msg},
	}
}

func measure(luma []uint8, w, h int, darkLevel float64) Diagnostics {
	n := float64(len(luma))
	var sum, sq float64
	dark := 0
	for _, v := range luma {
		f := float64(v)
		sum += f
		sq += f * f
		if f <= darkLevel {
			dark++
		}
	}
	mean := sum / n
	variance := sq/n - mean*mean
	if variance < 0 {
		variance = 0
	}

	return Diagnostics{
		Mean:         mean,
		DarkFraction: float64(dark) / n,
		Std:          math.Sqrt(variance),
		Edges:        countEdges(luma, w, h),
	}
}

func countEdges(p []uint8, w, h int) int {
	edges := 0
	at := func(x, y int) int { return int(p[y*w+x]) }
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1) +
				at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			if abs(gx)+abs(gy) >= edgeMagnitude {
				edges++
			}
		}
	}
	return edges
}

func Luma(img image.Image) []uint8 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]uint8, w*h)

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			copy(out[y*w:(y+1)*w], src.Pix[y*src.Stride:y*src.Stride+w])
		}
	case *image.YCbCr:
		for y := 0; y < h; y++ {
			off := src.YOffset(b.Min.X, b.Min.Y+y)
			copy(out[y*w:(y+1)*w], src.Y[off:off+w])
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
				out[y*w+x] = g.Y
			}
		}
	}

	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
