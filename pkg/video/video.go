package video

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"

	"github.com/icza/mjpeg"
)

var ErrNoFrames = errors.New("no frames to export")

type Builder struct {
	width  int
	height int
	fps    int

	cnt   int
	bytes int64
	aw    mjpeg.AviWriter
}

func NewBuilder(path string, width, height, fps int) (*Builder, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if fps <= 0 {
		return nil, fmt.Errorf("invalid fps %d", fps)
	}
	aw, err := mjpeg.New(path, int32(width), int32(height), int32(fps))
	if err != nil {
		return nil, err
	}

	return &Builder{
		width:  width,
		height: height,
		fps:    fps,
		aw:     aw,
	}, nil
}

// Add appends one JPEG frame. Frames of another size are rejected since the
// AVI header carries a single size.
func (b *Builder) Add(frame []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(frame))
	if err != nil {
		return fmt.Errorf("decode frame header: %w", err)
	}
	if cfg.Width != b.width || cfg.Height != b.height {
		return fmt.Errorf("frame is %dx%d, video is %dx%d", cfg.Width, cfg.Height, b.width, b.height)
	}
	if err = b.aw.AddFrame(frame); err != nil {
		return err
	}
	b.cnt++
	b.bytes += int64(len(frame))

	return nil
}

func (b *Builder) AddFile(name string) error {
	data, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	return b.Add(data)
}

func (b *Builder) Close() error {
	return b.aw.Close()
}

func (b *Builder) GetCnt() int {
	return b.cnt
}

func (b *Builder) GetBytes() int64 {
	return b.bytes
}

func FrameSize(name string) (width, height int, err error) {
	f, err := os.Open(name)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

type Skipped struct {
	Name string
	Err  error
}

// Export writes files, in order, to dst. The first file fixes the video size;
// unreadable or differently sized files are skipped. step is called after
// each file when non-nil.
func Export(dst string, files []string, fps int, step func()) (*Builder, []Skipped, error) {
	if len(files) == 0 {
		return nil, nil, ErrNoFrames
	}
	w, h, err := FrameSize(files[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", files[0], err)
	}
	b, err := NewBuilder(dst, w, h, fps)
	if err != nil {
		return nil, nil, err
	}

	var skipped []Skipped
	for _, name := range files {
		if err = b.AddFile(name); err != nil {
			skipped = append(skipped, Skipped{Name: name, Err: err})
		}
		if step != nil {
			step()
		}
	}
	if err = b.Close(); err != nil {
		return b, skipped, err
	}
	if b.GetCnt() == 0 {
		return b, skipped, ErrNoFrames
	}

	return b, skipped, nil
}
