package cv

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"camwatch/pkg/camera"
)

const Name = "OPENCV"

type Driver struct {
	api gocv.VideoCaptureAPI
}

func New() *Driver {
	return &Driver{api: gocv.VideoCaptureAny}
}

func WithAPI(api gocv.VideoCaptureAPI) *Driver {
	return &Driver{api: api}
}

func (d *Driver) Kind() camera.Kind { return camera.KindSecondary }
func (d *Driver) Name() string      { return Name }

func (d *Driver) Open(_ context.Context, index int) (camera.Handle, error) {
	vc, err := gocv.OpenVideoCaptureWithAPI(index, d.api)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", index, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("camera %d is not open", index)
	}
	return &handle{vc: vc}, nil
}

type handle struct {
	lock sync.Mutex
	vc   *gocv.VideoCapture
}

var properties = map[camera.Property]gocv.VideoCaptureProperties{
	camera.PropFrameWidth:  gocv.VideoCaptureFrameWidth,
	camera.PropFrameHeight: gocv.VideoCaptureFrameHeight,
	camera.PropFourCC:      gocv.VideoCaptureFOURCC,
	camera.PropPan:         gocv.VideoCapturePan,
	camera.PropTilt:        gocv.VideoCaptureTilt,
	camera.PropZoom:        gocv.VideoCaptureZoom,
}

// Set reads the property back, since OpenCV does not report whether the
// driver accepted it.
func (h *handle) Set(prop camera.Property, value float64) bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.vc == nil {
		return false
	}
	p, ok := properties[prop]
	if !ok {
		return false
	}
	h.vc.Set(p, value)
	return math.Abs(h.vc.Get(p)-value) < 0.5
}

// Get treats -1 as unsupported, which is what OpenCV returns for a property
// the driver does not expose.
func (h *handle) Get(prop camera.Property) (float64, bool) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.vc == nil {
		return 0, false
	}
	p, ok := properties[prop]
	if !ok {
		return 0, false
	}
	v := h.vc.Get(p)
	return v, v != -1
}

func (h *handle) Read() (image.Image, error) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.vc == nil {
		return nil, errors.New("capture closed")
	}

	mat := gocv.NewMat()
	defer mat.Close()
	if ok := h.vc.Read(&mat); !ok || mat.Empty() {
		return nil, fmt.Errorf("empty read: %w", camera.ErrReadFailure)
	}

	return mat.ToImage()
}

func (h *handle) Close() error {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.vc == nil {
		return nil
	}
	err := h.vc.Close()
	h.vc = nil
	return err
}
