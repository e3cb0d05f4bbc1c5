// Package v4l is the primary capture backend, talking to /dev/video<index>
// through V4L2.
package v4l

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"
	"go.uber.org/zap"

	"camwatch/pkg/camera"
	"camwatch/pkg/utils"
	imgutil "camwatch/pkg/utils/image"
)

const (
	Name = "V4L2"

	DefaultReadTimeout = 3 * time.Second

	// JPEG compression quality control.
	ctrlCompressionQuality v4l2.CtrlID = 10291459

	ctrlPanAbsolute  v4l2.CtrlID = 0x009a0908
	ctrlTiltAbsolute v4l2.CtrlID = 0x009a0909
	ctrlZoomAbsolute v4l2.CtrlID = 0x009a090d
)

var controls = map[camera.Property]v4l2.CtrlID{
	camera.PropCompression: ctrlCompressionQuality,
	camera.PropPan:         ctrlPanAbsolute,
	camera.PropTilt:        ctrlTiltAbsolute,
	camera.PropZoom:        ctrlZoomAbsolute,
}

var (
	StartedErr = errors.New("stream already started")
)

type Driver struct {
	readTimeout time.Duration
	logger      *zap.SugaredLogger
}

func New(readTimeout time.Duration) *Driver {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	return &Driver{readTimeout: readTimeout, logger: utils.GetLogger()}
}

func (d *Driver) Kind() camera.Kind { return camera.KindPrimary }
func (d *Driver) Name() string      { return Name }

func DevicePath(index int) string {
	return fmt.Sprintf("/dev/video%d", index)
}

func (d *Driver) Open(ctx context.Context, index int) (camera.Handle, error) {
	dev, err := device.Open(DevicePath(index), device.WithBufferSize(2))
	if err != nil {
		return nil, err
	}
	pf, err := dev.GetPixFormat()
	if err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("get pix format: %w", err)
	}

	return &handle{
		ctx:     ctx,
		dev:     dev,
		pix:     pf,
		timeout: d.readTimeout,
		logger:  d.logger,
	}, nil
}

type handle struct {
	ctx     context.Context
	timeout time.Duration
	logger  *zap.SugaredLogger

	lock   sync.Mutex
	dev    *device.Device
	cancel context.CancelFunc
	frames <-chan []byte
	pix    v4l2.PixFormat
}

func (h *handle) Set(prop camera.Property, value float64) bool {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.dev == nil {
		return false
	}

	if id, ok := controls[prop]; ok {
		return h.setControl(prop, id, value)
	}
	switch prop {
	case camera.PropFrameWidth, camera.PropFrameHeight, camera.PropFourCC:
	default:
		return false
	}

	if h.frames != nil {
		// format is fixed once streaming
		return false
	}
	pf := h.pix
	switch prop {
	case camera.PropFrameWidth:
		pf.Width = uint32(value)
	case camera.PropFrameHeight:
		pf.Height = uint32(value)
	case camera.PropFourCC:
		code, ok := pixelFormat(value)
		if !ok {
			return false
		}
		pf.PixelFormat = code
	}
	pf.Field = v4l2.FieldNone
	if err := h.dev.SetPixFormat(pf); err != nil {
		h.logger.Debugf("v4l: set %s=%v: %s", prop, value, err)
		return false
	}
	// the driver may round to the nearest supported mode
	if got, err := h.dev.GetPixFormat(); err == nil {
		pf = got
	}
	h.pix = pf

	return true
}

func (h *handle) setControl(prop camera.Property, id v4l2.CtrlID, value float64) bool {
	ctrl, err := v4l2.GetControl(h.dev.Fd(), id)
	if err != nil {
		h.logger.Debugf("v4l: %s not supported: %s", prop, err)
		return false
	}
	v := clampControl(value, ctrl.Minimum, ctrl.Maximum)
	if err = h.dev.SetControlValue(id, v); err != nil {
		h.logger.Debugf("v4l: set %s=%d: %s", prop, v, err)
		return false
	}
	return true
}

func clampControl(value float64, lo, hi int32) v4l2.CtrlValue {
	v := int64(value)
	if lo < hi {
		v = max(int64(lo), min(v, int64(hi)))
	}
	return v4l2.CtrlValue(v)
}

func (h *handle) Get(prop camera.Property) (float64, bool) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.dev == nil {
		return 0, false
	}

	switch prop {
	case camera.PropFrameWidth:
		return float64(h.pix.Width), true
	case camera.PropFrameHeight:
		return float64(h.pix.Height), true
	case camera.PropFourCC:
		return float64(uint32(h.pix.PixelFormat)), true
	}
	id, ok := controls[prop]
	if !ok {
		return 0, false
	}
	ctrl, err := v4l2.GetControl(h.dev.Fd(), id)
	if err != nil {
		return 0, false
	}
	return float64(ctrl.Value), true
}

func (h *handle) start() error {
	if h.frames != nil {
		return StartedErr
	}
	ctx, cancel := context.WithCancel(h.ctx)
	if err := h.dev.Start(ctx); err != nil {
		cancel()
		return err
	}
	h.cancel = cancel
	h.frames = h.dev.GetOutput()

	return nil
}

func (h *handle) Read() (image.Image, error) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.dev == nil {
		return nil, errors.New("device closed")
	}
	if h.frames == nil {
		if err := h.start(); err != nil {
			return nil, fmt.Errorf("start stream: %w", err)
		}
	}

	timer := time.NewTimer(h.timeout)
	defer timer.Stop()

	select {
	case buf, ok := <-h.frames:
		if !ok {
			return nil, fmt.Errorf("stream closed: %w", camera.ErrReadFailure)
		}
		format, ok := decodeFormat(h.pix.PixelFormat)
		if !ok {
			return nil, fmt.Errorf("unsupported pixel format %#x", uint32(h.pix.PixelFormat))
		}
		return imgutil.Decode(buf, format, int(h.pix.Width), int(h.pix.Height))
	case <-timer.C:
		return nil, fmt.Errorf("frame timeout after %s: %w", h.timeout, camera.ErrReadFailure)
	case <-h.ctx.Done():
		return nil, h.ctx.Err()
	}
}

func (h *handle) Close() error {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.cancel != nil {
		// let the stream goroutine reach ctx.Done and stop the device before Close
		h.cancel()
		time.Sleep(100 * time.Millisecond)
		h.cancel = nil
	}
	h.frames = nil
	if h.dev != nil {
		err := h.dev.Close()
		h.dev = nil
		return err
	}
	return nil
}

func pixelFormat(fourcc float64) (v4l2.FourCCType, bool) {
	switch uint32(fourcc) {
	case uint32(camera.FourCC("MJPG")):
		return v4l2.PixelFmtMJPEG, true
	case uint32(camera.FourCC("YUYV")):
		return v4l2.PixelFmtYUYV, true
	case uint32(camera.FourCC("RGB3")):
		return v4l2.PixelFmtRGB24, true
	}
	return 0, false
}

func decodeFormat(code v4l2.FourCCType) (imgutil.PixelFormat, bool) {
	switch code {
	case v4l2.PixelFmtMJPEG, v4l2.PixelFmtJPEG:
		return imgutil.FormatMJPEG, true
	case v4l2.PixelFmtYUYV:
		return imgutil.FormatYUYV, true
	case v4l2.PixelFmtRGB24:
		return imgutil.FormatRGB24, true
	}
	return 0, false
}
