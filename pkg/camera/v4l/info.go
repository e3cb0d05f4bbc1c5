package v4l

import (
	"fmt"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"
)

type Control struct {
	ID    v4l2.CtrlID    `json:"id"`
	Name  string         `json:"name"`
	Value v4l2.CtrlValue `json:"value"`

	Minimum int32 `json:"min"`
	Maximum int32 `json:"max"`
	Step    int32 `json:"step"`

	MenuItems []string `json:"menuItems,omitempty"`
}

type FrameSize struct {
	Format    string `json:"format"`
	MinWidth  uint32 `json:"minWidth"`
	MinHeight uint32 `json:"minHeight"`
	MaxWidth  uint32 `json:"maxWidth"`
	MaxHeight uint32 `json:"maxHeight"`
}

type Info struct {
	Path     string      `json:"path"`
	Format   string      `json:"format"`
	Width    uint32      `json:"width"`
	Height   uint32      `json:"height"`
	Sizes    []FrameSize `json:"sizes"`
	Controls []Control   `json:"controls"`
}

func Describe(index int) (Info, error) {
	info := Info{Path: DevicePath(index)}
	dev, err := device.Open(info.Path)
	if err != nil {
		return info, fmt.Errorf("open %s: %w", info.Path, err)
	}
	defer dev.Close()

	pf, err := dev.GetPixFormat()
	if err != nil {
		return info, fmt.Errorf("get pix format: %w", err)
	}
	info.Format = FourCCString(pf.PixelFormat)
	info.Width, info.Height = pf.Width, pf.Height

	sizes, err := v4l2.GetAllFormatFrameSizes(dev.Fd())
	if err != nil {
		return info, fmt.Errorf("frame sizes: %w", err)
	}
	for _, s := range sizes {
		info.Sizes = append(info.Sizes, FrameSize{
			Format:    FourCCString(s.PixelFormat),
			MinWidth:  s.Size.MinWidth,
			MinHeight: s.Size.MinHeight,
			MaxWidth:  s.Size.MaxWidth,
			MaxHeight: s.Size.MaxHeight,
		})
	}

	ctrls, err := v4l2.QueryAllExtControls(dev.Fd())
	if err != nil {
		return info, fmt.Errorf("query controls: %w", err)
	}
	for _, ctrl := range ctrls {
		info.Controls = append(info.Controls, toControl(ctrl))
	}

	return info, nil
}

func toControl(ctrl v4l2.Control) Control {
	c := Control{
		ID:      ctrl.ID,
		Name:    ctrl.Name,
		Value:   ctrl.Value,
		Minimum: ctrl.Minimum,
		Maximum: ctrl.Maximum,
		Step:    ctrl.Step,
	}
	if !ctrl.IsMenu() {
		return c
	}
	items, err := ctrl.GetMenuItems()
	if err != nil {
		return c
	}
	for _, m := range items {
		c.MenuItems = append(c.MenuItems, m.Name)
	}
	return c
}

func FourCCString(code v4l2.FourCCType) string {
	b := []byte{byte(code), byte(code >> 8), byte(code >> 16), byte(code >> 24)}
	return string(b)
}
