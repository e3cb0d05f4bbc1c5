package ptz

import "image"

type Effect struct {
	Name string
	// Transform is nil for the identity effect.
	Transform func(image.Image, float64) image.Image
	Param     float64
}

func (e Effect) Apply(img image.Image) image.Image {
	if e.Transform == nil || img == nil {
		return img
	}
	return e.Transform(img, e.Param)
}

func DefaultEffects() []Effect {
	return []Effect{
		{Name: "identity"},
		{Name: "pan-left", Transform: Pan, Param: -1},
		{Name: "pan-right", Transform: Pan, Param: 1},
		{Name: "tilt-up", Transform: Tilt, Param: -1},
		{Name: "tilt-down", Transform: Tilt, Param: 1},
		{Name: "zoom-2x", Transform: Zoom, Param: 2},
		{Name: "zoom-3x", Transform: Zoom, Param: 3},
		{Name: "zoom-out", Transform: Zoom, Param: 0.5},
	}
}

// Cycle walks the effect table, one step per Apply. It is owned by a single
// goroutine and is not safe for concurrent use.
type Cycle struct {
	effects []Effect
	index   int
}

func NewCycle(effects ...Effect) *Cycle {
	if len(effects) == 0 {
		effects = DefaultEffects()
	}
	return &Cycle{effects: effects}
}

func (c *Cycle) Apply(img image.Image) (image.Image, string) {
	e := c.effects[c.index]
	c.index = (c.index + 1) % len(c.effects)

	return e.Apply(img), e.Name
}

func (c *Cycle) Next() Effect {
	return c.effects[c.index]
}

func (c *Cycle) Index() int {
	return c.index
}

func (c *Cycle) Len() int {
	return len(c.effects)
}

func (c *Cycle) Effects() []Effect {
	return append([]Effect(nil), c.effects...)
}
