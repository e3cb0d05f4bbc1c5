package camera

import (
	"fmt"
	"strings"
)

var Axes = []Property{PropPan, PropTilt, PropZoom}

type Move struct {
	Axis  Property
	Value float64
}

// Position holds the axes the device reports; unsupported axes are absent.
type Position map[Property]float64

func ReadPosition(h Handle) Position {
	p := make(Position)
	for _, axis := range Axes {
		if v, ok := h.Get(axis); ok {
			p[axis] = v
		}
	}
	return p
}

func (p Position) Supported() bool {
	return len(p) > 0
}

func (p Position) String() string {
	parts := make([]string, 0, len(Axes))
	for _, axis := range Axes {
		if v, ok := p[axis]; ok {
			parts = append(parts, fmt.Sprintf("%s=%g", axis, v))
		} else {
			parts = append(parts, fmt.Sprintf("%s=n/a", axis))
		}
	}
	return strings.Join(parts, " ")
}

// Drive homes every axis to 0 when reset is set, then applies moves, and
// returns the axes that accepted at least one command. Backends clamp 0 to
// the widest zoom they support.
func Drive(h Handle, reset bool, moves ...Move) []Property {
	accepted := make(map[Property]bool)
	if reset {
		for _, axis := range Axes {
			if h.Set(axis, 0) {
				accepted[axis] = true
			}
		}
	}
	for _, m := range moves {
		if h.Set(m.Axis, m.Value) {
			accepted[m.Axis] = true
		}
	}

	var res []Property
	for _, axis := range Axes {
		if accepted[axis] {
			res = append(res, axis)
		}
	}
	return res
}
