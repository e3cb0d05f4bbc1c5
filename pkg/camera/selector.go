package camera

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"camwatch/pkg/utils"
)

// DefaultProbeRange is how many indices (0..n-1) are tried when the
// configured index does not open.
const DefaultProbeRange = 5

type Session struct {
	Handle
	Kind    Kind
	Backend string
	// Index is the device index actually opened. It differs from
	// Requested when a fallback index was used for this session only.
	Index     int
	Requested int
}

func (s *Session) Substituted() bool {
	return s.Index != s.Requested
}

type Selector struct {
	drivers    []Driver
	probeRange int
	logger     *zap.SugaredLogger
}

type SelectorOption func(*Selector)

func WithProbeRange(n int) SelectorOption {
	return func(s *Selector) {
		if n > 0 {
			s.probeRange = n
		}
	}
}

func WithLogger(l *zap.SugaredLogger) SelectorOption {
	return func(s *Selector) {
		s.logger = l
	}
}

func NewSelector(drivers []Driver, opts ...SelectorOption) *Selector {
	s := &Selector{
		drivers:    drivers,
		probeRange: DefaultProbeRange,
		logger:     utils.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open returns a session on the first backend that opens either the
// requested index or, failing that, the first alternate index in
// 0..probeRange-1. The substitution is never remembered: every call starts
// again from the requested index.
func (s *Selector) Open(ctx context.Context, index int) (*Session, error) {
	alternates := lo.Without(lo.Range(s.probeRange), index)

	for _, d := range s.drivers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.logger.Infof("camera: trying index %d via %s", index, d.Name())
		h, err := d.Open(ctx, index)
		if err == nil {
			return s.session(h, d, index, index), nil
		}
		s.logger.Warnf("camera: open index %d via %s failed: %s", index, d.Name(), err)

		for _, alt := range alternates {
			h, err = d.Open(ctx, alt)
			if err != nil {
				s.logger.Debugf("camera: fallback index %d via %s failed: %s", alt, d.Name(), err)
				continue
			}
			s.logger.Warnf("camera: index %d unavailable via %s, using index %d for this check", index, d.Name(), alt)
			return s.session(h, d, alt, index), nil
		}
	}

	return nil, fmt.Errorf("index %d: %w", index, ErrDeviceUnavailable)
}

func (s *Selector) session(h Handle, d Driver, opened, requested int) *Session {
	s.logger.Infof("camera: opened index %d via %s", opened, d.Name())
	return &Session{
		Handle:    h,
		Kind:      d.Kind(),
		Backend:   d.Name(),
		Index:     opened,
		Requested: requested,
	}
}
