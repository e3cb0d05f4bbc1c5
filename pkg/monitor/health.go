package monitor

import (
	"context"

	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

const (
	StateUnknown  = "unknown"
	StateHealthy  = "healthy"
	StateDegraded = "degraded"
	StateDown     = "down"

	eventSucceed  = "succeed"
	eventFail     = "fail"
	eventCollapse = "collapse"
)

// Health folds check outcomes into a coarse device state. A single failure
// degrades, downAfter consecutive failures mark the device down and any
// success restores it.
type Health struct {
	fsm       *fsm.FSM
	failures  int
	downAfter int
	logger    *zap.SugaredLogger
}

func NewHealth(downAfter int, logger *zap.SugaredLogger) *Health {
	if downAfter <= 0 {
		downAfter = 1
	}
	h := &Health{downAfter: downAfter, logger: logger}
	h.fsm = fsm.NewFSM(
		StateUnknown,
		fsm.Events{
			{Name: eventSucceed, Src: []string{StateUnknown, StateDegraded, StateDown}, Dst: StateHealthy},
			{Name: eventFail, Src: []string{StateUnknown, StateHealthy}, Dst: StateDegraded},
			{Name: eventCollapse, Src: []string{StateUnknown, StateHealthy, StateDegraded}, Dst: StateDown},
		},
		fsm.Callbacks{
			"enter_" + StateHealthy: func(_ context.Context, e *fsm.Event) {
				h.logger.Infof("health: %s -> %s", e.Src, e.Dst)
			},
			"enter_" + StateDegraded: func(_ context.Context, e *fsm.Event) {
				h.logger.Warnf("health: %s -> %s", e.Src, e.Dst)
			},
			"enter_" + StateDown: func(_ context.Context, e *fsm.Event) {
				h.logger.Errorf("health: %s -> %s after %d consecutive failed checks", e.Src, e.Dst, h.failures)
			},
		},
	)

	return h
}

func (h *Health) Record(ctx context.Context, ok bool) string {
	var event string
	if ok {
		h.failures = 0
		event = eventSucceed
	} else {
		h.failures++
		event = eventFail
		if h.failures >= h.downAfter {
			event = eventCollapse
		}
	}
	if h.fsm.Can(event) {
		// the outcome of a check interrupted by shutdown still counts
		if err := h.fsm.Event(context.WithoutCancel(ctx), event); err != nil {
			h.logger.Warnf("health: %s: %s", event, err)
		}
	}

	return h.fsm.Current()
}

func (h *Health) Current() string {
	return h.fsm.Current()
}

func (h *Health) Failures() int {
	return h.failures
}
