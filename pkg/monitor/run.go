package monitor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
)

var ErrFatal = errors.New("fatal monitor error")

// Run checks once per check interval until ctx is done. Check failures are
// logged and retried on the next tick; only a panic ends the loop early, and
// it is logged with the FATAL ERROR marker first.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("=== Camera Monitor Started ===")
	defer m.logger.Info("=== Camera Monitor Stopped ===")
	m.logger.Infof("monitor: index %d, interval %s, snapshot every %s, ptz cycle %v",
		m.cfg.Camera.Index, m.cfg.Monitor.CheckInterval, m.cfg.Monitor.SnapshotInterval, m.cycle != nil)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := m.tick(ctx); err != nil {
			return err
		}
		if err := m.sleep(ctx, m.cfg.Monitor.CheckInterval); err != nil {
			m.logger.Info("monitor: interrupted, shutting down")
			return nil
		}
	}
}

func (m *Monitor) tick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Errorf("FATAL ERROR: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("%w: %v", ErrFatal, r)
		}
	}()
	// failures are already logged and recorded by Check
	_, _ = m.Check(ctx)

	return nil
}
