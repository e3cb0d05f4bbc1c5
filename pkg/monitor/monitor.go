// Package monitor runs the camera health check: presence probe, backend
// selection, warmup and classified retries, the optional PTZ step and
// snapshot, and the status record update.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"camwatch/pkg/camera"
	"camwatch/pkg/config"
	"camwatch/pkg/probe"
	"camwatch/pkg/ptz"
	"camwatch/pkg/quality"
	"camwatch/pkg/storage"
	"camwatch/pkg/utils"
	"camwatch/pkg/utils/ps"
)

var (
	ErrDeviceAbsent = errors.New("device absent")
	ErrBlankFrame   = errors.New("blank frame")
)

type Report struct {
	ID      string
	OK      bool
	Backend string
	// Index is the device index the session actually used.
	Index    int
	Frame    image.Image
	Effect   string
	Snapshot string
	Health   string
	Duration time.Duration
}

type Monitor struct {
	cfg       config.Config
	prober    probe.Prober
	selector  *camera.Selector
	status    *storage.StatusStore
	snapshots *storage.Snapshots
	cycle     *ptz.Cycle
	health    *Health

	lastSnapshot time.Time

	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
	host   func() (ps.Host, error)
	logger *zap.SugaredLogger
}

type Option func(*Monitor)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(m *Monitor) { m.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(m *Monitor) { m.sleep = sleep }
}

// WithHostSampler replaces host resource sampling; nil disables it.
func WithHostSampler(f func() (ps.Host, error)) Option {
	return func(m *Monitor) { m.host = f }
}

func WithSnapshots(s *storage.Snapshots) Option {
	return func(m *Monitor) { m.snapshots = s }
}

func WithCycle(c *ptz.Cycle) Option {
	return func(m *Monitor) { m.cycle = c }
}

func New(cfg config.Config, prober probe.Prober, selector *camera.Selector, status *storage.StatusStore, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:      cfg,
		prober:   prober,
		selector: selector,
		status:   status,
		now:      time.Now,
		sleep:    utils.Sleep,
		logger:   utils.GetLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if cfg.Monitor.PTZCycle && m.cycle == nil {
		m.cycle = ptz.NewCycle()
	}
	if !cfg.Monitor.PTZCycle {
		m.cycle = nil
	}
	m.health = NewHealth(cfg.Monitor.DownAfter, m.logger)

	return m
}

func (m *Monitor) Health() string {
	return m.health.Current()
}

// Check runs one full health check. Every failure is returned classified
// (ErrDeviceAbsent, camera.ErrDeviceUnavailable, camera.ErrReadFailure,
// ErrBlankFrame) and has already been written to the status record. A
// snapshot persistence failure does not fail the check.
func (m *Monitor) Check(ctx context.Context) (*Report, error) {
	start := m.now()
	r := &Report{ID: uuid.NewString(), Index: -1}
	log := m.logger.With("check", r.ID)

	err := m.check(ctx, log, r)
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		// interrupted, leave the last persisted outcome alone
		return r, err
	}
	r.OK = err == nil
	r.Health = m.health.Record(ctx, r.OK)
	r.Duration = m.now().Sub(start)

	if err != nil {
		log.Errorf("check failed: %s", err)
	} else {
		log.Infof("check ok via %s index %d in %s", r.Backend, r.Index, r.Duration)
	}

	return r, err
}

func (m *Monitor) check(ctx context.Context, log *zap.SugaredLogger, r *Report) error {
	if !m.prober.Present(ctx) {
		m.status.Update(false, storage.Update{Host: m.sampleHost(log)})
		return fmt.Errorf("presence probe: %w", ErrDeviceAbsent)
	}

	index := m.cfg.Camera.Index
	failed := storage.Update{CameraIndex: lo.ToPtr(index)}

	sess, err := m.selector.Open(ctx, index)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		failed.Host = m.sampleHost(log)
		m.status.Update(false, failed)
		return err
	}
	r.Backend = sess.Backend
	r.Index = sess.Index
	if sess.Substituted() {
		log.Warnf("using index %d instead of configured %d for this check", sess.Index, index)
	}

	frame, err := m.acquire(ctx, log, sess)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		failed.Backend = lo.ToPtr(sess.Backend)
		failed.Host = m.sampleHost(log)
		m.status.Update(false, failed)
		return err
	}

	if m.cycle != nil {
		frame, r.Effect = m.cycle.Apply(frame)
		log.Infof("ptz: applied %s", r.Effect)
	}
	r.Frame = frame

	b := frame.Bounds()
	ok := storage.Update{
		CameraIndex: lo.ToPtr(index),
		Resolution:  &storage.Resolution{Width: b.Dx(), Height: b.Dy()},
		Backend:     lo.ToPtr(sess.Backend),
		Host:        m.sampleHost(log),
	}
	if path, saved := m.snapshot(log, frame); saved {
		r.Snapshot = path
		ok.LastFramePath = lo.ToPtr(path)
	}
	m.status.Update(true, ok)

	return nil
}

func (m *Monitor) acquire(ctx context.Context, log *zap.SugaredLogger, sess *camera.Session) (image.Image, error) {
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warnf("close %s index %d: %s", sess.Backend, sess.Index, err)
		}
	}()

	m.applyHints(log, sess)

	mc := m.cfg.Monitor
	for i := 0; i < mc.WarmupFrames; i++ {
		// exposure and gain settle during warmup, errors are expected
		_, _ = sess.Read()
		if err := m.sleep(ctx, mc.WarmupPause); err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= mc.Retries; attempt++ {
		last := attempt == mc.Retries

		frame, err := sess.Read()
		if err != nil {
			lastErr = fmt.Errorf("%w: %w", camera.ErrReadFailure, err)
			if last {
				log.Warnf("read failed (attempt %d/%d): %s", attempt, mc.Retries, err)
				break
			}
			log.Warnf("read failed (attempt %d/%d): %s, retrying", attempt, mc.Retries, err)
			if err = m.sleep(ctx, mc.ReadRetryPause); err != nil {
				return nil, err
			}
			continue
		}

		res := quality.Classify(frame, m.cfg.Quality)
		if !res.Blank {
			log.Infof("frame accepted on attempt %d: %s", attempt, res.Diagnostics)
			return frame, nil
		}
		lastErr = fmt.Errorf("%w (%s): %s", ErrBlankFrame, res.Reason(), res.Diagnostics)
		if last {
			log.Warnf("blank frame (attempt %d/%d, %s): %s", attempt, mc.Retries, res.Reason(), res.Diagnostics)
			break
		}
		log.Warnf("blank frame (attempt %d/%d, %s): %s, retrying", attempt, mc.Retries, res.Reason(), res.Diagnostics)
		if err = m.sleep(ctx, mc.BlankRetryPause); err != nil {
			return nil, err
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no attempts: %w", camera.ErrReadFailure)
	}

	return nil, fmt.Errorf("%s index %d after %d attempts: %w", sess.Backend, sess.Index, mc.Retries, lastErr)
}

type hint struct {
	prop  camera.Property
	value float64
}

// applyHints is best effort: a backend that refuses a property keeps its own.
func (m *Monitor) applyHints(log *zap.SugaredLogger, h camera.Handle) {
	c := m.cfg.Camera
	hints := []hint{
		{camera.PropFrameWidth, float64(c.Width)},
		{camera.PropFrameHeight, float64(c.Height)},
	}
	if c.FourCC != "" {
		hints = append(hints, hint{camera.PropFourCC, camera.FourCC(c.FourCC)})
	}
	if c.Compression > 0 {
		hints = append(hints, hint{camera.PropCompression, float64(c.Compression)})
	}
	for _, hn := range hints {
		if !h.Set(hn.prop, hn.value) {
			log.Debugf("backend ignored %s=%v", hn.prop, hn.value)
		}
	}
}

// snapshot saves frame when the snapshot interval has elapsed. The last
// saved clock only advances on a successful write.
func (m *Monitor) snapshot(log *zap.SugaredLogger, frame image.Image) (string, bool) {
	if m.snapshots == nil {
		return "", false
	}
	now := m.now()
	if !m.lastSnapshot.IsZero() && now.Sub(m.lastSnapshot) < m.cfg.Monitor.SnapshotInterval {
		return "", false
	}
	path, err := m.snapshots.Save(frame, now)
	if err != nil {
		log.Errorf("snapshot: %s", err)
		return "", false
	}
	m.lastSnapshot = now
	log.Infof("snapshot: saved %s", path)

	return path, true
}

func (m *Monitor) sampleHost(log *zap.SugaredLogger) *ps.Host {
	if m.host == nil {
		return nil
	}
	h, err := m.host()
	if err != nil {
		log.Debugf("host sample: %s", err)
		return nil
	}
	return &h
}
