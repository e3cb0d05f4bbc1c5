package monitor

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"camwatch/pkg/camera"
	"camwatch/pkg/config"
	"camwatch/pkg/probe"
	"camwatch/pkg/storage"
	"camwatch/pkg/utils/ps"
)

func blankFrame() image.Image {
	img := image.NewGray(image.Rect(0, 0, 64, 48))
	for i := range img.Pix {
		img.Pix[i] = 3
	}
	return img
}

func goodFrame() image.Image {
	img := image.NewGray(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			if (x/8+y/8)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func warmup(n int) []camera.FakeRead {
	reads := make([]camera.FakeRead, n)
	for i := range reads {
		if i%2 == 0 {
			reads[i] = camera.FakeRead{Err: errors.New("not ready")}
		} else {
			reads[i] = camera.FakeRead{Frame: blankFrame()}
		}
	}
	return reads
}

type harness struct {
	m      *Monitor
	status *storage.StatusStore
	driver *camera.FakeDriver
	logs   *observer.ObservedLogs
	now    time.Time
}

func newHarness(t *testing.T, cfg config.Config, prober probe.Prober, opts ...Option) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core).Sugar()

	h := &harness{
		driver: camera.NewFakeDriver(camera.KindPrimary, "FAKE"),
		logs:   logs,
		now:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.Local),
	}
	h.status = storage.NewStatusStore(filepath.Join(t.TempDir(), "status.json")).
		WithLogger(logger).
		WithClock(func() time.Time { return h.now })
	selector := camera.NewSelector([]camera.Driver{h.driver}, camera.WithLogger(logger))

	base := []Option{
		WithLogger(logger),
		WithClock(func() time.Time { return h.now }),
		WithSleep(func(ctx context.Context, _ time.Duration) error { return ctx.Err() }),
		WithHostSampler(nil),
	}
	h.m = New(cfg, prober, selector, h.status, append(base, opts...)...)

	return h
}

func retrying(logs *observer.ObservedLogs) int {
	return logs.FilterMessageSnippet("retrying").Len()
}

func TestCheckBlankThenGood(t *testing.T) {
	cfg := config.Default()
	h := newHarness(t, cfg, probe.Always(true))

	good := goodFrame()
	reads := append(warmup(15), camera.FakeRead{Frame: blankFrame()}, camera.FakeRead{Frame: good})
	handle := camera.NewFakeHandle(reads...)
	h.driver.Attach(0, handle)

	r, err := h.m.Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !r.OK || r.Frame != good {
		t.Fatalf("expected the second real frame, got %+v", r)
	}
	if handle.ReadCount() != 17 {
		t.Fatalf("reads: %d", handle.ReadCount())
	}
	if !handle.Closed() {
		t.Fatal("handle not closed")
	}
	if n := retrying(h.logs); n != 1 {
		t.Fatalf("expected 1 retrying line, got %d", n)
	}

	rec, err := h.status.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !rec.OK || rec.Backend != "FAKE" || rec.Resolution != (storage.Resolution{Width: 64, Height: 48}) {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if h.m.Health() != StateHealthy {
		t.Fatalf("health %s", h.m.Health())
	}
}

func TestCheckDeviceAbsent(t *testing.T) {
	h := newHarness(t, config.Default(), probe.Always(false))
	h.status.Update(true, storage.Update{
		CameraIndex:   lo.ToPtr(0),
		Resolution:    &storage.Resolution{Width: 640, Height: 480},
		Backend:       lo.ToPtr("V4L2"),
		LastFramePath: lo.ToPtr("a.jpg"),
	})

	_, err := h.m.Check(context.Background())
	if !errors.Is(err, ErrDeviceAbsent) {
		t.Fatalf("expected ErrDeviceAbsent, got %v", err)
	}
	if len(h.driver.Opened()) != 0 {
		t.Fatal("backend must not be touched when the device is absent")
	}
	rec, _ := h.status.Load()
	if rec.OK {
		t.Fatal("ok should be false")
	}
	if rec.Backend != "V4L2" || rec.LastFramePath != "a.jpg" || rec.Resolution.Width != 640 {
		t.Fatalf("device fields changed: %+v", rec)
	}
}

func TestCheckUnavailable(t *testing.T) {
	h := newHarness(t, config.Default(), probe.Always(true))
	_, err := h.m.Check(context.Background())
	if !errors.Is(err, camera.ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	rec, _ := h.status.Load()
	if rec.OK {
		t.Fatal("ok should be false")
	}
}

func TestCheckBlankExhausted(t *testing.T) {
	cfg := config.Default()
	h := newHarness(t, cfg, probe.Always(true))
	reads := warmup(cfg.Monitor.WarmupFrames)
	for i := 0; i < cfg.Monitor.Retries; i++ {
		reads = append(reads, camera.FakeRead{Frame: blankFrame()})
	}
	handle := camera.NewFakeHandle(reads...)
	h.driver.Attach(0, handle)

	_, err := h.m.Check(context.Background())
	if !errors.Is(err, ErrBlankFrame) {
		t.Fatalf("expected ErrBlankFrame, got %v", err)
	}
	if !handle.Closed() {
		t.Fatal("handle not closed")
	}
	if n := retrying(h.logs); n != cfg.Monitor.Retries-1 {
		t.Fatalf("retrying lines: %d", n)
	}
}

func TestCheckReadFailure(t *testing.T) {
	h := newHarness(t, config.Default(), probe.Always(true))
	handle := camera.NewFakeHandle(warmup(15)...)
	h.driver.Attach(0, handle)

	_, err := h.m.Check(context.Background())
	if !errors.Is(err, camera.ErrReadFailure) {
		t.Fatalf("expected ErrReadFailure, got %v", err)
	}
	if !handle.Closed() {
		t.Fatal("handle not closed")
	}
	rec, _ := h.status.Load()
	if rec.OK || rec.Backend != "FAKE" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestCheckHints(t *testing.T) {
	cfg := config.Default()
	cfg.Monitor.WarmupFrames = 0
	h := newHarness(t, cfg, probe.Always(true))
	handle := camera.NewFakeHandle(camera.FakeRead{Frame: goodFrame()}).Reject(camera.PropCompression)
	h.driver.Attach(0, handle)

	if _, err := h.m.Check(context.Background()); err != nil {
		t.Fatal(err)
	}
	if v, ok := handle.Get(camera.PropFrameWidth); !ok || v != 640 {
		t.Fatalf("width hint: %v %v", v, ok)
	}
	if v, ok := handle.Get(camera.PropFourCC); !ok || v != camera.FourCC("MJPG") {
		t.Fatalf("fourcc hint: %v %v", v, ok)
	}
	if _, ok := handle.Get(camera.PropCompression); ok {
		t.Fatal("rejected hint should not be recorded")
	}
}

func TestCheckSnapshotInterval(t *testing.T) {
	cfg := config.Default()
	cfg.Monitor.WarmupFrames = 0
	snaps, err := storage.NewSnapshots(t.TempDir(), 80, 0)
	if err != nil {
		t.Fatal(err)
	}
	snaps.WithLogger(zap.NewNop().Sugar())
	h := newHarness(t, cfg, probe.Always(true), WithSnapshots(snaps))

	check := func() *Report {
		t.Helper()
		h.driver.Attach(0, camera.NewFakeHandle(camera.FakeRead{Frame: goodFrame()}))
		r, err := h.m.Check(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		return r
	}

	first := check()
	if filepath.Base(first.Snapshot) != "20240301_090000.jpg" {
		t.Fatalf("first snapshot: %q", first.Snapshot)
	}

	h.now = h.now.Add(10 * time.Second)
	if r := check(); r.Snapshot != "" {
		t.Fatalf("snapshot not due yet, got %s", r.Snapshot)
	}
	rec, _ := h.status.Load()
	if rec.LastFramePath != first.Snapshot {
		t.Fatalf("last frame path not preserved: %q", rec.LastFramePath)
	}

	h.now = h.now.Add(cfg.Monitor.SnapshotInterval)
	third := check()
	if third.Snapshot == "" || third.Snapshot == first.Snapshot {
		t.Fatalf("expected a new snapshot, got %q", third.Snapshot)
	}
	rec, _ = h.status.Load()
	if rec.LastFramePath != third.Snapshot {
		t.Fatalf("last frame path: %q", rec.LastFramePath)
	}
}

func TestCheckPTZCycle(t *testing.T) {
	cfg := config.Default()
	cfg.Monitor.WarmupFrames = 0
	cfg.Monitor.PTZCycle = true
	h := newHarness(t, cfg, probe.Always(true))

	want := []string{"identity", "pan-left", "pan-right"}
	for i, name := range want {
		h.driver.Attach(0, camera.NewFakeHandle(camera.FakeRead{Frame: goodFrame()}))
		r, err := h.m.Check(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if r.Effect != name {
			t.Fatalf("check %d: effect %s, want %s", i, r.Effect, name)
		}
		if r.Frame.Bounds() != goodFrame().Bounds() {
			t.Fatalf("check %d: bounds changed", i)
		}
	}

	// a failed check does not advance the cycle
	h.driver.Attach(0, camera.NewFakeHandle())
	if _, err := h.m.Check(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	h.driver.Attach(0, camera.NewFakeHandle(camera.FakeRead{Frame: goodFrame()}))
	r, err := h.m.Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if r.Effect != "tilt-up" {
		t.Fatalf("effect %s", r.Effect)
	}
}

func TestCheckHostSample(t *testing.T) {
	cfg := config.Default()
	cfg.Monitor.WarmupFrames = 0
	h := newHarness(t, cfg, probe.Always(true), WithHostSampler(func() (ps.Host, error) {
		return ps.Host{CPUPercent: 42}, nil
	}))
	h.driver.Attach(0, camera.NewFakeHandle(camera.FakeRead{Frame: goodFrame()}))
	if _, err := h.m.Check(context.Background()); err != nil {
		t.Fatal(err)
	}

	h.m.host = func() (ps.Host, error) { return ps.Host{}, errors.New("unsupported") }
	h.driver.Attach(0, camera.NewFakeHandle(camera.FakeRead{Frame: goodFrame()}))
	if _, err := h.m.Check(context.Background()); err != nil {
		t.Fatal(err)
	}
	rec, _ := h.status.Load()
	if rec.Host == nil || rec.Host.CPUPercent != 42 {
		t.Fatalf("host sample not preserved: %+v", rec.Host)
	}
}

func TestCheckLogsCorrelationID(t *testing.T) {
	h := newHarness(t, config.Default(), probe.Always(true))
	r, _ := h.m.Check(context.Background())
	entries := h.logs.FilterField(zap.String("check", r.ID)).All()
	if len(entries) == 0 {
		t.Fatal("no log lines carry the check id")
	}
}

func TestCheckSnapshotWriteFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Monitor.WarmupFrames = 0
	dir := filepath.Join(t.TempDir(), "frames")
	snaps, err := storage.NewSnapshots(dir, 80, 0)
	if err != nil {
		t.Fatal(err)
	}
	snaps.WithLogger(zap.NewNop().Sugar())
	h := newHarness(t, cfg, probe.Always(true), WithSnapshots(snaps))
	h.status.Update(true, storage.Update{LastFramePath: lo.ToPtr("a.jpg")})

	// a regular file where the directory should be
	if err = os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err = os.WriteFile(dir, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	h.driver.Attach(0, camera.NewFakeHandle(camera.FakeRead{Frame: goodFrame()}))
	r, err := h.m.Check(context.Background())
	if err != nil {
		t.Fatalf("snapshot failure must not fail the check: %v", err)
	}
	if r.Snapshot != "" {
		t.Fatalf("unexpected snapshot %q", r.Snapshot)
	}
	rec, _ := h.status.Load()
	if !rec.OK || rec.LastFramePath != "a.jpg" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !h.m.lastSnapshot.IsZero() {
		t.Fatal("last snapshot clock advanced on a failed write")
	}

	if err = os.Remove(dir); err != nil {
		t.Fatal(err)
	}
	h.now = h.now.Add(time.Second)
	h.driver.Attach(0, camera.NewFakeHandle(camera.FakeRead{Frame: goodFrame()}))
	r, err = h.m.Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if r.Snapshot == "" {
		t.Fatal("save should be retried on the next check")
	}
	rec, _ = h.status.Load()
	if rec.LastFramePath != r.Snapshot {
		t.Fatalf("last frame path: %q", rec.LastFramePath)
	}
}
