// Package probe asks the operating system whether an imaging device is
// attached at all, before any capture backend is touched.
package probe

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"camwatch/pkg/utils"
)

const DefaultTimeout = 10 * time.Second

type Prober interface {
	Present(ctx context.Context) bool
}

type Func func(ctx context.Context) bool

func (f Func) Present(ctx context.Context) bool { return f(ctx) }

func Always(present bool) Prober {
	return Func(func(context.Context) bool { return present })
}

type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Command runs an inventory tool and looks for any of Match in its output.
//
// It is fail-open: when the tool itself cannot run or exits non-zero, the
// device is reported present so that a missing or broken diagnostic tool
// never stops monitoring. Only a clean run without a match counts as absent.
// When Nodes is set and matches no device node, the device is absent without
// asking the tool, which may itself fail on a machine with no nodes.
type Command struct {
	Name    string
	Args    []string
	Match   []string
	Nodes   string
	Timeout time.Duration

	run    Runner
	glob   func(pattern string) ([]string, error)
	logger *zap.SugaredLogger
}

func Default() *Command {
	if runtime.GOOS == "windows" {
		return NewCommand("wmic", []string{"path", "Win32_PnPEntity", "get", "Name"}, []string{"Camera", "USB"})
	}
	c := NewCommand("v4l2-ctl", []string{"--list-devices"}, []string{"/dev/video"})
	c.Nodes = "/dev/video*"
	return c
}

func NewCommand(name string, args, match []string) *Command {
	return &Command{
		Name:    name,
		Args:    args,
		Match:   match,
		Timeout: DefaultTimeout,
		run:     execRunner,
		glob:    filepath.Glob,
		logger:  utils.GetLogger(),
	}
}

func (c *Command) WithRunner(r Runner) *Command {
	c.run = r
	return c
}

func (c *Command) WithGlob(glob func(pattern string) ([]string, error)) *Command {
	c.glob = glob
	return c
}

func (c *Command) WithLogger(l *zap.SugaredLogger) *Command {
	c.logger = l
	return c
}

func (c *Command) Present(ctx context.Context) bool {
	if c.Nodes != "" {
		nodes, err := c.glob(c.Nodes)
		if err == nil && len(nodes) == 0 {
			c.logger.Debugf("probe: no device node matches %s", c.Nodes)
			return false
		}
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	out, err := c.run(ctx, c.Name, c.Args...)
	if err != nil {
		c.logger.Warnf("probe: %s failed, assuming device present: %s", c.Name, err)
		return true
	}

	return containsAny(out, c.Match)
}

func containsAny(out []byte, match []string) bool {
	if len(match) == 0 {
		return len(bytes.TrimSpace(out)) > 0
	}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.ToLower(sc.Text())
		for _, m := range match {
			if strings.Contains(line, strings.ToLower(m)) {
				return true
			}
		}
	}
	return false
}
