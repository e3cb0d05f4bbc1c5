package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
)

type FakeRead struct {
	Frame image.Image
	Err   error
}

type FakeHandle struct {
	mu     sync.Mutex
	reads  []FakeRead
	next   int
	closed bool

	props    map[Property]float64
	rejected map[Property]bool
}

func NewFakeHandle(reads ...FakeRead) *FakeHandle {
	return &FakeHandle{
		reads:    reads,
		props:    make(map[Property]float64),
		rejected: make(map[Property]bool),
	}
}

// Reject makes Set report failure for prop.
func (h *FakeHandle) Reject(prop Property) *FakeHandle {
	h.rejected[prop] = true
	return h
}

func (h *FakeHandle) Read() (image.Image, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errors.New("handle closed")
	}
	if h.next >= len(h.reads) {
		return nil, fmt.Errorf("script exhausted: %w", ErrReadFailure)
	}
	r := h.reads[h.next]
	h.next++
	return r.Frame, r.Err
}

func (h *FakeHandle) Set(prop Property, value float64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rejected[prop] {
		return false
	}
	h.props[prop] = value
	return true
}

func (h *FakeHandle) Get(prop Property) (float64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rejected[prop] {
		return 0, false
	}
	v, ok := h.props[prop]
	return v, ok
}

func (h *FakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *FakeHandle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *FakeHandle) ReadCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.next
}

type FakeDriver struct {
	kind Kind
	name string

	mu      sync.Mutex
	handles map[int]*FakeHandle
	opened  []int
}

func NewFakeDriver(kind Kind, name string) *FakeDriver {
	return &FakeDriver{kind: kind, name: name, handles: make(map[int]*FakeHandle)}
}

// Attach makes index openable; each Open of that index returns h.
func (d *FakeDriver) Attach(index int, h *FakeHandle) *FakeDriver {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handles[index] = h
	return d
}

func (d *FakeDriver) Kind() Kind   { return d.kind }
func (d *FakeDriver) Name() string { return d.name }

func (d *FakeDriver) Open(_ context.Context, index int) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = append(d.opened, index)
	h, ok := d.handles[index]
	if !ok {
		return nil, fmt.Errorf("%s: no device at index %d", d.name, index)
	}
	return h, nil
}

func (d *FakeDriver) Opened() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.opened...)
}
