package hardware

import (
	"fmt"
	"sync"

	"github.com/andre-d/mpv/pkg/format"
)

// MockDevice implements OutputDevice and DigitalOutputDevice for
// testing. The test drives the "OS" side by calling Pull, which
// stands in for the HAL invoking the render callback.
type MockDevice struct {
	digital bool

	mu       sync.Mutex
	opened   bool
	started  bool
	closed   bool
	starts   int
	stops    int
	restored int
	format   format.Format
	render   RenderFunc
	notifier FormatNotifier
}

// NewMockDevice creates a mock output device. digital controls
// whether the device claims S/PDIF passthrough support.
func NewMockDevice(digital bool) *MockDevice {
	return &MockDevice{digital: digital}
}

// Name returns the mock device name
func (d *MockDevice) Name() string {
	return "mock"
}

// Open stores the requested format and render callback
func (d *MockDevice) Open(f format.Format, render RenderFunc) (format.Format, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.opened {
		return format.Format{}, fmt.Errorf("mock device already open")
	}
	if render == nil {
		return format.Format{}, fmt.Errorf("nil render callback")
	}
	d.opened = true
	d.format = f
	d.render = render
	return f, nil
}

// Start marks the device running
func (d *MockDevice) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.opened || d.closed {
		return fmt.Errorf("mock device not open")
	}
	if !d.started {
		d.started = true
		d.starts++
	}
	return nil
}

// Stop marks the device stopped
func (d *MockDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		d.started = false
		d.stops++
	}
	return nil
}

// Close shuts the device down
func (d *MockDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.started = false
	d.closed = true
	return nil
}

// SupportsDigital reports the configured passthrough capability
func (d *MockDevice) SupportsDigital(f format.Format) bool {
	return d.digital && f.Sample.IsAC3()
}

// SetFormatNotifier registers the format change notifier
func (d *MockDevice) SetFormatNotifier(n FormatNotifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifier = n
}

// RestoreDigitalFormat records a digital format restore request
func (d *MockDevice) RestoreDigitalFormat() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.digital {
		return fmt.Errorf("mock device has no digital stream")
	}
	d.restored++
	return nil
}

// Pull emulates the OS audio thread requesting n bytes. It returns
// the bytes the render callback produced, or nil if the device is
// stopped (a stopped HAL issues no pulls).
func (d *MockDevice) Pull(n int) []byte {
	d.mu.Lock()
	render := d.render
	started := d.started
	d.mu.Unlock()

	if !started || render == nil {
		return nil
	}
	out := make([]byte, n)
	filled := render(out)
	return out[:filled]
}

// PullRaw is Pull without truncating to the filled count, exposing
// what the callback left in the untouched remainder.
func (d *MockDevice) PullRaw(n int) ([]byte, int) {
	d.mu.Lock()
	render := d.render
	started := d.started
	d.mu.Unlock()

	if !started || render == nil {
		return nil, 0
	}
	out := make([]byte, n)
	filled := render(out)
	return out, filled
}

// TriggerFormatChange simulates an out-of-band device format change
func (d *MockDevice) TriggerFormatChange() {
	d.mu.Lock()
	n := d.notifier
	d.mu.Unlock()

	if n != nil {
		n.Notify()
	}
}

// Running reports whether the device callback is active
func (d *MockDevice) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

// StartCount returns how many stopped->running transitions occurred
func (d *MockDevice) StartCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.starts
}

// StopCount returns how many running->stopped transitions occurred
func (d *MockDevice) StopCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stops
}

// RestoreCount returns how many digital format restores were requested
func (d *MockDevice) RestoreCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.restored
}
