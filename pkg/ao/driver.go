// Package ao implements the pull-model audio output driver. A Driver
// owns a lock-free ring between the submitting goroutine and the OS
// audio callback: Submit pushes bytes in, the device's render
// callback pulls them out on the audio thread.
package ao

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andre-d/mpv/pkg/format"
	"github.com/andre-d/mpv/pkg/hardware"
	"github.com/andre-d/mpv/pkg/logging"
	"github.com/andre-d/mpv/pkg/ring"
)

// Mode says how the driver feeds the device.
type Mode int

const (
	// ModeAnalog renders PCM. Underruns are padded with silence and
	// soft volume is applied in the callback.
	ModeAnalog Mode = iota

	// ModePassthrough bitstreams compressed frames untouched. No
	// volume scaling; mute discards queued data instead of zeroing.
	ModePassthrough
)

func (m Mode) String() string {
	if m == ModePassthrough {
		return "passthrough"
	}
	return "analog"
}

// Options tune an output driver at open time.
type Options struct {
	// BufferDuration is the target amount of queued audio the ring
	// holds. Zero means half a second.
	BufferDuration time.Duration

	// Volume is the initial soft volume, 0-100. Ignored in
	// passthrough mode.
	Volume int
}

const defaultBufferDuration = 500 * time.Millisecond

// Driver is an open audio output. All methods except the internal
// render path are called from the control goroutine; the render
// callbacks run on the OS audio thread and touch only the ring and a
// few atomics.
type Driver struct {
	dev    hardware.OutputDevice
	format format.Format
	mode   Mode
	ring   *ring.Ring

	listener *FormatChangeListener

	// volume is the soft volume in percent; muted flips rendering to
	// silence (analog) or draining (passthrough). Both are read on
	// the audio thread.
	volume atomic.Int32
	muted  atomic.Bool

	mu        sync.Mutex
	paused    bool
	closed    bool
	underruns atomic.Uint64
}

// Open negotiates a stream with the device, sizes the ring for the
// negotiated byte rate and installs the render callback. The driver
// starts paused; the first Submit resumes it.
func Open(dev hardware.OutputDevice, f format.Format, opts Options) (*Driver, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if opts.BufferDuration <= 0 {
		opts.BufferDuration = defaultBufferDuration
	}
	if opts.Volume < 0 || opts.Volume > 100 {
		return nil, fmt.Errorf("volume %d out of range", opts.Volume)
	}

	d := &Driver{
		dev:    dev,
		mode:   ModeAnalog,
		paused: true,
	}
	d.volume.Store(int32(opts.Volume))

	if f.Sample.IsAC3() {
		dig, ok := dev.(hardware.DigitalOutputDevice)
		if !ok || !dig.SupportsDigital(f) {
			return nil, fmt.Errorf("device %s cannot bitstream %s", dev.Name(), f.Sample)
		}
		d.mode = ModePassthrough
		d.listener = NewFormatChangeListener()
		dig.SetFormatNotifier(d.listener)
	}

	render := d.renderAnalog
	if d.mode == ModePassthrough {
		render = d.renderPassthrough
	}

	// The device contract keeps the callback silent until Start, so
	// the ring can be created after Open using the format the device
	// actually granted.
	got, err := dev.Open(f, func(out []byte) int { return render(out) })
	if err != nil {
		return nil, err
	}
	d.format = got

	r, err := ring.New(got.SizeForDuration(opts.BufferDuration))
	if err != nil {
		dev.Close()
		return nil, err
	}
	d.ring = r

	logging.Infof("ao", "opened %s in %s mode, %s, %v ring",
		dev.Name(), d.mode, got, opts.BufferDuration)
	return d, nil
}

// Format returns the negotiated stream format.
func (d *Driver) Format() format.Format {
	return d.format
}

// Mode returns the rendering mode chosen at open.
func (d *Driver) Mode() Mode {
	return d.mode
}

// renderAnalog fills out completely: ring bytes first, silence for
// the rest. The HAL keeps a steady cadence only when every callback
// returns a full buffer.
func (d *Driver) renderAnalog(out []byte) int {
	var n int
	if d.muted.Load() {
		// Keep consuming so timing (and Buffered) advance while muted.
		d.ring.Drain(len(out))
	} else {
		n = d.ring.Read(out)
		if n < len(out) {
			d.underruns.Add(1)
		}
	}
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	if n > 0 {
		d.applyVolume(out[:n])
	}
	return len(out)
}

// renderPassthrough hands compressed bytes through untouched. Muting
// must keep consuming: a receiver locked to an AC3 stream glitches
// loudly on zeroed filler, so queued data is discarded instead.
func (d *Driver) renderPassthrough(out []byte) int {
	if d.muted.Load() {
		d.ring.Drain(len(out))
		return 0
	}
	n := d.ring.Read(out)
	if n < len(out) {
		d.underruns.Add(1)
	}
	return n
}

// applyVolume scales S16LE samples in place. 100 is unity.
func (d *Driver) applyVolume(p []byte) {
	vol := d.volume.Load()
	if vol >= 100 || d.format.Sample != format.S16LE {
		return
	}
	for i := 0; i+1 < len(p); i += 2 {
		s := int32(int16(binary.LittleEndian.Uint16(p[i:])))
		s = s * vol / 100
		binary.LittleEndian.PutUint16(p[i:], uint16(int16(s)))
	}
}

// Submit queues audio for playback and resumes a paused device. The
// return value is how many bytes fit; the caller re-submits the rest
// once space opens up. In passthrough mode a pending device format
// change is repaired first and the stale queue dropped.
func (d *Driver) Submit(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, fmt.Errorf("ao: driver closed")
	}

	if d.listener != nil && d.listener.TakePending() {
		logging.Warn("ao", "device stream format changed, restoring")
		dig := d.dev.(hardware.DigitalOutputDevice)
		if err := dig.RestoreDigitalFormat(); err != nil {
			return 0, fmt.Errorf("restore digital format: %w", err)
		}
		// Bytes queued before the change were mangled by the old
		// format; drop them.
		d.flushLocked()
	}

	n := d.ring.Write(p)
	if n > 0 && d.paused {
		if err := d.dev.Start(); err != nil {
			return n, err
		}
		d.paused = false
	}
	return n, nil
}

// Pause stops the device callback. Queued audio stays in the ring.
func (d *Driver) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.paused {
		return nil
	}
	if err := d.dev.Stop(); err != nil {
		return err
	}
	d.paused = true
	return nil
}

// Resume restarts playback of whatever is queued.
func (d *Driver) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || !d.paused {
		return nil
	}
	if err := d.dev.Start(); err != nil {
		return err
	}
	d.paused = false
	return nil
}

// Paused reports whether the device is stopped.
func (d *Driver) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused
}

// Flush discards all queued audio and leaves the driver paused, ready
// for a seek or a new stream.
func (d *Driver) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("ao: driver closed")
	}
	return d.flushLocked()
}

// flushLocked stops the callback before resetting the ring: Reset is
// only safe while the consumer is idle.
func (d *Driver) flushLocked() error {
	if !d.paused {
		if err := d.dev.Stop(); err != nil {
			return err
		}
		d.paused = true
	}
	d.ring.Reset()
	return nil
}

// Available returns how many bytes Submit can accept right now.
func (d *Driver) Available() int {
	return d.ring.Free()
}

// Buffered returns how many bytes are queued but not yet consumed.
func (d *Driver) Buffered() int {
	return d.ring.Buffered()
}

// Latency estimates how long the queued bytes will take to play.
func (d *Driver) Latency() time.Duration {
	bps := d.format.BytesPerSecond()
	if bps <= 0 {
		return 0
	}
	return time.Duration(float64(d.ring.Buffered()) / float64(bps) * float64(time.Second))
}

// Underruns returns how many render callbacks ran short of data.
func (d *Driver) Underruns() uint64 {
	return d.underruns.Load()
}

// SetVolume sets the soft volume (0-100). Passthrough streams carry
// encoded data the driver cannot scale.
func (d *Driver) SetVolume(v int) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("volume %d out of range", v)
	}
	if d.mode == ModePassthrough {
		return fmt.Errorf("volume control unavailable in passthrough mode")
	}
	d.volume.Store(int32(v))
	return nil
}

// Volume returns the soft volume. In passthrough mode it reports 0
// when muted and 100 otherwise, mirroring the only control available.
func (d *Driver) Volume() int {
	if d.mode == ModePassthrough {
		if d.muted.Load() {
			return 0
		}
		return 100
	}
	return int(d.volume.Load())
}

// SetMuted silences output without stopping the device.
func (d *Driver) SetMuted(m bool) {
	d.muted.Store(m)
}

// Muted reports the mute state.
func (d *Driver) Muted() bool {
	return d.muted.Load()
}

// Drain blocks until the queue has played out or ctx is done. The
// caller must not Submit concurrently.
func (d *Driver) Drain(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fmt.Errorf("ao: driver closed")
	}
	if d.paused && d.ring.Buffered() > 0 {
		if err := d.dev.Start(); err != nil {
			d.mu.Unlock()
			return err
		}
		d.paused = false
	}
	d.mu.Unlock()

	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for d.ring.Buffered() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}

// Close stops the device and releases it. Safe to call twice.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if !d.paused {
		if err := d.dev.Stop(); err != nil {
			logging.Warnf("ao", "stop on close: %v", err)
		}
		d.paused = true
	}
	return d.dev.Close()
}
