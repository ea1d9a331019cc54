package hardware

import (
	"fmt"

	"github.com/ebitengine/oto/v3"

	"github.com/andre-d/mpv/pkg/format"
	"github.com/andre-d/mpv/pkg/logging"
)

// OtoDevice adapts the oto context/player to OutputDevice. oto pulls
// by calling Read on the player's source from its own audio
// goroutine, which maps directly onto the render callback.
//
// oto only allows one context per process, so at most one OtoDevice
// can be open at a time.
type OtoDevice struct {
	ctx     *oto.Context
	player  *oto.Player
	opened  bool
	started bool
}

// NewOtoDevice creates an oto output backend
func NewOtoDevice() *OtoDevice {
	return &OtoDevice{}
}

// Name returns the backend name
func (d *OtoDevice) Name() string {
	return "oto"
}

// pullReader bridges oto's Read-based pull to the render callback.
// It never returns EOF: underruns surface as the silence the driver
// zero-filled, keeping the player alive across gaps.
type pullReader struct {
	render RenderFunc
}

func (r *pullReader) Read(p []byte) (int, error) {
	n := r.render(p)
	if n == 0 {
		// Hand oto explicit silence rather than a zero-byte read,
		// which it would treat as a stall.
		for i := range p {
			p[i] = 0
		}
		n = len(p)
	}
	return n, nil
}

// Open creates the oto context and player. The player is created
// paused; Start begins playback.
func (d *OtoDevice) Open(f format.Format, render RenderFunc) (format.Format, error) {
	if d.opened {
		return format.Format{}, fmt.Errorf("oto device already open")
	}
	if f.Sample.IsAC3() {
		return format.Format{}, fmt.Errorf("oto backend cannot do digital passthrough")
	}
	if f.Sample != format.S16LE {
		return format.Format{}, fmt.Errorf("oto backend requires s16le, got %s", f.Sample)
	}

	op := &oto.NewContextOptions{
		SampleRate:   f.SampleRate,
		ChannelCount: f.Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return format.Format{}, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	d.ctx = ctx
	d.player = ctx.NewPlayer(&pullReader{render: render})
	d.opened = true

	logging.Infof("oto", "audio output initialized: %dHz, %d channels", f.SampleRate, f.Channels)
	return f, nil
}

// Start begins pulling from the render callback
func (d *OtoDevice) Start() error {
	if !d.opened {
		return fmt.Errorf("oto device not open")
	}
	if d.started {
		return nil
	}
	d.player.Play()
	d.started = true
	return nil
}

// Stop pauses the player without discarding state
func (d *OtoDevice) Stop() error {
	if !d.started {
		return nil
	}
	d.player.Pause()
	d.started = false
	return nil
}

// Close releases the player and suspends the context. The context
// itself cannot be destroyed; oto keeps it for the process lifetime.
func (d *OtoDevice) Close() error {
	if !d.opened {
		return nil
	}
	d.Stop()

	err := d.player.Close()
	d.ctx.Suspend()
	d.player = nil
	d.opened = false
	if err != nil {
		return fmt.Errorf("failed to close oto player: %w", err)
	}
	return nil
}
