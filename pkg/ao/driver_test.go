package ao

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andre-d/mpv/pkg/format"
	"github.com/andre-d/mpv/pkg/hardware"
)

func pcmFormat() format.Format {
	return format.Format{SampleRate: 48000, Channels: 2, Sample: format.S16LE}
}

func ac3Format() format.Format {
	return format.Format{SampleRate: 48000, Channels: 2, Sample: format.AC3LE}
}

func openAnalog(t *testing.T) (*Driver, *hardware.MockDevice) {
	t.Helper()
	dev := hardware.NewMockDevice(false)
	d, err := Open(dev, pcmFormat(), Options{Volume: 100})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d, dev
}

func openDigital(t *testing.T) (*Driver, *hardware.MockDevice) {
	t.Helper()
	dev := hardware.NewMockDevice(true)
	d, err := Open(dev, ac3Format(), Options{Volume: 100})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d, dev
}

func TestOpenSizesRing(t *testing.T) {
	dev := hardware.NewMockDevice(false)
	d, err := Open(dev, pcmFormat(), Options{BufferDuration: 500 * time.Millisecond, Volume: 100})
	require.NoError(t, err)
	defer d.Close()

	// 48000 Hz * 4 bytes/frame * 0.5 s
	assert.Equal(t, 96000, d.Available())
	assert.Equal(t, 0, d.Buffered())
	assert.Equal(t, ModeAnalog, d.Mode())
	assert.True(t, d.Paused())
}

func TestSubmitAutoResumes(t *testing.T) {
	d, dev := openAnalog(t)

	n, err := d.Submit([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.False(t, d.Paused())
	assert.True(t, dev.Running())
	assert.Equal(t, 4, d.Buffered())
}

func TestSubmitBackpressure(t *testing.T) {
	dev := hardware.NewMockDevice(false)
	f := format.Format{SampleRate: 8000, Channels: 1, Sample: format.S16LE}
	d, err := Open(dev, f, Options{BufferDuration: time.Millisecond, Volume: 100})
	require.NoError(t, err)
	defer d.Close()

	free := d.Available()
	data := make([]byte, free+10)
	n, err := d.Submit(data)
	require.NoError(t, err)
	assert.Equal(t, free, n)

	// Full ring accepts nothing more until the callback consumes.
	n, err = d.Submit([]byte{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	dev.Pull(4)
	n, err = d.Submit([]byte{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAnalogRenderPadsSilence(t *testing.T) {
	d, dev := openAnalog(t)

	_, err := d.Submit([]byte{1, 2, 3, 4})
	require.NoError(t, err)

	out, filled := dev.PullRaw(8)
	assert.Equal(t, 8, filled, "analog render returns a full buffer")
	assert.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, out)
	assert.Equal(t, uint64(1), d.Underruns())
}

func TestAnalogMuteRendersSilenceAndConsumes(t *testing.T) {
	d, dev := openAnalog(t)

	_, err := d.Submit([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)
	d.SetMuted(true)

	out := dev.Pull(4)
	assert.Equal(t, []byte{0, 0, 0, 0}, out)
	assert.Equal(t, 4, d.Buffered(), "muted render still consumes the queue")

	d.SetMuted(false)
	assert.Equal(t, []byte{5, 6, 7, 8}, dev.Pull(4))
}

func TestSoftVolumeHalvesSamples(t *testing.T) {
	d, dev := openAnalog(t)
	require.NoError(t, d.SetVolume(50))

	// Two frames of s16le: 1000, -1000, 300, -301.
	in := make([]byte, 8)
	putS16 := func(i int, v int16) {
		in[i] = byte(uint16(v))
		in[i+1] = byte(uint16(v) >> 8)
	}
	putS16(0, 1000)
	putS16(2, -1000)
	putS16(4, 300)
	putS16(6, -301)

	_, err := d.Submit(in)
	require.NoError(t, err)

	out := dev.Pull(8)
	getS16 := func(i int) int16 {
		return int16(uint16(out[i]) | uint16(out[i+1])<<8)
	}
	assert.Equal(t, int16(500), getS16(0))
	assert.Equal(t, int16(-500), getS16(2))
	assert.Equal(t, int16(150), getS16(4))
	assert.Equal(t, int16(-150), getS16(6), "scaling truncates toward zero")
}

func TestPauseResumeFlush(t *testing.T) {
	d, dev := openAnalog(t)

	_, err := d.Submit([]byte{1, 2, 3, 4})
	require.NoError(t, err)

	require.NoError(t, d.Pause())
	assert.True(t, d.Paused())
	assert.False(t, dev.Running())
	assert.Equal(t, 4, d.Buffered(), "pause keeps queued audio")

	require.NoError(t, d.Resume())
	assert.False(t, d.Paused())

	require.NoError(t, d.Flush())
	assert.True(t, d.Paused(), "flush leaves the driver paused")
	assert.Equal(t, 0, d.Buffered())
}

func TestPassthroughRender(t *testing.T) {
	d, dev := openDigital(t)
	assert.Equal(t, ModePassthrough, d.Mode())

	frame := bytes.Repeat([]byte{0x77, 0x0b}, 4)
	_, err := d.Submit(frame)
	require.NoError(t, err)

	out, filled := dev.PullRaw(16)
	assert.Equal(t, 8, filled, "passthrough returns the short count")
	assert.Equal(t, frame, out[:8])
}

func TestPassthroughMuteDrains(t *testing.T) {
	d, dev := openDigital(t)

	_, err := d.Submit([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)
	d.SetMuted(true)

	_, filled := dev.PullRaw(4)
	assert.Equal(t, 0, filled, "muted passthrough emits nothing")
	assert.Equal(t, 4, d.Buffered(), "but still discards queued bytes")

	assert.Equal(t, 0, d.Volume())
	d.SetMuted(false)
	assert.Equal(t, 100, d.Volume())
}

func TestPassthroughRejectsVolume(t *testing.T) {
	d, _ := openDigital(t)
	assert.Error(t, d.SetVolume(50))
}

func TestPassthroughFormatChangeRestores(t *testing.T) {
	d, dev := openDigital(t)

	_, err := d.Submit([]byte{1, 2, 3, 4})
	require.NoError(t, err)

	dev.TriggerFormatChange()

	_, err = d.Submit([]byte{5, 6, 7, 8})
	require.NoError(t, err)
	assert.Equal(t, 1, dev.RestoreCount())
	assert.Equal(t, 4, d.Buffered(), "stale queue dropped, new bytes kept")
	assert.Equal(t, []byte{5, 6, 7, 8}, dev.Pull(4))
}

func TestOpenRejectsAC3OnAnalogDevice(t *testing.T) {
	dev := hardware.NewMockDevice(false)
	_, err := Open(dev, ac3Format(), Options{Volume: 100})
	assert.Error(t, err)
}

func TestLatency(t *testing.T) {
	d, _ := openAnalog(t)

	// 19200 bytes at 192000 B/s = 100ms.
	_, err := d.Submit(make([]byte, 19200))
	require.NoError(t, err)
	assert.InDelta(t, float64(100*time.Millisecond), float64(d.Latency()), float64(time.Millisecond))
}

func TestDrain(t *testing.T) {
	d, dev := openAnalog(t)

	_, err := d.Submit([]byte{1, 2, 3, 4})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		done <- d.Drain(ctx)
	}()

	// Emulate the audio thread consuming while Drain waits.
	deadline := time.After(time.Second)
	for d.Buffered() > 0 {
		dev.Pull(2)
		select {
		case <-deadline:
			t.Fatal("queue never drained")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	require.NoError(t, <-done)
}

func TestDrainTimeout(t *testing.T) {
	d, _ := openAnalog(t)

	_, err := d.Submit([]byte{1, 2, 3, 4})
	require.NoError(t, err)
	require.NoError(t, d.Pause())

	// The mock never consumes on its own, so the deadline must win.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Drain(ctx), context.DeadlineExceeded)
}

func TestCloseIdempotent(t *testing.T) {
	d, dev := openAnalog(t)

	_, err := d.Submit([]byte{1, 2})
	require.NoError(t, err)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
	assert.False(t, dev.Running())

	_, err = d.Submit([]byte{1, 2})
	assert.Error(t, err)
	assert.Error(t, d.Flush())
}
