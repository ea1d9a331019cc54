package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andre-d/mpv/pkg/config"
	"github.com/andre-d/mpv/pkg/format"
)

func TestMockDeviceLifecycle(t *testing.T) {
	d := NewMockDevice(false)
	f := format.Format{SampleRate: 48000, Channels: 2, Sample: format.S16LE}

	render := func(out []byte) int {
		for i := range out {
			out[i] = 0x42
		}
		return len(out)
	}

	got, err := d.Open(f, render)
	require.NoError(t, err)
	assert.Equal(t, f, got)

	// No pulls before Start.
	assert.Nil(t, d.Pull(8))

	require.NoError(t, d.Start())
	assert.True(t, d.Running())
	assert.Equal(t, []byte{0x42, 0x42, 0x42, 0x42}, d.Pull(4))

	require.NoError(t, d.Stop())
	assert.Nil(t, d.Pull(8))
	assert.Equal(t, 1, d.StartCount())
	assert.Equal(t, 1, d.StopCount())

	require.NoError(t, d.Close())
	assert.Error(t, d.Start())
}

func TestMockDeviceDoubleOpen(t *testing.T) {
	d := NewMockDevice(false)
	f := format.Format{SampleRate: 48000, Channels: 2, Sample: format.S16LE}
	render := func(out []byte) int { return 0 }

	_, err := d.Open(f, render)
	require.NoError(t, err)
	_, err = d.Open(f, render)
	assert.Error(t, err)
}

func TestMockDeviceDigital(t *testing.T) {
	d := NewMockDevice(true)

	ac3 := format.Format{SampleRate: 48000, Channels: 2, Sample: format.AC3LE}
	pcm := format.Format{SampleRate: 48000, Channels: 2, Sample: format.S16LE}
	assert.True(t, d.SupportsDigital(ac3))
	assert.False(t, d.SupportsDigital(pcm))

	require.NoError(t, d.RestoreDigitalFormat())
	assert.Equal(t, 1, d.RestoreCount())

	analog := NewMockDevice(false)
	assert.False(t, analog.SupportsDigital(ac3))
	assert.Error(t, analog.RestoreDigitalFormat())
}

type countingNotifier struct{ n int }

func (c *countingNotifier) Notify() { c.n++ }

func TestMockDeviceFormatNotifier(t *testing.T) {
	d := NewMockDevice(true)

	// No notifier registered, must not panic.
	d.TriggerFormatChange()

	n := &countingNotifier{}
	d.SetFormatNotifier(n)
	d.TriggerFormatChange()
	d.TriggerFormatChange()
	assert.Equal(t, 2, n.n)
}

func TestNewOutputDeviceSelection(t *testing.T) {
	cfg := config.DefaultConfig()

	cfg.Audio.Backend = "mock"
	d, err := NewOutputDevice(cfg)
	require.NoError(t, err)
	assert.Equal(t, "mock", d.Name())

	cfg.Audio.Backend = "bogus"
	_, err = NewOutputDevice(cfg)
	assert.Error(t, err)
}
