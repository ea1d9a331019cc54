package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseSampleFormat(t *testing.T) {
	tests := []struct {
		in   string
		want SampleFormat
		ok   bool
	}{
		{"s16le", S16LE, true},
		{"S16LE", S16LE, true},
		{"", S16LE, true},
		{"u8", U8, true},
		{"float", FloatLE, true},
		{"ac3", AC3LE, true},
		{"spdif", AC3LE, true},
		{"dsd", S16LE, false},
	}
	for _, tt := range tests {
		got, err := ParseSampleFormat(tt.in)
		if tt.ok {
			assert.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got, tt.in)
		} else {
			assert.Error(t, err, tt.in)
		}
	}
}

func TestBytesPerFrame(t *testing.T) {
	f := Format{SampleRate: 48000, Channels: 2, Sample: S16LE}
	assert.Equal(t, 4, f.BytesPerFrame())
	assert.Equal(t, 192000, f.BytesPerSecond())

	mono8 := Format{SampleRate: 8000, Channels: 1, Sample: U8}
	assert.Equal(t, 1, mono8.BytesPerFrame())
	assert.Equal(t, 8000, mono8.BytesPerSecond())
}

func TestSizeForDuration(t *testing.T) {
	f := Format{SampleRate: 48000, Channels: 2, Sample: S16LE}

	// Half a second at 192000 B/s.
	assert.Equal(t, 96000, f.SizeForDuration(500*time.Millisecond))

	// Rounded down to a whole frame.
	odd := Format{SampleRate: 44100, Channels: 2, Sample: S16LE}
	size := odd.SizeForDuration(333 * time.Millisecond)
	assert.Zero(t, size%odd.BytesPerFrame())

	// Never below one frame.
	assert.Equal(t, f.BytesPerFrame(), f.SizeForDuration(time.Nanosecond))
}

func TestIsAC3(t *testing.T) {
	assert.True(t, AC3LE.IsAC3())
	assert.True(t, AC3BE.IsAC3())
	assert.False(t, S16LE.IsAC3())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Format{SampleRate: 48000, Channels: 2, Sample: S16LE}.Validate())
	assert.Error(t, Format{SampleRate: 0, Channels: 2}.Validate())
	assert.Error(t, Format{SampleRate: 48000, Channels: 0}.Validate())
	assert.Error(t, Format{SampleRate: 48000, Channels: 9}.Validate())
}
