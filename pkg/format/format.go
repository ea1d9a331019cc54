// Package format describes PCM and compressed audio stream formats
// and the byte-rate math the output layer sizes its buffers with.
package format

import (
	"fmt"
	"strings"
	"time"
)

// SampleFormat identifies the encoding of a single sample.
type SampleFormat int

const (
	U8 SampleFormat = iota
	S16LE
	S16BE
	S32LE
	FloatLE
	AC3LE
	AC3BE
)

// String returns the canonical lowercase name used in configs.
func (f SampleFormat) String() string {
	switch f {
	case U8:
		return "u8"
	case S16LE:
		return "s16le"
	case S16BE:
		return "s16be"
	case S32LE:
		return "s32le"
	case FloatLE:
		return "floatle"
	case AC3LE:
		return "ac3le"
	case AC3BE:
		return "ac3be"
	default:
		return "unknown"
	}
}

// ParseSampleFormat parses a config-file sample format name.
func ParseSampleFormat(s string) (SampleFormat, error) {
	switch strings.ToLower(s) {
	case "u8":
		return U8, nil
	case "s16le", "s16", "":
		return S16LE, nil
	case "s16be":
		return S16BE, nil
	case "s32le", "s32":
		return S32LE, nil
	case "float", "floatle":
		return FloatLE, nil
	case "ac3", "ac3le", "spdif":
		return AC3LE, nil
	case "ac3be":
		return AC3BE, nil
	default:
		return S16LE, fmt.Errorf("unknown sample format %q", s)
	}
}

// BytesPerSample returns the storage size of one sample. AC3 is a
// packed IEC 61937 bitstream carried in 16-bit words.
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case U8:
		return 1
	case S32LE, FloatLE:
		return 4
	default:
		return 2
	}
}

// IsAC3 reports whether the format is a compressed AC3 bitstream that
// wants digital passthrough rather than PCM rendering.
func (f SampleFormat) IsAC3() bool {
	return f == AC3LE || f == AC3BE
}

// Format describes one audio stream at the output boundary.
type Format struct {
	SampleRate int
	Channels   int
	Sample     SampleFormat
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz %dch %s", f.SampleRate, f.Channels, f.Sample)
}

// Validate checks the format is usable for output.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	if f.Channels <= 0 || f.Channels > 8 {
		return fmt.Errorf("invalid channel count %d", f.Channels)
	}
	return nil
}

// BytesPerFrame returns the size of one interleaved frame (one sample
// for every channel).
func (f Format) BytesPerFrame() int {
	return f.Channels * f.Sample.BytesPerSample()
}

// BytesPerSecond returns the stream's byte rate.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.BytesPerFrame()
}

// SizeForDuration converts a target buffering duration into a byte
// count, rounded down to a whole frame and never smaller than one
// frame. Output drivers use this to size their ring buffer.
func (f Format) SizeForDuration(d time.Duration) int {
	n := int(float64(f.BytesPerSecond()) * d.Seconds())
	n -= n % f.BytesPerFrame()
	if n < f.BytesPerFrame() {
		n = f.BytesPerFrame()
	}
	return n
}
