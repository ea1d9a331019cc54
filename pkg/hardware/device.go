// Package hardware contains the OS audio output backends. Each
// backend adapts one vendor audio API to the OutputDevice interface
// the output driver in pkg/ao is written against.
package hardware

import (
	"fmt"
	"runtime"

	"github.com/andre-d/mpv/pkg/config"
	"github.com/andre-d/mpv/pkg/format"
)

// RenderFunc is the pull callback a backend invokes from its audio
// thread whenever the OS wants more bytes. It must fill out with up
// to len(out) bytes and return the count actually produced. It must
// not block, allocate, or log.
//
// A backend must not invoke the render callback before Start is
// called or after Stop returns; the driver relies on this to size and
// reset its buffer safely.
type RenderFunc func(out []byte) int

// OutputDevice is a pull-model audio output.
//
// Open negotiates the stream format and installs the render callback
// but leaves the device stopped. The returned format is what the
// device actually runs at; it may differ from the request.
type OutputDevice interface {
	Name() string
	Open(f format.Format, render RenderFunc) (format.Format, error)
	Start() error
	Stop() error
	Close() error
}

// FormatNotifier receives out-of-band device/stream format change
// notifications from a backend. Implemented by ao.FormatChangeListener.
type FormatNotifier interface {
	Notify()
}

// DigitalOutputDevice is implemented by backends capable of
// compressed bitstream passthrough (S/PDIF AC3).
type DigitalOutputDevice interface {
	OutputDevice

	// SupportsDigital probes whether the underlying device can carry
	// the given compressed format.
	SupportsDigital(f format.Format) bool

	// SetFormatNotifier registers the object notified when the device
	// reports its stream format changed behind our back.
	SetFormatNotifier(n FormatNotifier)

	// RestoreDigitalFormat re-applies the negotiated digital stream
	// format after an external change.
	RestoreDigitalFormat() error
}

// NewOutputDevice builds the backend selected by the configuration.
// "auto" prefers the native backend on macOS and portaudio elsewhere.
func NewOutputDevice(cfg *config.Config) (OutputDevice, error) {
	backend := cfg.Audio.Backend
	if backend == "" || backend == "auto" {
		if runtime.GOOS == "darwin" {
			backend = "coreaudio"
		} else {
			backend = "portaudio"
		}
	}

	switch backend {
	case "portaudio":
		return NewPortAudioDevice(cfg.Audio.OutputDevice), nil
	case "oto":
		return NewOtoDevice(), nil
	case "coreaudio":
		return NewCoreAudioDevice(cfg.Audio.OutputDevice)
	case "mock":
		return NewMockDevice(true), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}
}
