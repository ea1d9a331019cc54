//go:build darwin

package hardware

/*
#cgo LDFLAGS: -framework AudioToolbox -framework CoreAudio -framework CoreFoundation

#include <stdlib.h>
#include "coreaudio_darwin.h"
*/
import "C"

import (
	"fmt"
	"runtime/cgo"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/andre-d/mpv/pkg/format"
	"github.com/andre-d/mpv/pkg/logging"
)

const (
	// One attempt to re-apply the digital stream format waits this
	// long for the HAL's confirmation listener to fire.
	caFormatWait  = 500 * time.Millisecond
	caFormatTries = 5
)

// CoreAudioDevice drives macOS audio output through the CoreAudio
// HAL. LPCM streams go through an AUHAL AudioUnit; AC3 passthrough
// hogs the device, disables mixing, switches the stream's physical
// format and feeds an IOProc directly.
type CoreAudioDevice struct {
	name     string
	deviceID C.AudioDeviceID

	session *C.caSession
	handle  cgo.Handle

	render    RenderFunc
	rendering atomic.Bool

	digital  bool
	notifier FormatNotifier

	// formatCh receives one token per stream-format listener event.
	formatCh chan struct{}
}

// NewCoreAudioDevice selects an output device by substring name, or
// the system default when name is empty.
func NewCoreAudioDevice(name string) (OutputDevice, error) {
	d := &CoreAudioDevice{
		name:     name,
		formatCh: make(chan struct{}, 1),
	}

	var id C.AudioDeviceID
	if name == "" {
		if err := caErr("get default output device", C.caGetDefaultOutputDevice(&id)); err != nil {
			return nil, err
		}
	} else {
		cname := C.CString(name)
		defer C.free(unsafe.Pointer(cname))
		if err := caErr("find output device", C.caFindOutputDeviceByName(cname, &id)); err != nil {
			return nil, fmt.Errorf("audio device %q: %w", name, err)
		}
	}
	d.deviceID = id

	var buf [256]C.char
	if C.caCopyDeviceName(id, &buf[0], 256) == C.noErr {
		d.name = C.GoString(&buf[0])
	}
	return d, nil
}

func (d *CoreAudioDevice) Name() string {
	if d.name == "" {
		return "coreaudio"
	}
	return "coreaudio:" + d.name
}

func (d *CoreAudioDevice) SupportsDigital(f format.Format) bool {
	if !f.Sample.IsAC3() {
		return false
	}
	return C.caDeviceSupportsDigital(d.deviceID) != 0
}

func (d *CoreAudioDevice) SetFormatNotifier(n FormatNotifier) {
	d.notifier = n
}

// Open negotiates the stream format and installs the render path.
// The device stays stopped until Start.
func (d *CoreAudioDevice) Open(f format.Format, render RenderFunc) (format.Format, error) {
	if d.session != nil {
		return format.Format{}, fmt.Errorf("coreaudio: device already open")
	}
	if err := f.Validate(); err != nil {
		return format.Format{}, err
	}

	d.render = render
	d.handle = cgo.NewHandle(d)
	d.session = C.caSessionNew(d.deviceID, C.uintptr_t(d.handle))
	if d.session == nil {
		d.handle.Delete()
		return format.Format{}, fmt.Errorf("coreaudio: session alloc failed")
	}

	if f.Sample.IsAC3() {
		got, err := d.openDigital(f)
		if err != nil {
			d.teardown()
			return format.Format{}, err
		}
		return got, nil
	}

	got, err := d.openLPCM(f)
	if err != nil {
		d.teardown()
		return format.Format{}, err
	}
	return got, nil
}

func (d *CoreAudioDevice) openLPCM(f format.Format) (format.Format, error) {
	// The AUHAL only consumes packed integer PCM here; everything
	// else is converted by the caller.
	switch f.Sample {
	case format.S16LE, format.S32LE:
	default:
		f.Sample = format.S16LE
	}

	useDefault := 0
	if d.name == "" {
		useDefault = 1
	}
	bits := C.int(f.Sample.BytesPerSample() * 8)
	err := caErr("open audio unit", C.caOpenLPCM(d.session,
		C.double(f.SampleRate), C.int(f.Channels), bits, C.int(useDefault)))
	if err != nil {
		return format.Format{}, err
	}

	logging.Debugf("coreaudio", "opened LPCM unit for %s", f)
	return f, nil
}

func (d *CoreAudioDevice) openDigital(f format.Format) (format.Format, error) {
	s := d.session

	if C.caDeviceSupportsDigital(d.deviceID) == 0 {
		return format.Format{}, fmt.Errorf("coreaudio: device %q has no AC3 capable stream", d.name)
	}

	// Exclusive access first; a hogged device cannot be stolen by
	// another process mid-stream.
	if err := caErr("hog device", C.caHogDevice(s)); err != nil {
		return format.Format{}, err
	}
	if err := caErr("disable mixing", C.caDisableMixing(s)); err != nil {
		logging.Warnf("coreaudio", "could not disable mixing: %v", err)
	}

	if err := caErr("select digital stream", C.caSelectDigitalStream(s, C.double(f.SampleRate))); err != nil {
		return format.Format{}, err
	}
	if err := caErr("install stream listener", C.caInstallStreamListener(s)); err != nil {
		return format.Format{}, err
	}
	if err := caErr("install device listener", C.caInstallDeviceListener(s)); err != nil {
		logging.Warnf("coreaudio", "device-changed listener unavailable: %v", err)
	}

	if err := d.applyDigitalFormat(); err != nil {
		return format.Format{}, err
	}

	if err := caErr("create IO proc", C.caCreateDigitalIOProc(s)); err != nil {
		return format.Format{}, err
	}

	d.digital = true
	got := f
	got.SampleRate = int(C.caDigitalSampleRate(s))
	got.Channels = 2
	logging.Infof("coreaudio", "digital passthrough on %q at %d Hz", d.name, got.SampleRate)
	return got, nil
}

// applyDigitalFormat sets the stream's physical format to the chosen
// AC3 description and waits for the HAL to confirm the switch through
// the format listener, retrying a bounded number of times.
func (d *CoreAudioDevice) applyDigitalFormat() error {
	// Drop any stale listener token.
	select {
	case <-d.formatCh:
	default:
	}

	for try := 0; try < caFormatTries; try++ {
		if err := caErr("set physical format", C.caApplyDigitalFormat(d.session)); err != nil {
			return err
		}
		if C.caDigitalFormatActive(d.session) != 0 {
			return nil
		}

		timer := time.NewTimer(caFormatWait)
		select {
		case <-d.formatCh:
			timer.Stop()
		case <-timer.C:
		}
		if C.caDigitalFormatActive(d.session) != 0 {
			return nil
		}
		logging.Debugf("coreaudio", "digital format not active yet (attempt %d)", try+1)
	}
	return fmt.Errorf("coreaudio: stream refused the digital physical format")
}

// RestoreDigitalFormat re-applies the negotiated digital format after
// something else changed the stream behind our back.
func (d *CoreAudioDevice) RestoreDigitalFormat() error {
	if !d.digital || d.session == nil {
		return nil
	}
	return d.applyDigitalFormat()
}

func (d *CoreAudioDevice) Start() error {
	if d.session == nil {
		return fmt.Errorf("coreaudio: device not open")
	}
	d.rendering.Store(true)
	var status C.OSStatus
	if d.digital {
		status = C.caStartDevice(d.session)
	} else {
		status = C.caStartUnit(d.session)
	}
	if err := caErr("start", status); err != nil {
		d.rendering.Store(false)
		return err
	}
	return nil
}

func (d *CoreAudioDevice) Stop() error {
	if d.session == nil {
		return fmt.Errorf("coreaudio: device not open")
	}
	var status C.OSStatus
	if d.digital {
		status = C.caStopDevice(d.session)
	} else {
		status = C.caStopUnit(d.session)
	}
	d.rendering.Store(false)
	return caErr("stop", status)
}

func (d *CoreAudioDevice) Close() error {
	if d.session == nil {
		return nil
	}
	d.rendering.Store(false)
	d.teardown()
	return nil
}

func (d *CoreAudioDevice) teardown() {
	s := d.session
	if s == nil {
		return
	}
	if d.digital {
		C.caDestroyDigitalIOProc(s)
		C.caRemoveStreamListener(s)
		C.caRemoveDeviceListener(s)
		if C.caDeviceIsAlive(d.deviceID) != 0 {
			C.caRevertStreamFormat(s)
		}
		C.caRestoreMixing(s)
		C.caReleaseHog(s)
		d.digital = false
	} else {
		C.caCloseLPCM(s)
	}
	C.caSessionFree(s)
	d.session = nil
	d.handle.Delete()
}

func caErr(op string, status C.OSStatus) error {
	if status == C.noErr {
		return nil
	}
	return fmt.Errorf("coreaudio: %s failed (OSStatus %d)", op, int32(status))
}

//export goCARender
func goCARender(h C.uintptr_t, buf unsafe.Pointer, bytes C.int) C.int {
	d := cgo.Handle(h).Value().(*CoreAudioDevice)
	out := unsafe.Slice((*byte)(buf), int(bytes))
	if !d.rendering.Load() {
		for i := range out {
			out[i] = 0
		}
		return bytes
	}
	n := d.render(out)
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	return C.int(n)
}

//export goCAFormatEvent
func goCAFormatEvent(h C.uintptr_t, kind C.int) {
	d := cgo.Handle(h).Value().(*CoreAudioDevice)
	switch int(kind) {
	case C.caEventStreamFormat:
		select {
		case d.formatCh <- struct{}{}:
		default:
		}
		if d.notifier != nil {
			d.notifier.Notify()
		}
	case C.caEventDeviceChanged:
		if d.notifier != nil {
			d.notifier.Notify()
		}
	}
}
