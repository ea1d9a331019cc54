package hardware

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/andre-d/mpv/pkg/format"
	"github.com/andre-d/mpv/pkg/logging"
)

var (
	paInitMutex sync.Mutex
	paInitCount int
)

// safePortAudioInit initializes PortAudio on first use. Init/terminate
// are refcounted so multiple devices can coexist in one process.
func safePortAudioInit() error {
	paInitMutex.Lock()
	defer paInitMutex.Unlock()

	if paInitCount == 0 {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("portaudio initialization failed: %w", err)
		}
	}
	paInitCount++
	return nil
}

func safePortAudioTerminate() {
	paInitMutex.Lock()
	defer paInitMutex.Unlock()

	paInitCount--
	if paInitCount <= 0 {
		portaudio.Terminate()
		paInitCount = 0
	}
}

// PortAudioDevice adapts a PortAudio output stream to OutputDevice.
// PortAudio drives the stream callback from its own audio thread, so
// this is a true pull-model backend.
type PortAudioDevice struct {
	name string

	stream  *portaudio.Stream
	render  RenderFunc
	scratch []byte
	opened  bool
	started bool
}

// NewPortAudioDevice creates a PortAudio output backend. name selects
// the output device by exact or partial match; empty means the
// system default.
func NewPortAudioDevice(name string) *PortAudioDevice {
	return &PortAudioDevice{name: name}
}

// Name returns the backend name
func (d *PortAudioDevice) Name() string {
	if d.name == "" {
		return "portaudio"
	}
	return "portaudio:" + d.name
}

// Open negotiates an int16 interleaved output stream and installs the
// render callback. The stream is created stopped.
func (d *PortAudioDevice) Open(f format.Format, render RenderFunc) (format.Format, error) {
	if d.opened {
		return format.Format{}, fmt.Errorf("portaudio device already open")
	}
	if f.Sample.IsAC3() {
		return format.Format{}, fmt.Errorf("portaudio backend cannot do digital passthrough")
	}
	if f.Sample != format.S16LE {
		return format.Format{}, fmt.Errorf("portaudio backend requires s16le, got %s", f.Sample)
	}

	if err := safePortAudioInit(); err != nil {
		return format.Format{}, err
	}

	dev, err := d.findOutputDevice()
	if err != nil {
		safePortAudioTerminate()
		return format.Format{}, err
	}

	logging.Infof("portaudio", "using output device: %s (channels: %d, default rate: %.0f)",
		dev.Name, dev.MaxOutputChannels, dev.DefaultSampleRate)

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: f.Channels,
			Latency:  dev.DefaultLowOutputLatency,
		},
		SampleRate:      float64(f.SampleRate),
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}

	d.render = render
	stream, err := portaudio.OpenStream(params, d.streamCallback)
	if err != nil {
		safePortAudioTerminate()
		return format.Format{}, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	d.stream = stream
	d.opened = true
	return f, nil
}

// streamCallback runs on the PortAudio audio thread. It asks the
// driver for bytes and converts them to the interleaved int16 frames
// PortAudio wants. The driver zero-fills short reads, so underruns
// come out as silence.
func (d *PortAudioDevice) streamCallback(out []int16) {
	want := len(out) * 2
	if cap(d.scratch) < want {
		// Growth only happens when PortAudio enlarges its buffer,
		// which it does outside the steady state.
		d.scratch = make([]byte, want)
	}
	buf := d.scratch[:want]
	d.render(buf)

	for i := range out {
		out[i] = int16(buf[i*2]) | int16(buf[i*2+1])<<8
	}
}

func (d *PortAudioDevice) findOutputDevice() (*portaudio.DeviceInfo, error) {
	if d.name == "" {
		dev, err := portaudio.DefaultOutputDevice()
		if err != nil {
			return nil, fmt.Errorf("no default output device: %w", err)
		}
		return dev, nil
	}

	apis, err := portaudio.HostApis()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	// Exact match first, then substring.
	for _, api := range apis {
		for _, dev := range api.Devices {
			if dev.MaxOutputChannels > 0 && dev.Name == d.name {
				return dev, nil
			}
		}
	}
	for _, api := range apis {
		for _, dev := range api.Devices {
			if dev.MaxOutputChannels > 0 && strings.Contains(dev.Name, d.name) {
				return dev, nil
			}
		}
	}
	return nil, fmt.Errorf("output device %q not found", d.name)
}

// Start begins callback delivery
func (d *PortAudioDevice) Start() error {
	if !d.opened {
		return fmt.Errorf("portaudio device not open")
	}
	if d.started {
		return nil
	}
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("failed to start portaudio stream: %w", err)
	}
	d.started = true
	return nil
}

// Stop halts callback delivery, keeping the stream open
func (d *PortAudioDevice) Stop() error {
	if !d.started {
		return nil
	}
	if err := d.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop portaudio stream: %w", err)
	}
	d.started = false
	return nil
}

// Close tears down the stream and releases PortAudio
func (d *PortAudioDevice) Close() error {
	if !d.opened {
		return nil
	}
	d.Stop()

	err := d.stream.Close()
	d.stream = nil
	d.opened = false
	safePortAudioTerminate()
	if err != nil {
		return fmt.Errorf("failed to close portaudio stream: %w", err)
	}
	return nil
}

// ListOutputDevices enumerates PortAudio output-capable devices for
// diagnostics and the -list-devices flag.
func ListOutputDevices() ([]string, error) {
	if err := safePortAudioInit(); err != nil {
		return nil, err
	}
	defer safePortAudioTerminate()

	apis, err := portaudio.HostApis()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	var names []string
	for _, api := range apis {
		for _, dev := range api.Devices {
			if dev.MaxOutputChannels > 0 {
				names = append(names, fmt.Sprintf("%s (%s, %d ch, %.0f Hz, %s latency)",
					dev.Name, api.Name, dev.MaxOutputChannels, dev.DefaultSampleRate,
					dev.DefaultLowOutputLatency.Round(time.Millisecond)))
			}
		}
	}
	return names, nil
}
