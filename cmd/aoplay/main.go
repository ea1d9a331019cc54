// aoplay plays a WAV file through the audio output driver. It is the
// quickest way to exercise a backend end to end without the daemon.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/andre-d/mpv/pkg/ao"
	"github.com/andre-d/mpv/pkg/config"
	"github.com/andre-d/mpv/pkg/format"
	"github.com/andre-d/mpv/pkg/hardware"
	"github.com/andre-d/mpv/pkg/logging"
)

var (
	configPath = flag.String("config", "", "Configuration file path (optional)")
	deviceName = flag.String("device", "", "Output device name override")
	backend    = flag.String("backend", "", "Audio backend override")
	volume     = flag.Int("volume", 100, "Soft volume (0-100)")
)

func main() {
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: aoplay [flags] file.wav\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	if *deviceName != "" {
		cfg.Audio.OutputDevice = *deviceName
	}
	if *backend != "" {
		cfg.Audio.Backend = *backend
	}
	cfg.Logging.Console = true

	if err := logging.InitGlobalLogger(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseGlobalLogger()

	if err := play(cfg, flag.Arg(0)); err != nil {
		logging.Errorf("aoplay", "%v", err)
		os.Exit(1)
	}
}

func play(cfg *config.Config, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return fmt.Errorf("%s: not a valid WAV file", path)
	}
	dec.ReadInfo()

	f := format.Format{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		Sample:     format.S16LE,
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	dev, err := hardware.NewOutputDevice(cfg)
	if err != nil {
		return err
	}

	drv, err := ao.Open(dev, f, ao.Options{Volume: *volume})
	if err != nil {
		return err
	}
	defer drv.Close()

	// Stop playback cleanly on Ctrl-C.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	logging.Infof("aoplay", "playing %s (%s)", path, drv.Format())

	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: f.Channels, SampleRate: f.SampleRate},
		Data:   make([]int, 4096*f.Channels),
	}
	pcm := make([]byte, 0, len(buf.Data)*2)

	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		if n == 0 {
			break
		}

		pcm = pcm[:0]
		for _, s := range buf.Data[:n] {
			v := sampleToS16(s, int(dec.BitDepth))
			pcm = binary.LittleEndian.AppendUint16(pcm, uint16(v))
		}

		if err := submitAll(ctx, drv, pcm); err != nil {
			return err
		}
	}

	drainCtx, drainCancel := context.WithTimeout(ctx, drv.Latency()+time.Second)
	defer drainCancel()
	if err := drv.Drain(drainCtx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("drain: %w", err)
	}
	return ctx.Err()
}

// sampleToS16 converts a decoded sample at the file's bit depth to a
// signed 16-bit value.
func sampleToS16(s, bitDepth int) int16 {
	switch {
	case bitDepth == 16:
		return int16(s)
	case bitDepth == 8:
		// WAV 8-bit is unsigned.
		return int16((s - 128) << 8)
	case bitDepth > 16:
		return int16(s >> uint(bitDepth-16))
	default:
		return int16(s << uint(16-bitDepth))
	}
}

// submitAll pushes the whole chunk, waiting out ring backpressure.
func submitAll(ctx context.Context, drv *ao.Driver, p []byte) error {
	for len(p) > 0 {
		n, err := drv.Submit(p)
		if err != nil {
			return err
		}
		p = p[n:]
		if len(p) > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(10 * time.Millisecond):
			}
		}
	}
	return nil
}
