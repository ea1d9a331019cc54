package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	// Create a temporary directory for test files
	tempDir, err := os.MkdirTemp("", "aod-config-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	t.Run("Valid Config", func(t *testing.T) {
		configContent := `
audio:
  backend: "portaudio"
  output_device: "Built-in Output"
  sample_rate: 44100
  channels: 2
  sample_format: "s16le"
  buffer_ms: 250
  volume: 80

web:
  port: 9090
  bind_address: "127.0.0.1"

logging:
  level: "debug"
  file: "/tmp/aod.log"
  console: true
`
		configPath := filepath.Join(tempDir, "valid.yaml")
		if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		// Test parsed values
		if config.Audio.Backend != "portaudio" {
			t.Errorf("Expected backend portaudio, got %s", config.Audio.Backend)
		}
		if config.Audio.OutputDevice != "Built-in Output" {
			t.Errorf("Expected output device Built-in Output, got %s", config.Audio.OutputDevice)
		}
		if config.Audio.SampleRate != 44100 {
			t.Errorf("Expected sample rate 44100, got %d", config.Audio.SampleRate)
		}
		if config.Audio.BufferMs != 250 {
			t.Errorf("Expected buffer_ms 250, got %d", config.Audio.BufferMs)
		}
		if config.Audio.Volume != 80 {
			t.Errorf("Expected volume 80, got %d", config.Audio.Volume)
		}
		if config.Web.Port != 9090 {
			t.Errorf("Expected web port 9090, got %d", config.Web.Port)
		}
		if !config.Logging.Console {
			t.Error("Expected console logging enabled")
		}
	})

	t.Run("Defaults Applied", func(t *testing.T) {
		configPath := filepath.Join(tempDir, "minimal.yaml")
		if err := os.WriteFile(configPath, []byte("audio: {}\n"), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if config.Audio.Backend != "auto" {
			t.Errorf("Expected default backend auto, got %s", config.Audio.Backend)
		}
		if config.Audio.SampleRate != 48000 {
			t.Errorf("Expected default sample rate 48000, got %d", config.Audio.SampleRate)
		}
		if config.Audio.Channels != 2 {
			t.Errorf("Expected default channels 2, got %d", config.Audio.Channels)
		}
		if config.Audio.SampleFormat != "s16le" {
			t.Errorf("Expected default sample format s16le, got %s", config.Audio.SampleFormat)
		}
		if config.Audio.BufferMs != 500 {
			t.Errorf("Expected default buffer_ms 500, got %d", config.Audio.BufferMs)
		}
		if config.Audio.Volume != 100 {
			t.Errorf("Expected default volume 100, got %d", config.Audio.Volume)
		}
		if config.Web.Port != 8080 {
			t.Errorf("Expected default web port 8080, got %d", config.Web.Port)
		}
		if config.Logging.Level != "info" {
			t.Errorf("Expected default log level info, got %s", config.Logging.Level)
		}
		if config.Logging.MaxSize != 10 {
			t.Errorf("Expected default max_size 10, got %d", config.Logging.MaxSize)
		}
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(tempDir, "nonexistent.yaml"))
		if err == nil {
			t.Error("Expected error for missing config file")
		}
	})

	t.Run("Invalid YAML", func(t *testing.T) {
		configPath := filepath.Join(tempDir, "invalid.yaml")
		if err := os.WriteFile(configPath, []byte("audio: [unclosed"), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		_, err := LoadConfig(configPath)
		if err == nil {
			t.Error("Expected error for invalid YAML")
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.Audio.Backend = "mock"
		c.Audio.SampleRate = 48000
		c.Audio.Channels = 2
		c.Audio.SampleFormat = "s16le"
		c.Audio.BufferMs = 500
		c.Audio.Volume = 100
		c.Web.Port = 8080
		return c
	}

	t.Run("Valid", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("Expected no error, got: %v", err)
		}
	})

	t.Run("Unknown Backend", func(t *testing.T) {
		c := valid()
		c.Audio.Backend = "pulseaudio"
		if err := c.Validate(); err == nil {
			t.Error("Expected error for unknown backend")
		}
	})

	t.Run("Sample Rate Out Of Range", func(t *testing.T) {
		c := valid()
		c.Audio.SampleRate = 1000
		if err := c.Validate(); err == nil {
			t.Error("Expected error for out-of-range sample rate")
		}
	})

	t.Run("Bad Channel Count", func(t *testing.T) {
		c := valid()
		c.Audio.Channels = 16
		if err := c.Validate(); err == nil {
			t.Error("Expected error for out-of-range channel count")
		}
	})

	t.Run("Bad Buffer Duration", func(t *testing.T) {
		c := valid()
		c.Audio.BufferMs = 1
		if err := c.Validate(); err == nil {
			t.Error("Expected error for out-of-range buffer_ms")
		}
	})

	t.Run("Bad Volume", func(t *testing.T) {
		c := valid()
		c.Audio.Volume = 150
		if err := c.Validate(); err == nil {
			t.Error("Expected error for out-of-range volume")
		}
	})

	t.Run("Bad Port", func(t *testing.T) {
		c := valid()
		c.Web.Port = 70000
		if err := c.Validate(); err == nil {
			t.Error("Expected error for out-of-range port")
		}
	})
}
