package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config represents the aod configuration
type Config struct {
	Audio struct {
		// Backend selects the OS audio backend: "portaudio", "oto",
		// "coreaudio", "mock" or "auto".
		Backend      string `yaml:"backend"`
		OutputDevice string `yaml:"output_device"`

		// Stream parameters
		SampleRate   int    `yaml:"sample_rate"`
		Channels     int    `yaml:"channels"`
		SampleFormat string `yaml:"sample_format"`

		// BufferMs is the target ring buffer duration in milliseconds.
		BufferMs int `yaml:"buffer_ms"`

		// Volume is the initial soft volume (0-100).
		Volume int `yaml:"volume"`
	} `yaml:"audio"`

	Web struct {
		Port        int    `yaml:"port"`
		BindAddress string `yaml:"bind_address"`
	} `yaml:"web"`

	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		Console    bool   `yaml:"console"`
		Structured bool   `yaml:"structured"`
		MaxSize    int    `yaml:"max_size"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	var config Config
	config.applyDefaults()
	return &config
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (config *Config) applyDefaults() {
	if config.Audio.Backend == "" {
		config.Audio.Backend = "auto"
	}
	if config.Audio.SampleRate == 0 {
		config.Audio.SampleRate = 48000
	}
	if config.Audio.Channels == 0 {
		config.Audio.Channels = 2
	}
	if config.Audio.SampleFormat == "" {
		config.Audio.SampleFormat = "s16le"
	}
	if config.Audio.BufferMs == 0 {
		config.Audio.BufferMs = 500
	}
	if config.Audio.Volume == 0 {
		config.Audio.Volume = 100
	}
	if config.Web.Port == 0 {
		config.Web.Port = 8080
	}
	if config.Web.BindAddress == "" {
		config.Web.BindAddress = "0.0.0.0"
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.MaxSize == 0 {
		config.Logging.MaxSize = 10
	}
	if config.Logging.MaxBackups == 0 {
		config.Logging.MaxBackups = 3
	}
	if config.Logging.MaxAge == 0 {
		config.Logging.MaxAge = 28
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Audio.Backend {
	case "auto", "portaudio", "oto", "coreaudio", "mock":
	default:
		return fmt.Errorf("unknown audio backend %q", c.Audio.Backend)
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("sample rate %d out of range", c.Audio.SampleRate)
	}
	if c.Audio.Channels < 1 || c.Audio.Channels > 8 {
		return fmt.Errorf("channel count %d out of range", c.Audio.Channels)
	}
	if c.Audio.BufferMs < 10 || c.Audio.BufferMs > 5000 {
		return fmt.Errorf("buffer_ms %d out of range", c.Audio.BufferMs)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 100 {
		return fmt.Errorf("volume %d out of range", c.Audio.Volume)
	}
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port %d out of range", c.Web.Port)
	}
	return nil
}
