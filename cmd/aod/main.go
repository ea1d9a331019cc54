package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/andre-d/mpv/pkg/config"
	"github.com/andre-d/mpv/pkg/hardware"
	"github.com/andre-d/mpv/pkg/logging"
)

var (
	configPath  = flag.String("config", "config.yaml", "Configuration file path")
	version     = flag.Bool("version", false, "Show version information")
	listDevices = flag.Bool("list-devices", false, "List audio output devices and exit")
)

const (
	Version = "0.1.0-dev"
	Build   = "development"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("aod version %s (%s)\n", Version, Build)
		os.Exit(0)
	}

	if *listDevices {
		names, err := hardware.ListOutputDevices()
		if err != nil {
			log.Fatalf("Failed to list devices: %v", err)
		}
		for _, n := range names {
			fmt.Println(n)
		}
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logging.InitGlobalLogger(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseGlobalLogger()

	logging.Infof("main", "aod version %s starting...", Version)
	logging.Infof("main", "Audio: backend=%s %dHz %dch %s",
		cfg.Audio.Backend, cfg.Audio.SampleRate, cfg.Audio.Channels, cfg.Audio.SampleFormat)
	logging.Infof("main", "API: http://%s:%d", cfg.Web.BindAddress, cfg.Web.Port)

	daemon, err := NewDaemon(cfg)
	if err != nil {
		logging.Errorf("main", "Failed to create daemon: %v", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := daemon.Start(); err != nil {
		logging.Errorf("main", "Failed to start daemon: %v", err)
		os.Exit(1)
	}

	logging.Info("main", "aod started successfully")

	<-sigChan
	logging.Info("main", "Shutting down...")

	if err := daemon.Stop(); err != nil {
		logging.Errorf("main", "Error during shutdown: %v", err)
		os.Exit(1)
	}
}
