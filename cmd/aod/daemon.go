package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andre-d/mpv/pkg/ao"
	"github.com/andre-d/mpv/pkg/config"
	"github.com/andre-d/mpv/pkg/format"
	"github.com/andre-d/mpv/pkg/hardware"
	"github.com/andre-d/mpv/pkg/logging"
)

// Daemon owns the audio output driver and the HTTP control surface.
// PCM arrives over a websocket and is fed to the driver; the REST API
// exposes transport controls and status.
type Daemon struct {
	config *config.Config
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	device    hardware.OutputDevice
	driver    *ao.Driver
	webServer *http.Server

	// One websocket producer at a time; the ring is single-producer.
	producerMu sync.Mutex
}

// NewDaemon opens the configured audio backend and builds the web
// server. The driver starts paused until audio arrives.
func NewDaemon(cfg *config.Config) (*Daemon, error) {
	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	sample, err := format.ParseSampleFormat(cfg.Audio.SampleFormat)
	if err != nil {
		cancel()
		return nil, err
	}
	f := format.Format{
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		Sample:     sample,
	}

	d.device, err = hardware.NewOutputDevice(cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create audio device: %w", err)
	}

	d.driver, err = ao.Open(d.device, f, ao.Options{
		BufferDuration: time.Duration(cfg.Audio.BufferMs) * time.Millisecond,
		Volume:         cfg.Audio.Volume,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open audio output: %w", err)
	}

	d.setupWebServer()
	return d, nil
}

// Start launches the web server.
func (d *Daemon) Start() error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		addr := fmt.Sprintf("%s:%d", d.config.Web.BindAddress, d.config.Web.Port)
		logging.Infof("daemon", "starting web server on %s", addr)
		if err := d.webServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Errorf("daemon", "web server error: %v", err)
		}
	}()
	return nil
}

// Stop shuts everything down gracefully: web server first so no new
// audio arrives, then the output driver.
func (d *Daemon) Stop() error {
	logging.Info("daemon", "stopping...")

	d.cancel()

	if d.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.webServer.Shutdown(ctx); err != nil {
			logging.Errorf("daemon", "web server shutdown error: %v", err)
		}
	}

	if d.driver != nil {
		if err := d.driver.Close(); err != nil {
			logging.Errorf("daemon", "audio driver shutdown error: %v", err)
		}
	}

	d.wg.Wait()
	logging.Info("daemon", "stopped")
	return nil
}

// setupWebServer initializes the web server and routes
func (d *Daemon) setupWebServer() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	{
		api.GET("/status", d.handleGetStatus)
		api.POST("/pause", d.handlePause)
		api.POST("/resume", d.handleResume)
		api.POST("/flush", d.handleFlush)
		api.POST("/volume", d.handleSetVolume)
		api.POST("/mute", d.handleSetMute)
	}

	router.GET("/ws/pcm", d.handlePCMWebSocket)

	d.webServer = &http.Server{
		Handler: router,
		Addr:    fmt.Sprintf("%s:%d", d.config.Web.BindAddress, d.config.Web.Port),
	}
}
