package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/andre-d/mpv/pkg/logging"
)

// handleGetStatus reports the output driver's current state.
func (d *Daemon) handleGetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"device":     d.device.Name(),
		"format":     d.driver.Format().String(),
		"mode":       d.driver.Mode().String(),
		"paused":     d.driver.Paused(),
		"muted":      d.driver.Muted(),
		"volume":     d.driver.Volume(),
		"buffered":   d.driver.Buffered(),
		"available":  d.driver.Available(),
		"latency_ms": d.driver.Latency().Milliseconds(),
		"underruns":  d.driver.Underruns(),
	})
}

func (d *Daemon) handlePause(c *gin.Context) {
	if err := d.driver.Pause(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

func (d *Daemon) handleResume(c *gin.Context) {
	if err := d.driver.Resume(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": false})
}

// handleFlush drops queued audio, e.g. on a seek.
func (d *Daemon) handleFlush(c *gin.Context) {
	if err := d.driver.Flush(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"flushed": true})
}

func (d *Daemon) handleSetVolume(c *gin.Context) {
	var req struct {
		Volume int `json:"volume" binding:"min=0,max=100"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := d.driver.SetVolume(req.Volume); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"volume": req.Volume})
}

func (d *Daemon) handleSetMute(c *gin.Context) {
	var req struct {
		Muted bool `json:"muted"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d.driver.SetMuted(req.Muted)
	c.JSON(http.StatusOK, gin.H{"muted": req.Muted})
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local control surface
	},
}

// handlePCMWebSocket accepts binary PCM over a websocket and feeds it
// to the output driver. A full ring exerts backpressure by making the
// handler wait before reading the next message.
func (d *Daemon) handlePCMWebSocket(c *gin.Context) {
	if !d.producerMu.TryLock() {
		c.JSON(http.StatusConflict, gin.H{"error": "another PCM producer is connected"})
		return
	}
	defer d.producerMu.Unlock()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Errorf("web", "websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	logging.Info("web", "PCM producer connected")
	defer logging.Info("web", "PCM producer disconnected")

	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Warnf("web", "websocket read error: %v", err)
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}

		for len(data) > 0 {
			n, err := d.driver.Submit(data)
			if err != nil {
				logging.Errorf("web", "submit failed: %v", err)
				return
			}
			data = data[n:]
			if len(data) > 0 {
				// Ring full; wait for the audio thread to make room.
				select {
				case <-d.ctx.Done():
					return
				case <-time.After(10 * time.Millisecond):
				}
			}
		}
	}
}
