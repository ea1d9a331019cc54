package ao

import (
	"sync/atomic"
	"time"
)

// FormatChangeListener collects out-of-band stream format change
// notifications from an audio backend. The backend's HAL thread calls
// Notify; the driver polls TakePending from Submit, and the open path
// can block in AwaitChange while confirming a format switch.
//
// Notify never blocks, so it is safe to call from a realtime thread.
type FormatChangeListener struct {
	pending atomic.Bool
	ch      chan struct{}
}

// NewFormatChangeListener returns a listener ready to register with a
// backend via SetFormatNotifier.
func NewFormatChangeListener() *FormatChangeListener {
	return &FormatChangeListener{ch: make(chan struct{}, 1)}
}

// Notify records that the device's format changed. Coalesces repeated
// notifications until the next TakePending or AwaitChange.
func (l *FormatChangeListener) Notify() {
	l.pending.Store(true)
	select {
	case l.ch <- struct{}{}:
	default:
	}
}

// TakePending reports whether a change arrived since the last call,
// and clears the flag.
func (l *FormatChangeListener) TakePending() bool {
	if !l.pending.Swap(false) {
		return false
	}
	// Drain the wakeup token so a later AwaitChange doesn't see a
	// change that was already consumed here.
	select {
	case <-l.ch:
	default:
	}
	return true
}

// AwaitChange blocks until a notification arrives or the timeout
// elapses. Returns true if a change was observed.
func (l *FormatChangeListener) AwaitChange(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-l.ch:
		l.pending.Store(false)
		return true
	case <-timer.C:
		return false
	}
}
