// Package ring implements a fixed-capacity byte ring buffer for
// single-producer/single-consumer use between an application thread
// and a real-time audio callback.
//
// All operations are non-blocking and bounded-time. The consumer side
// is expected to run on a latency-sensitive OS callback, so the
// buffer never locks around the data copy: the producer owns the
// write cursor, the consumer owns the read cursor, and each side only
// loads the other's cursor atomically.
package ring

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrInvalidCapacity is returned by New for a non-positive capacity.
var ErrInvalidCapacity = errors.New("ring: capacity must be positive")

// Ring is a single-producer/single-consumer byte queue.
//
// Thread assignment:
//   - Write: producer goroutine only
//   - Read, Drain: consumer (audio callback) only
//   - Reset: producer, and only while the consumer is stopped
//   - Buffered, Free, String: either side
//
// The cursors are free-running monotonic counters; buffered bytes are
// always wpos-rpos, so no extra "full" flag is needed and the full
// capacity is usable.
type Ring struct {
	// Cursors sit on separate cache lines so the producer and the
	// consumer don't invalidate each other's line on every update.
	wpos atomic.Uint64
	_    [56]byte
	rpos atomic.Uint64
	_    [56]byte

	buf []byte
}

// New creates a ring buffer holding exactly capacity bytes.
func New(capacity int) (*Ring, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidCapacity, capacity)
	}
	return &Ring{buf: make([]byte, capacity)}, nil
}

// Capacity returns the fixed size of the buffer in bytes.
func (r *Ring) Capacity() int {
	return len(r.buf)
}

// Write copies up to len(p) bytes into the buffer and returns the
// number of bytes actually written. A short count means the tail of p
// was truncated; the caller must retry the remainder later. Never
// blocks.
func (r *Ring) Write(p []byte) int {
	w := r.wpos.Load()
	rd := r.rpos.Load()

	free := uint64(len(r.buf)) - (w - rd)
	n := uint64(len(p))
	if n > free {
		n = free
	}
	if n == 0 {
		return 0
	}

	pos := w % uint64(len(r.buf))
	first := uint64(len(r.buf)) - pos
	if first >= n {
		copy(r.buf[pos:pos+n], p[:n])
	} else {
		copy(r.buf[pos:], p[:first])
		copy(r.buf, p[first:n])
	}

	// Publish after the copy so the consumer never observes
	// uncommitted bytes.
	r.wpos.Store(w + n)
	return int(n)
}

// Read copies up to len(p) buffered bytes into p and returns the
// number of bytes actually read. Returns 0 on an empty buffer; the
// unfilled remainder of p is left untouched, so real-time callers
// must pre-zero it (or otherwise guarantee silence) on underrun.
// Never blocks.
func (r *Ring) Read(p []byte) int {
	rd := r.rpos.Load()
	w := r.wpos.Load()

	buffered := w - rd
	n := uint64(len(p))
	if n > buffered {
		n = buffered
	}
	if n == 0 {
		return 0
	}

	pos := rd % uint64(len(r.buf))
	first := uint64(len(r.buf)) - pos
	if first >= n {
		copy(p[:n], r.buf[pos:pos+n])
	} else {
		copy(p[:first], r.buf[pos:])
		copy(p[first:n], r.buf[:n-first])
	}

	r.rpos.Store(rd + n)
	return int(n)
}

// Drain discards up to n buffered bytes without copying them out and
// returns the number of bytes discarded. Consumer side only.
func (r *Ring) Drain(n int) int {
	if n <= 0 {
		return 0
	}
	rd := r.rpos.Load()
	w := r.wpos.Load()

	buffered := w - rd
	d := uint64(n)
	if d > buffered {
		d = buffered
	}
	if d == 0 {
		return 0
	}

	r.rpos.Store(rd + d)
	return int(d)
}

// Buffered returns a snapshot of the number of queued bytes.
func (r *Ring) Buffered() int {
	return int(r.wpos.Load() - r.rpos.Load())
}

// Free returns a snapshot of the remaining write space in bytes.
func (r *Ring) Free() int {
	return len(r.buf) - r.Buffered()
}

// Reset logically empties the buffer without touching its contents.
//
// Reset is not safe against a concurrent Read or Drain: the caller
// must stop the consumer callback first.
func (r *Ring) Reset() {
	r.rpos.Store(r.wpos.Load())
}

// String returns a human-readable occupancy summary for diagnostics.
func (r *Ring) String() string {
	w := r.wpos.Load()
	rd := r.rpos.Load()
	return fmt.Sprintf("Ring{capacity: %d, buffered: %d, free: %d, rpos: %d, wpos: %d}",
		len(r.buf), w-rd, uint64(len(r.buf))-(w-rd), rd, w)
}
