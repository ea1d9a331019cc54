package ao

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestListenerTakePending(t *testing.T) {
	l := NewFormatChangeListener()

	assert.False(t, l.TakePending())

	l.Notify()
	assert.True(t, l.TakePending())
	assert.False(t, l.TakePending(), "flag clears on take")

	// Repeated notifications coalesce into one pending change.
	l.Notify()
	l.Notify()
	l.Notify()
	assert.True(t, l.TakePending())
	assert.False(t, l.TakePending())
}

func TestListenerAwaitChange(t *testing.T) {
	l := NewFormatChangeListener()

	assert.False(t, l.AwaitChange(10*time.Millisecond))

	go func() {
		time.Sleep(5 * time.Millisecond)
		l.Notify()
	}()
	assert.True(t, l.AwaitChange(time.Second))
	assert.False(t, l.TakePending(), "await consumes the change")
}

func TestListenerTakeDrainsWakeup(t *testing.T) {
	l := NewFormatChangeListener()

	l.Notify()
	assert.True(t, l.TakePending())
	assert.False(t, l.AwaitChange(10*time.Millisecond),
		"a consumed change must not satisfy a later wait")
}
