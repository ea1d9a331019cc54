//go:build !darwin

package hardware

import "fmt"

// NewCoreAudioDevice is only available on macOS.
func NewCoreAudioDevice(name string) (OutputDevice, error) {
	return nil, fmt.Errorf("coreaudio backend is not supported on this platform")
}
