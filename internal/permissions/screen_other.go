//go:build !darwin || !cgo

package permissions

// HasScreenRecording always reports true where the OS has no capture consent.
func HasScreenRecording() bool { return true }

// RequestScreenRecording is a no-op outside macOS.
func RequestScreenRecording() bool { return true }
