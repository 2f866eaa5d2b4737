// Package permissions checks whether screen capture can run on this host.
package permissions

import (
	"errors"

	"github.com/kbinani/screenshot"
)

// ErrScreenRecordingDenied is returned by Check when the OS refuses capture.
var ErrScreenRecordingDenied = errors.New("screen recording permission not granted")

// ErrNoDisplays is returned by Check when no active display is attached.
var ErrNoDisplays = errors.New("no active displays")

// IsSupported reports whether at least one display can be captured.
func IsSupported() bool {
	return screenshot.NumActiveDisplays() > 0
}

// Check verifies that capture is both supported and permitted. When request
// is true and permission is missing, the OS prompt is shown first.
func Check(request bool) error {
	if !IsSupported() {
		return ErrNoDisplays
	}
	if HasScreenRecording() {
		return nil
	}
	if request && RequestScreenRecording() {
		return nil
	}
	return ErrScreenRecordingDenied
}
