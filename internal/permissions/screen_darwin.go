//go:build darwin && cgo

package permissions

/*
#cgo LDFLAGS: -framework CoreGraphics
#include <CoreGraphics/CoreGraphics.h>

// Available since macOS 10.15.
int preflightScreenCapture() {
    return CGPreflightScreenCaptureAccess();
}

int requestScreenCapture() {
    return CGRequestScreenCaptureAccess();
}
*/
import "C"

// HasScreenRecording reports whether the process holds the Screen Recording
// permission.
func HasScreenRecording() bool {
	return C.preflightScreenCapture() != 0
}

// RequestScreenRecording asks the OS for Screen Recording access. macOS shows
// a dialog the first time; a grant only takes effect after the process restarts.
func RequestScreenRecording() bool {
	return C.requestScreenCapture() != 0
}
