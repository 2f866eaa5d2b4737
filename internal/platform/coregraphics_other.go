//go:build !darwin || !cgo

package platform

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/junsooki/framecap/internal/capture"
)

func newCoreGraphics(int, *slog.Logger) (capture.Platform, error) {
	return nil, fmt.Errorf("coregraphics backend is not available on %s", runtime.GOOS)
}
