package platform

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/junsooki/framecap/internal/capture"
)

// Backend names accepted by New.
const (
	BackendScreenshot   = "screenshot"
	BackendCoreGraphics = "coregraphics"
	BackendSynthetic    = "synthetic"
)

// New selects a capture backend by name.
func New(name string, display int, logger *slog.Logger) (capture.Platform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendScreenshot:
		return NewScreenshot(display, logger), nil
	case BackendCoreGraphics:
		return newCoreGraphics(display, logger)
	case BackendSynthetic:
		return NewSynthetic(0, 0, logger), nil
	default:
		return nil, fmt.Errorf("unknown capture backend %q", name)
	}
}
