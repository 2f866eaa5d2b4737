package platform

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/kbinani/screenshot"

	"github.com/junsooki/framecap/internal/capture"
	"github.com/junsooki/framecap/internal/logging"
)

// Screenshot captures a display by polling the OS screenshot API.
type Screenshot struct {
	Display int
	Logger  *slog.Logger
}

// NewScreenshot creates a screenshot backend for the given display index.
func NewScreenshot(display int, logger *slog.Logger) *Screenshot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Screenshot{Display: display, Logger: logging.Component(logger, "platform").With("backend", BackendScreenshot)}
}

// DisplayInfo describes one active display.
type DisplayInfo struct {
	Index  int
	Bounds image.Rectangle
}

// Displays lists the active displays.
func Displays() []DisplayInfo {
	n := screenshot.NumActiveDisplays()
	out := make([]DisplayInfo, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, DisplayInfo{Index: i, Bounds: screenshot.GetDisplayBounds(i)})
	}
	return out
}

func (s *Screenshot) bounds(display int) (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if display < 0 || display >= n {
		return image.Rectangle{}, fmt.Errorf("display index %d out of range (have %d displays)", display, n)
	}
	return screenshot.GetDisplayBounds(display), nil
}

// PrimaryDisplay reports the size of the configured display.
func (s *Screenshot) PrimaryDisplay() (capture.DisplayMetadata, error) {
	b, err := s.bounds(s.Display)
	if err != nil {
		return capture.DisplayMetadata{}, err
	}
	return capture.DisplayMetadata{Width: b.Dx(), Height: b.Dy()}, nil
}

// StartStream begins polling s.Display at cfg.FrameRate. The session's
// crop is applied by the transform pipeline, so whole displays are grabbed.
func (s *Screenshot) StartStream(cfg capture.StreamConfig, onFrame capture.FrameHandler, onClosed capture.ClosedHandler) (capture.StreamHandle, error) {
	b, err := s.bounds(s.Display)
	if err != nil {
		return nil, err
	}
	if b.Empty() {
		return nil, fmt.Errorf("display %d has empty bounds", s.Display)
	}

	grab := func() (*image.RGBA, error) {
		return screenshot.CaptureRect(b)
	}
	s.Logger.Debug("starting stream", "display", s.Display, "bounds", b.String(), "fps", cfg.FrameRate)
	return startTickerStream(grab, cfg.FrameRate, onFrame, onClosed, s.Logger), nil
}
