package platform

import (
	"image"
	"log/slog"

	"github.com/junsooki/framecap/internal/capture"
	"github.com/junsooki/framecap/internal/logging"
)

// Synthetic produces a moving test pattern. It needs no display and is used
// for headless runs.
type Synthetic struct {
	Width  int
	Height int
	Logger *slog.Logger
}

// NewSynthetic creates a synthetic backend. Zero dimensions default to 1280x720.
func NewSynthetic(width, height int, logger *slog.Logger) *Synthetic {
	if width <= 0 || height <= 0 {
		width, height = 1280, 720
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthetic{Width: width, Height: height, Logger: logging.Component(logger, "platform").With("backend", BackendSynthetic)}
}

func (s *Synthetic) PrimaryDisplay() (capture.DisplayMetadata, error) {
	return capture.DisplayMetadata{Width: s.Width, Height: s.Height}, nil
}

func (s *Synthetic) StartStream(cfg capture.StreamConfig, onFrame capture.FrameHandler, onClosed capture.ClosedHandler) (capture.StreamHandle, error) {
	tick := 0
	grab := func() (*image.RGBA, error) {
		tick++
		return testPattern(s.Width, s.Height, tick), nil
	}
	return startTickerStream(grab, cfg.FrameRate, onFrame, onClosed, s.Logger), nil
}

// testPattern draws a diagonal gradient shifted by tick.
func testPattern(width, height, tick int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			i := x * 4
			row[i] = uint8(x + tick)
			row[i+1] = uint8(y + tick)
			row[i+2] = uint8(x + y)
			row[i+3] = 0xff
		}
	}
	return img
}
