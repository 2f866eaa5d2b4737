// Package display renders received frames in a window.
package display

import (
	"fmt"
	"math"
	"time"

	"github.com/junsooki/framecap/internal/capture"
)

// aspectFitTransform returns scale and offsets to fit a frame into a view
// with letterboxing.
func aspectFitTransform(viewW, viewH, frameW, frameH float64) (scale, offsetX, offsetY float64) {
	if frameW <= 0 || frameH <= 0 {
		return 1, 0, 0
	}
	scale = math.Min(viewW/frameW, viewH/frameH)
	offsetX = (viewW - frameW*scale) / 2
	offsetY = (viewH - frameH*scale) / 2
	return
}

// rateMeter tracks received frames per second over a sliding second.
type rateMeter struct {
	windowStart time.Time
	count       int
	rate        float64
}

func (m *rateMeter) tick(now time.Time) {
	if m.windowStart.IsZero() {
		m.windowStart = now
	}
	m.count++
	if el := now.Sub(m.windowStart); el >= time.Second {
		m.rate = float64(m.count) / el.Seconds()
		m.count = 0
		m.windowStart = now
	}
}

// overlayText is the status line drawn over the frame.
func overlayText(f *capture.Frame, fps float64, gaps uint64) string {
	if f == nil {
		return "waiting for frames..."
	}
	return fmt.Sprintf("#%d  %dx%d  %.1f fps  t=%s  gaps=%d",
		f.Seq, f.Width, f.Height, fps, f.Timestamp.Truncate(time.Millisecond), gaps)
}
