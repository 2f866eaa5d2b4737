package capture

import (
	"time"
)

// PixelFormat identifies the byte layout of Frame.Data.
type PixelFormat uint8

const (
	// PixelFormatRGBA is 4 bytes per pixel, R G B A, rows tightly packed.
	PixelFormatRGBA PixelFormat = 1
)

// BytesPerPixel is the pixel stride of every normalized frame.
const BytesPerPixel = 4

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGBA:
		return "rgba"
	default:
		return "unknown"
	}
}

// Frame is a normalized captured frame.
type Frame struct {
	// Seq is the per-session delivery sequence number, starting at 1.
	Seq    uint64
	Format PixelFormat
	Width  int
	Height int
	// Data holds exactly Width*Height*4 bytes with no row padding.
	Data []byte
	// Timestamp is monotonic time since the process capture epoch. Only
	// meaningful relative to other frame timestamps.
	Timestamp time.Duration
}

// RawFrame is a platform-owned frame surface. It is valid only for the
// duration of the FrameHandler call that received it.
type RawFrame interface {
	Width() int
	Height() int
	// FullBuffer returns the whole surface without row padding.
	FullBuffer() ([]byte, error)
	// CroppedBuffer returns the pixels in [x0,x1) x [y0,y1) without row padding.
	CroppedBuffer(x0, y0, x1, y1 int) ([]byte, error)
}

// FrameHandler is invoked by a platform for every captured frame, on a
// goroutine owned by the platform. A non-nil return ends the stream.
type FrameHandler func(raw RawFrame) error

// ClosedHandler is invoked exactly once when a platform stream ends, including
// after StreamHandle.Stop. err is the cause, or nil for a requested stop.
// Implementations must not block on it.
type ClosedHandler func(err error)

// StreamConfig is handed to the platform when a stream starts.
// The platform captures the display it was constructed for.
type StreamConfig struct {
	Source    Rect
	Width     int
	Height    int
	FrameRate int
}

// StreamHandle controls a running platform stream.
type StreamHandle interface {
	Stop() error
}

// Platform is the capability surface of a native capture backend.
type Platform interface {
	PrimaryDisplay() (DisplayMetadata, error)
	StartStream(cfg StreamConfig, onFrame FrameHandler, onClosed ClosedHandler) (StreamHandle, error)
}

var epoch = time.Now()

// monotonicNow reports the time elapsed since epoch using the runtime's
// monotonic clock reading.
func monotonicNow() time.Duration {
	return time.Since(epoch)
}
