package capture

import (
	"fmt"
	"time"
)

// Pipeline converts raw platform frames into normalized frames.
type Pipeline struct {
	crop  *Rect
	clock func() time.Duration
}

// NewPipeline returns a pipeline that crops to crop, or passes the full
// surface through when crop is nil.
func NewPipeline(crop *Rect) *Pipeline {
	p := &Pipeline{clock: monotonicNow}
	if crop != nil {
		c := *crop
		p.crop = &c
	}
	return p
}

// Crop returns the crop rect, or nil for full-frame output.
func (p *Pipeline) Crop() *Rect {
	return p.crop
}

// Transform extracts, copies and timestamps the pixels of raw. The returned
// frame does not reference any memory owned by raw. Seq is left zero.
func (p *Pipeline) Transform(raw RawFrame) (Frame, error) {
	var (
		buf           []byte
		width, height int
		err           error
	)

	if p.crop != nil {
		x0, y0, x1, y1 := cropBounds(*p.crop)
		buf, err = raw.CroppedBuffer(x0, y0, x1, y1)
		if err != nil {
			return Frame{}, fmt.Errorf("%w: crop (%d,%d)-(%d,%d): %w", ErrBufferExtraction, x0, y0, x1, y1, err)
		}
		width, height = x1-x0, y1-y0
	} else {
		buf, err = raw.FullBuffer()
		if err != nil {
			return Frame{}, fmt.Errorf("%w: %w", ErrBufferExtraction, err)
		}
		width, height = raw.Width(), raw.Height()
	}

	if want := width * height * BytesPerPixel; width <= 0 || height <= 0 || len(buf) != want {
		return Frame{}, fmt.Errorf("%w: got %d bytes for %dx%d", ErrBufferExtraction, len(buf), width, height)
	}

	data := make([]byte, len(buf))
	copy(data, buf)

	return Frame{
		Format:    PixelFormatRGBA,
		Width:     width,
		Height:    height,
		Data:      data,
		Timestamp: p.clock(),
	}, nil
}

// cropBounds converts a rect to integer pixel bounds, truncating toward zero.
func cropBounds(r Rect) (x0, y0, x1, y1 int) {
	x0 = int(r.Origin.X)
	y0 = int(r.Origin.Y)
	x1 = int(r.Origin.X + r.Size.Width)
	y1 = int(r.Origin.Y + r.Size.Height)
	return
}
