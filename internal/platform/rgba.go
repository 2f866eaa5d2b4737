package platform

import (
	"fmt"
	"image"

	"github.com/junsooki/framecap/internal/capture"
)

// RGBAFrame adapts an *image.RGBA to capture.RawFrame. Coordinates are
// relative to the image bounds' minimum point.
type RGBAFrame struct {
	img *image.RGBA
}

// NewRGBAFrame wraps img without copying it.
func NewRGBAFrame(img *image.RGBA) *RGBAFrame {
	return &RGBAFrame{img: img}
}

func (f *RGBAFrame) Width() int  { return f.img.Rect.Dx() }
func (f *RGBAFrame) Height() int { return f.img.Rect.Dy() }

// FullBuffer returns the image pixels. When rows are already tightly packed
// the image's own slice is returned.
func (f *RGBAFrame) FullBuffer() ([]byte, error) {
	w, h := f.Width(), f.Height()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("empty image %v", f.img.Rect)
	}
	rowLen := w * capture.BytesPerPixel
	if f.img.Stride == rowLen {
		start := f.img.PixOffset(f.img.Rect.Min.X, f.img.Rect.Min.Y)
		end := start + rowLen*h
		if start < 0 || end > len(f.img.Pix) {
			return nil, fmt.Errorf("pixel buffer too short: %d bytes for %dx%d", len(f.img.Pix), w, h)
		}
		return f.img.Pix[start:end], nil
	}
	return f.CroppedBuffer(0, 0, w, h)
}

// CroppedBuffer copies the pixels in [x0,x1) x [y0,y1) into a packed buffer.
func (f *RGBAFrame) CroppedBuffer(x0, y0, x1, y1 int) ([]byte, error) {
	w, h := f.Width(), f.Height()
	if x0 < 0 || y0 < 0 || x1 > w || y1 > h || x0 >= x1 || y0 >= y1 {
		return nil, fmt.Errorf("crop (%d,%d)-(%d,%d) outside %dx%d surface", x0, y0, x1, y1, w, h)
	}

	rowLen := (x1 - x0) * capture.BytesPerPixel
	out := make([]byte, rowLen*(y1-y0))
	min := f.img.Rect.Min
	for y := y0; y < y1; y++ {
		off := f.img.PixOffset(min.X+x0, min.Y+y)
		if off+rowLen > len(f.img.Pix) {
			return nil, fmt.Errorf("pixel buffer too short at row %d", y)
		}
		copy(out[(y-y0)*rowLen:], f.img.Pix[off:off+rowLen])
	}
	return out, nil
}
