package capture

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

func TestTransformFullFrame(t *testing.T) {
	raw := newTestFrame(8, 4)
	p := NewPipeline(nil)

	f, err := p.Transform(raw)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if f.Width != 8 || f.Height != 4 {
		t.Fatalf("size = %dx%d, want 8x4", f.Width, f.Height)
	}
	if f.Format != PixelFormatRGBA {
		t.Fatalf("format = %s, want rgba", f.Format)
	}
	if !bytes.Equal(f.Data, raw.pix) {
		t.Fatal("full-frame data differs from source")
	}
}

func TestTransformCopiesOutOfPlatformBuffer(t *testing.T) {
	raw := newTestFrame(4, 2)
	f, err := NewPipeline(nil).Transform(raw)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	raw.pix[0] ^= 0xff
	if f.Data[0] == raw.pix[0] {
		t.Fatal("frame data aliases the platform buffer")
	}
}

func TestTransformCrop(t *testing.T) {
	raw := newTestFrame(10, 6)
	crop := NewRect(2, 1, 4, 2)
	f, err := NewPipeline(&crop).Transform(raw)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if f.Width != 4 || f.Height != 2 {
		t.Fatalf("size = %dx%d, want 4x2", f.Width, f.Height)
	}
	if len(f.Data) != 4*2*BytesPerPixel {
		t.Fatalf("len(Data) = %d, want %d", len(f.Data), 4*2*BytesPerPixel)
	}
	// First pixel of the crop is (2,1) in the source.
	off := (1*10 + 2) * BytesPerPixel
	if !bytes.Equal(f.Data[:BytesPerPixel], raw.pix[off:off+BytesPerPixel]) {
		t.Fatal("cropped data does not start at the crop origin")
	}
}

func TestTransformCropTruncatesBounds(t *testing.T) {
	raw := newTestFrame(10, 10)
	crop := NewRect(1.9, 1.2, 4.5, 2.9)
	f, err := NewPipeline(&crop).Transform(raw)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	// (1,1)-(6,4)
	if f.Width != 5 || f.Height != 3 {
		t.Fatalf("size = %dx%d, want 5x3", f.Width, f.Height)
	}
}

func TestTransformFullRectCropMatchesFullFrame(t *testing.T) {
	raw := newTestFrame(16, 8)
	crop := NewRect(0, 0, 16, 8)

	full, err := NewPipeline(nil).Transform(raw)
	if err != nil {
		t.Fatalf("full Transform: %v", err)
	}
	cropped, err := NewPipeline(&crop).Transform(raw)
	if err != nil {
		t.Fatalf("cropped Transform: %v", err)
	}
	if full.Width != cropped.Width || full.Height != cropped.Height || full.Format != cropped.Format {
		t.Fatalf("geometry differs: %dx%d vs %dx%d", full.Width, full.Height, cropped.Width, cropped.Height)
	}
	if !bytes.Equal(full.Data, cropped.Data) {
		t.Fatal("full-rect crop is not bit-identical to full frame")
	}
}

func TestTransformCropOutOfBounds(t *testing.T) {
	raw := newTestFrame(10, 10)
	crop := NewRect(8, 8, 4, 4)
	_, err := NewPipeline(&crop).Transform(raw)
	if !errors.Is(err, ErrBufferExtraction) {
		t.Fatalf("err = %v, want ErrBufferExtraction", err)
	}
}

func TestTransformPlatformError(t *testing.T) {
	raw := newTestFrame(4, 4)
	raw.err = errors.New("surface lost")

	_, err := NewPipeline(nil).Transform(raw)
	if !errors.Is(err, ErrBufferExtraction) {
		t.Fatalf("full: err = %v, want ErrBufferExtraction", err)
	}

	crop := NewRect(0, 0, 2, 2)
	_, err = NewPipeline(&crop).Transform(raw)
	if !errors.Is(err, ErrBufferExtraction) {
		t.Fatalf("crop: err = %v, want ErrBufferExtraction", err)
	}
}

func TestTransformRejectsShortBuffer(t *testing.T) {
	raw := newTestFrame(4, 4)
	raw.pix = raw.pix[:10]
	_, err := NewPipeline(nil).Transform(raw)
	if !errors.Is(err, ErrBufferExtraction) {
		t.Fatalf("err = %v, want ErrBufferExtraction", err)
	}
}

func TestTransformTimestampIsMonotonic(t *testing.T) {
	raw := newTestFrame(2, 2)
	p := NewPipeline(nil)

	var now time.Duration
	p.clock = func() time.Duration {
		now += time.Millisecond
		return now
	}

	a, _ := p.Transform(raw)
	b, _ := p.Transform(raw)
	if b.Timestamp <= a.Timestamp {
		t.Fatalf("timestamps not increasing: %v then %v", a.Timestamp, b.Timestamp)
	}

	live := NewPipeline(nil)
	x, _ := live.Transform(raw)
	y, _ := live.Transform(raw)
	if y.Timestamp < x.Timestamp {
		t.Fatalf("monotonic clock went backwards: %v then %v", x.Timestamp, y.Timestamp)
	}
}

func TestNewPipelineCopiesCrop(t *testing.T) {
	crop := NewRect(0, 0, 4, 4)
	p := NewPipeline(&crop)
	crop.Size.Width = 100
	if p.Crop().Size.Width != 4 {
		t.Fatal("pipeline crop changed after caller mutation")
	}
}
