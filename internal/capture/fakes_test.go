package capture

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// testFrame is an in-memory RawFrame with tightly packed RGBA pixels.
type testFrame struct {
	w, h int
	pix  []byte
	err  error
}

func newTestFrame(w, h int) *testFrame {
	pix := make([]byte, w*h*BytesPerPixel)
	for i := range pix {
		pix[i] = byte(i * 7)
	}
	return &testFrame{w: w, h: h, pix: pix}
}

func (f *testFrame) Width() int  { return f.w }
func (f *testFrame) Height() int { return f.h }

func (f *testFrame) FullBuffer() ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pix, nil
}

func (f *testFrame) CroppedBuffer(x0, y0, x1, y1 int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if x0 < 0 || y0 < 0 || x1 > f.w || y1 > f.h || x0 >= x1 || y0 >= y1 {
		return nil, fmt.Errorf("crop (%d,%d)-(%d,%d) outside %dx%d", x0, y0, x1, y1, f.w, f.h)
	}
	rowLen := (x1 - x0) * BytesPerPixel
	out := make([]byte, 0, rowLen*(y1-y0))
	for y := y0; y < y1; y++ {
		off := (y*f.w + x0) * BytesPerPixel
		out = append(out, f.pix[off:off+rowLen]...)
	}
	return out, nil
}

// fakePlatform records the handlers it is given so tests can drive frames
// and stream closure from the test goroutine.
type fakePlatform struct {
	display    DisplayMetadata
	displayErr error
	startErr   error

	mu       sync.Mutex
	cfg      StreamConfig
	onFrame  FrameHandler
	onClosed ClosedHandler
	handle   *fakeHandle
	starts   int
}

type fakeHandle struct {
	stops   atomic.Int32
	stopErr error
}

func (h *fakeHandle) Stop() error {
	h.stops.Add(1)
	return h.stopErr
}

func (p *fakePlatform) PrimaryDisplay() (DisplayMetadata, error) {
	return p.display, p.displayErr
}

func (p *fakePlatform) StartStream(cfg StreamConfig, onFrame FrameHandler, onClosed ClosedHandler) (StreamHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.starts++
	if p.startErr != nil {
		return nil, p.startErr
	}
	p.cfg = cfg
	p.onFrame = onFrame
	p.onClosed = onClosed
	p.handle = &fakeHandle{}
	return p.handle, nil
}

func (p *fakePlatform) emit(raw RawFrame) error {
	p.mu.Lock()
	fn := p.onFrame
	p.mu.Unlock()
	if fn == nil {
		return errors.New("stream not started")
	}
	return fn(raw)
}

func (p *fakePlatform) close(err error) {
	p.mu.Lock()
	fn := p.onClosed
	p.mu.Unlock()
	fn(err)
}
