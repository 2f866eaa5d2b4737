package platform

import (
	"errors"
	"image"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/junsooki/framecap/internal/capture"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type closedRecorder struct {
	calls atomic.Int32
	errCh chan error
}

func newClosedRecorder() *closedRecorder {
	return &closedRecorder{errCh: make(chan error, 4)}
}

func (r *closedRecorder) onClosed(err error) {
	r.calls.Add(1)
	r.errCh <- err
}

func (r *closedRecorder) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close")
		return nil
	}
}

func TestSyntheticStreamDeliversFrames(t *testing.T) {
	p := NewSynthetic(64, 32, discardLogger())
	got := make(chan capture.RawFrame, 1)
	rec := newClosedRecorder()

	h, err := p.StartStream(capture.StreamConfig{FrameRate: 200}, func(raw capture.RawFrame) error {
		select {
		case got <- raw:
		default:
		}
		return nil
	}, rec.onClosed)
	if err != nil {
		t.Fatalf("StartStream: %v", err)
	}

	select {
	case raw := <-got:
		if raw.Width() != 64 || raw.Height() != 32 {
			t.Fatalf("frame = %dx%d, want 64x32", raw.Width(), raw.Height())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame delivered")
	}

	if err := h.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := rec.wait(t); err != nil {
		t.Fatalf("onClosed err = %v, want nil after Stop", err)
	}
	if err := h.Stop(); err == nil {
		t.Fatal("second Stop should fail")
	}
	if n := rec.calls.Load(); n != 1 {
		t.Fatalf("onClosed calls = %d, want 1", n)
	}
}

func TestStreamEndsWhenHandlerFails(t *testing.T) {
	boom := errors.New("consumer gone")
	rec := newClosedRecorder()
	grab := func() (*image.RGBA, error) { return testPattern(4, 4, 0), nil }

	st := startTickerStream(grab, 500, func(capture.RawFrame) error { return boom }, rec.onClosed, discardLogger())
	if err := rec.wait(t); !errors.Is(err, boom) {
		t.Fatalf("onClosed err = %v, want %v", err, boom)
	}
	// Stop after a self-terminated stream still returns promptly.
	if err := st.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStreamEndsAfterRepeatedCaptureFailures(t *testing.T) {
	grabErr := errors.New("display asleep")
	rec := newClosedRecorder()
	var frames atomic.Int32

	grab := func() (*image.RGBA, error) { return nil, grabErr }
	st := startTickerStream(grab, 1000, func(capture.RawFrame) error {
		frames.Add(1)
		return nil
	}, rec.onClosed, discardLogger())
	defer st.Stop()

	if err := rec.wait(t); !errors.Is(err, grabErr) {
		t.Fatalf("onClosed err = %v, want %v", err, grabErr)
	}
	if frames.Load() != 0 {
		t.Fatalf("frames = %d, want 0", frames.Load())
	}
}

func TestSyntheticSessionEndToEnd(t *testing.T) {
	p := NewSynthetic(320, 240, discardLogger())
	crop := capture.NewRect(10, 10, 101, 51)
	s := capture.NewSession(p, capture.Options{
		Source:     &crop,
		Resolution: capture.ResolutionCaptured,
		FrameRate:  200,
		Channel:    capture.ChannelOptions{Capacity: 4, Overflow: capture.OverflowDropOldest},
		Logger:     discardLogger(),
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	f, err := recvWithin(s.Frames(), 2*time.Second)
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if f.Width != 102 || f.Height != 52 {
		t.Fatalf("frame = %dx%d, want 102x52", f.Width, f.Height)
	}
	if f.Seq == 0 {
		t.Fatal("Seq not assigned")
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.State() != capture.StateStopped {
		t.Fatalf("state = %s, want stopped", s.State())
	}
}

func TestNewSelectsBackend(t *testing.T) {
	p, err := New("synthetic", 0, discardLogger())
	if err != nil {
		t.Fatalf("New(synthetic): %v", err)
	}
	if _, ok := p.(*Synthetic); !ok {
		t.Fatalf("New(synthetic) = %T, want *Synthetic", p)
	}

	p, err = New("", 1, discardLogger())
	if err != nil {
		t.Fatalf("New(\"\"): %v", err)
	}
	if s, ok := p.(*Screenshot); !ok || s.Display != 1 {
		t.Fatalf("New(\"\") = %#v, want *Screenshot on display 1", p)
	}

	if _, err := New("dxgi", 0, discardLogger()); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestScreenshotStreamsConstructedDisplay(t *testing.T) {
	s := NewScreenshot(99, discardLogger())

	if _, err := s.PrimaryDisplay(); err == nil || !strings.Contains(err.Error(), "display index 99") {
		t.Fatalf("PrimaryDisplay err = %v, want display index 99 out of range", err)
	}
	rec := newClosedRecorder()
	h, err := s.StartStream(capture.StreamConfig{}, func(capture.RawFrame) error { return nil }, rec.onClosed)
	if err == nil {
		_ = h.Stop()
		t.Fatal("StartStream fell back to another display")
	}
	if !strings.Contains(err.Error(), "display index 99") {
		t.Fatalf("StartStream err = %v, want display index 99 out of range", err)
	}
}
