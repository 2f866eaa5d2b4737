package display

import (
	"errors"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/junsooki/framecap/internal/capture"
)

// Window shows the newest frame from a capture.Channel. Press F1 to toggle
// the status overlay and Escape to quit.
type Window struct {
	frames *capture.Channel
	title  string

	mu      sync.Mutex
	current *capture.Frame
	dirty   bool
	gaps    uint64
	meter   rateMeter

	image       *ebiten.Image
	showOverlay bool
}

// NewWindow creates a window fed by frames.
func NewWindow(frames *capture.Channel, title string) *Window {
	return &Window{frames: frames, title: title, showOverlay: true}
}

// Run starts the game loop. It must be called from the main goroutine and
// returns when the window closes or the frame channel ends.
func (w *Window) Run() error {
	ebiten.SetWindowSize(1280, 720)
	ebiten.SetWindowTitle(w.title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	err := ebiten.RunGame(w)
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// latest drains the channel and keeps the newest frame.
func (w *Window) latest() error {
	for {
		f, ok, err := w.frames.TryRecv()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		w.mu.Lock()
		if w.current != nil && f.Seq > w.current.Seq+1 {
			w.gaps += f.Seq - w.current.Seq - 1
		}
		w.current = &f
		w.dirty = true
		w.meter.tick(time.Now())
		w.mu.Unlock()
	}
}

func (w *Window) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		w.showOverlay = !w.showOverlay
	}
	if err := w.latest(); err != nil {
		return ebiten.Termination
	}
	return nil
}

// snapshot returns the current frame and whether it arrived since the last
// snapshot.
func (w *Window) snapshot() (f *capture.Frame, upload bool, fps float64, gaps uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	upload = w.dirty
	w.dirty = false
	return w.current, upload, w.meter.rate, w.gaps
}

func (w *Window) Draw(screen *ebiten.Image) {
	f, upload, fps, gaps := w.snapshot()

	if f != nil {
		if w.image == nil || w.image.Bounds().Dx() != f.Width || w.image.Bounds().Dy() != f.Height {
			if w.image != nil {
				w.image.Deallocate()
			}
			w.image = ebiten.NewImage(f.Width, f.Height)
			upload = true
		}
		if upload {
			w.image.WritePixels(f.Data)
		}

		sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
		scale, ox, oy := aspectFitTransform(float64(sw), float64(sh), float64(f.Width), float64(f.Height))
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(scale, scale)
		op.GeoM.Translate(ox, oy)
		op.Filter = ebiten.FilterLinear
		screen.DrawImage(w.image, op)
	}

	if w.showOverlay {
		ebitenutil.DebugPrint(screen, overlayText(f, fps, gaps))
	}
}

func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}
