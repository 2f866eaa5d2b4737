package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/junsooki/framecap/internal/logging"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures a Session.
type Options struct {
	// Source is the region to capture. nil captures the whole display.
	Source *Rect
	// Resolution selects the reported output size.
	Resolution Resolution
	// FrameRate is passed through to the platform.
	FrameRate int
	Channel   ChannelOptions
	// StopOnExtractError ends the session on the first frame whose pixels
	// cannot be read. By default such frames are skipped.
	StopOnExtractError bool
	Logger             *slog.Logger
}

// Session drives one platform capture stream and delivers its frames to a
// Channel. A Session runs at most once: Idle -> Running -> Stopped.
type Session struct {
	id       string
	platform Platform
	opts     Options
	logger   *slog.Logger
	out      *Channel
	metrics  *Metrics
	seq      atomic.Uint64

	// mu serializes Start, Stop and stream-closed handling.
	mu        sync.Mutex
	state     State
	stream    StreamHandle
	source    Rect
	outWidth  int
	outHeight int
	cancel    context.CancelFunc
	cause     error
	done      chan struct{}

	// gate is held shared by every in-flight frame callback; shutdown takes it
	// exclusively so no frame is mid-send when the channel closes.
	gate      sync.RWMutex
	accepting bool
	pipeline  *Pipeline
	sendCtx   context.Context
}

// NewSession creates an idle session capturing from platform.
func NewSession(platform Platform, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Session{
		id:       id,
		platform: platform,
		opts:     opts,
		logger:   logging.Component(logger, "capture").With(logging.KeySession, id),
		out:      NewChannel(opts.Channel),
		metrics:  newMetrics(),
		done:     make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Frames returns the consumer end of the session's frame channel. It stays
// readable after the session stops until drained.
func (s *Session) Frames() *Channel { return s.out }

// Done is closed when the session reaches StateStopped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Stats returns the session's frame counters.
func (s *Session) Stats() StatsSnapshot { return s.metrics.Snapshot() }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns why the session stopped on its own, or nil if it is still
// running or was stopped with Stop.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

// SourceRect returns the resolved capture region. Zero until Start succeeds.
func (s *Session) SourceRect() Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// OutputSize returns the resolved output dimensions. Zero until Start succeeds.
func (s *Session) OutputSize() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outWidth, s.outHeight
}

// Start resolves the capture geometry and starts the platform stream.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return &stateError{op: "start", state: s.state}
	}

	display, err := s.platform.PrimaryDisplay()
	if err != nil {
		s.logger.Warn("display metadata unavailable", logging.KeyError, err)
		display = DisplayMetadata{}
	}

	source := ResolveSourceRect(s.opts.Source, display)
	if source.Empty() {
		return fmt.Errorf("%w: source %s", ErrInvalidRegion, source)
	}
	width, height := ResolveOutputSize(s.opts.Resolution, source)
	if width == 0 || height == 0 {
		return fmt.Errorf("%w: output %dx%d", ErrInvalidRegion, width, height)
	}

	var crop *Rect
	if s.opts.Source != nil {
		crop = &source
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.gate.Lock()
	s.pipeline = NewPipeline(crop)
	s.sendCtx = ctx
	s.accepting = true
	s.gate.Unlock()
	s.metrics.restart()

	cfg := StreamConfig{
		Source:    source,
		Width:     width,
		Height:    height,
		FrameRate: s.opts.FrameRate,
	}
	handle, err := s.platform.StartStream(cfg, s.handleFrame, s.handleClosed)
	if err != nil {
		cancel()
		s.gate.Lock()
		s.accepting = false
		s.gate.Unlock()
		return fmt.Errorf("%w: %w", ErrPlatformStart, err)
	}

	s.stream = handle
	s.cancel = cancel
	s.source = source
	s.outWidth, s.outHeight = width, height
	s.state = StateRunning

	s.logger.Info("capture session started",
		"source", source.String(),
		"width", width,
		"height", height,
		"resolution", s.opts.Resolution.String(),
	)
	return nil
}

// Stop ends the platform stream and closes the producer end of the frame
// channel. It fails with ErrInvalidState unless the session is running.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return &stateError{op: "stop", state: s.state}
	}
	return s.shutdownLocked(nil, true)
}

// terminate stops a running session from inside the capture path.
func (s *Session) terminate(cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return
	}
	if err := s.shutdownLocked(cause, true); err != nil {
		s.logger.Warn("stop platform stream", logging.KeyError, err)
	}
}

// shutdownLocked moves a running session to StateStopped. s.mu must be held.
func (s *Session) shutdownLocked(cause error, stopStream bool) error {
	// Unblock a frame waiting on a full channel before waiting on the platform.
	s.cancel()

	var err error
	handle := s.stream
	s.stream = nil
	if stopStream && handle != nil {
		if stopErr := handle.Stop(); stopErr != nil {
			err = fmt.Errorf("stop platform stream: %w", stopErr)
		}
	}

	s.gate.Lock()
	s.accepting = false
	s.gate.Unlock()

	s.out.CloseSend()
	s.state = StateStopped
	s.cause = cause
	close(s.done)

	stats := s.metrics.Snapshot()
	s.logger.Info("capture session stopped",
		"delivered", stats.FramesDelivered,
		"skipped", stats.FramesSkipped,
		"dropped", stats.FramesDropped,
		"cause", cause,
	)
	return err
}

// handleFrame is the FrameHandler given to the platform.
func (s *Session) handleFrame(raw RawFrame) error {
	s.gate.RLock()
	defer s.gate.RUnlock()

	if !s.accepting {
		return nil
	}

	start := time.Now()
	f, err := s.pipeline.Transform(raw)
	if err != nil {
		n := s.metrics.recordSkip()
		if s.opts.StopOnExtractError {
			s.logger.Error("frame extraction failed, stopping", logging.KeyError, err)
			go s.terminate(err)
			return err
		}
		if n == 1 || n%100 == 0 {
			s.logger.Warn("skipping frame", logging.KeyError, err, "skipped", n)
		}
		return nil
	}
	s.metrics.recordCapture(time.Since(start))
	f.Seq = s.seq.Add(1)

	err = s.out.Send(s.sendCtx, f)
	switch {
	case err == nil:
		s.metrics.recordDeliver(len(f.Data))
		return nil
	case errors.Is(err, ErrFrameDropped):
		s.metrics.recordDrop()
		return nil
	case errors.Is(err, ErrChannelClosed):
		s.logger.Info("frame consumer detached, stopping")
		go s.terminate(err)
		return err
	default:
		// Stop cancelled a blocked send; the frame never reached the channel.
		s.metrics.recordDrop()
		s.logger.Debug("frame discarded at stop", "seq", f.Seq)
		return nil
	}
}

// handleClosed is the ClosedHandler given to the platform.
func (s *Session) handleClosed(err error) {
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.state != StateRunning {
			return
		}
		if err != nil {
			s.logger.Warn("platform stream closed", logging.KeyError, err)
		} else {
			s.logger.Info("platform stream closed")
		}
		_ = s.shutdownLocked(err, false)
	}()
}
