package platform

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/junsooki/framecap/internal/capture"
	"github.com/junsooki/framecap/internal/logging"
)

// DefaultFrameRate is used when a stream config leaves FrameRate unset.
const DefaultFrameRate = 30

// maxConsecutiveFailures ends a stream whose source keeps failing.
const maxConsecutiveFailures = 30

var errStreamStopped = errors.New("stream already stopped")

type grabFunc func() (*image.RGBA, error)

// tickerStream polls grab at a fixed rate on its own goroutine and hands each
// image to the session's frame handler.
type tickerStream struct {
	grab     grabFunc
	interval time.Duration
	onFrame  capture.FrameHandler
	onClosed capture.ClosedHandler
	logger   *slog.Logger

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

func startTickerStream(grab grabFunc, fps int, onFrame capture.FrameHandler, onClosed capture.ClosedHandler, logger *slog.Logger) *tickerStream {
	if fps <= 0 {
		fps = DefaultFrameRate
	}
	st := &tickerStream{
		grab:     grab,
		interval: time.Second / time.Duration(fps),
		onFrame:  onFrame,
		onClosed: onClosed,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go st.loop()
	return st
}

func (st *tickerStream) loop() {
	var cause error
	defer func() {
		st.onClosed(cause)
		close(st.doneCh)
	}()

	ticker := time.NewTicker(st.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-st.stopCh:
			return
		case <-ticker.C:
		}

		img, err := st.grab()
		if err != nil {
			failures++
			if failures >= maxConsecutiveFailures {
				cause = fmt.Errorf("capture failed %d times in a row: %w", failures, err)
				return
			}
			st.logger.Debug("capture failed", logging.KeyError, err, "failures", failures)
			continue
		}
		failures = 0

		if err := st.onFrame(NewRGBAFrame(img)); err != nil {
			cause = err
			return
		}
	}
}

// Stop ends the capture goroutine and waits for it to exit. It must not be
// called from the frame handler.
func (st *tickerStream) Stop() error {
	first := false
	st.stopOnce.Do(func() {
		close(st.stopCh)
		first = true
	})
	if !first {
		return errStreamStopped
	}
	<-st.doneCh
	return nil
}
