package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/framecap/internal/capture"
	"github.com/junsooki/framecap/internal/logging"
	"github.com/junsooki/framecap/internal/wire"
)

const (
	// DefaultMaxPayload keeps chunk datagrams under the common 16 KiB SCTP
	// message size.
	DefaultMaxPayload = 16*1024 - wire.HeaderSize

	// DefaultHighWater is the buffered byte count above which frames are skipped.
	DefaultHighWater = 8 << 20
)

// Sender chunks frames onto an unordered, unreliable DataChannel.
type Sender struct {
	dc         datagramChannel
	maxPayload int
	highWater  uint64
	logger     *slog.Logger

	mu      sync.Mutex
	sent    uint64
	skipped uint64
}

// NewSender wraps dc. Zero maxPayload selects DefaultMaxPayload.
func NewSender(dc *webrtc.DataChannel, maxPayload int, logger *slog.Logger) *Sender {
	return newSender(dc, maxPayload, logger)
}

func newSender(dc datagramChannel, maxPayload int, logger *slog.Logger) *Sender {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{
		dc:         dc,
		maxPayload: maxPayload,
		highWater:  DefaultHighWater,
		logger:     logging.Component(logger, "transport"),
	}
}

// SendFrame chunks f and sends every datagram. A congested channel skips the
// whole frame rather than sending part of it.
func (s *Sender) SendFrame(f capture.Frame) error {
	if s.dc.BufferedAmount() > s.highWater {
		s.mu.Lock()
		s.skipped++
		s.mu.Unlock()
		return ErrCongested
	}

	dgs, err := wire.Chunk(f, s.maxPayload)
	if err != nil {
		return err
	}
	for i, dg := range dgs {
		if err := s.dc.Send(dg); err != nil {
			return fmt.Errorf("send chunk %d/%d of frame %d: %w", i+1, len(dgs), f.Seq, err)
		}
	}

	s.mu.Lock()
	s.sent++
	s.mu.Unlock()
	return nil
}

// Counts reports frames sent and frames skipped for congestion.
func (s *Sender) Counts() (sent, skipped uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent, s.skipped
}

// Receiver reassembles frames from DataChannel messages and delivers them to
// a capture.Channel.
type Receiver struct {
	out    *capture.Channel
	logger *slog.Logger

	mu        sync.Mutex
	r         wire.Reassembler
	malformed uint64
}

// NewReceiver delivers reassembled frames to out.
func NewReceiver(out *capture.Channel, logger *slog.Logger) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{out: out, logger: logging.Component(logger, "transport")}
}

// Attach routes dc's messages into the receiver.
func (r *Receiver) Attach(dc *webrtc.DataChannel) {
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		r.HandleMessage(msg.Data)
	})
}

// HandleMessage consumes one datagram.
func (r *Receiver) HandleMessage(data []byte) {
	r.mu.Lock()
	f, ok, err := r.r.Add(data)
	if err != nil {
		r.malformed++
		n := r.malformed
		r.mu.Unlock()
		if n == 1 || n%100 == 0 {
			r.logger.Warn("dropping malformed datagram", logging.KeyError, err, "malformed", n)
		}
		return
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	// The channel is expected to use a drop policy, so this never blocks.
	if err := r.out.Send(context.Background(), f); err != nil && !errors.Is(err, capture.ErrFrameDropped) {
		r.logger.Debug("frame not delivered", "seq", f.Seq, logging.KeyError, err)
	}
}

// Stats reports malformed datagrams and abandoned partial frames.
func (r *Receiver) Stats() (malformed, abandoned uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.malformed, r.r.Abandoned()
}
