package transport

import (
	"context"
	"errors"
	"log/slog"

	"github.com/junsooki/framecap/internal/capture"
)

// Pump forwards frames from a session channel to s until the channel ends or
// ctx is cancelled. Congestion skips are counted by the sender; any other
// send error ends the pump.
func Pump(ctx context.Context, frames *capture.Channel, s FrameSender, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for {
		f, err := frames.Recv(ctx)
		if err != nil {
			if errors.Is(err, capture.ErrChannelClosed) {
				return nil
			}
			return err
		}
		if err := s.SendFrame(f); err != nil {
			if errors.Is(err, ErrCongested) {
				logger.Debug("skipping frame, transport congested", "seq", f.Seq)
				continue
			}
			return err
		}
	}
}
