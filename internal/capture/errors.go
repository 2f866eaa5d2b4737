package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRegion is returned by Start when the resolved capture area is empty.
	ErrInvalidRegion = errors.New("capture region has zero width or height")

	// ErrPlatformStart wraps a refusal from the platform to start a stream.
	ErrPlatformStart = errors.New("platform failed to start capture stream")

	// ErrBufferExtraction is returned when a frame's pixels cannot be read.
	ErrBufferExtraction = errors.New("frame buffer extraction failed")

	// ErrChannelClosed is returned by Send after either end of the channel has
	// closed, and by Recv once the channel is drained and the producer is gone.
	ErrChannelClosed = errors.New("frame channel closed")

	// ErrInvalidState is matched by errors returned for lifecycle misuse.
	ErrInvalidState = errors.New("invalid session state")

	// ErrFrameDropped is returned by Send when the overflow policy discarded a frame.
	ErrFrameDropped = errors.New("frame dropped by overflow policy")
)

type stateError struct {
	op    string
	state State
}

func (e *stateError) Error() string {
	return fmt.Sprintf("%s: session is %s", e.op, e.state)
}

func (e *stateError) Is(target error) bool {
	return target == ErrInvalidState
}
