// Package transport moves capture frames over WebRTC DataChannels.
package transport

import (
	"errors"

	"github.com/junsooki/framecap/internal/capture"
)

// FramesLabel is the label of the DataChannel that carries frame chunks.
const FramesLabel = "frames"

// ErrCongested is returned by SendFrame when the channel's send buffer is
// above its high-water mark and the frame was skipped.
var ErrCongested = errors.New("transport congested")

// FrameSender sends capture frames to a remote peer.
type FrameSender interface {
	SendFrame(f capture.Frame) error
}

// datagramChannel is the subset of *webrtc.DataChannel used for sending.
type datagramChannel interface {
	Send(data []byte) error
	BufferedAmount() uint64
}
