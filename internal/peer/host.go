package peer

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/framecap/internal/logging"
	"github.com/junsooki/framecap/internal/transport"
)

// Host is the answering side. It hands the viewer's frames channel to
// onSender once the channel opens.
type Host struct {
	pc       *webrtc.PeerConnection
	sig      Signaler
	logger   *slog.Logger
	onSender func(*transport.Sender)

	mu     sync.Mutex
	viewer string
	done   chan struct{}
	once   sync.Once
}

// NewHost creates a Host peer.
func NewHost(sig Signaler, logger *slog.Logger, onSender func(*transport.Sender)) (*Host, error) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Host{
		sig:      sig,
		logger:   logging.Component(logger, "peer").With("role", "host"),
		onSender: onSender,
		done:     make(chan struct{}),
	}

	pc, err := NewPeerConnection(h.logger, func(webrtc.PeerConnectionState) { h.finish() })
	if err != nil {
		return nil, err
	}
	h.pc = pc

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != transport.FramesLabel {
			h.logger.Debug("ignoring data channel", "label", dc.Label())
			return
		}
		dc.OnOpen(func() {
			h.logger.Info("frames data channel open")
			if h.onSender != nil {
				h.onSender(transport.NewSender(dc, 0, h.logger))
			}
		})
		dc.OnClose(h.finish)
	})
	trickle(pc, sig, h.Viewer, h.logger)
	return h, nil
}

// Viewer returns the id of the connected viewer, if any.
func (h *Host) Viewer() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.viewer
}

// Done is closed when the connection fails or closes.
func (h *Host) Done() <-chan struct{} { return h.done }

func (h *Host) finish() {
	h.once.Do(func() { close(h.done) })
}

// HandleOffer answers a viewer's offer.
func (h *Host) HandleOffer(from string, payload json.RawMessage) error {
	h.mu.Lock()
	h.viewer = from
	h.mu.Unlock()

	var offer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &offer); err != nil {
		return err
	}
	if err := h.pc.SetRemoteDescription(offer); err != nil {
		return err
	}

	answer, err := h.pc.CreateAnswer(nil)
	if err != nil {
		return err
	}
	if err := h.pc.SetLocalDescription(answer); err != nil {
		return err
	}

	data, err := json.Marshal(answer)
	if err != nil {
		return err
	}
	return h.sig.SendAnswer(from, data)
}

// HandleICECandidate adds a remote ICE candidate.
func (h *Host) HandleICECandidate(payload json.RawMessage) error {
	return addRemoteCandidate(h.pc, payload)
}

// Close shuts down the peer connection.
func (h *Host) Close() error {
	h.finish()
	return h.pc.Close()
}
