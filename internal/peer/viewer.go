package peer

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/framecap/internal/logging"
	"github.com/junsooki/framecap/internal/transport"
)

// Viewer is the offering side. It creates the unordered, unreliable frames
// channel and feeds it into a transport.Receiver.
type Viewer struct {
	pc     *webrtc.PeerConnection
	sig    Signaler
	hostID string
	logger *slog.Logger

	done chan struct{}
	once sync.Once
}

// NewViewer creates a Viewer peer for hostID.
func NewViewer(sig Signaler, hostID string, recv *transport.Receiver, logger *slog.Logger) (*Viewer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Viewer{
		sig:    sig,
		hostID: hostID,
		logger: logging.Component(logger, "peer").With("role", "viewer", "host", hostID),
		done:   make(chan struct{}),
	}

	pc, err := NewPeerConnection(v.logger, func(webrtc.PeerConnectionState) { v.finish() })
	if err != nil {
		return nil, err
	}
	v.pc = pc

	ordered := false
	maxRetransmits := uint16(0)
	dc, err := pc.CreateDataChannel(transport.FramesLabel, &webrtc.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: &maxRetransmits,
	})
	if err != nil {
		pc.Close()
		return nil, err
	}
	dc.OnOpen(func() { v.logger.Info("frames data channel open") })
	dc.OnClose(v.finish)
	recv.Attach(dc)

	trickle(pc, sig, func() string { return hostID }, v.logger)
	return v, nil
}

// Done is closed when the connection fails or closes.
func (v *Viewer) Done() <-chan struct{} { return v.done }

func (v *Viewer) finish() {
	v.once.Do(func() { close(v.done) })
}

// Connect creates and sends the offer.
func (v *Viewer) Connect() error {
	offer, err := v.pc.CreateOffer(nil)
	if err != nil {
		return err
	}
	if err := v.pc.SetLocalDescription(offer); err != nil {
		return err
	}
	data, err := json.Marshal(offer)
	if err != nil {
		return err
	}
	return v.sig.SendOffer(v.hostID, data)
}

// HandleAnswer applies the host's answer.
func (v *Viewer) HandleAnswer(payload json.RawMessage) error {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &answer); err != nil {
		return err
	}
	return v.pc.SetRemoteDescription(answer)
}

// HandleICECandidate adds a remote ICE candidate.
func (v *Viewer) HandleICECandidate(payload json.RawMessage) error {
	return addRemoteCandidate(v.pc, payload)
}

// Close shuts down the peer connection.
func (v *Viewer) Close() error {
	v.finish()
	return v.pc.Close()
}
