// Package peer sets up the WebRTC connection between a capture host and a
// viewer. The viewer makes the offer and owns the frames DataChannel; the
// host answers and streams into it.
package peer

import (
	"encoding/json"
	"log/slog"

	"github.com/pion/webrtc/v4"

	"github.com/junsooki/framecap/internal/logging"
)

// ICEServers is the default ICE server configuration.
var ICEServers = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"}},
}

// Signaler is the part of the signaling client a peer needs.
type Signaler interface {
	SendOffer(target string, payload json.RawMessage) error
	SendAnswer(target string, payload json.RawMessage) error
	SendICECandidate(target string, payload json.RawMessage) error
}

// NewPeerConnection creates a PeerConnection that logs state changes and
// reports the final state on closed.
func NewPeerConnection(logger *slog.Logger, closed func(webrtc.PeerConnectionState)) (*webrtc.PeerConnection, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: ICEServers})
	if err != nil {
		return nil, err
	}
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logger.Info("peer connection state", "state", state.String())
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateDisconnected:
			if closed != nil {
				closed(state)
			}
		}
	})
	return pc, nil
}

func addRemoteCandidate(pc *webrtc.PeerConnection, payload json.RawMessage) error {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &candidate); err != nil {
		return err
	}
	return pc.AddICECandidate(candidate)
}

func trickle(pc *webrtc.PeerConnection, sig Signaler, target func() string, logger *slog.Logger) {
	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		to := target()
		if to == "" {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			logger.Warn("marshal ICE candidate", logging.KeyError, err)
			return
		}
		if err := sig.SendICECandidate(to, data); err != nil {
			logger.Debug("send ICE candidate", logging.KeyError, err)
		}
	})
}
