package signaling

import "encoding/json"

// Message types exchanged with the signaling server.
const (
	TypeRegister         = "register"
	TypeRegistered       = "registered"
	TypeListHosts        = "list-hosts"
	TypeHosts            = "hosts"
	TypeHostsUpdated     = "hosts-updated"
	TypeOffer            = "offer"
	TypeAnswer           = "answer"
	TypeICECandidate     = "ice-candidate"
	TypePing             = "ping"
	TypePong             = "pong"
	TypeError            = "error"
	TypeHostDisconnected = "host-disconnected"
)

// Client roles.
const (
	RoleHost   = "host"
	RoleViewer = "viewer"
)

// Message is the envelope for every signaling message.
type Message struct {
	Type       string          `json:"type"`
	ID         string          `json:"id,omitempty"`
	ClientType string          `json:"clientType,omitempty"`
	From       string          `json:"from,omitempty"`
	Target     string          `json:"target,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Stream     *StreamInfo     `json:"stream,omitempty"`
	List       []HostInfo      `json:"list,omitempty"`
	HostID     string          `json:"hostId,omitempty"`
	Msg        string          `json:"message,omitempty"`
}

// StreamInfo is what a host advertises about its capture session.
type StreamInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	FPS    int `json:"fps"`
}

// HostInfo is one entry of the host list.
type HostInfo struct {
	ID     string      `json:"id"`
	Online bool        `json:"online"`
	Stream *StreamInfo `json:"stream,omitempty"`
}
