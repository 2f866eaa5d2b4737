// Package signaling is a WebSocket client for exchanging WebRTC session
// descriptions and ICE candidates through a relay server.
package signaling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/junsooki/framecap/internal/logging"
)

const (
	pingInterval = 25 * time.Second
	writeTimeout = 10 * time.Second
)

var ErrNotConnected = errors.New("signaling: not connected")

// Handler holds callbacks for incoming messages. Callbacks run on the read
// goroutine and must not block for long.
type Handler struct {
	OnRegistered       func()
	OnOffer            func(from string, payload json.RawMessage)
	OnAnswer           func(from string, payload json.RawMessage)
	OnICECandidate     func(from string, payload json.RawMessage)
	OnHostsUpdated     func(hosts []HostInfo)
	OnHostDisconnected func(hostID string)
	OnError            func(msg string)
}

// Client is a signaling connection for one host or viewer.
type Client struct {
	url     string
	id      string
	role    string
	stream  *StreamInfo
	handler Handler
	logger  *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	done   chan struct{}
	closed bool
	err    error
}

// NewClient creates a client that registers as id with the given role.
func NewClient(url, id, role string, handler Handler, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:     url,
		id:      id,
		role:    role,
		handler: handler,
		logger:  logging.Component(logger, "signaling").With("id", id),
		done:    make(chan struct{}),
	}
}

// Advertise attaches stream details to the registration message. It must be
// called before Connect.
func (c *Client) Advertise(info StreamInfo) {
	c.stream = &info
}

// Connect dials the server, registers and starts the read and ping loops.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("signaling dial: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	err = c.send(Message{
		Type:       TypeRegister,
		ID:         c.id,
		ClientType: c.role,
		Stream:     c.stream,
	})
	if err != nil {
		c.Close()
		return fmt.Errorf("signaling register: %w", err)
	}

	go c.readLoop()
	go c.pingLoop()
	return nil
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err reports why the connection ended, or nil after Close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close shuts down the connection. It is safe to call more than once.
func (c *Client) Close() {
	c.closeWith(nil)
}

func (c *Client) closeWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.err = err
	close(c.done)
	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.conn.Close()
	}
}

func (c *Client) SendOffer(target string, payload json.RawMessage) error {
	return c.send(Message{Type: TypeOffer, Target: target, Payload: payload})
}

func (c *Client) SendAnswer(target string, payload json.RawMessage) error {
	return c.send(Message{Type: TypeAnswer, Target: target, Payload: payload})
}

func (c *Client) SendICECandidate(target string, payload json.RawMessage) error {
	return c.send(Message{Type: TypeICECandidate, Target: target, Payload: payload})
}

// RequestHostList asks the server for the hosts it knows about.
func (c *Client) RequestHostList() error {
	return c.send(Message{Type: TypeListHosts})
}

func (c *Client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed {
		return ErrNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(msg)
}

func (c *Client) readLoop() {
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Warn("signaling read failed", logging.KeyError, err)
				c.closeWith(err)
			}
			return
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg Message) {
	h := c.handler
	switch msg.Type {
	case TypeRegistered:
		c.logger.Info("registered with signaling server", "role", c.role)
		if h.OnRegistered != nil {
			h.OnRegistered()
		}
	case TypeOffer:
		if h.OnOffer != nil {
			h.OnOffer(msg.From, msg.Payload)
		}
	case TypeAnswer:
		if h.OnAnswer != nil {
			h.OnAnswer(msg.From, msg.Payload)
		}
	case TypeICECandidate:
		if h.OnICECandidate != nil {
			h.OnICECandidate(msg.From, msg.Payload)
		}
	case TypeHosts, TypeHostsUpdated:
		if h.OnHostsUpdated != nil {
			h.OnHostsUpdated(msg.List)
		}
	case TypeHostDisconnected:
		if h.OnHostDisconnected != nil {
			h.OnHostDisconnected(msg.HostID)
		}
	case TypeError:
		c.logger.Warn("signaling server error", "message", msg.Msg)
		if h.OnError != nil {
			h.OnError(msg.Msg)
		}
	case TypePong:
	default:
		c.logger.Debug("ignoring signaling message", "type", msg.Type)
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.send(Message{Type: TypePing}); err != nil {
				c.logger.Debug("ping failed", logging.KeyError, err)
			}
		}
	}
}
