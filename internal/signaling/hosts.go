package signaling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// String formats the stream as WIDTHxHEIGHT@FPS.
func (s StreamInfo) String() string {
	return fmt.Sprintf("%dx%d@%d", s.Width, s.Height, s.FPS)
}

// Describe returns the advertised stream, or "unknown" for hosts that
// registered without one.
func (h HostInfo) Describe() string {
	if h.Stream == nil {
		return "unknown"
	}
	return h.Stream.String()
}

// ListHosts registers as a viewer, requests the host list once and returns
// the first list the server sends back.
func ListHosts(ctx context.Context, url, id string, logger *slog.Logger) ([]HostInfo, error) {
	lists := make(chan []HostInfo, 1)
	failed := make(chan error, 1)

	var c *Client
	c = NewClient(url, id, RoleViewer, Handler{
		OnRegistered: func() {
			if err := c.RequestHostList(); err != nil {
				select {
				case failed <- fmt.Errorf("request host list: %w", err):
				default:
				}
			}
		},
		OnHostsUpdated: func(hosts []HostInfo) {
			select {
			case lists <- hosts:
			default:
			}
		},
		OnError: func(msg string) {
			select {
			case failed <- errors.New("signaling server: " + msg):
			default:
			}
		},
	}, logger)

	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	defer c.Close()

	select {
	case hosts := <-lists:
		return hosts, nil
	case err := <-failed:
		return nil, err
	case <-c.Done():
		if err := c.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotConnected
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
