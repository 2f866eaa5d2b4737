package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/junsooki/framecap/internal/capture"
	"github.com/junsooki/framecap/internal/logging"
)

const (
	minFPS            = 1
	maxFPS            = 60
	maxBufferCapacity = 1024
)

var knownBackends = map[string]bool{
	"screenshot":   true,
	"coregraphics": true,
	"synthetic":    true,
}

// Validate checks the config and returns every problem found. Out-of-range
// numeric values are clamped in place and reported; the rest are left as is.
func (c *Config) Validate() []error {
	var errs []error

	if !knownBackends[strings.ToLower(c.Backend)] {
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}

	if c.Display < 0 {
		errs = append(errs, fmt.Errorf("display %d must not be negative", c.Display))
	}

	if c.FPS < minFPS {
		errs = append(errs, fmt.Errorf("fps %d is below minimum %d, clamping", c.FPS, minFPS))
		c.FPS = minFPS
	} else if c.FPS > maxFPS {
		errs = append(errs, fmt.Errorf("fps %d exceeds maximum %d, clamping", c.FPS, maxFPS))
		c.FPS = maxFPS
	}

	if c.BufferCapacity < 0 {
		errs = append(errs, fmt.Errorf("buffer_capacity %d is negative, using unbounded", c.BufferCapacity))
		c.BufferCapacity = 0
	} else if c.BufferCapacity > maxBufferCapacity {
		errs = append(errs, fmt.Errorf("buffer_capacity %d exceeds maximum %d, clamping", c.BufferCapacity, maxBufferCapacity))
		c.BufferCapacity = maxBufferCapacity
	}

	if _, err := capture.ParseResolution(c.Resolution); err != nil {
		errs = append(errs, err)
	}
	if _, err := capture.ParseOverflowPolicy(c.Overflow); err != nil {
		errs = append(errs, err)
	}

	s := c.Source
	if s.Width < 0 || s.Height < 0 {
		errs = append(errs, fmt.Errorf("source size %gx%g must not be negative", s.Width, s.Height))
	} else if (s.Width == 0) != (s.Height == 0) {
		errs = append(errs, fmt.Errorf("source size %gx%g: width and height must both be set", s.Width, s.Height))
	}

	if c.SignalingURL != "" {
		u, err := url.Parse(c.SignalingURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("signaling_url %q is not a valid URL: %w", c.SignalingURL, err))
		} else if u.Scheme != "ws" && u.Scheme != "wss" {
			errs = append(errs, fmt.Errorf("signaling_url scheme must be ws or wss, got %q", u.Scheme))
		}
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log_format %q", c.LogFormat))
	}

	return errs
}
