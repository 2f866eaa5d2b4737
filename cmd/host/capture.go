package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/junsooki/framecap/internal/capture"
	"github.com/junsooki/framecap/internal/config"
	"github.com/junsooki/framecap/internal/logging"
	"github.com/junsooki/framecap/internal/peer"
	"github.com/junsooki/framecap/internal/permissions"
	"github.com/junsooki/framecap/internal/platform"
	"github.com/junsooki/framecap/internal/signaling"
	"github.com/junsooki/framecap/internal/transport"
)

const statsInterval = 10 * time.Second

func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, nil, err
	}
	for _, err := range cfg.Validate() {
		logger.Warn("config", logging.KeyError, err)
	}
	return cfg, logger, nil
}

func runCapture(cmd *cobra.Command) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	local, _ := cmd.Flags().GetBool("local")
	duration, _ := cmd.Flags().GetDuration("duration")

	if cfg.Backend != platform.BackendSynthetic {
		if err := permissions.Check(true); err != nil {
			return err
		}
	}

	plat, err := platform.New(cfg.Backend, cfg.Display, logger)
	if err != nil {
		return err
	}
	opts, err := cfg.SessionOptions(logger)
	if err != nil {
		return err
	}

	sess := capture.NewSession(plat, opts)
	if err := sess.Start(); err != nil {
		return err
	}
	src := sess.SourceRect()
	outW, outH := sess.OutputSize()
	logger.Info("capturing",
		"backend", cfg.Backend,
		"source", src.String(),
		"output", fmt.Sprintf("%dx%d", outW, outH),
		"fps", cfg.FPS,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	rel := &relay{}
	pumpDone := make(chan error, 1)
	go func() { pumpDone <- transport.Pump(ctx, sess.Frames(), rel, logger) }()

	var viewers *viewerSet
	if !local {
		hostID := cfg.EnsureHostID()
		viewers = newViewerSet(rel, logger)
		sig := signaling.NewClient(cfg.SignalingURL, hostID, signaling.RoleHost, viewers.handler(), logger)
		viewers.sig = sig
		sig.Advertise(signaling.StreamInfo{Width: outW, Height: outH, FPS: cfg.FPS})
		if err := sig.Connect(ctx); err != nil {
			_ = sess.Stop()
			return err
		}
		defer sig.Close()
		defer viewers.close()
		logger.Info("host ready", "host_id", hostID, "signaling", cfg.SignalingURL)
	}

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			logStats(logger, sess.Stats())
		case <-sess.Done():
			<-pumpDone
			logStats(logger, sess.Stats())
			return sess.Err()
		case err := <-pumpDone:
			if stopErr := sess.Stop(); stopErr != nil && !errors.Is(stopErr, capture.ErrInvalidState) {
				logger.Warn("stop session", logging.KeyError, stopErr)
			}
			logStats(logger, sess.Stats())
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return sess.Err()
		}
	}
}

func logStats(logger *slog.Logger, s capture.StatsSnapshot) {
	logger.Info("capture stats",
		"captured", s.FramesCaptured,
		"delivered", s.FramesDelivered,
		"skipped", s.FramesSkipped,
		"dropped", s.FramesDropped,
		"bytes", s.BytesDelivered,
		"fps", fmt.Sprintf("%.1f", s.FPS),
		"transform_ms", fmt.Sprintf("%.2f", s.TransformMs),
		"uptime", s.Uptime.Truncate(time.Second).String(),
	)
}

// relay forwards frames to the current viewer, or discards them while no
// viewer is connected so the session never stalls on an absent consumer.
// Each viewer peer gets a generation; a sender from a replaced peer is never
// installed.
type relay struct {
	mu     sync.Mutex
	gen    uint64
	sender transport.FrameSender
}

// attach starts a new generation, dropping the current sender, and returns
// the callback that installs this generation's sender.
func (r *relay) attach() (gen uint64, set func(*transport.Sender)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.sender = nil
	gen = r.gen
	return gen, func(s *transport.Sender) {
		if s != nil {
			r.install(gen, s)
		}
	}
}

func (r *relay) install(gen uint64, s transport.FrameSender) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return false
	}
	r.sender = s
	return true
}

// detach drops the sender if gen is still current.
func (r *relay) detach(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen == r.gen {
		r.sender = nil
	}
}

func (r *relay) current() transport.FrameSender {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sender
}

func (r *relay) SendFrame(f capture.Frame) error {
	s := r.current()
	if s == nil {
		return nil
	}
	if err := s.SendFrame(f); err != nil {
		if errors.Is(err, transport.ErrCongested) {
			return err
		}
		// The viewer went away; keep capturing for the next one.
		r.mu.Lock()
		if r.sender == s {
			r.sender = nil
		}
		r.mu.Unlock()
	}
	return nil
}

// viewerSet serves one viewer at a time. A new offer replaces the current
// peer, and a peer that ends on its own is cleared.
type viewerSet struct {
	rel    *relay
	sig    *signaling.Client
	logger *slog.Logger

	mu   sync.Mutex
	host *peer.Host
	gen  uint64
}

func newViewerSet(rel *relay, logger *slog.Logger) *viewerSet {
	return &viewerSet{rel: rel, logger: logger}
}

// track clears h once it finishes, unless a newer peer has replaced it.
func (v *viewerSet) track(h *peer.Host, gen uint64) {
	<-h.Done()
	v.rel.detach(gen)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.host == h {
		v.host = nil
		v.logger.Info("viewer disconnected", "viewer", h.Viewer())
	}
}

func (v *viewerSet) handler() signaling.Handler {
	return signaling.Handler{
		OnOffer: func(from string, payload json.RawMessage) {
			v.logger.Info("offer received", "viewer", from)
			v.mu.Lock()
			defer v.mu.Unlock()
			if v.host != nil {
				_ = v.host.Close()
				v.host = nil
			}
			gen, set := v.rel.attach()
			v.gen = gen
			h, err := peer.NewHost(v.sig, v.logger, set)
			if err != nil {
				v.logger.Error("create host peer", logging.KeyError, err)
				return
			}
			if err := h.HandleOffer(from, payload); err != nil {
				v.logger.Error("handle offer", logging.KeyError, err)
				_ = h.Close()
				return
			}
			v.host = h
			go v.track(h, gen)
		},
		OnICECandidate: func(from string, payload json.RawMessage) {
			v.mu.Lock()
			h := v.host
			v.mu.Unlock()
			if h == nil {
				return
			}
			if err := h.HandleICECandidate(payload); err != nil {
				v.logger.Warn("handle ICE candidate", logging.KeyError, err)
			}
		},
		OnError: func(msg string) {
			v.logger.Warn("signaling error", "message", msg)
		},
	}
}

func (v *viewerSet) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rel.detach(v.gen)
	if v.host != nil {
		_ = v.host.Close()
		v.host = nil
	}
}
