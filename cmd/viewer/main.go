package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/junsooki/framecap/internal/capture"
	"github.com/junsooki/framecap/internal/config"
	"github.com/junsooki/framecap/internal/display"
	"github.com/junsooki/framecap/internal/logging"
	"github.com/junsooki/framecap/internal/peer"
	"github.com/junsooki/framecap/internal/signaling"
	"github.com/junsooki/framecap/internal/transport"
)

var (
	version = "0.1.0"
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:          "framecap-viewer",
	Short:        "View a framecap host's stream",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runViewer(cmd)
	},
}

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "List hosts known to the signaling server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listHosts(cmd)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("framecap-viewer v%s\n", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./framecap.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")

	pf.String("id", "", "viewer ID (random if empty)")
	pf.String("signaling", "ws://localhost:8080", "signaling server WebSocket URL")

	rootCmd.Flags().String("host", "", "host ID to connect to (required)")

	rootCmd.AddCommand(hostsCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func listHosts(cmd *cobra.Command) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hosts, err := signaling.ListHosts(ctx, cfg.SignalingURL, cfg.EnsureViewerID(), logger)
	if err != nil {
		return err
	}
	if len(hosts) == 0 {
		fmt.Println("no hosts registered")
		return nil
	}
	for _, h := range hosts {
		state := "offline"
		if h.Online {
			state = "online"
		}
		fmt.Printf("%s\t%s\t%s\n", h.ID, state, h.Describe())
	}
	return nil
}

func runViewer(cmd *cobra.Command) error {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	if cfg.HostID == "" {
		return errors.New("--host is required")
	}
	viewerID := cfg.EnsureViewerID()

	// Only the newest frame matters for display.
	frames := capture.NewChannel(capture.ChannelOptions{Capacity: 2, Overflow: capture.OverflowDropOldest})
	recv := transport.NewReceiver(frames, logger)

	var viewer *peer.Viewer
	sig := signaling.NewClient(cfg.SignalingURL, viewerID, signaling.RoleViewer, signaling.Handler{
		OnRegistered: func() {
			if err := viewer.Connect(); err != nil {
				logger.Error("send offer", logging.KeyError, err)
				frames.CloseSend()
			}
		},
		OnAnswer: func(from string, payload json.RawMessage) {
			if err := viewer.HandleAnswer(payload); err != nil {
				logger.Error("handle answer", logging.KeyError, err)
			}
		},
		OnICECandidate: func(from string, payload json.RawMessage) {
			if err := viewer.HandleICECandidate(payload); err != nil {
				logger.Warn("handle ICE candidate", logging.KeyError, err)
			}
		},
		OnHostDisconnected: func(hostID string) {
			if hostID == cfg.HostID {
				logger.Info("host disconnected", "host", hostID)
				frames.CloseSend()
			}
		},
		OnError: func(msg string) {
			logger.Warn("signaling error", "message", msg)
		},
	}, logger)

	viewer, err = peer.NewViewer(sig, cfg.HostID, recv, logger)
	if err != nil {
		return err
	}
	defer viewer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sig.Connect(ctx); err != nil {
		return err
	}
	defer sig.Close()

	go func() {
		select {
		case <-viewer.Done():
		case <-sig.Done():
		}
		frames.CloseSend()
	}()

	logger.Info("viewer starting", "viewer_id", viewerID, "host", cfg.HostID, "signaling", cfg.SignalingURL)

	// RunGame must be on the main goroutine on macOS.
	win := display.NewWindow(frames, "framecap - "+cfg.HostID)
	err = win.Run()

	malformed, abandoned := recv.Stats()
	logger.Info("viewer stopped", "malformed", malformed, "abandoned", abandoned)
	return err
}
