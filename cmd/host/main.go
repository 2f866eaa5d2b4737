package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "0.1.0"
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:          "framecap-host",
	Short:        "Screen capture host",
	Long:         `framecap-host captures a display region and streams raw RGBA frames to viewers over WebRTC.`,
	SilenceUsage: true,
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Start a capture session and serve it to viewers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCapture(cmd)
	},
}

var displaysCmd = &cobra.Command{
	Use:   "displays",
	Short: "List active displays and the output size each would produce",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listDisplays(cmd)
	},
}

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "Check screen capture support and permission",
	RunE: func(cmd *cobra.Command, args []string) error {
		request, _ := cmd.Flags().GetBool("request")
		return checkPermissions(request)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("framecap-host v%s\n", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./framecap.yaml)")
	pf.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "text", "log format: text or json")

	f := captureCmd.Flags()
	f.String("backend", "screenshot", "capture backend: screenshot, coregraphics, synthetic")
	f.Int("display", 0, "display index (0 = primary)")
	f.Float64("x", 0, "source rectangle left edge")
	f.Float64("y", 0, "source rectangle top edge")
	f.Float64("width", 0, "source rectangle width (0 = full display)")
	f.Float64("height", 0, "source rectangle height")
	f.String("resolution", "captured", "output resolution: captured, 480p, 720p, 1080p, 1440p, 2160p, 4320p")
	f.Int("fps", 30, "target frames per second (1-60)")
	f.Int("buffer", 8, "frame buffer capacity (0 = unbounded)")
	f.String("overflow", "drop-oldest", "full buffer policy: block, drop-newest, drop-oldest")
	f.Bool("stop-on-error", false, "end the session on the first frame extraction failure")
	f.String("signaling", "ws://localhost:8080", "signaling server WebSocket URL")
	f.String("host", "", "host ID to register as (random if empty)")
	f.Bool("local", false, "capture without signaling and only log statistics")
	f.Duration("duration", 0, "stop after this long (0 = until interrupted)")

	displaysCmd.Flags().String("backend", "screenshot", "capture backend")
	displaysCmd.Flags().String("resolution", "captured", "output resolution to preview")

	permissionsCmd.Flags().Bool("request", false, "prompt for permission if missing")

	rootCmd.AddCommand(captureCmd, displaysCmd, permissionsCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
