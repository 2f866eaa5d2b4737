// Package config loads framecap settings from a YAML file, FRAMECAP_*
// environment variables and command-line flags, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/junsooki/framecap/internal/capture"
)

// Source is the capture rectangle in display pixels. Width 0 selects the
// whole display.
type Source struct {
	X      float64 `mapstructure:"x"`
	Y      float64 `mapstructure:"y"`
	Width  float64 `mapstructure:"width"`
	Height float64 `mapstructure:"height"`
}

// Config holds all runtime configuration.
type Config struct {
	Backend            string `mapstructure:"backend"`
	Display            int    `mapstructure:"display"`
	Source             Source `mapstructure:"source"`
	Resolution         string `mapstructure:"resolution"`
	FPS                int    `mapstructure:"fps"`
	BufferCapacity     int    `mapstructure:"buffer_capacity"`
	Overflow           string `mapstructure:"overflow"`
	StopOnExtractError bool   `mapstructure:"stop_on_extract_error"`

	SignalingURL string `mapstructure:"signaling_url"`
	HostID       string `mapstructure:"host_id"`
	ViewerID     string `mapstructure:"viewer_id"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend:        "screenshot",
		Resolution:     "captured",
		FPS:            30,
		BufferCapacity: 8,
		Overflow:       "drop-oldest",
		SignalingURL:   "ws://localhost:8080",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// flagKeys maps config keys to the flag names the binaries register.
var flagKeys = map[string]string{
	"backend":               "backend",
	"display":               "display",
	"source.x":              "x",
	"source.y":              "y",
	"source.width":          "width",
	"source.height":         "height",
	"resolution":            "resolution",
	"fps":                   "fps",
	"buffer_capacity":       "buffer",
	"overflow":              "overflow",
	"stop_on_extract_error": "stop-on-error",
	"signaling_url":         "signaling",
	"host_id":               "host",
	"viewer_id":             "id",
	"log_level":             "log-level",
	"log_format":            "log-format",
}

// Load reads cfgFile (or framecap.yaml from the working directory when empty),
// then FRAMECAP_* environment variables, then any flags in fs that were set.
func Load(cfgFile string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("framecap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FRAMECAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if fs != nil {
		for key, name := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("backend", d.Backend)
	v.SetDefault("display", d.Display)
	v.SetDefault("source.x", d.Source.X)
	v.SetDefault("source.y", d.Source.Y)
	v.SetDefault("source.width", d.Source.Width)
	v.SetDefault("source.height", d.Source.Height)
	v.SetDefault("resolution", d.Resolution)
	v.SetDefault("fps", d.FPS)
	v.SetDefault("buffer_capacity", d.BufferCapacity)
	v.SetDefault("overflow", d.Overflow)
	v.SetDefault("stop_on_extract_error", d.StopOnExtractError)
	v.SetDefault("signaling_url", d.SignalingURL)
	v.SetDefault("host_id", d.HostID)
	v.SetDefault("viewer_id", d.ViewerID)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
}

// SourceRect returns the configured capture rectangle, or nil for the full
// display.
func (c *Config) SourceRect() *capture.Rect {
	if c.Source.Width == 0 && c.Source.Height == 0 {
		return nil
	}
	r := capture.NewRect(c.Source.X, c.Source.Y, c.Source.Width, c.Source.Height)
	return &r
}

// SessionOptions converts the configuration into capture session options.
// Validate should be called first.
func (c *Config) SessionOptions(logger *slog.Logger) (capture.Options, error) {
	res, err := capture.ParseResolution(c.Resolution)
	if err != nil {
		return capture.Options{}, err
	}
	overflow, err := capture.ParseOverflowPolicy(c.Overflow)
	if err != nil {
		return capture.Options{}, err
	}
	return capture.Options{
		Source:     c.SourceRect(),
		Resolution: res,
		FrameRate:  c.FPS,
		Channel: capture.ChannelOptions{
			Capacity: c.BufferCapacity,
			Overflow: overflow,
		},
		StopOnExtractError: c.StopOnExtractError,
		Logger:             logger,
	}, nil
}

// EnsureHostID fills HostID with a random id when unset.
func (c *Config) EnsureHostID() string {
	if c.HostID == "" {
		c.HostID = "host-" + shortID()
	}
	return c.HostID
}

// EnsureViewerID fills ViewerID with a random id when unset.
func (c *Config) EnsureViewerID() string {
	if c.ViewerID == "" {
		c.ViewerID = "viewer-" + shortID()
	}
	return c.ViewerID
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
