// Package config loads player settings from YAML.
package config

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/supervideo/pkg/adapters/smartdecoder"
	"github.com/user/supervideo/pkg/output"
	"github.com/user/supervideo/pkg/playback"
	"github.com/user/supervideo/pkg/ports"
)

// Config represents the full configuration for the player.
type Config struct {
	OutputStrategy string        `yaml:"output_strategy"`
	Decoder        DecoderConfig `yaml:"decoder"`
	Pacing         PacingConfig  `yaml:"pacing"`
	Render         RenderConfig  `yaml:"render"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DecoderConfig controls the decoder session.
type DecoderConfig struct {
	InputTimeoutMs  int    `yaml:"input_timeout_ms"`
	OutputTimeoutMs int    `yaml:"output_timeout_ms"`
	InputSlots      int    `yaml:"input_slots"`
	FFmpegPath      string `yaml:"ffmpeg_path"`
}

// PacingConfig controls presentation timing.
type PacingConfig struct {
	FrameSkip       bool `yaml:"frame_skip"`
	LateThresholdMs int  `yaml:"late_threshold_ms"`
	PausePollMs     int  `yaml:"pause_poll_ms"`
}

// RenderConfig controls the render loop of the command line player.
type RenderConfig struct {
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	FPS        float64 `yaml:"fps"`
	Background string  `yaml:"background"`
}

// Log formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatText    = "text"
)

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		OutputStrategy: string(output.Auto),
		Decoder: DecoderConfig{
			InputTimeoutMs:  100,
			OutputTimeoutMs: 100,
			InputSlots:      4,
		},
		Pacing: PacingConfig{
			LateThresholdMs: 100,
			PausePollMs:     20,
		},
		Render: RenderConfig{
			Width:      640,
			Height:     360,
			FPS:        30,
			Background: "#000000",
		},
		LogLevel:  "info",
		LogFormat: FormatConsole,
	}
}

// LoadFromFile loads configuration from a YAML file over the defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Validate checks enumerations and ranges.
func (c Config) Validate() error {
	if _, err := output.ParseKind(c.OutputStrategy); err != nil {
		return err
	}
	switch c.LogFormat {
	case "", FormatConsole, FormatJSON, FormatText:
	default:
		return fmt.Errorf("%w: log_format %q", ports.ErrInvalidArgument, c.LogFormat)
	}
	if c.Decoder.InputSlots < 0 {
		return fmt.Errorf("%w: decoder.input_slots %d", ports.ErrInvalidArgument, c.Decoder.InputSlots)
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 || c.Render.FPS <= 0 {
		return fmt.Errorf("%w: render %dx%d at %g fps", ports.ErrInvalidArgument, c.Render.Width, c.Render.Height, c.Render.FPS)
	}
	return nil
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// PlaybackConfig converts the decoder and pacing settings.
func (c Config) PlaybackConfig() playback.Config {
	return playback.Config{
		InputTimeout:  millis(c.Decoder.InputTimeoutMs),
		OutputTimeout: millis(c.Decoder.OutputTimeoutMs),
		FrameSkip:     c.Pacing.FrameSkip,
		LateThreshold: millis(c.Pacing.LateThresholdMs),
		PausePoll:     millis(c.Pacing.PausePollMs),
	}
}

// StrategyKind returns the configured output strategy.
func (c Config) StrategyKind() output.Kind {
	kind, err := output.ParseKind(c.OutputStrategy)
	if err != nil {
		return output.Auto
	}
	return kind
}

// DecoderOptions converts the decoder settings.
func (c Config) DecoderOptions() smartdecoder.Options {
	return smartdecoder.Options{
		FFmpegPath: c.Decoder.FFmpegPath,
		InputSlots: c.Decoder.InputSlots,
	}
}

// Level returns the configured log level.
func (c Config) Level() ports.LogLevel {
	return ports.ParseLogLevel(c.LogLevel)
}

// FrameInterval is the render tick period.
func (c Config) FrameInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.Render.FPS)
}

// ParseColor parses a #rrggbb hex color. Invalid input yields black.
func ParseColor(hex string) color.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return color.Black
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.Black
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
