// Package main provides the CLI entry point for vidplay.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/user/supervideo/pkg/adapters/filesink"
	"github.com/user/supervideo/pkg/adapters/logger"
	"github.com/user/supervideo/pkg/adapters/mp4demuxer"
	"github.com/user/supervideo/pkg/adapters/nullsink"
	"github.com/user/supervideo/pkg/adapters/osfilesystem"
	"github.com/user/supervideo/pkg/adapters/smartdecoder"
	"github.com/user/supervideo/pkg/adapters/softgpu"
	"github.com/user/supervideo/pkg/config"
	"github.com/user/supervideo/pkg/ports"
	"github.com/user/supervideo/pkg/summarizer"
	"github.com/user/supervideo/pkg/supervideo"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "vidplay",
		Usage:   l10n.T("Play MP4 videos through the frame pipeline"),
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file")},
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Usage: l10n.T("Log level (debug, info, warn, error)")},
			&cli.StringFlag{Name: "log-format", Usage: l10n.T("Log format (console, json, text)")},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"Q"}, Usage: l10n.T("Suppress all log output")},
		},
		Commands: []*cli.Command{
			{
				Name:      "probe",
				Usage:     l10n.T("Describe the video track of a file"),
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: l10n.T("Directory to save probe.yaml in")},
				},
				Action: probeAction,
			},
			{
				Name:      "play",
				Usage:     l10n.T("Play a file and save snapshots of presented frames"),
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output-strategy", Aliases: []string{"s"}, Usage: l10n.T("Output strategy (auto, packed, planar, swizzle)")},
					&cli.StringFlag{Name: "snapshots", Usage: l10n.T("Directory for PNG snapshots")},
					&cli.BoolFlag{Name: "frame-skip", Usage: l10n.T("Drop frames that fall behind the playback clock")},
					&cli.DurationFlag{Name: "max-duration", Usage: l10n.T("Stop after this much playback time")},
					&cli.StringFlag{Name: "summary", Usage: l10n.T("Write a Markdown playback summary to this path")},
				},
				Action: playAction,
			},
			{
				Name:      "texture",
				Usage:     l10n.T("Load an .astc texture and describe it"),
				ArgsUsage: "<file.astc>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "srgb", Usage: l10n.T("Treat the texture as sRGB")},
				},
				Action: textureAction,
			},
			{
				Name:  "version",
				Usage: l10n.T("Show version information"),
				Action: func(c *cli.Context) error {
					fmt.Println(l10n.F("vidplay version %s", version))
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig merges the config file and the global flags.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}
	if c.Bool("quiet") {
		cfg.LogLevel = ports.LevelQuiet.String()
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) ports.Logger {
	level := cfg.Level()
	switch {
	case level == ports.LevelQuiet:
		return logger.NewNoop()
	case cfg.LogFormat == config.FormatJSON:
		return logger.NewLogrus(os.Stderr, level, true)
	case cfg.LogFormat == config.FormatText:
		return logger.NewLogrus(os.Stderr, level, false)
	default:
		return logger.NewConsole(level)
	}
}

func requireFile(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("%w: %s", ports.ErrInvalidArgument, l10n.T("exactly one video file is required"))
	}
	return c.Args().First(), nil
}

// probeReport is the YAML document printed by probe.
type probeReport struct {
	Path       string        `yaml:"path"`
	TrackIndex int           `yaml:"track_index"`
	TrackID    uint32        `yaml:"track_id"`
	MimeType   string        `yaml:"mime_type"`
	Width      int           `yaml:"width"`
	Height     int           `yaml:"height"`
	Duration   time.Duration `yaml:"duration"`
	Samples    int           `yaml:"samples"`
	Backend    string        `yaml:"backend,omitempty"`
	Playable   bool          `yaml:"playable"`
}

func probe(path string, fs ports.FileSystem, decoders *smartdecoder.Factory) (probeReport, error) {
	f, err := fs.Open(path)
	if err != nil {
		return probeReport{}, err
	}
	defer f.Close()
	d, err := mp4demuxer.NewFromReader(f)
	if err != nil {
		return probeReport{}, err
	}
	source := d.Source()
	report := probeReport{
		Path:       path,
		TrackIndex: source.TrackIndex,
		TrackID:    source.TrackID,
		MimeType:   source.MimeType,
		Width:      source.Width,
		Height:     source.Height,
		Duration:   source.Duration,
		Samples:    d.SampleCount(),
	}
	if info, err := decoders.Select(source); err == nil {
		report.Backend = string(info.Backend)
		report.Playable = true
	}
	return report, nil
}

func probeAction(c *cli.Context) error {
	path, err := requireFile(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	fs := osfilesystem.New()

	report, err := probe(path, fs, smartdecoder.NewFactory(cfg.DecoderOptions(), log))
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode probe: %w", err)
	}
	fmt.Print(string(data))

	if dir := c.String("out"); dir != "" {
		if err := fs.MkdirAll(dir); err != nil {
			return err
		}
		return filesink.New(dir, fs).SaveProbe(data)
	}
	return nil
}

func playAction(c *cli.Context) error {
	path, err := requireFile(c)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("output-strategy") {
		cfg.OutputStrategy = c.String("output-strategy")
	}
	if c.Bool("frame-skip") {
		cfg.Pacing.FrameSkip = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := newLogger(cfg)
	fs := osfilesystem.New()

	var sink ports.FrameSink = nullsink.New()
	if dir := c.String("snapshots"); dir != "" {
		sink = filesink.New(dir, fs)
	}

	dev, err := softgpu.NewDevice(cfg.Render.Width, cfg.Render.Height)
	if err != nil {
		return err
	}
	player, err := supervideo.New(supervideo.Options{
		Device:   dev,
		Demuxers: mp4demuxer.NewOpener(fs),
		Decoders: smartdecoder.NewFactory(cfg.DecoderOptions(), log),
		Output:   cfg.StrategyKind(),
		Playback: cfg.PlaybackConfig(),
		Logger:   log,
	})
	if err != nil {
		return err
	}
	defer player.Dispose()

	if err := player.Play(path); err != nil {
		return err
	}
	log.Info("Output strategy: %s", cfg.StrategyKind().Resolve())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	r := &renderer{
		dev:        dev,
		player:     player,
		sink:       sink,
		log:        log,
		background: config.ParseColor(cfg.Render.Background),
	}
	started := time.Now()
	r.run(cfg.FrameInterval(), c.Duration("max-duration"), stop)

	playErr := player.Err()
	report := buildSummary(player, cfg, r, time.Since(started), playErr)
	player.Stop()
	log.Info("Presented %d frames, %d skipped", r.stats.Presented, r.stats.Skipped)

	if out := c.String("summary"); out != "" {
		if err := summarizer.NewWriter(summarizer.NewMarkdownFormatter(), fs).Write(out, report); err != nil {
			log.Error("Failed to write summary: %v", err)
		} else {
			log.Info("Summary written to %s", out)
		}
	}
	return playErr
}

// buildSummary collects the session report. It must run before Stop clears
// the session.
func buildSummary(player *supervideo.Player, cfg config.Config, r *renderer, elapsed time.Duration, playErr error) *summarizer.Summary {
	stats := player.Stats()
	b := summarizer.NewBuilder().
		WithSettings(summarizer.Settings{
			OutputStrategy: string(cfg.StrategyKind().Resolve()),
			FrameSkip:      cfg.Pacing.FrameSkip,
			RenderWidth:    cfg.Render.Width,
			RenderHeight:   cfg.Render.Height,
			FPS:            cfg.Render.FPS,
		}).
		WithPlayback(summarizer.PlaybackInfo{
			Decoded:   stats.Decoded,
			Presented: stats.Presented,
			Skipped:   stats.Skipped,
			Backwards: stats.Backwards,
			Slept:     stats.Slept,
			Position:  player.PlayPosition(),
			Elapsed:   elapsed,
		}).
		WithHandoff(summarizer.HandoffInfo{
			Published:     stats.Handoff.Published,
			Overwritten:   stats.Handoff.Overwritten,
			Notifications: stats.Handoff.Notifications,
			Conversions:   stats.Conversions,
			SavedFrames:   r.saved,
		}).
		WithError(playErr)
	if source, ok := player.Source(); ok {
		b.WithVideo(summarizer.VideoInfo{
			Path:     player.VideoPath(),
			MimeType: source.MimeType,
			Width:    source.Width,
			Height:   source.Height,
			Duration: source.Duration,
		})
	}
	return b.Build()
}
