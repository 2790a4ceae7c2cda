package main

import (
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/ivlev/planetreel/internal/config"
)

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to an optional YAML config file; flags override it",
			Sources: cli.EnvVars("PLANETREEL_CONFIG"),
		},
		&cli.StringFlag{Name: "data", Value: config.DefaultDataPath, Usage: "Planet catalog (JSON, or YAML by extension)"},
		&cli.StringFlag{Name: "outdir", Value: config.DefaultOutputDir, Usage: "Directory for the finished videos"},
		&cli.IntFlag{Name: "frames", Value: config.DefaultFrames, Usage: "Frames per video"},
		&cli.IntFlag{Name: "fps", Value: config.DefaultFPS, Usage: "Video frame rate"},
		&cli.IntFlag{Name: "width", Value: config.DefaultWidth, Usage: "Frame width, multiple of 8"},
		&cli.IntFlag{Name: "height", Value: config.DefaultHeight, Usage: "Frame height, multiple of 8"},
		&cli.StringFlag{Name: "model", Value: config.DefaultModel, Usage: "Text-to-image model id"},
		&cli.StringFlag{Name: "backend", Value: config.BackendHuggingFace, Usage: "huggingface, openai or placeholder"},
		&cli.IntFlag{Name: "steps", Value: config.DefaultSteps, Usage: "Inference steps per frame"},
		&cli.IntFlag{Name: "limit", Value: 0, Usage: "Process at most this many planets (0 = all)"},
		&cli.StringFlag{Name: "workdir", Value: config.DefaultWorkDir, Usage: "Working directory for frame images"},
		&cli.BoolFlag{Name: "cleanup", Usage: "Remove a planet's frames once its video is written"},
		&cli.StringFlag{Name: "codec", Value: "libx264", Usage: "H.264 encoder, or \"auto\" to pick a hardware one"},
		&cli.IntFlag{Name: "quality", Value: 0, Usage: "CRF for libx264, CQ for nvenc, bitrate/100k for videotoolbox (0 = default)"},
		&cli.StringFlag{Name: "collision", Value: config.CollisionSuffix, Usage: "Duplicate identifier policy: suffix or fail"},
		&cli.StringFlag{Name: "report", Usage: "Write a YAML run report to this path"},
		&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error"},
		&cli.StringFlag{Name: "log-format", Value: config.LogFormatText, Usage: "text or json"},
	}
}

// applyFlags copies explicitly set flags over cfg, so the precedence is
// defaults < config file < command line.
func applyFlags(cmd *cli.Command, cfg *config.Config) error {
	str := func(name string, dst *string) {
		if cmd.IsSet(name) {
			*dst = cmd.String(name)
		}
	}
	num := func(name string, dst *int) {
		if cmd.IsSet(name) {
			*dst = int(cmd.Int(name))
		}
	}

	str("data", &cfg.Input.Path)
	num("limit", &cfg.Input.Limit)
	str("outdir", &cfg.Output.Dir)
	num("frames", &cfg.Frames.Count)
	num("width", &cfg.Frames.Width)
	num("height", &cfg.Frames.Height)
	str("model", &cfg.Model.ID)
	str("backend", &cfg.Model.Backend)
	num("steps", &cfg.Model.Steps)
	num("fps", &cfg.Video.FPS)
	str("codec", &cfg.Video.Codec)
	num("quality", &cfg.Video.Quality)
	str("workdir", &cfg.Work.Dir)
	str("collision", &cfg.Work.Collision)
	str("report", &cfg.Report.Path)
	str("log-format", &cfg.Log.Format)
	if cmd.IsSet("cleanup") {
		cfg.Work.Cleanup = cmd.Bool("cleanup")
	}

	if cmd.IsSet("log-level") {
		if err := cfg.Log.Level.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
			return fmt.Errorf("--log-level: %w", err)
		}
	}

	cfg.Model.ApplyBackendDefaults()

	// A frame count change invalidates seeds taken from the config file.
	if cmd.IsSet("frames") && len(cfg.Frames.Seeds) != cfg.Frames.Count {
		cfg.Frames.Seeds = nil
	}
	return nil
}
