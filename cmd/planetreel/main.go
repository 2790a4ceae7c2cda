package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/planetreel/internal/config"
	"github.com/ivlev/planetreel/internal/engine"
	"github.com/ivlev/planetreel/internal/logging"
	"github.com/ivlev/planetreel/internal/report"
	"github.com/ivlev/planetreel/internal/sampler"
	"github.com/ivlev/planetreel/internal/video"
)

func run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewDefaultConfig()
	if path := cmd.String("config"); path != "" {
		if err := config.Load(path, cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.ResolveCredentials(os.Getenv)

	logger := logging.New(cfg.Log, os.Stderr)
	slog.SetDefault(logger)
	if cfg.TokenSource != "" {
		logger.Debug("using token", slog.String("from", cfg.TokenSource))
	}

	project := engine.NewProject(cfg, video.NewFFmpegEncoder(cfg.Video, sampler.FramePattern), logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	var rep *report.Report
	g.Go(func() error {
		defer cancel()
		var err error
		rep, err = project.Run(gCtx)
		return err
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Warn("received shutdown signal, stopping", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("run interrupted, finished videos were kept")
		}
		return err
	}

	if n := len(rep.Entries) - rep.Count(report.StatusOK); n > 0 {
		logger.Warn("some planets have no video", slog.Int("count", n))
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "planetreel",
		Usage:  "Generate a short AI-rendered video for every planet in a catalog",
		Action: run,
		Flags:  flags(),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
