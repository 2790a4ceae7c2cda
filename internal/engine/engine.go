// Package engine runs a whole batch: it checks dependencies, loads the
// catalog and turns every record into a frame sequence and a video.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ivlev/planetreel/internal/catalog"
	"github.com/ivlev/planetreel/internal/config"
	"github.com/ivlev/planetreel/internal/generator"
	"github.com/ivlev/planetreel/internal/prompt"
	"github.com/ivlev/planetreel/internal/report"
	"github.com/ivlev/planetreel/internal/sampler"
	"github.com/ivlev/planetreel/internal/system"
	"github.com/ivlev/planetreel/internal/video"
)

// GeneratorFactory builds the image generator for a run.
type GeneratorFactory func(cfg *config.Config) (generator.Generator, error)

type Project struct {
	Config       *config.Config
	Encoder      video.Encoder
	NewGenerator GeneratorFactory
	Logger       *slog.Logger
}

func NewProject(cfg *config.Config, enc video.Encoder, log *slog.Logger) *Project {
	return &Project{
		Config:       cfg,
		Encoder:      enc,
		NewGenerator: generator.New,
		Logger:       log,
	}
}

// Run processes the catalog. Dependency, credential, catalog and model
// problems abort before any record is touched; a failing record is logged
// and recorded in the report while the remaining records continue.
// Cancelling ctx stops the run between records and returns ctx.Err()
// together with the partial report.
func (p *Project) Run(ctx context.Context) (*report.Report, error) {
	cfg := p.Config
	log := p.Logger

	// The encoder is checked first so a missing ffmpeg costs no model work.
	if err := p.Encoder.CheckAvailable(ctx); err != nil {
		return nil, err
	}
	if err := cfg.RequireCredential(); err != nil {
		return nil, err
	}

	records, err := catalog.Load(cfg.Input.Path)
	if err != nil {
		return nil, err
	}
	records = catalog.Limit(records, cfg.Input.Limit)

	gen, err := p.NewGenerator(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("loading model", slog.String("model", cfg.Model.ID), slog.String("backend", cfg.Model.Backend))
	if err := gen.Probe(ctx); err != nil {
		return nil, fmt.Errorf("model %s unavailable: %w", cfg.Model.ID, err)
	}

	p.logResources(ctx)

	rep := report.New(cfg.Model.ID, cfg.Model.Backend)
	stats := RunStats{Total: len(records), Started: rep.StartedAt}
	log.Info("starting batch",
		slog.Int("records", stats.Total),
		slog.Int("frames", cfg.Frames.Count),
		slog.String("size", fmt.Sprintf("%dx%d", cfg.Frames.Width, cfg.Frames.Height)),
		slog.Int("fps", cfg.Video.FPS))

	resolver := prompt.NewResolver(cfg.Work.Collision)
	smp := sampler.New(gen, log)

	for _, rec := range records {
		if ctx.Err() != nil {
			log.Warn("interrupted", slog.Int("remaining", stats.Total-stats.Attempted))
			break
		}
		stats.Attempted++
		log.Info("processing",
			slog.Int("record", stats.Attempted),
			slog.Int("of", stats.Total),
			slog.String("name", rec.Name))

		entry := p.processRecord(ctx, rec, resolver, smp)
		rep.Add(entry)
		stats.Record(entry.Status)

		if entry.Status != report.StatusOK {
			log.Error("record failed",
				slog.String("name", rec.Name),
				slog.String("status", entry.Status),
				slog.String("reason", entry.Error))
			continue
		}
		log.Info("video ready", slog.String("name", rec.Name), slog.String("path", entry.Video), slog.Duration("took", entry.Duration))
	}

	rep.FinishedAt = time.Now()
	stats.Elapsed = rep.FinishedAt.Sub(stats.Started)
	stats.Log(log)

	if cfg.Report.Path != "" {
		if err := report.Write(rep, cfg.Report.Path); err != nil {
			log.Warn("cannot write report", slog.String("path", cfg.Report.Path), slog.Any("err", err))
		} else {
			log.Info("report written", slog.String("path", cfg.Report.Path))
		}
	}

	return rep, ctx.Err()
}

func (p *Project) processRecord(ctx context.Context, rec catalog.Record, resolver *prompt.Resolver, smp *sampler.Sampler) report.Entry {
	cfg := p.Config
	start := time.Now()
	entry := report.Entry{Name: rec.Name}
	fail := func(status string, err error) report.Entry {
		entry.Status = status
		entry.Error = err.Error()
		entry.Duration = time.Since(start)
		return entry
	}

	pr := prompt.Build(rec)
	id, err := resolver.Resolve(rec, pr)
	if err != nil {
		return fail(report.StatusSkipped, err)
	}
	entry.Identifier = id

	dir := filepath.Join(cfg.Work.Dir, id)
	if err := sampler.ClearFrames(dir); err != nil {
		return fail(report.StatusFramesFailed, fmt.Errorf("clear %s: %w", dir, err))
	}

	frames, err := smp.Sample(ctx, sampler.Request{
		BasePrompt: pr.Base,
		Dir:        dir,
		Count:      cfg.Frames.Count,
		Width:      cfg.Frames.Width,
		Height:     cfg.Frames.Height,
		Steps:      cfg.Model.Steps,
		Seeds:      cfg.Frames.Seeds,
	})
	entry.Frames = len(frames)
	if err != nil {
		return fail(report.StatusFramesFailed, err)
	}

	out := filepath.Join(cfg.Output.Dir, id+".mp4")
	if err := p.Encoder.Assemble(ctx, dir, out, cfg.Video.FPS); err != nil {
		return fail(report.StatusEncodeFailed, err)
	}
	entry.Video = out

	if cfg.Work.Cleanup {
		if err := os.RemoveAll(dir); err != nil {
			p.Logger.Warn("cannot remove frames", slog.String("dir", dir), slog.Any("err", err))
		}
	}

	entry.Status = report.StatusOK
	entry.Duration = time.Since(start)
	return entry
}

func (p *Project) logResources(ctx context.Context) {
	res, err := system.Snapshot(ctx)
	if err != nil {
		p.Logger.Warn("cannot read host resources", slog.Any("err", err))
		return
	}
	p.Logger.Info("host resources",
		slog.Int("cpus", res.LogicalCPUs),
		slog.String("memory_total", system.FormatBytes(res.TotalMemory)),
		slog.String("memory_available", system.FormatBytes(res.AvailableMemory)))

	// One decoded frame plus its scaled copy live at a time.
	need := uint64(p.Config.Frames.Width) * uint64(p.Config.Frames.Height) * 4 * 2
	if res.AvailableMemory < need {
		p.Logger.Warn("available memory is below the size of one frame pair",
			slog.String("need", system.FormatBytes(need)))
	}
}
