// Package sampler produces a record's frame sequence by calling the image
// generator once per frame and writing the results as numbered PNGs.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ivlev/planetreel/internal/generator"
	"github.com/ivlev/planetreel/internal/prompt"
	"github.com/ivlev/planetreel/internal/system"
)

// FramePattern is the printf pattern of frame file names. The encoder reads
// the same pattern, so lexical and numeric order always agree.
const FramePattern = "frame_%04d.png"

const (
	seedBase = 1000
	seedStep = 7
)

var ErrSeedCount = errors.New("seed list length does not match frame count")

// FrameName returns the file name of frame i.
func FrameName(i int) string {
	return fmt.Sprintf(FramePattern, i)
}

// DefaultSeeds returns the seeds used when none are configured: 1000 + 7*i.
func DefaultSeeds(n int) []int64 {
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = seedBase + int64(i)*seedStep
	}
	return seeds
}

type Request struct {
	BasePrompt string
	Dir        string
	Count      int
	Width      int
	Height     int
	Steps      int
	Seeds      []int64 // optional; DefaultSeeds(Count) when empty
}

type Frame struct {
	Index  int
	Seed   int64
	Prompt string
	Path   string
}

// FrameGenerationError reports the frame at which a sequence failed. Frames
// written before it stay on disk.
type FrameGenerationError struct {
	Index int
	Seed  int64
	Err   error
}

func (e *FrameGenerationError) Error() string {
	return fmt.Sprintf("frame %d (seed %d): %v", e.Index, e.Seed, e.Err)
}

func (e *FrameGenerationError) Unwrap() error { return e.Err }

type Sampler struct {
	gen generator.Generator
	log *slog.Logger
}

func New(gen generator.Generator, log *slog.Logger) *Sampler {
	return &Sampler{gen: gen, log: log}
}

// Sample generates req.Count frames into req.Dir, one at a time and in
// index order. The directory is created if needed; files already in it are
// left alone.
func (s *Sampler) Sample(ctx context.Context, req Request) ([]Frame, error) {
	if req.Count <= 0 {
		return nil, fmt.Errorf("frame count must be positive, got %d", req.Count)
	}
	seeds := req.Seeds
	if len(seeds) == 0 {
		seeds = DefaultSeeds(req.Count)
	} else if len(seeds) != req.Count {
		return nil, fmt.Errorf("%w: %d seeds, %d frames", ErrSeedCount, len(seeds), req.Count)
	}

	if err := os.MkdirAll(req.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create frame dir: %w", err)
	}

	frames := make([]Frame, 0, req.Count)
	for i, seed := range seeds {
		f := Frame{
			Index:  i,
			Seed:   seed,
			Prompt: prompt.FramePrompt(req.BasePrompt, i),
			Path:   filepath.Join(req.Dir, FrameName(i)),
		}

		start := time.Now()
		img, err := s.gen.Generate(ctx, generator.Request{
			Prompt: f.Prompt,
			Width:  req.Width,
			Height: req.Height,
			Steps:  req.Steps,
			Seed:   seed,
		})
		if err != nil {
			return frames, &FrameGenerationError{Index: i, Seed: seed, Err: err}
		}
		err = writePNG(f.Path, img)
		if rgba, ok := img.(*image.RGBA); ok {
			system.PutFrame(rgba)
		}
		if err != nil {
			return frames, &FrameGenerationError{Index: i, Seed: seed, Err: err}
		}

		frames = append(frames, f)
		s.log.Debug("frame ready",
			slog.Int("frame", i+1),
			slog.Int("of", req.Count),
			slog.Int64("seed", seed),
			slog.Duration("took", time.Since(start)))
	}
	return frames, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// ClearFrames removes every regular file in dir so a new sequence never mixes
// with frames from an earlier run. A missing dir is not an error.
func ClearFrames(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
