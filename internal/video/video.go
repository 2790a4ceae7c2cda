// Package video assembles numbered frame images into an MP4 with ffmpeg.
package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	pkgerrors "github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/ivlev/planetreel/internal/config"
	"github.com/ivlev/planetreel/internal/system"
)

type Encoder interface {
	// CheckAvailable fails with *DependencyMissingError when the encoder
	// tool cannot be run.
	CheckAvailable(ctx context.Context) error
	// Assemble encodes framesDir/<pattern> at fps into outPath,
	// replacing any existing file.
	Assemble(ctx context.Context, framesDir, outPath string, fps int) error
}

// DependencyMissingError means an external program the run depends on is
// absent or broken.
type DependencyMissingError struct {
	Name string
	Err  error
}

func (e *DependencyMissingError) Error() string {
	return fmt.Sprintf("required tool %q is not available: %v", e.Name, e.Err)
}

func (e *DependencyMissingError) Unwrap() error { return e.Err }

// EncodeError carries the ffmpeg output of a failed assembly.
type EncodeError struct {
	Output string
	Err    error
}

func (e *EncodeError) Error() string {
	out := strings.TrimSpace(e.Output)
	if i := strings.LastIndexByte(out, '\n'); i >= 0 {
		out = out[i+1:]
	}
	return fmt.Sprintf("ffmpeg: %v: %s", e.Err, out)
}

func (e *EncodeError) Unwrap() error { return e.Err }

type FFmpegEncoder struct {
	cfg     config.VideoConfig
	pattern string
	codec   string
}

// NewFFmpegEncoder reads frames named by pattern, a printf pattern such as
// "frame_%04d.png".
func NewFFmpegEncoder(cfg config.VideoConfig, pattern string) *FFmpegEncoder {
	return &FFmpegEncoder{cfg: cfg, pattern: pattern, codec: cfg.Codec}
}

func (e *FFmpegEncoder) CheckAvailable(ctx context.Context) error {
	path, err := exec.LookPath(e.cfg.FFmpegPath)
	if err != nil {
		return &DependencyMissingError{Name: e.cfg.FFmpegPath, Err: err}
	}
	if out, err := exec.CommandContext(ctx, path, "-version").CombinedOutput(); err != nil {
		return &DependencyMissingError{
			Name: e.cfg.FFmpegPath,
			Err:  &EncodeError{Output: string(out), Err: err},
		}
	}
	if e.cfg.Codec == config.CodecAuto {
		e.codec = system.BestH264Encoder(ctx, path)
	}
	return nil
}

// Codec is the encoder ffmpeg is asked to use. With the "auto" setting it is
// only known after CheckAvailable.
func (e *FFmpegEncoder) Codec() string {
	if e.codec == config.CodecAuto {
		return "libx264"
	}
	return e.codec
}

// BuildArgs returns the ffmpeg arguments for one assembly.
func (e *FFmpegEncoder) BuildArgs(framesDir, outPath string, fps int) []string {
	codec := e.Codec()
	out := ffmpeg.KwArgs{
		"c:v":     codec,
		"pix_fmt": e.cfg.PixelFormat,
	}
	if e.cfg.MovFlags != "" {
		out["movflags"] = e.cfg.MovFlags
	}

	if q := e.cfg.Quality; q > 0 {
		switch codec {
		case "h264_videotoolbox":
			out["b:v"] = fmt.Sprintf("%dk", q*100)
		case "h264_nvenc":
			out["cq"] = q
		default:
			out["crf"] = q
		}
	}
	if codec == "libx264" && e.cfg.Preset != "" {
		out["preset"] = e.cfg.Preset
	}

	return ffmpeg.Input(filepath.Join(framesDir, e.pattern), ffmpeg.KwArgs{"framerate": fps}).
		Output(outPath, out).
		OverWriteOutput().
		GetArgs()
}

// Assemble encodes into a ".part" sibling of outPath and renames it into
// place only after ffmpeg succeeds. A failed or cancelled encode leaves no
// file at outPath and keeps whatever video was there before.
func (e *FFmpegEncoder) Assemble(ctx context.Context, framesDir, outPath string, fps int) error {
	if fps <= 0 {
		return fmt.Errorf("fps must be positive, got %d", fps)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return pkgerrors.Wrap(err, "create output dir")
	}

	part := PartPath(outPath)
	cmd := exec.CommandContext(ctx, e.cfg.FFmpegPath, e.BuildArgs(framesDir, part, fps)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		os.Remove(part)
		if errors.Is(err, exec.ErrNotFound) {
			return &DependencyMissingError{Name: e.cfg.FFmpegPath, Err: err}
		}
		return pkgerrors.Wrapf(&EncodeError{Output: string(out), Err: err}, "encode %s", filepath.Base(outPath))
	}

	if err := os.Rename(part, outPath); err != nil {
		os.Remove(part)
		return pkgerrors.Wrapf(err, "finish %s", filepath.Base(outPath))
	}
	return nil
}

// PartPath is where Assemble writes before the video is complete. The
// extension is kept so ffmpeg still picks the container from it.
func PartPath(outPath string) string {
	ext := filepath.Ext(outPath)
	return strings.TrimSuffix(outPath, ext) + ".part" + ext
}
