package system

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Resources is a snapshot of the host the run is about to load.
type Resources struct {
	LogicalCPUs     int
	TotalMemory     uint64
	AvailableMemory uint64
}

// Snapshot reads CPU and memory figures. CPU count falls back to
// runtime.NumCPU when gopsutil cannot read it.
func Snapshot(ctx context.Context) (Resources, error) {
	var r Resources

	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil || n == 0 {
		n = runtime.NumCPU()
	}
	r.LogicalCPUs = n

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return r, fmt.Errorf("read memory stats: %w", err)
	}
	r.TotalMemory = vm.Total
	r.AvailableMemory = vm.Available
	return r, nil
}

// FormatBytes renders n with a binary unit, e.g. "15.6 GiB".
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// hardwareH264 lists hardware encoders in order of preference.
// 1. macOS (VideoToolbox)
// 2. NVIDIA (NVENC)
var hardwareH264 = []string{"h264_videotoolbox", "h264_nvenc"}

// BestH264Encoder asks ffmpeg which encoders it was built with and returns
// the first preferred hardware H.264 encoder that can actually encode a
// frame on this host. Builds often list nvenc without a GPU present, so a
// listing alone is not enough. Falls back to libx264.
func BestH264Encoder(ctx context.Context, ffmpegPath string) string {
	out, err := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	listing := string(out)
	for _, name := range hardwareH264 {
		if strings.Contains(listing, name) && canEncode(ctx, ffmpegPath, name) {
			return name
		}
	}
	return "libx264"
}

// canEncode runs a one-frame encode of a synthetic source with encoder and
// discards the result.
func canEncode(ctx context.Context, ffmpegPath, encoder string) bool {
	args := ffmpeg.Input("nullsrc=s=256x256", ffmpeg.KwArgs{"f": "lavfi"}).
		Output("-", ffmpeg.KwArgs{"c:v": encoder, "frames:v": 1, "f": "null"}).
		GetArgs()
	args = append([]string{"-hide_banner", "-loglevel", "error"}, args...)
	return exec.CommandContext(ctx, ffmpegPath, args...).Run() == nil
}
