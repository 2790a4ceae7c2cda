package system

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func fakeFFmpeg(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

// encoderScript fakes an ffmpeg that lists listed and whose test encode
// succeeds only for the encoders in working.
func encoderScript(listed, working string) string {
	return `case "$*" in
  *-encoders*) echo '` + listed + `' ;;
  *` + working + `*) exit 0 ;;
  *) echo 'Cannot load libcuda.so.1' >&2; exit 1 ;;
esac
`
}

func TestBestH264Encoder(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"nvenc works", encoderScript(" V....D h264_nvenc NVENC\n V....D libx264", "h264_nvenc"), "h264_nvenc"},
		{"nvenc listed without a gpu", encoderScript(" V....D h264_nvenc NVENC\n V....D libx264", "no-such-encoder"), "libx264"},
		{"videotoolbox preferred", encoderScript(" V....D h264_nvenc\n V....D h264_videotoolbox", "h264_"), "h264_videotoolbox"},
		{"software only", encoderScript(" V....D libx264 libx264 H.264", "libx264"), "libx264"},
		{"ffmpeg broken", "exit 1\n", "libx264"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := fakeFFmpeg(t, tt.script)
			if got := BestH264Encoder(context.Background(), bin); got != tt.want {
				t.Errorf("BestH264Encoder = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanEncodeArgs(t *testing.T) {
	// The fake records its arguments so the test encode shape can be checked.
	dir := t.TempDir()
	log := filepath.Join(dir, "args")
	bin := fakeFFmpeg(t, `echo "$*" > `+log+"\n")

	if !canEncode(context.Background(), bin, "h264_nvenc") {
		t.Fatal("zero exit should count as usable")
	}
	data, err := os.ReadFile(log)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"-f lavfi", "-i nullsrc=s=256x256", "-c:v h264_nvenc", "-frames:v 1", "-f null"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("args %q missing %q", data, want)
		}
	}
}

func TestBestH264EncoderMissingBinary(t *testing.T) {
	if got := BestH264Encoder(context.Background(), filepath.Join(t.TempDir(), "nope")); got != "libx264" {
		t.Errorf("got %q", got)
	}
}

func TestSnapshot(t *testing.T) {
	r, err := Snapshot(context.Background())
	if err != nil {
		t.Skipf("memory stats unavailable here: %v", err)
	}
	if r.LogicalCPUs < 1 {
		t.Errorf("cpus = %d", r.LogicalCPUs)
	}
	if r.TotalMemory == 0 || r.AvailableMemory > r.TotalMemory {
		t.Errorf("implausible memory: %+v", r)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    uint64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{16 << 30, "16.0 GiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
