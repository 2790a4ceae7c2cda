package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestWriteAndRead(t *testing.T) {
	r := New("runwayml/stable-diffusion-v1-5", "huggingface")
	r.Add(Entry{Name: "Kepler-10b", Identifier: "Kepler-10b", Video: "out/Kepler-10b.mp4", Frames: 2, Status: StatusOK, Duration: 1500 * time.Millisecond})
	r.Add(Entry{Name: "??bad/name", Identifier: "bad_name", Frames: 1, Status: StatusFramesFailed, Error: "frame 1 (seed 1007): boom"})
	r.FinishedAt = r.StartedAt.Add(time.Minute)

	path := filepath.Join(t.TempDir(), "reports", "run.yaml")
	if err := Write(r, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "status: frames_failed") || !strings.Contains(string(raw), "duration: 1.5s") {
		t.Errorf("unexpected YAML:\n%s", raw)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Version != Version || got.Backend != "huggingface" || len(got.Entries) != 2 {
		t.Fatalf("read back %+v", got)
	}
	if got.Entries[0].Duration != 1500*time.Millisecond {
		t.Errorf("duration = %v", got.Entries[0].Duration)
	}
	if !got.FinishedAt.Equal(r.FinishedAt) {
		t.Errorf("finished_at = %v, want %v", got.FinishedAt, r.FinishedAt)
	}
}

func TestCount(t *testing.T) {
	r := New("m", "placeholder")
	for _, s := range []string{StatusOK, StatusOK, StatusEncodeFailed, StatusSkipped} {
		r.Add(Entry{Status: s})
	}
	if r.Count(StatusOK) != 2 || r.Count(StatusEncodeFailed) != 1 || r.Count(StatusFramesFailed) != 0 {
		t.Errorf("counts wrong: %+v", r.Entries)
	}
}

func TestReadMissing(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error")
	}
}
