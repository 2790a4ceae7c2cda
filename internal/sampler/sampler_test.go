package sampler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/ivlev/planetreel/internal/generator"
	"github.com/ivlev/planetreel/internal/logging"
)

// fakeGenerator records requests and fails on the configured call.
type fakeGenerator struct {
	requests []generator.Request
	failAt   int // 1-based call number, 0 = never
}

func (f *fakeGenerator) Probe(context.Context) error { return nil }

func (f *fakeGenerator) Generate(_ context.Context, r generator.Request) (image.Image, error) {
	f.requests = append(f.requests, r)
	if f.failAt == len(f.requests) {
		return nil, errors.New("model exploded")
	}
	return image.NewRGBA(image.Rect(0, 0, r.Width, r.Height)), nil
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestDefaultSeeds(t *testing.T) {
	seeds := DefaultSeeds(4)
	want := []int64{1000, 1007, 1014, 1021}
	for i := range want {
		if seeds[i] != want[i] {
			t.Errorf("seed %d = %d, want %d", i, seeds[i], want[i])
		}
	}

	again := DefaultSeeds(4)
	for i := range seeds {
		if seeds[i] != again[i] {
			t.Fatal("seed derivation is not deterministic")
		}
	}
}

func TestFrameNameOrdering(t *testing.T) {
	if FrameName(0) != "frame_0000.png" || FrameName(12) != "frame_0012.png" {
		t.Errorf("unexpected names: %s %s", FrameName(0), FrameName(12))
	}
	if !(FrameName(9) < FrameName(10)) {
		t.Error("lexical order should match numeric order")
	}
}

func TestSampleWritesContiguousFrames(t *testing.T) {
	gen := &fakeGenerator{}
	dir := filepath.Join(t.TempDir(), "Kepler-10b")

	frames, err := New(gen, logging.Discard()).Sample(context.Background(), Request{
		BasePrompt: "base",
		Dir:        dir,
		Count:      3,
		Width:      16,
		Height:     8,
		Steps:      20,
	})
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	if len(frames) != 3 {
		t.Fatalf("got %d frames", len(frames))
	}
	got := listFiles(t, dir)
	want := []string{"frame_0000.png", "frame_0001.png", "frame_0002.png"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("files = %v, want %v", got, want)
	}

	for i, r := range gen.requests {
		if r.Seed != 1000+int64(7*i) {
			t.Errorf("request %d seed = %d", i, r.Seed)
		}
		if !strings.HasPrefix(r.Prompt, "base, cinematic") || !strings.HasSuffix(r.Prompt, fmt.Sprintf("frame %d", i+1)) {
			t.Errorf("request %d prompt = %q", i, r.Prompt)
		}
		if r.Width != 16 || r.Height != 8 || r.Steps != 20 {
			t.Errorf("request %d = %+v", i, r)
		}
		if frames[i].Index != i || frames[i].Path != filepath.Join(dir, want[i]) {
			t.Errorf("frame %d = %+v", i, frames[i])
		}
	}
}

func TestSampleExplicitSeeds(t *testing.T) {
	gen := &fakeGenerator{}
	_, err := New(gen, logging.Discard()).Sample(context.Background(), Request{
		BasePrompt: "base", Dir: t.TempDir(), Count: 2, Width: 8, Height: 8, Steps: 1,
		Seeds: []int64{42, 7},
	})
	if err != nil {
		t.Fatal(err)
	}
	if gen.requests[0].Seed != 42 || gen.requests[1].Seed != 7 {
		t.Errorf("explicit seeds ignored: %+v", gen.requests)
	}
}

func TestSampleRejectsSeedMismatch(t *testing.T) {
	gen := &fakeGenerator{}
	_, err := New(gen, logging.Discard()).Sample(context.Background(), Request{
		Dir: t.TempDir(), Count: 3, Width: 8, Height: 8, Seeds: []int64{1},
	})
	if !errors.Is(err, ErrSeedCount) {
		t.Fatalf("expected ErrSeedCount, got %v", err)
	}
	if len(gen.requests) != 0 {
		t.Error("no frame should be generated")
	}
}

func TestSampleFailureKeepsPartialFrames(t *testing.T) {
	gen := &fakeGenerator{failAt: 3}
	dir := t.TempDir()

	frames, err := New(gen, logging.Discard()).Sample(context.Background(), Request{
		BasePrompt: "base", Dir: dir, Count: 5, Width: 8, Height: 8, Steps: 1,
	})

	var frameErr *FrameGenerationError
	if !errors.As(err, &frameErr) {
		t.Fatalf("expected FrameGenerationError, got %v", err)
	}
	if frameErr.Index != 2 || frameErr.Seed != 1014 {
		t.Errorf("error = %+v", frameErr)
	}
	if len(frames) != 2 {
		t.Errorf("returned %d frames before failure", len(frames))
	}
	if got := listFiles(t, dir); len(got) != 2 {
		t.Errorf("partial frames should stay on disk, found %v", got)
	}
	if len(gen.requests) != 3 {
		t.Errorf("sampling should stop at the failing frame, made %d calls", len(gen.requests))
	}
}

func TestSampleKeepsUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := New(&fakeGenerator{}, logging.Discard()).Sample(context.Background(), Request{
		Dir: dir, Count: 1, Width: 8, Height: 8, Steps: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Error("unrelated file was removed")
	}
}

func TestClearFrames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame_0000.png", "frame_0001.png", "stale.png"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	if err := ClearFrames(dir); err != nil {
		t.Fatalf("ClearFrames failed: %v", err)
	}
	if got := listFiles(t, dir); len(got) != 1 || got[0] != "sub" {
		t.Errorf("left behind %v", got)
	}

	if err := ClearFrames(filepath.Join(dir, "missing")); err != nil {
		t.Errorf("missing dir should be fine: %v", err)
	}
}
