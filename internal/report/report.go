// Package report records the outcome of a run for later inspection.
package report

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const Version = "1"

// Entry statuses.
const (
	StatusOK           = "ok"
	StatusFramesFailed = "frames_failed"
	StatusEncodeFailed = "encode_failed"
	StatusSkipped      = "skipped" // identifier rejected, nothing generated
)

type Report struct {
	Version    string    `yaml:"version"`
	StartedAt  time.Time `yaml:"started_at"`
	FinishedAt time.Time `yaml:"finished_at"`
	Model      string    `yaml:"model"`
	Backend    string    `yaml:"backend"`
	Entries    []Entry   `yaml:"entries"`
}

// Entry describes one catalog record.
type Entry struct {
	Name       string        `yaml:"name"`
	Identifier string        `yaml:"identifier,omitempty"`
	Video      string        `yaml:"video,omitempty"`
	Frames     int           `yaml:"frames"`
	Status     string        `yaml:"status"`
	Error      string        `yaml:"error,omitempty"`
	Duration   time.Duration `yaml:"duration"`
}

func New(model, backend string) *Report {
	return &Report{
		Version:   Version,
		StartedAt: time.Now(),
		Model:     model,
		Backend:   backend,
	}
}

func (r *Report) Add(e Entry) {
	r.Entries = append(r.Entries, e)
}

// Count returns how many entries have the given status.
func (r *Report) Count(status string) int {
	n := 0
	for _, e := range r.Entries {
		if e.Status == status {
			n++
		}
	}
	return n
}

// Write stores the report as YAML, creating parent directories.
func Write(r *Report, path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
