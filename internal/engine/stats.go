package engine

import (
	"log/slog"
	"time"

	"github.com/ivlev/planetreel/internal/report"
)

// RunStats tracks per-record outcomes across a batch.
type RunStats struct {
	Total     int
	Attempted int
	Succeeded int
	Failed    int // frames or encode failures
	Skipped   int // identifier rejected
	Started   time.Time
	Elapsed   time.Duration
}

// Record counts one finished record by its report status.
func (s *RunStats) Record(status string) {
	switch status {
	case report.StatusOK:
		s.Succeeded++
	case report.StatusSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

func (s *RunStats) Log(log *slog.Logger) {
	attrs := []any{
		slog.Int("total", s.Total),
		slog.Int("attempted", s.Attempted),
		slog.Int("succeeded", s.Succeeded),
		slog.Int("failed", s.Failed),
		slog.Int("skipped", s.Skipped),
		slog.Duration("elapsed", s.Elapsed.Round(time.Millisecond)),
	}
	if s.Failed+s.Skipped > 0 {
		log.Warn("batch finished with failures", attrs...)
		return
	}
	log.Info("batch finished", attrs...)
}
