package scheduler

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSchedulerRegistersEveryJob(t *testing.T) {
	f := newFixture(t)
	s := New(f.runner, time.UTC, zap.NewNop())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	if got := len(s.cron.Entries()); got != len(Schedule) {
		t.Errorf("entries = %d, want %d", got, len(Schedule))
	}
	seen := map[string]bool{}
	for _, e := range Schedule {
		seen[e.Job] = true
	}
	for _, job := range Jobs {
		if !seen[job] {
			t.Errorf("job %q is never scheduled", job)
		}
	}
}
