package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Schedule maps cron specs to jobs.
var Schedule = []struct {
	Spec string
	Job  string
}{
	{"*/10 * * * *", JobMorning},
	{"*/10 * * * *", JobAfternoon},
	{"*/10 * * * *", JobEvening},
	{"*/10 * * * *", JobResetStreaks},
	{"*/10 * * * *", JobResetGoals},
}

// Scheduler triggers jobs in process. Windows and the ledger make frequent
// triggers safe.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	log    *zap.Logger
}

func New(runner *Runner, loc *time.Location, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		runner: runner,
		log:    log.Named("cron"),
	}
}

func (s *Scheduler) Start() error {
	for _, entry := range Schedule {
		job := entry.Job
		if _, err := s.cron.AddFunc(entry.Spec, func() { s.trigger(job) }); err != nil {
			return fmt.Errorf("schedule %s: %w", job, err)
		}
	}
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("entries", len(Schedule)))
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) trigger(job string) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error("job panicked", zap.String("job", job), zap.Any("panic", p), zap.Stack("stack"))
		}
	}()
	if _, err := s.runner.Run(context.Background(), job); err != nil {
		s.log.Error("scheduled job", zap.String("job", job), zap.Error(err))
	}
}
