package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"regime-guard-bot/internal/config"
	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/repository"
	"regime-guard-bot/internal/service"
	"regime-guard-bot/internal/state"
)

const (
	JobMorning      = "morning"
	JobAfternoon    = "afternoon"
	JobEvening      = "evening"
	JobResetGoals   = "reset-goals"
	JobResetStreaks = "reset-streaks"
)

// Jobs lists every job name accepted by Run.
var Jobs = []string{JobMorning, JobAfternoon, JobEvening, JobResetGoals, JobResetStreaks}

var ErrUnknownJob = errors.New("unknown job")

// Notifier delivers job messages to users.
type Notifier interface {
	SendMorningPrompt(ctx context.Context, user *domain.User) error
	SendAfternoonReminder(ctx context.Context, user *domain.User) error
	SendEveningSummary(ctx context.Context, user *domain.User, sum *service.DaySummary) error
	SendAchievements(ctx context.Context, user *domain.User, granted []*domain.Achievement) error
	SendPollPrompt(ctx context.Context, user *domain.User, p service.Prompt) error
}

// Windows are the local-hour ranges of the per-user jobs.
type Windows struct {
	Morning   config.Window
	Afternoon config.Window
	Evening   config.Window
	Reset     config.Window
}

// Report summarizes one job run.
type Report struct {
	RunID      string               `json:"run_id"`
	Job        string               `json:"job"`
	StartedAt  time.Time            `json:"started_at"`
	Duration   string               `json:"duration"`
	Users      int                  `json:"users"`
	Sent       int                  `json:"sent"`
	Skipped    int                  `json:"skipped"`
	Failed     int                  `json:"failed"`
	Reset      *service.ResetReport `json:"reset,omitempty"`
}

type outcome int

const (
	skipped outcome = iota
	sent
)

type userJob func(ctx context.Context, user *domain.User, today time.Time) (outcome, error)

// Runner executes jobs. Per-user jobs iterate users sequentially; a failure
// for one user is logged and the batch continues.
type Runner struct {
	repo    repository.Repository
	svc     *service.Services
	notify  Notifier
	windows Windows
	log     *zap.Logger
}

func NewRunner(repo repository.Repository, svc *service.Services, notify Notifier, windows Windows, log *zap.Logger) *Runner {
	return &Runner{repo: repo, svc: svc, notify: notify, windows: windows, log: log.Named("scheduler")}
}

func (r *Runner) Run(ctx context.Context, job string) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString(), Job: job, StartedAt: r.svc.Calendar.Now()}
	log := r.log.With(zap.String("job", job), zap.String("run_id", report.RunID))

	var err error
	switch job {
	case JobMorning:
		err = r.forEachUser(ctx, log, report, r.windows.Morning, r.morning)
	case JobAfternoon:
		err = r.forEachUser(ctx, log, report, r.windows.Afternoon, r.afternoon)
	case JobEvening:
		err = r.forEachUser(ctx, log, report, r.windows.Evening, r.evening)
	case JobResetGoals:
		err = r.forEachUser(ctx, log, report, r.windows.Reset, r.reset(report, r.svc.Goals.ResetProgress))
	case JobResetStreaks:
		err = r.forEachUser(ctx, log, report, r.windows.Reset, r.reset(report, r.svc.Goals.ResetMissedStreaks))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownJob, job)
	}

	report.Duration = time.Since(start).Round(time.Millisecond).String()
	if err != nil {
		log.Error("job failed", zap.Error(err))
		return report, err
	}
	log.Info("job finished",
		zap.Int("users", report.Users), zap.Int("sent", report.Sent),
		zap.Int("skipped", report.Skipped), zap.Int("failed", report.Failed))
	return report, nil
}

func (r *Runner) forEachUser(ctx context.Context, log *zap.Logger, report *Report, window config.Window, fn userJob) error {
	users, err := r.svc.Users.List(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Users++
		if !window.Contains(r.svc.Calendar.LocalNow(user).Hour()) {
			report.Skipped++
			continue
		}

		out, err := r.runUser(ctx, user, fn)
		switch {
		case err != nil:
			report.Failed++
			log.Warn("user job failed", zap.Int64("user_id", user.ID), zap.Error(err))
		case out == sent:
			report.Sent++
		default:
			report.Skipped++
		}
	}
	return nil
}

func (r *Runner) runUser(ctx context.Context, user *domain.User, fn userJob) (out outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx, user, r.svc.Calendar.Today(user))
}

// claim records the send in the ledger; false means it already happened today.
func (r *Runner) claim(ctx context.Context, job string, userID int64, date time.Time) (bool, error) {
	ok, err := r.repo.ClaimJobRun(ctx, job, userID, date)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", job, err)
	}
	return ok, nil
}

type resetFunc func(ctx context.Context, user *domain.User, date time.Time) (service.ResetReport, error)

// reset runs fn once per user and local date, shortly after the user's own
// midnight, and folds the counts into the report.
func (r *Runner) reset(report *Report, fn resetFunc) userJob {
	report.Reset = &service.ResetReport{}
	return func(ctx context.Context, user *domain.User, today time.Time) (outcome, error) {
		if ok, err := r.claim(ctx, report.Job, user.ID, today); !ok || err != nil {
			return skipped, err
		}
		res, err := fn(ctx, user, today)
		report.Reset.DailyReset += res.DailyReset
		report.Reset.WeeklyReset += res.WeeklyReset
		report.Reset.StreaksZeroed += res.StreaksZeroed
		return sent, err
	}
}

// ==================== USER JOBS ====================

func (r *Runner) morning(ctx context.Context, user *domain.User, today time.Time) (outcome, error) {
	err := r.svc.Plans.CanStartMorningPoll(ctx, user)
	if errors.Is(err, service.ErrRestDay) || errors.Is(err, service.ErrMorningPollDone) {
		return skipped, nil
	}
	if err != nil {
		return skipped, err
	}
	if ok, err := r.claim(ctx, JobMorning, user.ID, today); !ok || err != nil {
		return skipped, err
	}

	if err := r.svc.Plans.StartMorningPoll(ctx, state.UserKey(user.ID), user); err != nil {
		return skipped, err
	}
	return sent, r.notify.SendMorningPrompt(ctx, user)
}

func (r *Runner) afternoon(ctx context.Context, user *domain.User, today time.Time) (outcome, error) {
	stat, err := r.repo.GetDailyStat(ctx, user.ID, today)
	if errors.Is(err, repository.ErrNotFound) {
		return skipped, nil
	}
	if err != nil {
		return skipped, err
	}
	if !stat.MorningPollCompleted || stat.IsRestDay {
		return skipped, nil
	}

	if stat.Planned.Count() == 0 {
		habits, err := r.repo.GetHabits(ctx, user.ID)
		if err != nil {
			return skipped, err
		}
		goals, err := r.repo.GetActiveGoals(ctx, user.ID, today)
		if err != nil {
			return skipped, err
		}
		if len(habits) == 0 && len(goals) == 0 {
			return skipped, nil
		}
	}

	if ok, err := r.claim(ctx, JobAfternoon, user.ID, today); !ok || err != nil {
		return skipped, err
	}
	return sent, r.notify.SendAfternoonReminder(ctx, user)
}

// evening sends the day summary, grants achievements and starts the poll.
func (r *Runner) evening(ctx context.Context, user *domain.User, today time.Time) (outcome, error) {
	sum, err := r.svc.Summaries.Build(ctx, user.ID, today)
	if errors.Is(err, service.ErrRestDay) || errors.Is(err, service.ErrNoPlanToday) {
		return skipped, nil
	}
	if err != nil {
		return skipped, err
	}
	if ok, err := r.claim(ctx, JobEvening, user.ID, today); !ok || err != nil {
		return skipped, err
	}

	if err := r.notify.SendEveningSummary(ctx, user, sum); err != nil {
		return sent, fmt.Errorf("send summary: %w", err)
	}

	granted, err := r.svc.Achievements.EvaluateAndGrant(ctx, user, today)
	if err != nil {
		r.log.Warn("evaluate achievements", zap.Int64("user_id", user.ID), zap.Error(err))
	} else if err := r.notify.SendAchievements(ctx, user, granted); err != nil {
		r.log.Warn("send achievements", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	prompt, err := r.svc.Polls.Begin(ctx, state.UserKey(user.ID), user, today)
	if err != nil {
		return sent, fmt.Errorf("begin poll: %w", err)
	}
	return sent, r.notify.SendPollPrompt(ctx, user, prompt)
}
