package service

import (
	"errors"
	"html"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/repository"
	"regime-guard-bot/internal/state"
)

var (
	ErrMorningPollDone   = errors.New("утренний опрос на сегодня уже пройден")
	ErrRestDay           = errors.New("сегодня день отдыха")
	ErrNoPlanToday       = errors.New("сначала пройдите утренний опрос: /morning")
	ErrNotPlanned        = errors.New("эта активность не запланирована на сегодня")
	ErrAlreadyDone       = errors.New("уже отмечено")
	ErrTimeLimitRequired = errors.New("пожалуйста, выберите лимит времени")
	ErrNothingPending    = errors.New("этот вопрос уже неактуален")
	ErrNothingToCancel   = errors.New("здесь нечего отменять")
	ErrEmptyText         = errors.New("текст не может быть пустым")
	ErrInvalidDuration   = errors.New("введите длительность целым числом минут, например 30")
	ErrInvalidNumber     = errors.New("введите положительное целое число")
	ErrInvalidDays       = errors.New("введите число от 1 до 7")
	ErrInvalidDate       = errors.New("неверная дата, используйте формат ДД.ММ")
	ErrInvalidTimezone   = errors.New("неизвестный часовой пояс")
	ErrHabitExists       = errors.New("такая привычка уже есть")
	ErrHabitNotFound     = errors.New("привычка не найдена")
	ErrGoalNotFound      = errors.New("цель не найдена")
	ErrPlanNotFound      = errors.New("План на сегодня не найден.")
	ErrNoTips            = errors.New("советов пока нет")
)

// Services bundles the bot's use cases over one repository and state store.
type Services struct {
	Calendar     Calendar
	Users        *UserService
	Plans        *PlanService
	Activities   *ActivityService
	Habits       *HabitService
	Goals        *GoalService
	Achievements *AchievementService
	Polls        *PollService
	Tips         *TipsService
	Stats        *StatsService
	Summaries    *SummaryService
	Export       *ExportService
}

func New(repo repository.Repository, states state.Store, cal Calendar, log *zap.Logger) *Services {
	goals := NewGoalService(repo, states, cal, log)
	habits := NewHabitService(repo, states, cal)
	return &Services{
		Calendar:     cal,
		Users:        NewUserService(repo, states, cal, log),
		Plans:        NewPlanService(repo, states, goals, cal, log),
		Activities:   NewActivityService(repo, states, cal),
		Habits:       habits,
		Goals:        goals,
		Achievements: NewAchievementService(repo, states, cal, log),
		Polls:        NewPollService(repo, states, goals),
		Tips:         NewTipsService(repo, states),
		Stats:        NewStatsService(repo, habits, cal),
		Summaries:    NewSummaryService(repo),
		Export:       NewExportService(repo, habits, cal),
	}
}

// Calendar resolves "today" for a user.
type Calendar struct {
	Now      func() time.Time
	Location *time.Location // default for users without a timezone
}

func NewCalendar(loc *time.Location) Calendar {
	return Calendar{Now: time.Now, Location: loc}
}

func (c Calendar) Today(user *domain.User) time.Time {
	return domain.Today(c.Now(), c.loc(user))
}

// LocalNow is the wall-clock time in the user's timezone.
func (c Calendar) LocalNow(user *domain.User) time.Time {
	return c.Now().In(c.loc(user))
}

func (c Calendar) loc(user *domain.User) *time.Location {
	if user == nil {
		return c.Location
	}
	return user.Location(c.Location)
}

var strictPolicy = bluemonday.StrictPolicy()

// CleanText strips markup from user input and limits its length.
// The result is plain text; escape it again when rendering HTML.
func CleanText(s string, maxRunes int) string {
	s = html.UnescapeString(strictPolicy.Sanitize(s))
	s = strings.Join(strings.Fields(s), " ")
	if maxRunes > 0 && utf8.RuneCountInString(s) > maxRunes {
		runes := []rune(s)
		s = strings.TrimSpace(string(runes[:maxRunes]))
	}
	return s
}

// parseCount accepts only plain digits.
func parseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
