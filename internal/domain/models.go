package domain

import (
	"strings"
	"time"
)

// ==================== USER ====================

type User struct {
	ID        int64 // Telegram user id, also the private chat id
	Username  string
	FirstName string
	Timezone  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "командир"
}

// Location returns the user's timezone, or fallback when unset or unknown.
func (u *User) Location(fallback *time.Location) *time.Location {
	if u.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}

// ==================== ACTIVITIES ====================

type Activity string

const (
	ActivityWorkout    Activity = "workout"
	ActivityEnglish    Activity = "english"
	ActivityCoding     Activity = "coding"
	ActivityPlanning   Activity = "planning"
	ActivityStretching Activity = "stretching"
	ActivityReflection Activity = "reflection"
	ActivityWalk       Activity = "walk"
)

type ActivityInfo struct {
	Key      Activity
	Title    string
	Emoji    string
	Keywords []string // lowercase goal-name fragments linked to the activity
}

// Activities is the fixed plan grid, in display order.
var Activities = []ActivityInfo{
	{ActivityWorkout, "Тренировка", "🏋️", []string{"тренир", "спорт", "зал", "workout"}},
	{ActivityEnglish, "Язык", "🇬🇧", []string{"англ", "язык", "english"}},
	{ActivityCoding, "Программирование", "💻", []string{"код", "программ", "coding"}},
	{ActivityPlanning, "Планирование", "🗓", []string{"план", "planning"}},
	{ActivityStretching, "Растяжка", "🤸", []string{"растяж", "stretch"}},
	{ActivityReflection, "Размышление", "🧘", []string{"размышл", "рефлекс", "медитац", "reflection"}},
	{ActivityWalk, "Прогулка", "🚶", []string{"прогул", "шаг", "walk"}},
}

func ParseActivity(s string) (Activity, bool) {
	for _, a := range Activities {
		if string(a.Key) == s {
			return a.Key, true
		}
	}
	return "", false
}

func (a Activity) Info() ActivityInfo {
	for _, info := range Activities {
		if info.Key == a {
			return info
		}
	}
	return ActivityInfo{Key: a, Title: string(a)}
}

func (a Activity) Title() string {
	return a.Info().Title
}

// MatchesGoal reports whether a goal name mentions the activity.
// Best-effort keyword match; goals carry no explicit activity link.
func (a Activity) MatchesGoal(goalName string) bool {
	name := strings.ToLower(goalName)
	for _, kw := range a.Info().Keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// ActivitySet holds per-activity flags. Missing keys are false.
type ActivitySet map[Activity]bool

func (s ActivitySet) Has(a Activity) bool {
	return s[a]
}

func (s ActivitySet) Count() int {
	n := 0
	for _, a := range Activities {
		if s[a.Key] {
			n++
		}
	}
	return n
}

func (s ActivitySet) Clone() ActivitySet {
	out := make(ActivitySet, len(s))
	for k, v := range s {
		if v {
			out[k] = true
		}
	}
	return out
}

// ==================== DAILY STAT ====================

type DailyStat struct {
	ID                   int64
	UserID               int64
	Date                 time.Time
	ScreenTimeGoal       *int // minutes
	Planned              ActivitySet
	Done                 ActivitySet
	MorningPollCompleted bool
	IsRestDay            bool
}

type ActivityStatus int

const (
	StatusNotPlanned ActivityStatus = iota
	StatusDone
	StatusMissed
)

func (d *DailyStat) Status(a Activity) ActivityStatus {
	switch {
	case !d.Planned.Has(a):
		return StatusNotPlanned
	case d.Done.Has(a):
		return StatusDone
	default:
		return StatusMissed
	}
}

// PlanSatisfied reports whether every planned activity is done.
func (d *DailyStat) PlanSatisfied() bool {
	for _, a := range Activities {
		if d.Planned.Has(a.Key) && !d.Done.Has(a.Key) {
			return false
		}
	}
	return true
}

// ==================== LOGGED ACTIVITY ====================

type LogKind string

const (
	LogScreen     LogKind = "screen"
	LogProductive LogKind = "productive"
)

type LoggedActivity struct {
	ID              int64
	UserID          int64
	Kind            LogKind
	Date            time.Time
	Name            string
	DurationMinutes int
	CreatedAt       time.Time
}

// ActivityTotal is a per-name duration sum.
type ActivityTotal struct {
	Name    string
	Minutes int
}

// DayTotals is the summed screen/productive time of one day.
type DayTotals struct {
	Date              time.Time
	ScreenMinutes     int
	ProductiveMinutes int
}

// ==================== GOAL ====================

type GoalType string

const (
	GoalDaily  GoalType = "daily"
	GoalWeekly GoalType = "weekly"
)

func (t GoalType) Valid() bool {
	return t == GoalDaily || t == GoalWeekly
}

func (t GoalType) Title() string {
	if t == GoalWeekly {
		return "Еженедельная"
	}
	return "Ежедневная"
}

type Goal struct {
	ID           int64
	UserID       int64
	Name         string
	Type         GoalType
	TargetValue  int
	CurrentValue int
	DaysPerWeek  *int
	StartDate    time.Time
	EndDate      time.Time
	IsCompleted  bool
	Streak       int
	CreatedAt    time.Time
}

// WeeklyTarget is the number of completed days a weekly goal needs per week.
func (g *Goal) WeeklyTarget() int {
	if g.DaysPerWeek != nil && *g.DaysPerWeek > 0 {
		return *g.DaysPerWeek
	}
	if g.TargetValue > 0 && g.TargetValue <= 7 {
		return g.TargetValue
	}
	return 7
}

// AddProgress increments CurrentValue clamped to TargetValue. Daily goals
// complete on reaching the target; weekly goals are settled by the reset job.
// It reports whether the goal changed.
func (g *Goal) AddProgress(amount int) bool {
	if amount <= 0 || g.CurrentValue >= g.TargetValue {
		return false
	}
	g.CurrentValue += amount
	if g.CurrentValue > g.TargetValue {
		g.CurrentValue = g.TargetValue
	}
	if g.Type == GoalDaily && g.CurrentValue >= g.TargetValue {
		g.IsCompleted = true
	}
	return true
}

// GoalSpan is a selectable goal horizon.
type GoalSpan struct {
	Key   string
	Title string
	Days  int
}

var GoalSpans = []GoalSpan{
	{"week", "Неделя", 7},
	{"month", "Месяц", 30},
	{"year", "Год", 365},
}

func FindGoalSpan(key string) (GoalSpan, bool) {
	for _, s := range GoalSpans {
		if s.Key == key {
			return s, true
		}
	}
	return GoalSpan{}, false
}

// ==================== HABIT ====================

type Habit struct {
	ID        int64
	UserID    int64
	Name      string
	CreatedAt time.Time
}

type HabitWithStreak struct {
	Habit
	Streak int
}

// Completion is one yes/no answer for a habit or goal on a date.
type Completion struct {
	EntityID  int64
	Date      time.Time
	Completed bool
}

// ==================== PRODUCTIVITY ====================

type ProductivityAnswer struct {
	Date     time.Time
	Question string
	Answer   string
}

var ProductivityQuestions = []string{
	"Что сегодня мешало быть продуктивным?",
	"Что дало тебе силу двигаться?",
	"Что ты сделаешь завтра лучше?",
}

// ==================== ACHIEVEMENT ====================

type Achievement struct {
	ID         int64
	UserID     int64
	Name       string
	Code       string // empty for manually added entries
	DateEarned time.Time
}

// ==================== TIP ====================

type Tip struct {
	ID       int64
	Category string
	Text     string
}

// ==================== CONSTANTS ====================

const (
	ProductiveDailyMinimum = 60 // minutes per day for the productive achievement
	HistoryDays            = 7
	MaxNameLength          = 100
	MaxAnswerLength        = 1000
	MaxDurationMinutes     = 24 * 60
)

// PlanHourOptions are the selectable screen-time limits in hours.
var PlanHourOptions = []int{2, 3, 4, 5, 6}

// Timezones offered in settings.
var Timezones = []string{
	"Europe/Kaliningrad",
	"Europe/Moscow",
	"Europe/Samara",
	"Asia/Yekaterinburg",
	"Asia/Almaty",
	"Asia/Novosibirsk",
	"Asia/Vladivostok",
}
