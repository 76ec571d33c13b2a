// Package state persists where each chat is inside a multi-step dialogue.
//
// A Conversation is a closed sum: Step names the variant and exactly the
// payload belonging to that step is set. Anything else decodes as idle.
package state

import (
	"context"
	"encoding/json"
	"fmt"

	"regime-guard-bot/internal/domain"
)

type Step string

const (
	StepIdle Step = ""

	// daily plan
	StepChoosingDayType Step = "choosing_day_type"
	StepComposingPlan   Step = "composing_plan"

	// activity log
	StepLogChoosingType     Step = "log_choosing_type"
	StepLogChoosingName     Step = "log_choosing_name"
	StepLogChoosingDuration Step = "log_choosing_duration"

	// goal setup
	StepGoalChoosingType     Step = "goal_choosing_type"
	StepGoalEnteringName     Step = "goal_entering_name"
	StepGoalEnteringDays     Step = "goal_entering_days"
	StepGoalEnteringTarget   Step = "goal_entering_target"
	StepGoalChoosingDuration Step = "goal_choosing_duration"

	StepHabitEnteringName Step = "habit_entering_name"

	// manual achievement
	StepAchievementEnteringDate        Step = "achievement_entering_date"
	StepAchievementEnteringDescription Step = "achievement_entering_description"

	// evening poll
	StepPollHabit    Step = "poll_habit"
	StepPollGoal     Step = "poll_goal"
	StepPollQuestion Step = "poll_question"

	StepTipsBrowsing      Step = "tips_browsing"
	StepTimezoneChoosing  Step = "timezone_choosing"
	StepClearConfirmation Step = "clear_confirmation"
)

// Key addresses one conversation.
type Key struct {
	ChatID int64
	UserID int64
}

// UserKey is the key of a user's private chat.
func UserKey(userID int64) Key {
	return Key{ChatID: userID, UserID: userID}
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d", k.ChatID, k.UserID)
}

type StagedPlan struct {
	ScreenTimeGoal *int               `json:"screen_time_goal,omitempty"` // minutes
	Planned        domain.ActivitySet `json:"planned"`
}

type ActivityDraft struct {
	Kind domain.LogKind `json:"kind,omitempty"`
	Name string         `json:"name,omitempty"`
}

type GoalDraft struct {
	Type        domain.GoalType `json:"type,omitempty"`
	Name        string          `json:"name,omitempty"`
	DaysPerWeek *int            `json:"days_per_week,omitempty"`
	Target      int             `json:"target,omitempty"`
}

type AchievementDraft struct {
	Date string `json:"date,omitempty"` // domain.DateKey
}

// PollProgress tracks the evening poll. Habit answers accumulate until the
// habit phase ends; question answers until the last question.
type PollProgress struct {
	Date          string         `json:"date"` // day the answers belong to
	CurrentID     int64          `json:"current_id,omitempty"`
	HabitAnswers  map[int64]bool `json:"habit_answers,omitempty"`
	QuestionIndex int            `json:"question_index,omitempty"`
	Answers       []string       `json:"answers,omitempty"`
}

type TipsCursor struct {
	Category string `json:"category"`
	Index    int    `json:"index"`
}

type Conversation struct {
	Step        Step              `json:"step"`
	Plan        *StagedPlan       `json:"plan,omitempty"`
	Log         *ActivityDraft    `json:"log,omitempty"`
	Goal        *GoalDraft        `json:"goal,omitempty"`
	Achievement *AchievementDraft `json:"achievement,omitempty"`
	Poll        *PollProgress     `json:"poll,omitempty"`
	Tips        *TipsCursor       `json:"tips,omitempty"`
}

func Idle() Conversation {
	return Conversation{}
}

func (c Conversation) IsIdle() bool {
	return c.Step == StepIdle
}

func At(step Step) Conversation {
	return Conversation{Step: step}
}

func ComposingPlan(plan StagedPlan) Conversation {
	return Conversation{Step: StepComposingPlan, Plan: &plan}
}

func Logging(step Step, draft ActivityDraft) Conversation {
	return Conversation{Step: step, Log: &draft}
}

func SettingGoal(step Step, draft GoalDraft) Conversation {
	return Conversation{Step: step, Goal: &draft}
}

func AddingAchievement(step Step, draft AchievementDraft) Conversation {
	return Conversation{Step: step, Achievement: &draft}
}

func Polling(step Step, progress PollProgress) Conversation {
	return Conversation{Step: step, Poll: &progress}
}

func BrowsingTips(cursor TipsCursor) Conversation {
	return Conversation{Step: StepTipsBrowsing, Tips: &cursor}
}

// Valid reports whether the payload matches the step.
func (c Conversation) Valid() bool {
	var want string
	switch c.Step {
	case StepIdle, StepChoosingDayType, StepHabitEnteringName, StepTimezoneChoosing, StepClearConfirmation:
		want = ""
	case StepComposingPlan:
		want = "plan"
	case StepLogChoosingType, StepLogChoosingName, StepLogChoosingDuration:
		want = "log"
	case StepGoalChoosingType, StepGoalEnteringName, StepGoalEnteringDays, StepGoalEnteringTarget, StepGoalChoosingDuration:
		want = "goal"
	case StepAchievementEnteringDate, StepAchievementEnteringDescription:
		want = "achievement"
	case StepPollHabit, StepPollGoal, StepPollQuestion:
		want = "poll"
	case StepTipsBrowsing:
		want = "tips"
	default:
		return false
	}

	set := map[string]bool{
		"plan":        c.Plan != nil,
		"log":         c.Log != nil,
		"goal":        c.Goal != nil,
		"achievement": c.Achievement != nil,
		"poll":        c.Poll != nil,
		"tips":        c.Tips != nil,
	}
	for name, present := range set {
		if present != (name == want) {
			return false
		}
	}
	return true
}

// Store persists conversations. Get returns Idle for unknown keys.
type Store interface {
	Get(ctx context.Context, key Key) (Conversation, error)
	Set(ctx context.Context, key Key, c Conversation) error
	Clear(ctx context.Context, key Key) error
}

func encode(c Conversation) ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("conversation step %q has mismatched payload", c.Step)
	}
	return json.Marshal(c)
}

// decode never fails on bad data: a corrupt or stale record reads as idle.
func decode(data []byte) Conversation {
	var c Conversation
	if err := json.Unmarshal(data, &c); err != nil || !c.Valid() {
		return Idle()
	}
	return c
}
