package domain

import (
	"fmt"
	"time"
)

type AchievementCondition string

const (
	ConditionPlan       AchievementCondition = "plan"
	ConditionScreen     AchievementCondition = "screen"
	ConditionProductive AchievementCondition = "productive"
)

type AchievementRule struct {
	Condition AchievementCondition
	Days      int
	Emoji     string
	Title     string
}

// Code is the dedup key stored with an automatic grant.
func (r AchievementRule) Code() string {
	return fmt.Sprintf("%s_%d", r.Condition, r.Days)
}

func (r AchievementRule) Name() string {
	return fmt.Sprintf("%s %s: %d дн. подряд", r.Emoji, r.Title, r.Days)
}

var AchievementRules = []AchievementRule{
	{ConditionPlan, 3, "🎯", "План выполнен"},
	{ConditionPlan, 7, "🎯", "План выполнен"},
	{ConditionPlan, 14, "🎯", "План выполнен"},
	{ConditionPlan, 30, "🏆", "План выполнен"},
	{ConditionScreen, 3, "📵", "В рамках экранного времени"},
	{ConditionScreen, 7, "📵", "В рамках экранного времени"},
	{ConditionScreen, 14, "📵", "В рамках экранного времени"},
	{ConditionScreen, 30, "🏆", "В рамках экранного времени"},
	{ConditionProductive, 3, "⚡", "Продуктивный час"},
	{ConditionProductive, 7, "⚡", "Продуктивный час"},
	{ConditionProductive, 14, "⚡", "Продуктивный час"},
	{ConditionProductive, 30, "🏆", "Продуктивный час"},
}

// MaxAchievementWindow is the longest trailing window any rule looks at.
const MaxAchievementWindow = 30

// DayRecord is what achievement rules know about a single day.
type DayRecord struct {
	Stat              *DailyStat // nil when the day has no plan
	ScreenMinutes     int
	ProductiveMinutes int
}

// Complies reports whether a day satisfies the condition. Days without a
// plan and rest days never comply.
func (c AchievementCondition) Complies(r DayRecord) bool {
	if r.Stat == nil || r.Stat.IsRestDay {
		return false
	}
	switch c {
	case ConditionPlan:
		return r.Stat.Planned.Count() > 0 && r.Stat.PlanSatisfied()
	case ConditionScreen:
		return r.Stat.ScreenTimeGoal != nil && r.ScreenMinutes <= *r.Stat.ScreenTimeGoal
	case ConditionProductive:
		return r.ProductiveMinutes >= ProductiveDailyMinimum
	default:
		return false
	}
}

// EvaluateAchievements returns the rules whose whole trailing window, ending
// today, complies. history is keyed by DateKey.
func EvaluateAchievements(history map[string]DayRecord, today time.Time) []AchievementRule {
	var earned []AchievementRule
	for _, rule := range AchievementRules {
		ok := true
		for i := 0; i < rule.Days; i++ {
			if !rule.Condition.Complies(history[DateKey(AddDays(today, -i))]) {
				ok = false
				break
			}
		}
		if ok {
			earned = append(earned, rule)
		}
	}
	return earned
}
