package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"regime-guard-bot/internal/domain"
)

// ActionKind is the closed set of inline button actions.
type ActionKind string

const (
	ActDayRest       ActionKind = "day:rest"
	ActDayWork       ActionKind = "day:work"
	ActPlanToggle    ActionKind = "plan:toggle"
	ActPlanHours     ActionKind = "plan:hours"
	ActPlanSave      ActionKind = "plan:save"
	ActDone          ActionKind = "done"
	ActLogScreen     ActionKind = "log:screen"
	ActLogProductive ActionKind = "log:productive"
	ActHabitAdd      ActionKind = "habit:add"
	ActHabitList     ActionKind = "habit:list"
	ActHabitDelete   ActionKind = "habit:del"
	ActHabitAnswer   ActionKind = "habit:ans"
	ActGoalAdd       ActionKind = "goal:add"
	ActGoalList      ActionKind = "goal:list"
	ActGoalDelete    ActionKind = "goal:del"
	ActGoalType      ActionKind = "goal:type"
	ActGoalSpan      ActionKind = "goal:span"
	ActGoalAnswer    ActionKind = "goal:ans"
	ActAchList       ActionKind = "ach:list"
	ActAchAdd        ActionKind = "ach:add"
	ActTipsCategory  ActionKind = "tips:cat"
	ActTipsNext      ActionKind = "tips:next"
	ActTimezone      ActionKind = "tz"
	ActClearYes      ActionKind = "clear:yes"
	ActClearNo       ActionKind = "clear:no"
	ActMenu          ActionKind = "menu"
	ActCancel        ActionKind = "cancel"
)

var ErrUnknownAction = errors.New("unknown action")

// Action is a decoded callback payload. Only the fields of its Kind are set.
type Action struct {
	Kind     ActionKind
	Activity domain.Activity
	Hours    int
	ID       int64
	Yes      bool
	GoalType domain.GoalType
	Span     string
	Index    int
}

// Data encodes the action as callback data.
func (a Action) Data() string {
	switch a.Kind {
	case ActPlanToggle, ActDone:
		return string(a.Kind) + ":" + string(a.Activity)
	case ActPlanHours:
		return fmt.Sprintf("%s:%d", a.Kind, a.Hours)
	case ActHabitDelete, ActGoalDelete:
		return fmt.Sprintf("%s:%d", a.Kind, a.ID)
	case ActHabitAnswer, ActGoalAnswer:
		yn := "n"
		if a.Yes {
			yn = "y"
		}
		return fmt.Sprintf("%s:%d:%s", a.Kind, a.ID, yn)
	case ActGoalType:
		return string(a.Kind) + ":" + string(a.GoalType)
	case ActGoalSpan:
		return string(a.Kind) + ":" + a.Span
	case ActTipsCategory, ActTimezone:
		return fmt.Sprintf("%s:%d", a.Kind, a.Index)
	default:
		return string(a.Kind)
	}
}

var plainActions = map[string]ActionKind{}

func init() {
	for _, k := range []ActionKind{
		ActDayRest, ActDayWork, ActPlanSave, ActLogScreen, ActLogProductive,
		ActHabitAdd, ActHabitList, ActGoalAdd, ActGoalList, ActAchList, ActAchAdd,
		ActTipsNext, ActClearYes, ActClearNo, ActMenu, ActCancel,
	} {
		plainActions[string(k)] = k
	}
}

// ParseAction decodes callback data. Anything outside the grammar is ErrUnknownAction.
func ParseAction(data string) (Action, error) {
	if k, ok := plainActions[data]; ok {
		return Action{Kind: k}, nil
	}

	parts := strings.Split(data, ":")
	bad := fmt.Errorf("%w: %q", ErrUnknownAction, data)
	if len(parts) < 2 {
		return Action{}, bad
	}

	switch {
	case len(parts) == 2 && parts[0] == string(ActDone):
		act, ok := domain.ParseActivity(parts[1])
		if !ok {
			return Action{}, bad
		}
		return Action{Kind: ActDone, Activity: act}, nil

	case len(parts) == 2 && parts[0] == string(ActTimezone):
		i, err := strconv.Atoi(parts[1])
		if err != nil || i < 0 {
			return Action{}, bad
		}
		return Action{Kind: ActTimezone, Index: i}, nil
	}

	kind := ActionKind(parts[0] + ":" + parts[1])
	args := parts[2:]
	switch kind {
	case ActPlanToggle:
		if len(args) != 1 {
			return Action{}, bad
		}
		act, ok := domain.ParseActivity(args[0])
		if !ok {
			return Action{}, bad
		}
		return Action{Kind: kind, Activity: act}, nil

	case ActPlanHours:
		if len(args) != 1 {
			return Action{}, bad
		}
		h, err := strconv.Atoi(args[0])
		if err != nil {
			return Action{}, bad
		}
		return Action{Kind: kind, Hours: h}, nil

	case ActHabitDelete, ActGoalDelete:
		if len(args) != 1 {
			return Action{}, bad
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return Action{}, bad
		}
		return Action{Kind: kind, ID: id}, nil

	case ActHabitAnswer, ActGoalAnswer:
		if len(args) != 2 || (args[1] != "y" && args[1] != "n") {
			return Action{}, bad
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return Action{}, bad
		}
		return Action{Kind: kind, ID: id, Yes: args[1] == "y"}, nil

	case ActGoalType:
		if len(args) != 1 || !domain.GoalType(args[0]).Valid() {
			return Action{}, bad
		}
		return Action{Kind: kind, GoalType: domain.GoalType(args[0])}, nil

	case ActGoalSpan:
		if len(args) != 1 {
			return Action{}, bad
		}
		if _, ok := domain.FindGoalSpan(args[0]); !ok {
			return Action{}, bad
		}
		return Action{Kind: kind, Span: args[0]}, nil

	case ActTipsCategory:
		if len(args) != 1 {
			return Action{}, bad
		}
		i, err := strconv.Atoi(args[0])
		if err != nil || i < 0 {
			return Action{}, bad
		}
		return Action{Kind: kind, Index: i}, nil
	}
	return Action{}, bad
}
