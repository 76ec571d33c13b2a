package telegram

import (
	"net/url"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/state"
)

const (
	btnPlan         = "🌅 План на день"
	btnDone         = "✅ Отметить"
	btnLog          = "📝 Записать активность"
	btnHabits       = "📋 Привычки"
	btnGoals        = "🎯 Цели"
	btnAchievements = "🏆 Достижения"
	btnTips         = "💡 Советы"
	btnStats        = "📊 Статистика"
	btnSettings     = "⚙️ Настройки"
	btnCancel       = "❌ Отмена"
)

func button(text string, a Action) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, a.Data())
}

func MainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnPlan),
			tgbotapi.NewKeyboardButton(btnDone),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnLog),
			tgbotapi.NewKeyboardButton(btnStats),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnHabits),
			tgbotapi.NewKeyboardButton(btnGoals),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnAchievements),
			tgbotapi.NewKeyboardButton(btnTips),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSettings),
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
}

func CancelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button("❌ Отмена", Action{Kind: ActCancel})),
	)
}

// ==================== DAILY PLAN ====================

func DayTypeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("💼 Рабочий день", Action{Kind: ActDayWork}),
			button("🏖 Выходной", Action{Kind: ActDayRest}),
		),
	)
}

// PlanKeyboard renders the staged plan with checkmarks and the chosen limit.
func PlanKeyboard(plan *state.StagedPlan) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	for i := 0; i < len(domain.Activities); i += 2 {
		var row []tgbotapi.InlineKeyboardButton
		for _, a := range domain.Activities[i:min(i+2, len(domain.Activities))] {
			mark := "⬜️"
			if plan.Planned.Has(a.Key) {
				mark = "✅"
			}
			row = append(row, button(mark+" "+a.Title, Action{Kind: ActPlanToggle, Activity: a.Key}))
		}
		rows = append(rows, row)
	}

	var hours []tgbotapi.InlineKeyboardButton
	for _, h := range domain.PlanHourOptions {
		label := strconv.Itoa(h) + "ч"
		if plan.ScreenTimeGoal != nil && *plan.ScreenTimeGoal == h*60 {
			label = "📱" + label
		}
		hours = append(hours, button(label, Action{Kind: ActPlanHours, Hours: h}))
	}
	rows = append(rows, hours)

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		button("💾 Сохранить план", Action{Kind: ActPlanSave}),
		button("❌ Отмена", Action{Kind: ActCancel}),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// DoneKeyboard lists today's planned activities that can still be marked.
func DoneKeyboard(stat *domain.DailyStat) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, a := range domain.Activities {
		switch stat.Status(a.Key) {
		case domain.StatusMissed:
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				button("⬜️ "+a.Emoji+" "+a.Title, Action{Kind: ActDone, Activity: a.Key}),
			))
		case domain.StatusDone:
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				button("✅ "+a.Emoji+" "+a.Title, Action{Kind: ActDone, Activity: a.Key}),
			))
		}
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func LogTypeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("📱 Экранное время", Action{Kind: ActLogScreen}),
			button("⚡ Продуктивное", Action{Kind: ActLogProductive}),
		),
		tgbotapi.NewInlineKeyboardRow(button("❌ Отмена", Action{Kind: ActCancel})),
	)
}

// ==================== HABITS & GOALS ====================

func HabitsMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("➕ Добавить", Action{Kind: ActHabitAdd}),
			button("📋 Список", Action{Kind: ActHabitList}),
		),
	)
}

func HabitsListKeyboard(habits []domain.HabitWithStreak) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, h := range habits {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button("🗑 "+h.Name, Action{Kind: ActHabitDelete, ID: h.ID}),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("➕ Добавить", Action{Kind: ActHabitAdd})))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func GoalsMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("➕ Новая цель", Action{Kind: ActGoalAdd}),
			button("📋 Мои цели", Action{Kind: ActGoalList}),
		),
	)
}

func GoalsListKeyboard(goals []*domain.Goal) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, g := range goals {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button("🗑 "+g.Name, Action{Kind: ActGoalDelete, ID: g.ID}),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("➕ Новая цель", Action{Kind: ActGoalAdd})))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func GoalTypeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("📅 "+domain.GoalDaily.Title(), Action{Kind: ActGoalType, GoalType: domain.GoalDaily}),
			button("🗓 "+domain.GoalWeekly.Title(), Action{Kind: ActGoalType, GoalType: domain.GoalWeekly}),
		),
		tgbotapi.NewInlineKeyboardRow(button("❌ Отмена", Action{Kind: ActCancel})),
	)
}

func GoalSpanKeyboard() tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, s := range domain.GoalSpans {
		row = append(row, button(s.Title, Action{Kind: ActGoalSpan, Span: s.Key}))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row,
		tgbotapi.NewInlineKeyboardRow(button("❌ Отмена", Action{Kind: ActCancel})))
}

func YesNoKeyboard(kind ActionKind, id int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("✅ Да", Action{Kind: kind, ID: id, Yes: true}),
			button("❌ Нет", Action{Kind: kind, ID: id}),
		),
	)
}

// ==================== OTHER ====================

func AchievementsMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("🏆 Мои достижения", Action{Kind: ActAchList}),
			button("➕ Добавить", Action{Kind: ActAchAdd}),
		),
	)
}

func TipCategoriesKeyboard(categories []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, c := range categories {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(c, Action{Kind: ActTipsCategory, Index: i})))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func NextTipKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("➡️ Ещё совет", Action{Kind: ActTipsNext}),
			button("🏠 Меню", Action{Kind: ActMenu}),
		),
	)
}

func TimezoneKeyboard(current string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, tz := range domain.Timezones {
		label := tz
		if tz == current {
			label = "✅ " + tz
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(label, Action{Kind: ActTimezone, Index: i})))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func ClearConfirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			button("🗑 Да, удалить всё", Action{Kind: ActClearYes}),
			button("Нет", Action{Kind: ActClearNo}),
		),
	)
}

func DashboardKeyboard(url string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL("📊 Открыть дашборд", url)),
	)
}

func dashboardURL(base, token string, userID int64) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("user_id", strconv.FormatInt(userID, 10))
	return base + "?" + q.Encode()
}
