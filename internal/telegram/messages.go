package telegram

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/service"
	"regime-guard-bot/internal/state"
)

const genericErrorText = "⚠️ Ошибка. Попробуйте позже."

var esc = html.EscapeString

// userErrors are shown to the user as they are; anything else is generic.
var userErrors = []error{
	service.ErrMorningPollDone,
	service.ErrRestDay,
	service.ErrNoPlanToday,
	service.ErrNotPlanned,
	service.ErrAlreadyDone,
	service.ErrTimeLimitRequired,
	service.ErrNothingPending,
	service.ErrNothingToCancel,
	service.ErrEmptyText,
	service.ErrInvalidDuration,
	service.ErrInvalidNumber,
	service.ErrInvalidDays,
	service.ErrInvalidDate,
	service.ErrInvalidTimezone,
	service.ErrHabitExists,
	service.ErrHabitNotFound,
	service.ErrGoalNotFound,
	service.ErrPlanNotFound,
	service.ErrNoTips,
}

// userErrorText reports the message for a known user-facing error.
func userErrorText(err error) (string, bool) {
	for _, e := range userErrors {
		if errors.Is(err, e) {
			return capitalize(e.Error()), true
		}
	}
	return "", false
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func minutes(n int) string {
	if n >= 60 {
		return fmt.Sprintf("%d ч %d мин", n/60, n%60)
	}
	return fmt.Sprintf("%d мин", n)
}

// ==================== PLAN ====================

func planText(plan *state.StagedPlan) string {
	var sb strings.Builder
	sb.WriteString("📝 <b>План на сегодня</b>\n\nОтметь активности и выбери лимит экранного времени.\n")
	if plan.ScreenTimeGoal != nil {
		sb.WriteString("\n📱 Лимит: " + minutes(*plan.ScreenTimeGoal))
	} else {
		sb.WriteString("\n📱 Лимит: не выбран")
	}
	sb.WriteString(fmt.Sprintf("\n🎯 Активностей: %d", plan.Planned.Count()))
	return sb.String()
}

func statusIcon(s domain.ActivityStatus) string {
	switch s {
	case domain.StatusDone:
		return "✅"
	case domain.StatusMissed:
		return "❌"
	default:
		return "➖"
	}
}

// summaryText is the evening report.
func summaryText(user *domain.User, sum *service.DaySummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🌙 <b>Итоги дня %s</b>, %s\n\n", domain.FormatDay(sum.Date), esc(user.DisplayName()))

	if sum.Stat.ScreenTimeGoal != nil {
		icon := "✅"
		if sum.OverLimit() {
			icon = "⚠️"
		}
		fmt.Fprintf(&sb, "%s Экранное время: %s из %s\n", icon, minutes(sum.ScreenMinutes), minutes(*sum.Stat.ScreenTimeGoal))
	} else {
		fmt.Fprintf(&sb, "📱 Экранное время: %s\n", minutes(sum.ScreenMinutes))
	}
	for _, a := range sum.Screen {
		fmt.Fprintf(&sb, "   • %s: %s\n", esc(a.Name), minutes(a.Minutes))
	}

	sb.WriteString("\n<b>Активности:</b>\n")
	for _, a := range domain.Activities {
		fmt.Fprintf(&sb, "%s %s %s\n", statusIcon(sum.Stat.Status(a.Key)), a.Emoji, a.Title)
	}

	fmt.Fprintf(&sb, "\n⚡ Продуктивное время: %s\n", minutes(sum.ProductiveMinutes))
	for _, a := range sum.Productive {
		fmt.Fprintf(&sb, "   • %s: %s\n", esc(a.Name), minutes(a.Minutes))
	}
	return sb.String()
}

// ==================== LISTS ====================

func habitsText(habits []domain.HabitWithStreak) string {
	if len(habits) == 0 {
		return "📋 Привычек пока нет. Добавь первую!"
	}
	var sb strings.Builder
	sb.WriteString("📋 <b>Твои привычки</b>\n\n")
	for _, h := range habits {
		fmt.Fprintf(&sb, "• %s  🔥 %d дн.\n", esc(h.Name), h.Streak)
	}
	sb.WriteString("\nНажми на привычку, чтобы удалить её.")
	return sb.String()
}

func goalsText(goals []*domain.Goal) string {
	if len(goals) == 0 {
		return "🎯 Активных целей нет."
	}
	var sb strings.Builder
	sb.WriteString("🎯 <b>Твои цели</b>\n\n")
	for _, g := range goals {
		fmt.Fprintf(&sb, "• <b>%s</b> (%s)\n   Прогресс: %d/%d, серия: %d, до %s\n",
			esc(g.Name), g.Type.Title(), g.CurrentValue, g.TargetValue, g.Streak, domain.FormatDay(g.EndDate))
		if g.Type == domain.GoalWeekly {
			fmt.Fprintf(&sb, "   Дней в неделю: %d\n", g.WeeklyTarget())
		}
	}
	sb.WriteString("\nНажми на цель, чтобы удалить её.")
	return sb.String()
}

func achievementsText(list []*domain.Achievement) string {
	if len(list) == 0 {
		return "🏆 Достижений пока нет. Всё впереди!"
	}
	var sb strings.Builder
	sb.WriteString("🏆 <b>Достижения</b>\n\n")
	for _, a := range list {
		fmt.Fprintf(&sb, "%s  %s\n", domain.FormatDay(a.DateEarned), esc(a.Name))
	}
	return sb.String()
}

func grantedText(list []*domain.Achievement) string {
	var sb strings.Builder
	sb.WriteString("🎉 <b>Новые достижения!</b>\n\n")
	for _, a := range list {
		sb.WriteString(esc(a.Name) + "\n")
	}
	return sb.String()
}

// ==================== POLL ====================

// promptMessage renders the next poll step. Done prompts have no markup.
func promptMessage(p service.Prompt) (string, *tgbotapi.InlineKeyboardMarkup) {
	switch p.Kind {
	case service.PromptHabit:
		kb := YesNoKeyboard(ActHabitAnswer, p.Habit.ID)
		return fmt.Sprintf("📋 Привычка <b>%s</b>: выполнена сегодня?", esc(p.Habit.Name)), &kb
	case service.PromptGoal:
		kb := YesNoKeyboard(ActGoalAnswer, p.Goal.ID)
		return fmt.Sprintf("🎯 Цель <b>%s</b>: выполнена сегодня?", esc(p.Goal.Name)), &kb
	case service.PromptQuestion:
		return fmt.Sprintf("💭 Вопрос %d/%d\n\n<b>%s</b>", p.QuestionIndex+1, len(domain.ProductivityQuestions), esc(p.Question)), nil
	default:
		return "🙏 Спасибо! Ответы сохранены. Хорошего вечера!", nil
	}
}

const helpText = `🛡 <b>Страж Режима</b>

/morning — план на день
/done — отметить выполненное
/log — записать активность
/habits — привычки
/goals — цели
/achievements — достижения
/tips — советы
/stats — дашборд статистики
/export — выгрузка в CSV
/settings — часовой пояс
/clear_stats — удалить все данные
/cancel — отменить текущее действие`
