package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"regime-guard-bot/internal/auth"
	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/service"
	"regime-guard-bot/internal/state"
)

// menuCommands maps reply keyboard buttons to their slash commands.
var menuCommands = map[string]string{
	btnPlan:         "morning",
	btnDone:         "done",
	btnLog:          "log",
	btnHabits:       "habits",
	btnGoals:        "goals",
	btnAchievements: "achievements",
	btnTips:         "tips",
	btnStats:        "stats",
	btnSettings:     "settings",
	btnCancel:       "cancel",
}

type Handlers struct {
	sender      Sender
	svc         *service.Services
	states      state.Store
	tokens      *auth.TokenIssuer
	frontendURL string
	log         *zap.Logger
}

func NewHandlers(sender Sender, svc *service.Services, states state.Store, tokens *auth.TokenIssuer, frontendURL string, log *zap.Logger) *Handlers {
	return &Handlers{
		sender:      sender,
		svc:         svc,
		states:      states,
		tokens:      tokens,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		log:         log.Named("telegram"),
	}
}

// HandleUpdate routes one update. A panic is logged and swallowed so the
// next update is still served.
func (h *Handlers) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("panic while handling update",
				zap.Int("update_id", update.UpdateID), zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	switch {
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	}
}

// ==================== MESSAGES ====================

func (h *Handlers) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	chatID := msg.Chat.ID

	user, err := h.svc.Users.Register(ctx, msg.From.ID, msg.From.UserName, msg.From.FirstName)
	if err != nil {
		h.replyError(chatID, msg.From.ID, "register user", err)
		return
	}
	key := state.Key{ChatID: chatID, UserID: user.ID}

	command := ""
	if msg.IsCommand() {
		command = msg.Command()
	} else if c, ok := menuCommands[strings.TrimSpace(msg.Text)]; ok {
		command = c
	}
	if command != "" {
		h.handleCommand(ctx, key, user, command)
		return
	}

	conv, err := h.states.Get(ctx, key)
	if err != nil {
		h.replyError(chatID, user.ID, "get state", err)
		return
	}
	if conv.IsIdle() {
		h.sendHTML(chatID, "🤔 Не понимаю. Воспользуйся меню или /help.", nil)
		return
	}
	h.handleDialogue(ctx, key, user, conv, msg.Text)
}

func (h *Handlers) handleCommand(ctx context.Context, key state.Key, user *domain.User, command string) {
	chatID := key.ChatID
	var err error

	switch command {
	case "start":
		_ = h.states.Clear(ctx, key)
		text := fmt.Sprintf("👋 Привет, <b>%s</b>!\n\nЯ <b>Страж Режима</b>. Утром помогу составить план, "+
			"днём напомню о нём, а вечером подведу итоги.\n\nНачни с кнопки «%s».",
			esc(user.DisplayName()), btnPlan)
		h.sendHTML(chatID, text, MainMenuKeyboard())

	case "menu", "help":
		h.sendHTML(chatID, helpText, MainMenuKeyboard())

	case "cancel":
		if err = h.svc.Users.Cancel(ctx, key); err == nil {
			h.sendHTML(chatID, "❌ Отменено.", MainMenuKeyboard())
		}

	case "morning":
		if err = h.svc.Plans.StartMorningPoll(ctx, key, user); err == nil {
			h.sendHTML(chatID, "☀️ Какой сегодня день?", DayTypeKeyboard())
		}

	case "done":
		var stat *domain.DailyStat
		if stat, err = h.svc.Plans.TodayPlan(ctx, user); err == nil {
			h.sendHTML(chatID, "✅ Что уже сделано?", DoneKeyboard(stat))
		}

	case "log":
		if err = h.svc.Activities.StartLog(ctx, key); err == nil {
			h.sendHTML(chatID, "📝 Что записываем?", LogTypeKeyboard())
		}

	case "habits":
		h.sendHTML(chatID, "📋 <b>Привычки</b>", HabitsMenuKeyboard())

	case "goals":
		h.sendHTML(chatID, "🎯 <b>Цели</b>", GoalsMenuKeyboard())

	case "achievements":
		h.sendHTML(chatID, "🏆 <b>Достижения</b>", AchievementsMenuKeyboard())

	case "tips":
		var cats []string
		if cats, err = h.svc.Tips.Categories(ctx); err == nil {
			h.sendHTML(chatID, "💡 Выбери тему:", TipCategoriesKeyboard(cats))
		}

	case "settings":
		if err = h.svc.Users.StartTimezone(ctx, key); err == nil {
			h.sendHTML(chatID, "🕒 Выбери часовой пояс:", TimezoneKeyboard(user.Timezone))
		}

	case "clear_stats":
		if err = h.svc.Users.StartClear(ctx, key); err == nil {
			h.sendHTML(chatID, "⚠️ Удалить <b>все</b> твои данные? Это необратимо.", ClearConfirmKeyboard())
		}

	case "stats":
		err = h.sendDashboardLink(chatID, user)

	case "export":
		err = h.sendExport(ctx, chatID, user)

	default:
		h.sendHTML(chatID, "🤔 Неизвестная команда. Список команд: /help", nil)
	}

	if err != nil {
		h.replyError(chatID, user.ID, "command "+command, err)
	}
}

func (h *Handlers) sendDashboardLink(chatID int64, user *domain.User) error {
	if h.frontendURL == "" || h.tokens == nil {
		h.sendHTML(chatID, "📊 Дашборд пока недоступен.", nil)
		return nil
	}
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	h.sendHTML(chatID, "📊 Твоя статистика за сегодня и неделю:", DashboardKeyboard(dashboardURL(h.frontendURL, token, user.ID)))
	return nil
}

func (h *Handlers) sendExport(ctx context.Context, chatID int64, user *domain.User) error {
	data, err := h.svc.Export.ExportToCSV(ctx, user)
	if err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("regime_%s.csv", domain.DateKey(h.svc.Calendar.Today(user))),
		Bytes: data,
	})
	doc.Caption = "📥 Твои данные"
	_, err = h.sender.Send(doc)
	return err
}

// handleDialogue feeds free text to the step waiting for it.
func (h *Handlers) handleDialogue(ctx context.Context, key state.Key, user *domain.User, conv state.Conversation, text string) {
	chatID := key.ChatID
	var err error

	switch conv.Step {
	case state.StepLogChoosingName:
		if err = h.svc.Activities.EnterName(ctx, key, text); err == nil {
			h.sendHTML(chatID, "⏱ Сколько минут? Введи число.", CancelKeyboard())
		}

	case state.StepLogChoosingDuration:
		var a *domain.LoggedActivity
		if a, err = h.svc.Activities.EnterDuration(ctx, key, user, text); err == nil {
			h.sendHTML(chatID, fmt.Sprintf("✅ Записано: %s, %s", esc(a.Name), minutes(a.DurationMinutes)), nil)
		}

	case state.StepGoalEnteringName:
		var next state.Step
		if next, err = h.svc.Goals.EnterName(ctx, key, text); err == nil {
			if next == state.StepGoalEnteringDays {
				h.sendHTML(chatID, "📆 Сколько дней в неделю? Число от 1 до 7.", CancelKeyboard())
			} else {
				h.sendHTML(chatID, "🔢 Какое целевое значение? Введи число.", CancelKeyboard())
			}
		}

	case state.StepGoalEnteringDays:
		if err = h.svc.Goals.EnterDaysPerWeek(ctx, key, text); err == nil {
			h.sendHTML(chatID, "🔢 Какое целевое значение? Введи число.", CancelKeyboard())
		}

	case state.StepGoalEnteringTarget:
		if err = h.svc.Goals.EnterTarget(ctx, key, text); err == nil {
			h.sendHTML(chatID, "⏳ На какой срок ставим цель?", GoalSpanKeyboard())
		}

	case state.StepHabitEnteringName:
		var habit *domain.Habit
		if habit, err = h.svc.Habits.Add(ctx, key, user, text); err == nil {
			h.sendHTML(chatID, fmt.Sprintf("✅ Привычка <b>%s</b> добавлена.", esc(habit.Name)), nil)
		}

	case state.StepAchievementEnteringDate:
		if _, err = h.svc.Achievements.EnterDate(ctx, key, user, text); err == nil {
			h.sendHTML(chatID, "✍️ Опиши достижение:", CancelKeyboard())
		}

	case state.StepAchievementEnteringDescription:
		var a *domain.Achievement
		if a, err = h.svc.Achievements.EnterDescription(ctx, key, user, text); err == nil {
			h.sendHTML(chatID, fmt.Sprintf("🏆 Сохранено: %s, %s", domain.FormatDay(a.DateEarned), esc(a.Name)), nil)
		}

	case state.StepPollQuestion:
		var p service.Prompt
		if p, err = h.svc.Polls.AnswerQuestion(ctx, key, user, text); err == nil {
			err = h.sendPrompt(chatID, p)
		}

	default:
		h.sendHTML(chatID, "👆 Воспользуйся кнопками выше или /cancel.", nil)
	}

	if err != nil {
		h.replyError(chatID, user.ID, "dialogue "+string(conv.Step), err)
	}
}

// ==================== CALLBACKS ====================

type callbackTarget struct {
	key       state.Key
	user      *domain.User
	messageID int
}

func (h *Handlers) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil {
		return
	}
	action, err := ParseAction(cb.Data)
	if err != nil {
		h.answerCallback(cb.ID, "Неизвестная команда")
		return
	}

	chatID, messageID := cb.From.ID, 0
	if cb.Message != nil {
		chatID, messageID = cb.Message.Chat.ID, cb.Message.MessageID
	}
	user, err := h.svc.Users.Register(ctx, cb.From.ID, cb.From.UserName, cb.From.FirstName)
	if err != nil {
		h.log.Error("register user", zap.Int64("user_id", cb.From.ID), zap.Error(err))
		h.answerCallback(cb.ID, genericErrorText)
		return
	}

	t := callbackTarget{key: state.Key{ChatID: chatID, UserID: user.ID}, user: user, messageID: messageID}
	toast, err := h.dispatch(ctx, t, action)
	if err != nil {
		text, ok := userErrorText(err)
		if !ok {
			h.log.Error("callback", zap.Int64("user_id", user.ID), zap.String("action", string(action.Kind)), zap.Error(err))
			text = genericErrorText
		}
		toast = text
	}
	h.answerCallback(cb.ID, toast)
}

// dispatch runs one action and returns an optional toast.
func (h *Handlers) dispatch(ctx context.Context, t callbackTarget, a Action) (string, error) {
	chatID, user, key := t.key.ChatID, t.user, t.key

	switch a.Kind {
	case ActDayRest:
		if _, err := h.svc.Plans.ChooseDayType(ctx, key, user, true); err != nil {
			return "", err
		}
		h.edit(t, "🏖 Сегодня день отдыха. Восстанавливайся!", nil)

	case ActDayWork:
		plan, err := h.svc.Plans.ChooseDayType(ctx, key, user, false)
		if err != nil {
			return "", err
		}
		kb := PlanKeyboard(plan)
		h.edit(t, planText(plan), &kb)

	case ActPlanToggle, ActPlanHours:
		var plan *state.StagedPlan
		var err error
		if a.Kind == ActPlanToggle {
			plan, err = h.svc.Plans.TogglePlanField(ctx, key, a.Activity)
		} else {
			plan, err = h.svc.Plans.SetPlanTimeLimit(ctx, key, a.Hours)
		}
		if err != nil {
			return "", err
		}
		kb := PlanKeyboard(plan)
		h.edit(t, planText(plan), &kb)

	case ActPlanSave:
		stat, err := h.svc.Plans.CommitPlan(ctx, key, user)
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "✅ <b>План сохранён!</b>\n\n📱 Лимит: %s\n", minutes(*stat.ScreenTimeGoal))
		for _, info := range domain.Activities {
			if stat.Planned.Has(info.Key) {
				fmt.Fprintf(&sb, "%s %s\n", info.Emoji, info.Title)
			}
		}
		sb.WriteString("\nОтмечай выполненное через «" + btnDone + "».")
		h.edit(t, sb.String(), nil)
		return "План сохранён", nil

	case ActDone:
		stat, err := h.svc.Plans.MarkActivityDone(ctx, user, a.Activity)
		if err != nil {
			return "", err
		}
		kb := DoneKeyboard(stat)
		h.edit(t, "✅ Что уже сделано?", &kb)
		return "Отмечено: " + a.Activity.Title(), nil

	case ActLogScreen, ActLogProductive:
		kind := domain.LogScreen
		if a.Kind == ActLogProductive {
			kind = domain.LogProductive
		}
		if err := h.svc.Activities.ChooseType(ctx, key, kind); err != nil {
			return "", err
		}
		kb := CancelKeyboard()
		h.edit(t, "✏️ Как называется активность?", &kb)

	case ActHabitAdd:
		if err := h.svc.Habits.StartAdd(ctx, key); err != nil {
			return "", err
		}
		h.sendHTML(chatID, "✏️ Введи название привычки:", CancelKeyboard())

	case ActHabitList, ActHabitDelete:
		toast := ""
		if a.Kind == ActHabitDelete {
			habit, err := h.svc.Habits.Delete(ctx, user, a.ID)
			if err != nil {
				return "", err
			}
			toast = fmt.Sprintf("Привычка «%s» удалена", habit.Name)
		}
		habits, err := h.svc.Habits.List(ctx, user)
		if err != nil {
			return "", err
		}
		kb := HabitsListKeyboard(habits)
		h.edit(t, habitsText(habits), &kb)
		return toast, nil

	case ActHabitAnswer:
		p, err := h.svc.Polls.AnswerHabit(ctx, key, user, a.ID, a.Yes)
		if err != nil {
			return "", err
		}
		text, kb := promptMessage(p)
		h.edit(t, text, kb)

	case ActGoalAdd:
		if err := h.svc.Goals.StartSetup(ctx, key); err != nil {
			return "", err
		}
		h.sendHTML(chatID, "🎯 Какая цель?", GoalTypeKeyboard())

	case ActGoalList, ActGoalDelete:
		toast := ""
		if a.Kind == ActGoalDelete {
			if err := h.svc.Goals.Delete(ctx, user, a.ID); err != nil {
				return "", err
			}
			toast = "Цель удалена"
		}
		goals, err := h.svc.Goals.ListActive(ctx, user)
		if err != nil {
			return "", err
		}
		kb := GoalsListKeyboard(goals)
		h.edit(t, goalsText(goals), &kb)
		return toast, nil

	case ActGoalType:
		if err := h.svc.Goals.ChooseType(ctx, key, a.GoalType); err != nil {
			return "", err
		}
		kb := CancelKeyboard()
		h.edit(t, "✏️ Как назовём цель?", &kb)

	case ActGoalSpan:
		g, err := h.svc.Goals.ChooseSpan(ctx, key, user, a.Span)
		if err != nil {
			return "", err
		}
		h.edit(t, fmt.Sprintf("🎯 Цель <b>%s</b> создана до %s.", esc(g.Name), domain.FormatDay(g.EndDate)), nil)

	case ActGoalAnswer:
		p, err := h.svc.Polls.AnswerGoal(ctx, key, user, a.ID, a.Yes)
		if err != nil {
			return "", err
		}
		text, kb := promptMessage(p)
		h.edit(t, text, kb)

	case ActAchList:
		list, err := h.svc.Achievements.List(ctx, user)
		if err != nil {
			return "", err
		}
		h.edit(t, achievementsText(list), nil)

	case ActAchAdd:
		if err := h.svc.Achievements.StartManual(ctx, key); err != nil {
			return "", err
		}
		h.sendHTML(chatID, "📅 Когда? Введи дату в формате ДД.ММ", CancelKeyboard())

	case ActTipsCategory, ActTipsNext:
		var tip *domain.Tip
		var err error
		if a.Kind == ActTipsCategory {
			tip, err = h.svc.Tips.Start(ctx, key, a.Index)
		} else {
			tip, err = h.svc.Tips.Next(ctx, key)
		}
		if err != nil {
			return "", err
		}
		kb := NextTipKeyboard()
		h.edit(t, fmt.Sprintf("💡 <b>%s</b>\n\n%s", esc(tip.Category), esc(tip.Text)), &kb)

	case ActTimezone:
		name, err := h.svc.Users.SetTimezone(ctx, key, user, a.Index)
		if err != nil {
			return "", err
		}
		h.edit(t, "🕒 Часовой пояс: <b>"+esc(name)+"</b>", nil)

	case ActClearYes, ActClearNo:
		cleared, err := h.svc.Users.ConfirmClear(ctx, key, user, a.Kind == ActClearYes)
		if err != nil {
			return "", err
		}
		if cleared {
			h.edit(t, "🗑 Все данные удалены. Чтобы начать заново, нажми /start.", nil)
		} else {
			h.edit(t, "👌 Ничего не удалено.", nil)
		}

	case ActMenu:
		_ = h.states.Clear(ctx, key)
		h.sendHTML(chatID, helpText, MainMenuKeyboard())

	case ActCancel:
		err := h.svc.Users.Cancel(ctx, key)
		if err != nil && !errors.Is(err, service.ErrNothingToCancel) {
			return "", err
		}
		h.edit(t, "❌ Отменено.", nil)
	}
	return "", nil
}

// ==================== NOTIFICATIONS ====================

func (h *Handlers) SendMorningPrompt(ctx context.Context, user *domain.User) error {
	text := fmt.Sprintf("☀️ Доброе утро, %s! Какой сегодня день?", esc(user.DisplayName()))
	return h.sendHTML(user.ID, text, DayTypeKeyboard())
}

func (h *Handlers) SendAfternoonReminder(ctx context.Context, user *domain.User) error {
	return h.sendHTML(user.ID, "⏰ Не забудь отметить выполненное за день: /done", nil)
}

func (h *Handlers) SendEveningSummary(ctx context.Context, user *domain.User, sum *service.DaySummary) error {
	return h.sendHTML(user.ID, summaryText(user, sum), nil)
}

func (h *Handlers) SendAchievements(ctx context.Context, user *domain.User, granted []*domain.Achievement) error {
	if len(granted) == 0 {
		return nil
	}
	return h.sendHTML(user.ID, grantedText(granted), nil)
}

func (h *Handlers) SendPollPrompt(ctx context.Context, user *domain.User, p service.Prompt) error {
	return h.sendPrompt(user.ID, p)
}

// ==================== HELPERS ====================

func (h *Handlers) sendPrompt(chatID int64, p service.Prompt) error {
	text, kb := promptMessage(p)
	if kb == nil {
		return h.sendHTML(chatID, text, nil)
	}
	return h.sendHTML(chatID, text, *kb)
}

// sendHTML sends a message; markup may be nil, an inline or a reply keyboard.
func (h *Handlers) sendHTML(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := h.sender.Send(msg); err != nil {
		h.log.Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
		return err
	}
	return nil
}

// edit replaces the pressed message, or sends a new one when there is none.
func (h *Handlers) edit(t callbackTarget, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	if t.messageID == 0 {
		if kb != nil {
			h.sendHTML(t.key.ChatID, text, *kb)
		} else {
			h.sendHTML(t.key.ChatID, text, nil)
		}
		return
	}
	edit := tgbotapi.NewEditMessageText(t.key.ChatID, t.messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = kb
	if _, err := h.sender.Send(edit); err != nil {
		h.log.Warn("edit message", zap.Int64("chat_id", t.key.ChatID), zap.Error(err))
	}
}

func (h *Handlers) answerCallback(callbackID, text string) {
	if _, err := h.sender.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		h.log.Warn("answer callback", zap.Error(err))
	}
}

func (h *Handlers) replyError(chatID, userID int64, op string, err error) {
	text, ok := userErrorText(err)
	if !ok {
		h.log.Error(op, zap.Int64("user_id", userID), zap.Error(err))
		h.sendHTML(chatID, genericErrorText, nil)
		return
	}
	h.sendHTML(chatID, "⚠️ "+esc(text), nil)
}
