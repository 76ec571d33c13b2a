package telegram

import (
	"context"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"regime-guard-bot/internal/auth"
	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/repository"
	"regime-guard-bot/internal/service"
	"regime-guard-bot/internal/state"
)

type fakeSender struct {
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
	panicOn   string
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok && s.panicOn != "" && strings.Contains(msg.Text, s.panicOn) {
		panic("boom")
	}
	s.sent = append(s.sent, c)
	return tgbotapi.Message{}, nil
}

func (s *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	s.requested = append(s.requested, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// lastText returns the text of the most recent message or edit.
func (s *fakeSender) lastText(t *testing.T) string {
	t.Helper()
	if len(s.sent) == 0 {
		t.Fatal("nothing sent")
	}
	switch c := s.sent[len(s.sent)-1].(type) {
	case tgbotapi.MessageConfig:
		return c.Text
	case tgbotapi.EditMessageTextConfig:
		return c.Text
	default:
		t.Fatalf("unexpected chattable %T", c)
		return ""
	}
}

func (s *fakeSender) lastToast(t *testing.T) string {
	t.Helper()
	if len(s.requested) == 0 {
		t.Fatal("no callback answered")
	}
	cb, ok := s.requested[len(s.requested)-1].(tgbotapi.CallbackConfig)
	if !ok {
		t.Fatalf("unexpected request %T", s.requested[len(s.requested)-1])
	}
	return cb.Text
}

const testUserID = 42

type harness struct {
	ctx    context.Context
	sender *fakeSender
	h      *Handlers
	repo   *repository.MemoryRepository
	states *state.MemoryStore
	nextID int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	repo := repository.NewMemoryRepository()
	states := state.NewMemoryStore()
	cal := service.Calendar{
		Now:      func() time.Time { return time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC) },
		Location: time.UTC,
	}
	svc := service.New(repo, states, cal, zap.NewNop())
	if err := svc.Tips.Seed(context.Background()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	sender := &fakeSender{}
	tokens := auth.NewTokenIssuer("secret", time.Hour)
	return &harness{
		ctx:    context.Background(),
		sender: sender,
		h:      NewHandlers(sender, svc, states, tokens, "https://dash.example.com/", zap.NewNop()),
		repo:   repo,
		states: states,
	}
}

func (hs *harness) text(text string) {
	hs.nextID++
	msg := &tgbotapi.Message{
		MessageID: hs.nextID,
		From:      &tgbotapi.User{ID: testUserID, FirstName: "Анна"},
		Chat:      &tgbotapi.Chat{ID: testUserID},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		length := len(text)
		if i := strings.IndexByte(text, ' '); i > 0 {
			length = i
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	}
	hs.h.HandleUpdate(hs.ctx, tgbotapi.Update{UpdateID: hs.nextID, Message: msg})
}

func (hs *harness) press(a Action) {
	hs.pressData(a.Data())
}

func (hs *harness) pressData(data string) {
	hs.nextID++
	hs.h.HandleUpdate(hs.ctx, tgbotapi.Update{
		UpdateID: hs.nextID,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb",
			From:    &tgbotapi.User{ID: testUserID, FirstName: "Анна"},
			Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: testUserID}},
			Data:    data,
		},
	})
}

func (hs *harness) step(t *testing.T) state.Step {
	t.Helper()
	c, err := hs.states.Get(hs.ctx, state.UserKey(testUserID))
	if err != nil {
		t.Fatalf("state Get: %v", err)
	}
	return c.Step
}

func TestStartSendsMenu(t *testing.T) {
	hs := newHarness(t)
	hs.text("/start")

	msg, ok := hs.sender.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("sent %T, want MessageConfig", hs.sender.sent[0])
	}
	if !strings.Contains(msg.Text, "Анна") || msg.ParseMode != tgbotapi.ModeHTML {
		t.Errorf("welcome = %q (mode %q)", msg.Text, msg.ParseMode)
	}
	if _, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup); !ok {
		t.Errorf("markup = %T, want reply keyboard", msg.ReplyMarkup)
	}
}

func TestMorningFlowThroughButtons(t *testing.T) {
	hs := newHarness(t)

	hs.text(btnPlan)
	if got := hs.step(t); got != state.StepChoosingDayType {
		t.Fatalf("step = %q", got)
	}

	hs.press(Action{Kind: ActDayWork})
	hs.press(Action{Kind: ActPlanToggle, Activity: domain.ActivityCoding})

	hs.press(Action{Kind: ActPlanSave})
	if got := hs.sender.lastToast(t); got != "Пожалуйста, выберите лимит времени" {
		t.Errorf("toast without limit = %q", got)
	}
	if got := hs.step(t); got != state.StepComposingPlan {
		t.Errorf("step after rejected save = %q", got)
	}

	hs.press(Action{Kind: ActPlanHours, Hours: 3})
	hs.press(Action{Kind: ActPlanSave})
	if got := hs.sender.lastToast(t); got != "План сохранён" {
		t.Errorf("toast = %q", got)
	}
	if text := hs.sender.lastText(t); !strings.Contains(text, "3 ч 0 мин") || !strings.Contains(text, "Программирование") {
		t.Errorf("saved plan text = %q", text)
	}
	if got := hs.step(t); got != state.StepIdle {
		t.Errorf("step after save = %q", got)
	}

	hs.press(Action{Kind: ActDone, Activity: domain.ActivityCoding})
	if got := hs.sender.lastToast(t); got != "Отмечено: Программирование" {
		t.Errorf("done toast = %q", got)
	}
	hs.press(Action{Kind: ActDone, Activity: domain.ActivityCoding})
	if got := hs.sender.lastToast(t); got != "Уже отмечено" {
		t.Errorf("second done toast = %q", got)
	}

	hs.text("/morning")
	if got := hs.sender.lastText(t); got != "⚠️ Утренний опрос на сегодня уже пройден" {
		t.Errorf("repeat /morning = %q", got)
	}
}

func TestUnknownCallback(t *testing.T) {
	hs := newHarness(t)
	hs.pressData("complete_5")
	if got := hs.sender.lastToast(t); got != "Неизвестная команда" {
		t.Errorf("toast = %q", got)
	}
	if len(hs.sender.sent) != 0 {
		t.Errorf("sent %d messages for unknown callback", len(hs.sender.sent))
	}
}

func TestLogDialogue(t *testing.T) {
	hs := newHarness(t)

	hs.text("/log")
	hs.press(Action{Kind: ActLogScreen})
	hs.text("Tom & Jerry")
	if got := hs.step(t); got != state.StepLogChoosingDuration {
		t.Fatalf("step = %q", got)
	}

	hs.text("полчаса")
	if got := hs.sender.lastText(t); !strings.HasPrefix(got, "⚠️ Введите длительность") {
		t.Errorf("bad duration reply = %q", got)
	}
	if got := hs.step(t); got != state.StepLogChoosingDuration {
		t.Errorf("step after bad duration = %q", got)
	}

	hs.text("45")
	if got := hs.sender.lastText(t); got != "✅ Записано: Tom &amp; Jerry, 45 мин" {
		t.Errorf("logged reply = %q", got)
	}
}

func TestCommandInterruptsDialogue(t *testing.T) {
	hs := newHarness(t)
	hs.press(Action{Kind: ActHabitAdd})
	if got := hs.step(t); got != state.StepHabitEnteringName {
		t.Fatalf("step = %q", got)
	}

	hs.text("/cancel")
	if got := hs.step(t); got != state.StepIdle {
		t.Errorf("step after cancel = %q", got)
	}
	hs.text("/cancel")
	if got := hs.sender.lastText(t); got != "⚠️ Здесь нечего отменять" {
		t.Errorf("idle cancel = %q", got)
	}
}

func TestHabitDeleteNamesHabit(t *testing.T) {
	hs := newHarness(t)
	hs.press(Action{Kind: ActHabitAdd})
	hs.text("Вода")
	habits, err := hs.repo.GetHabits(hs.ctx, testUserID)
	if err != nil || len(habits) != 1 {
		t.Fatalf("habits = %v, %v", habits, err)
	}

	hs.press(Action{Kind: ActHabitDelete, ID: habits[0].ID})
	if got := hs.sender.lastToast(t); got != "Привычка «Вода» удалена" {
		t.Errorf("toast = %q", got)
	}
	hs.press(Action{Kind: ActHabitDelete, ID: habits[0].ID})
	if got := hs.sender.lastToast(t); !strings.Contains(got, "Привычка не найдена") {
		t.Errorf("second delete toast = %q", got)
	}
}

func TestIdleTextAndButtonSteps(t *testing.T) {
	hs := newHarness(t)
	hs.text("привет")
	if got := hs.sender.lastText(t); !strings.Contains(got, "Не понимаю") {
		t.Errorf("idle text reply = %q", got)
	}

	hs.text("/settings")
	hs.text("Москва")
	if got := hs.sender.lastText(t); !strings.Contains(got, "кнопками") {
		t.Errorf("text in button step = %q", got)
	}
	hs.press(Action{Kind: ActTimezone, Index: 1})
	if got := hs.sender.lastText(t); !strings.Contains(got, "Europe/Moscow") {
		t.Errorf("timezone reply = %q", got)
	}
}

func TestStatsLink(t *testing.T) {
	hs := newHarness(t)
	hs.text("/stats")

	msg := hs.sender.sent[len(hs.sender.sent)-1].(tgbotapi.MessageConfig)
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("markup = %T", msg.ReplyMarkup)
	}
	link := kb.InlineKeyboard[0][0].URL
	if link == nil || !strings.HasPrefix(*link, "https://dash.example.com?") || !strings.Contains(*link, "user_id=42") {
		t.Errorf("dashboard link = %v", link)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	hs := newHarness(t)
	hs.sender.panicOn = "Привет"
	hs.text("/start")

	hs.sender.panicOn = ""
	hs.text("/help")
	if got := hs.sender.lastText(t); got != helpText {
		t.Errorf("after panic got %q", got)
	}
}

func TestNotifierPollPrompt(t *testing.T) {
	hs := newHarness(t)
	user := &domain.User{ID: testUserID, FirstName: "Анна"}
	p := service.Prompt{Kind: service.PromptHabit, Habit: &domain.Habit{ID: 5, Name: "Вода"}}
	if err := hs.h.SendPollPrompt(hs.ctx, user, p); err != nil {
		t.Fatalf("SendPollPrompt: %v", err)
	}
	msg := hs.sender.sent[0].(tgbotapi.MessageConfig)
	kb := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if got := *kb.InlineKeyboard[0][0].CallbackData; got != "habit:ans:5:y" {
		t.Errorf("yes button = %q", got)
	}
}
