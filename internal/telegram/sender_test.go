package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestRateLimitedSenderDelegates(t *testing.T) {
	next := &fakeSender{}
	s := NewRateLimitedSender(next, 1000)

	if _, err := s.Send(tgbotapi.NewMessage(1, "a")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := s.Request(tgbotapi.NewCallback("id", "")); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if len(next.sent) != 1 || len(next.requested) != 1 {
		t.Errorf("delegated sent=%d requested=%d", len(next.sent), len(next.requested))
	}
}
