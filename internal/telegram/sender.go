package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Sender is the part of *tgbotapi.BotAPI the handlers use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// RateLimitedSender paces outgoing calls below Telegram's global flood limit.
type RateLimitedSender struct {
	next    Sender
	limiter *rate.Limiter
}

func NewRateLimitedSender(next Sender, perSecond float64) *RateLimitedSender {
	if perSecond <= 0 {
		perSecond = 25
	}
	return &RateLimitedSender{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

func (s *RateLimitedSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := s.limiter.Wait(context.Background()); err != nil {
		return tgbotapi.Message{}, err
	}
	return s.next.Send(c)
}

func (s *RateLimitedSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if err := s.limiter.Wait(context.Background()); err != nil {
		return nil, err
	}
	return s.next.Request(c)
}
