package telegram

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"regime-guard-bot/internal/config"
)

// NewAPI authorizes the bot token.
func NewAPI(cfg *config.Config) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	api.Debug = cfg.IsDevelopment()
	return api, nil
}

// lockShards bounds the number of per-user locks. Users sharing a shard
// wait for each other, which is fine at this update rate.
const lockShards = 64

// Bot receives updates by long polling or webhook and hands them to Handlers.
// Updates of one user never run concurrently; most different users run in parallel.
type Bot struct {
	api      *tgbotapi.BotAPI
	handlers *Handlers
	cfg      *config.Config
	log      *zap.Logger

	locks [lockShards]sync.Mutex
	wg    sync.WaitGroup
}

func NewBot(api *tgbotapi.BotAPI, handlers *Handlers, cfg *config.Config, log *zap.Logger) *Bot {
	return &Bot{api: api, handlers: handlers, cfg: cfg, log: log.Named("bot")}
}

// Start blocks until ctx is done. In webhook mode it only registers the
// webhook; updates then arrive through Dispatch.
func (b *Bot) Start(ctx context.Context) error {
	b.log.Info("authorized", zap.String("username", b.api.Self.UserName))

	if b.cfg.UseWebhook() {
		wh, err := tgbotapi.NewWebhook(b.cfg.WebhookURL())
		if err != nil {
			return fmt.Errorf("build webhook: %w", err)
		}
		if _, err := b.api.Request(wh); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		b.log.Info("webhook registered", zap.String("base_url", b.cfg.WebhookBaseURL))
		<-ctx.Done()
		b.wg.Wait()
		return nil
	}

	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.log.Warn("delete webhook", zap.Error(err))
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)
	b.log.Info("long polling started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			b.log.Info("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			b.Dispatch(ctx, update)
		}
	}
}

// Dispatch handles the update in the background.
func (b *Bot) Dispatch(ctx context.Context, update tgbotapi.Update) {
	var userID int64
	if from := update.SentFrom(); from != nil {
		userID = from.ID
	}
	mu := b.lockFor(userID)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		mu.Lock()
		defer mu.Unlock()
		b.handlers.HandleUpdate(context.WithoutCancel(ctx), update)
	}()
}

func (b *Bot) lockFor(userID int64) *sync.Mutex {
	return &b.locks[uint64(userID)%lockShards]
}
