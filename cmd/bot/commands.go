package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"regime-guard-bot/internal/auth"
	"regime-guard-bot/internal/scheduler"
	"regime-guard-bot/internal/server"
	"regime-guard-bot/internal/telegram"
)

type ServeCmd struct{}

func (c *ServeCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.migrate(ctx); err != nil {
		return err
	}

	api, err := telegram.NewAPI(a.cfg)
	if err != nil {
		return err
	}
	sender := telegram.NewRateLimitedSender(api, a.cfg.SendRatePerSec)
	tokens := auth.NewTokenIssuer(a.cfg.JWTSecret, a.cfg.DashboardTokenTTL)
	handlers := telegram.NewHandlers(sender, a.svc, a.states, tokens, a.cfg.FrontendURL, a.log)
	bot := telegram.NewBot(api, handlers, a.cfg, a.log)
	runner := scheduler.NewRunner(a.repo, a.svc, handlers, a.windows(), a.log)

	var updates server.UpdateDispatcher
	if a.cfg.UseWebhook() {
		updates = bot
	}
	srv := server.New(server.Options{
		Port:          a.cfg.Port,
		FrontendURL:   a.cfg.FrontendURL,
		WebhookSecret: a.cfg.WebhookSecret,
		CronSecret:    a.cfg.CronSecret,
		Development:   a.cfg.IsDevelopment(),
	}, a.svc.Stats, tokens, updates, runner, a.log)

	if a.cfg.InternalCron {
		sched := scheduler.New(runner, a.loc, a.log)
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	a.log.Info("starting",
		zap.Bool("webhook", a.cfg.UseWebhook()),
		zap.Bool("internal_cron", a.cfg.InternalCron),
		zap.String("timezone", a.cfg.DefaultTimezone))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(gctx) })
	g.Go(func() error { return bot.Start(gctx) })
	err = g.Wait()
	a.log.Info("shutdown complete")
	return err
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run() error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.migrate(ctx); err != nil {
		return err
	}
	a.log.Info("schema is up to date")
	return nil
}

type JobCmd struct {
	Name string `arg:"" enum:"morning,afternoon,evening,reset-goals,reset-streaks" help:"Job to run (${enum})."`
}

func (c *JobCmd) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	api, err := telegram.NewAPI(a.cfg)
	if err != nil {
		return err
	}
	sender := telegram.NewRateLimitedSender(api, a.cfg.SendRatePerSec)
	tokens := auth.NewTokenIssuer(a.cfg.JWTSecret, a.cfg.DashboardTokenTTL)
	handlers := telegram.NewHandlers(sender, a.svc, a.states, tokens, a.cfg.FrontendURL, a.log)
	runner := scheduler.NewRunner(a.repo, a.svc, handlers, a.windows(), a.log)

	report, err := runner.Run(ctx, c.Name)
	if report != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	}
	return err
}
