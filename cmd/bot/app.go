package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"regime-guard-bot/internal/config"
	"regime-guard-bot/internal/logger"
	"regime-guard-bot/internal/repository"
	"regime-guard-bot/internal/scheduler"
	"regime-guard-bot/internal/service"
	"regime-guard-bot/internal/state"
)

const memoryDSN = "memory://"

// app holds the dependencies shared by every command.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	loc    *time.Location
	repo   repository.Repository
	states state.Store
	svc    *service.Services

	closers []func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	loc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	a := &app{cfg: cfg, log: log, loc: loc}
	a.closers = append(a.closers, func() { _ = log.Sync() })

	var pg *repository.PostgresRepository
	if cfg.DatabaseURL == memoryDSN {
		log.Warn("using in-memory storage, data is lost on restart")
		a.repo = repository.NewMemoryRepository()
	} else {
		pg, err = repository.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.repo = pg
	}
	a.closers = append(a.closers, a.repo.Close)

	switch {
	case cfg.RedisURL != "":
		rdb, err := state.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		a.states = state.NewRedisStore(rdb)
		log.Info("conversation state in redis")
	case pg != nil:
		a.states = state.NewPostgresStore(pg.Pool())
	default:
		a.states = state.NewMemoryStore()
	}

	a.svc = service.New(a.repo, a.states, service.NewCalendar(loc), log)
	return a, nil
}

// migrate applies the schema and seeds tips; both are idempotent.
func (a *app) migrate(ctx context.Context) error {
	if err := a.repo.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := a.svc.Tips.Seed(ctx); err != nil {
		return fmt.Errorf("seed tips: %w", err)
	}
	return nil
}

func (a *app) windows() scheduler.Windows {
	return scheduler.Windows{
		Morning:   a.cfg.MorningWindow,
		Afternoon: a.cfg.AfternoonWindow,
		Evening:   a.cfg.EveningWindow,
		Reset:     a.cfg.ResetWindow,
	}
}

// Close releases resources in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
