package service

import (
	"context"
	"fmt"

	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/repository"
	"regime-guard-bot/internal/state"
)

// DefaultTips is the reference data seeded on migrate.
var DefaultTips = []domain.Tip{
	{Category: "Экранное время", Text: "Отключите уведомления во всех приложениях, кроме мессенджеров с близкими."},
	{Category: "Экранное время", Text: "Переведите экран в чёрно-белый режим: ленты теряют половину притягательности."},
	{Category: "Экранное время", Text: "Не берите телефон в спальню. Купите обычный будильник."},
	{Category: "Экранное время", Text: "Уберите соцсети с главного экрана, пусть до них придётся искать."},
	{Category: "Продуктивность", Text: "Начинайте день с самой сложной задачи, пока воля не растрачена."},
	{Category: "Продуктивность", Text: "Работайте блоками по 25 минут с короткими перерывами."},
	{Category: "Продуктивность", Text: "Вечером запишите три главные задачи на завтра."},
	{Category: "Спорт", Text: "Лучшая тренировка та, которая состоялась. Десять минут лучше, чем ноль."},
	{Category: "Спорт", Text: "Соберите спортивную сумку с вечера."},
	{Category: "Спорт", Text: "Растяжка после сна снимает скованность и будит не хуже кофе."},
	{Category: "Сон", Text: "Ложитесь и вставайте в одно и то же время, даже в выходные."},
	{Category: "Сон", Text: "За час до сна уберите экраны и приглушите свет."},
}

type TipsService struct {
	repo   repository.Repository
	states state.Store
}

func NewTipsService(repo repository.Repository, states state.Store) *TipsService {
	return &TipsService{repo: repo, states: states}
}

// Seed inserts DefaultTips; existing pairs are kept.
func (s *TipsService) Seed(ctx context.Context) error {
	if err := s.repo.SeedTips(ctx, DefaultTips); err != nil {
		return fmt.Errorf("seed tips: %w", err)
	}
	return nil
}

func (s *TipsService) Categories(ctx context.Context) ([]string, error) {
	cats, err := s.repo.GetTipCategories(ctx)
	if err != nil {
		return nil, err
	}
	if len(cats) == 0 {
		return nil, ErrNoTips
	}
	return cats, nil
}

// Start opens the category at the given index of Categories and returns its first tip.
func (s *TipsService) Start(ctx context.Context, key state.Key, categoryIndex int) (*domain.Tip, error) {
	cats, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if categoryIndex < 0 || categoryIndex >= len(cats) {
		return nil, ErrNoTips
	}
	return s.show(ctx, key, state.TipsCursor{Category: cats[categoryIndex]})
}

// Next cycles to the following tip of the open category.
func (s *TipsService) Next(ctx context.Context, key state.Key) (*domain.Tip, error) {
	c, err := s.states.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if c.Step != state.StepTipsBrowsing {
		return nil, ErrNothingPending
	}
	cursor := *c.Tips
	cursor.Index++
	return s.show(ctx, key, cursor)
}

func (s *TipsService) show(ctx context.Context, key state.Key, cursor state.TipsCursor) (*domain.Tip, error) {
	tips, err := s.repo.GetTips(ctx, cursor.Category)
	if err != nil {
		return nil, err
	}
	if len(tips) == 0 {
		return nil, ErrNoTips
	}
	cursor.Index %= len(tips)
	if err := s.states.Set(ctx, key, state.BrowsingTips(cursor)); err != nil {
		return nil, err
	}
	return tips[cursor.Index], nil
}
