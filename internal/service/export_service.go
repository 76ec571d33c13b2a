package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"regime-guard-bot/internal/domain"
	"regime-guard-bot/internal/repository"
)

// exportDays bounds the exported daily history.
const exportDays = 365

type ExportService struct {
	repo   repository.Repository
	habits *HabitService
	cal    Calendar
}

func NewExportService(repo repository.Repository, habits *HabitService, cal Calendar) *ExportService {
	return &ExportService{repo: repo, habits: habits, cal: cal}
}

func yesNo(b bool) string {
	if b {
		return "да"
	}
	return "нет"
}

// ExportToCSV writes the user's last year of tracking as sectioned CSV.
func (s *ExportService) ExportToCSV(ctx context.Context, user *domain.User) ([]byte, error) {
	today := s.cal.Today(user)
	from := domain.AddDays(today, -exportDays)

	stats, err := s.repo.GetDailyStats(ctx, user.ID, from, today)
	if err != nil {
		return nil, fmt.Errorf("get daily stats: %w", err)
	}
	totals, err := s.repo.GetDayTotals(ctx, user.ID, from, today)
	if err != nil {
		return nil, fmt.Errorf("get day totals: %w", err)
	}
	habits, err := s.habits.List(ctx, user)
	if err != nil {
		return nil, err
	}
	goals, err := s.repo.GetActiveGoals(ctx, user.ID, today)
	if err != nil {
		return nil, fmt.Errorf("get goals: %w", err)
	}
	achievements, err := s.repo.GetAchievements(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("get achievements: %w", err)
	}

	byDay := make(map[string]domain.DayTotals, len(totals))
	for _, t := range totals {
		byDay[domain.DateKey(t.Date)] = t
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"СТРАЖ РЕЖИМА: ЭКСПОРТ"},
		{"Пользователь", user.DisplayName()},
		{"Дата", domain.DateKey(today)},
		{},
		{"=== ДНИ ==="},
	}
	header := []string{"Дата", "Выходной", "Лимит экрана, мин", "Экран, мин", "Продуктивно, мин"}
	for _, a := range domain.Activities {
		header = append(header, a.Title)
	}
	rows = append(rows, header)
	for _, st := range stats {
		key := domain.DateKey(st.Date)
		limit := ""
		if st.ScreenTimeGoal != nil {
			limit = strconv.Itoa(*st.ScreenTimeGoal)
		}
		row := []string{
			key,
			yesNo(st.IsRestDay),
			limit,
			strconv.Itoa(byDay[key].ScreenMinutes),
			strconv.Itoa(byDay[key].ProductiveMinutes),
		}
		for _, a := range domain.Activities {
			switch st.Status(a.Key) {
			case domain.StatusDone:
				row = append(row, "выполнено")
			case domain.StatusMissed:
				row = append(row, "пропущено")
			default:
				row = append(row, "")
			}
		}
		rows = append(rows, row)
	}

	rows = append(rows, []string{}, []string{"=== ПРИВЫЧКИ ==="}, []string{"Привычка", "Серия, дн."})
	for _, h := range habits {
		rows = append(rows, []string{h.Name, strconv.Itoa(h.Streak)})
	}

	rows = append(rows, []string{}, []string{"=== ЦЕЛИ ==="},
		[]string{"Цель", "Тип", "Прогресс", "Цель, ед.", "Серия", "До"})
	for _, g := range goals {
		rows = append(rows, []string{
			g.Name,
			g.Type.Title(),
			strconv.Itoa(g.CurrentValue),
			strconv.Itoa(g.TargetValue),
			strconv.Itoa(g.Streak),
			domain.DateKey(g.EndDate),
		})
	}

	rows = append(rows, []string{}, []string{"=== ДОСТИЖЕНИЯ ==="}, []string{"Достижение", "Дата"})
	for _, a := range achievements {
		rows = append(rows, []string{a.Name, domain.DateKey(a.DateEarned)})
	}

	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
