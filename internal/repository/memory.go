package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"regime-guard-bot/internal/domain"
)

// MemoryRepository keeps everything in process memory. It backs DATABASE_URL=memory://
// for local runs and is the repository used by tests.
type MemoryRepository struct {
	mu sync.Mutex

	nextID int64

	users        map[int64]*domain.User
	stats        map[string]*domain.DailyStat // userID|date
	logged       []*domain.LoggedActivity
	habits       map[int64]*domain.Habit
	habitDone    map[int64]map[string]bool // habitID -> date -> completed
	goals        map[int64]*domain.Goal
	goalDone     map[int64]map[string]bool
	answers      map[string][]domain.ProductivityAnswer // userID|date
	achievements []*domain.Achievement
	tips         []*domain.Tip
	jobRuns      map[string]bool
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:     make(map[int64]*domain.User),
		stats:     make(map[string]*domain.DailyStat),
		habits:    make(map[int64]*domain.Habit),
		habitDone: make(map[int64]map[string]bool),
		goals:     make(map[int64]*domain.Goal),
		goalDone:  make(map[int64]map[string]bool),
		answers:   make(map[string][]domain.ProductivityAnswer),
		jobRuns:   make(map[string]bool),
	}
}

func dayKey(userID int64, date time.Time) string {
	return fmt.Sprintf("%d|%s", userID, domain.DateKey(date))
}

func (m *MemoryRepository) id() int64 {
	m.nextID++
	return m.nextID
}

func inRange(date, from, to time.Time) bool {
	return !date.Before(from) && !date.After(to)
}

func (m *MemoryRepository) Migrate(ctx context.Context) error { return nil }

func (m *MemoryRepository) Close() {}

// ==================== USERS ====================

func (m *MemoryRepository) UpsertUser(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.users[user.ID]; ok {
		existing.Username = user.Username
		existing.FirstName = user.FirstName
		existing.UpdatedAt = now
		user.Timezone = existing.Timezone
		user.CreatedAt = existing.CreatedAt
		user.UpdatedAt = now
		return nil
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MemoryRepository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) UpdateUserTimezone(ctx context.Context, id int64, timezone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Timezone = timezone
	u.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryRepository) ListUsers(ctx context.Context) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *MemoryRepository) DeleteUserData(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.users, userID)
	for k, s := range m.stats {
		if s.UserID == userID {
			delete(m.stats, k)
		}
	}
	kept := m.logged[:0]
	for _, a := range m.logged {
		if a.UserID != userID {
			kept = append(kept, a)
		}
	}
	m.logged = kept
	for id, h := range m.habits {
		if h.UserID == userID {
			delete(m.habits, id)
			delete(m.habitDone, id)
		}
	}
	for id, g := range m.goals {
		if g.UserID == userID {
			delete(m.goals, id)
			delete(m.goalDone, id)
		}
	}
	prefix := fmt.Sprintf("%d|", userID)
	for k := range m.answers {
		if strings.HasPrefix(k, prefix) {
			delete(m.answers, k)
		}
	}
	keptAch := m.achievements[:0]
	for _, a := range m.achievements {
		if a.UserID != userID {
			keptAch = append(keptAch, a)
		}
	}
	m.achievements = keptAch
	for k := range m.jobRuns {
		if strings.Contains(k, "|"+prefix) {
			delete(m.jobRuns, k)
		}
	}
	return nil
}

// ==================== DAILY STATS ====================

func cloneStat(s *domain.DailyStat) *domain.DailyStat {
	cp := *s
	cp.Planned = s.Planned.Clone()
	cp.Done = s.Done.Clone()
	if s.ScreenTimeGoal != nil {
		v := *s.ScreenTimeGoal
		cp.ScreenTimeGoal = &v
	}
	return &cp
}

func (m *MemoryRepository) GetDailyStat(ctx context.Context, userID int64, date time.Time) (*domain.DailyStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stats[dayKey(userID, date)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneStat(s), nil
}

func (m *MemoryRepository) GetDailyStats(ctx context.Context, userID int64, from, to time.Time) ([]*domain.DailyStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.DailyStat
	for _, s := range m.stats {
		if s.UserID == userID && inRange(s.Date, from, to) {
			out = append(out, cloneStat(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *MemoryRepository) UpsertDailyStat(ctx context.Context, stat *domain.DailyStat) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := dayKey(stat.UserID, stat.Date)
	if existing, ok := m.stats[key]; ok {
		stat.ID = existing.ID
	} else {
		stat.ID = m.id()
	}
	stored := cloneStat(stat)
	stored.Date = domain.DateOf(stat.Date)
	m.stats[key] = stored
	return nil
}

func (m *MemoryRepository) MarkActivityDone(ctx context.Context, userID int64, date time.Time, activity domain.Activity) error {
	if _, ok := domain.ParseActivity(string(activity)); !ok {
		return fmt.Errorf("unknown activity %q", activity)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stats[dayKey(userID, date)]
	if !ok {
		return ErrNotFound
	}
	if s.Done == nil {
		s.Done = make(domain.ActivitySet)
	}
	s.Done[activity] = true
	return nil
}

// ==================== LOGGED ACTIVITIES ====================

func (m *MemoryRepository) AddLoggedActivity(ctx context.Context, activity *domain.LoggedActivity) error {
	if _, err := activityTable(activity.Kind); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	activity.ID = m.id()
	activity.CreatedAt = time.Now()
	cp := *activity
	cp.Date = domain.DateOf(activity.Date)
	m.logged = append(m.logged, &cp)
	return nil
}

func (m *MemoryRepository) GetActivityTotals(ctx context.Context, userID int64, kind domain.LogKind, date time.Time) ([]domain.ActivityTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sums := make(map[string]int)
	for _, a := range m.logged {
		if a.UserID == userID && a.Kind == kind && a.Date.Equal(domain.DateOf(date)) {
			sums[a.Name] += a.DurationMinutes
		}
	}
	totals := make([]domain.ActivityTotal, 0, len(sums))
	for name, minutes := range sums {
		totals = append(totals, domain.ActivityTotal{Name: name, Minutes: minutes})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Minutes != totals[j].Minutes {
			return totals[i].Minutes > totals[j].Minutes
		}
		return totals[i].Name < totals[j].Name
	})
	return totals, nil
}

func (m *MemoryRepository) GetDayTotals(ctx context.Context, userID int64, from, to time.Time) ([]domain.DayTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byDay := make(map[string]*domain.DayTotals)
	for _, a := range m.logged {
		if a.UserID != userID || !inRange(a.Date, from, to) {
			continue
		}
		key := domain.DateKey(a.Date)
		t, ok := byDay[key]
		if !ok {
			t = &domain.DayTotals{Date: a.Date}
			byDay[key] = t
		}
		if a.Kind == domain.LogScreen {
			t.ScreenMinutes += a.DurationMinutes
		} else {
			t.ProductiveMinutes += a.DurationMinutes
		}
	}
	out := make([]domain.DayTotals, 0, len(byDay))
	for _, t := range byDay {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// ==================== HABITS ====================

func (m *MemoryRepository) CreateHabit(ctx context.Context, habit *domain.Habit) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, h := range m.habits {
		if h.UserID == habit.UserID && h.Name == habit.Name {
			return false, nil
		}
	}
	habit.ID = m.id()
	habit.CreatedAt = time.Now()
	cp := *habit
	m.habits[habit.ID] = &cp
	return true, nil
}

func (m *MemoryRepository) GetHabit(ctx context.Context, id int64) (*domain.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.habits[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (m *MemoryRepository) userHabits(userID int64) []*domain.Habit {
	var out []*domain.Habit
	for _, h := range m.habits {
		if h.UserID == userID {
			cp := *h
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryRepository) GetHabits(ctx context.Context, userID int64) ([]*domain.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userHabits(userID), nil
}

func (m *MemoryRepository) NextHabit(ctx context.Context, userID, afterID int64) (*domain.Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, h := range m.userHabits(userID) {
		if h.ID > afterID {
			return h, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) DeleteHabit(ctx context.Context, userID, habitID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.habits[habitID]
	if !ok || h.UserID != userID {
		return ErrNotFound
	}
	delete(m.habits, habitID)
	delete(m.habitDone, habitID)
	return nil
}

func (m *MemoryRepository) SaveHabitCompletions(ctx context.Context, userID int64, date time.Time, answers map[int64]bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for habitID, completed := range answers {
		h, ok := m.habits[habitID]
		if !ok || h.UserID != userID {
			continue
		}
		if m.habitDone[habitID] == nil {
			m.habitDone[habitID] = make(map[string]bool)
		}
		m.habitDone[habitID][domain.DateKey(date)] = completed
	}
	return nil
}

func historyRange(src map[string]bool, from, to time.Time) map[string]bool {
	out := make(map[string]bool)
	for key, completed := range src {
		date, err := domain.ParseDateKey(key)
		if err == nil && inRange(date, from, to) {
			out[key] = completed
		}
	}
	return out
}

func (m *MemoryRepository) GetHabitHistory(ctx context.Context, habitID int64, from, to time.Time) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return historyRange(m.habitDone[habitID], from, to), nil
}

func (m *MemoryRepository) GetHabitCompletions(ctx context.Context, userID int64, date time.Time) (map[int64]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[int64]bool)
	for habitID, days := range m.habitDone {
		h, ok := m.habits[habitID]
		if !ok || h.UserID != userID {
			continue
		}
		if completed, ok := days[domain.DateKey(date)]; ok {
			out[habitID] = completed
		}
	}
	return out, nil
}

// ==================== GOALS ====================

func cloneGoal(g *domain.Goal) *domain.Goal {
	cp := *g
	if g.DaysPerWeek != nil {
		v := *g.DaysPerWeek
		cp.DaysPerWeek = &v
	}
	return &cp
}

func (m *MemoryRepository) CreateGoal(ctx context.Context, goal *domain.Goal) error {
	if !goal.Type.Valid() {
		return fmt.Errorf("invalid goal type %q", goal.Type)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	goal.ID = m.id()
	goal.CreatedAt = time.Now()
	goal.CurrentValue = 0
	m.goals[goal.ID] = cloneGoal(goal)
	return nil
}

func (m *MemoryRepository) GetGoal(ctx context.Context, id int64) (*domain.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.goals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneGoal(g), nil
}

func (m *MemoryRepository) activeGoals(userID int64, today time.Time) []*domain.Goal {
	var out []*domain.Goal
	for _, g := range m.goals {
		if g.UserID == userID && !g.IsCompleted && !g.EndDate.Before(today) {
			out = append(out, cloneGoal(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryRepository) GetActiveGoals(ctx context.Context, userID int64, today time.Time) ([]*domain.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeGoals(userID, today), nil
}

func (m *MemoryRepository) NextActiveGoal(ctx context.Context, userID, afterID int64, today time.Time) (*domain.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, g := range m.activeGoals(userID, today) {
		if g.ID > afterID {
			return g, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRepository) ListGoalsByType(ctx context.Context, userID int64, goalType domain.GoalType) ([]*domain.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Goal
	for _, g := range m.goals {
		if g.UserID == userID && g.Type == goalType {
			out = append(out, cloneGoal(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryRepository) UpdateGoalProgress(ctx context.Context, goal *domain.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.goals[goal.ID]
	if !ok {
		return ErrNotFound
	}
	g.CurrentValue = min(goal.CurrentValue, g.TargetValue)
	g.IsCompleted = goal.IsCompleted
	return nil
}

func (m *MemoryRepository) UpdateGoalStreak(ctx context.Context, goalID int64, streak int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.goals[goalID]
	if !ok {
		return ErrNotFound
	}
	g.Streak = streak
	return nil
}

func (m *MemoryRepository) DeleteGoal(ctx context.Context, userID, goalID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.goals[goalID]
	if !ok || g.UserID != userID {
		return ErrNotFound
	}
	delete(m.goals, goalID)
	delete(m.goalDone, goalID)
	return nil
}

func (m *MemoryRepository) SaveGoalCompletion(ctx context.Context, userID, goalID int64, date time.Time, completed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.goals[goalID]; !ok {
		return fmt.Errorf("goal %d: foreign key violation", goalID)
	}
	if m.goalDone[goalID] == nil {
		m.goalDone[goalID] = make(map[string]bool)
	}
	m.goalDone[goalID][domain.DateKey(date)] = completed
	return nil
}

func (m *MemoryRepository) GetGoalHistory(ctx context.Context, goalID int64, from, to time.Time) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return historyRange(m.goalDone[goalID], from, to), nil
}

func (m *MemoryRepository) GetGoalCompletions(ctx context.Context, userID int64, date time.Time) (map[int64]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[int64]bool)
	for goalID, days := range m.goalDone {
		g, ok := m.goals[goalID]
		if !ok || g.UserID != userID {
			continue
		}
		if completed, ok := days[domain.DateKey(date)]; ok {
			out[goalID] = completed
		}
	}
	return out, nil
}

func (m *MemoryRepository) ResetGoals(ctx context.Context, userID int64, goalType domain.GoalType) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, g := range m.goals {
		if g.UserID == userID && g.Type == goalType && (g.CurrentValue != 0 || g.IsCompleted) {
			g.CurrentValue = 0
			g.IsCompleted = false
			n++
		}
	}
	return n, nil
}

// ==================== PRODUCTIVITY QUESTIONS ====================

func (m *MemoryRepository) SaveProductivityAnswers(ctx context.Context, userID int64, answers []domain.ProductivityAnswer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range answers {
		key := dayKey(userID, a.Date)
		existing := m.answers[key]
		replaced := false
		for i := range existing {
			if existing[i].Question == a.Question {
				existing[i].Answer = a.Answer
				replaced = true
			}
		}
		if !replaced {
			a.Date = domain.DateOf(a.Date)
			existing = append(existing, a)
		}
		m.answers[key] = existing
	}
	return nil
}

func (m *MemoryRepository) GetProductivityAnswers(ctx context.Context, userID int64, date time.Time) ([]domain.ProductivityAnswer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	src := m.answers[dayKey(userID, date)]
	out := make([]domain.ProductivityAnswer, len(src))
	copy(out, src)
	return out, nil
}

// ==================== ACHIEVEMENTS ====================

func (m *MemoryRepository) GrantAchievement(ctx context.Context, a *domain.Achievement) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.Code != "" {
		for _, existing := range m.achievements {
			if existing.UserID == a.UserID && existing.Code == a.Code {
				return false, nil
			}
		}
	}
	a.ID = m.id()
	cp := *a
	m.achievements = append(m.achievements, &cp)
	return true, nil
}

func (m *MemoryRepository) GetAchievements(ctx context.Context, userID int64) ([]*domain.Achievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Achievement
	for _, a := range m.achievements {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateEarned.Equal(out[j].DateEarned) {
			return out[i].DateEarned.After(out[j].DateEarned)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// ==================== TIPS ====================

func (m *MemoryRepository) SeedTips(ctx context.Context, tips []domain.Tip) error {
	m.mu.Lock()
	defer m.mu.Unlock()

next:
	for _, t := range tips {
		for _, existing := range m.tips {
			if existing.Category == t.Category && existing.Text == t.Text {
				continue next
			}
		}
		m.tips = append(m.tips, &domain.Tip{ID: m.id(), Category: t.Category, Text: t.Text})
	}
	return nil
}

func (m *MemoryRepository) GetTipCategories(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool)
	var out []string
	for _, t := range m.tips {
		if !seen[t.Category] {
			seen[t.Category] = true
			out = append(out, t.Category)
		}
	}
	return out, nil
}

func (m *MemoryRepository) GetTips(ctx context.Context, category string) ([]*domain.Tip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Tip
	for _, t := range m.tips {
		if t.Category == category {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ==================== JOB RUNS ====================

func (m *MemoryRepository) ClaimJobRun(ctx context.Context, job string, userID int64, date time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := job + "|" + dayKey(userID, date)
	if m.jobRuns[key] {
		return false, nil
	}
	m.jobRuns[key] = true
	return true, nil
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*PostgresRepository)(nil)
)
