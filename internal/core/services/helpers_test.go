package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-programs/internal/core/domain"
)

func testCatalog(t *testing.T) *domain.Catalog {
	t.Helper()

	var programs []domain.ProgramDefinition
	for _, key := range []string{"strength", "hybrid", "cardio"} {
		p := domain.ProgramDefinition{Key: key, Title: key}
		for w := 1; w <= domain.WeeksPerProgram; w++ {
			week := domain.WeekDefinition{WeekNumber: w, Focus: fmt.Sprintf("focus %d", w)}
			for h := 1; h <= domain.HabitsPerWeek; h++ {
				week.Habits = append(week.Habits, domain.HabitDefinition{
					ID:    fmt.Sprintf("%s-w%d-h%d", key, w, h),
					Title: fmt.Sprintf("%s habit %d.%d", key, w, h),
				})
			}
			p.Weeks = append(p.Weeks, week)
		}
		programs = append(programs, p)
	}

	achievements := []domain.AchievementDefinition{
		{ID: "first-week", Title: "First Week Champion", Points: 50, Rule: domain.RuleWeekCompletions, Target: 21, WeekFrom: 1},
		{ID: "habit-warrior", Title: "Habit Warrior", Points: 100, Rule: domain.RuleTotalCompletions, Target: 50},
		{ID: "streak-master-login", Title: "Streak Master", Points: 75, Rule: domain.RuleCheckInStreak, Target: 7},
		{ID: "first-rep", Title: "First Rep", Points: 25, TargetHabitID: "strength-w1-h1", StreakTarget: 7},
	}

	c, err := domain.NewCatalog(programs, achievements)
	require.NoError(t, err)
	return c
}

// FakeKV is an in-memory Storage Provider with switchable failures.
type FakeKV struct {
	mu   sync.Mutex
	data map[string]string

	failGet    error
	failSet    error
	failRemove error
}

func NewFakeKV() *FakeKV {
	return &FakeKV{data: make(map[string]string)}
}

func (f *FakeKV) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return "", f.failGet
	}
	v, ok := f.data[key]
	if !ok {
		return "", domain.ErrKeyNotFound
	}
	return v, nil
}

func (f *FakeKV) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet != nil {
		return f.failSet
	}
	f.data[key] = value
	return nil
}

func (f *FakeKV) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRemove != nil {
		return f.failRemove
	}
	delete(f.data, key)
	return nil
}

func (f *FakeKV) raw(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok
}

type MockKV struct {
	mock.Mock
}

func (m *MockKV) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockKV) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockKV) Remove(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
