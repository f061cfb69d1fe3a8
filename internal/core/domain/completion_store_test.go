package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-programs/internal/core/domain"
)

func TestCompletionStore_Toggle(t *testing.T) {
	catalog := testCatalog(t)

	t.Run("Check adds today once (Idempotent)", func(t *testing.T) {
		store := domain.NewCompletionStore(catalog)

		changed, err := store.Toggle("strength", 1, 0, true, "2026-03-01")
		require.NoError(t, err)
		assert.True(t, changed)

		changed, err = store.Toggle("strength", 1, 0, true, "2026-03-01")
		require.NoError(t, err)
		assert.False(t, changed, "Second check on the same day must be a no-op")

		assert.Equal(t, []string{"2026-03-01"}, store.CompletionsForHabit("strength", 1, 0))
		assert.Equal(t, 1, store.TotalCompletions())
	})

	t.Run("Uncheck removes today only", func(t *testing.T) {
		store := domain.NewCompletionStore(catalog)
		_, _ = store.Toggle("strength", 1, 0, true, "2026-03-01")
		_, _ = store.Toggle("strength", 1, 0, true, "2026-03-02")

		changed, err := store.Toggle("strength", 1, 0, false, "2026-03-02")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, []string{"2026-03-01"}, store.CompletionsForHabit("strength", 1, 0))

		changed, err = store.Toggle("strength", 1, 0, false, "2026-03-02")
		require.NoError(t, err)
		assert.False(t, changed, "Unchecking an absent date is a no-op")
	})

	t.Run("Uncheck on an untouched habit is safe", func(t *testing.T) {
		store := domain.NewCompletionStore(catalog)

		changed, err := store.Toggle("cardio", 8, 2, false, "2026-03-01")
		require.NoError(t, err)
		assert.False(t, changed)
		assert.True(t, store.IsEmpty())
	})

	t.Run("Does not touch other keys", func(t *testing.T) {
		store := domain.NewCompletionStore(catalog)
		_, _ = store.Toggle("strength", 1, 1, true, "2026-03-01")
		_, _ = store.Toggle("hybrid", 1, 0, true, "2026-03-01")

		_, _ = store.Toggle("strength", 1, 0, true, "2026-03-01")

		assert.Equal(t, []string{"2026-03-01"}, store.CompletionsForHabit("strength", 1, 1))
		assert.Equal(t, []string{"2026-03-01"}, store.CompletionsForHabit("hybrid", 1, 0))
		assert.Equal(t, 3, store.TotalCompletions())
	})

	t.Run("Unknown habit is rejected", func(t *testing.T) {
		store := domain.NewCompletionStore(catalog)

		_, err := store.Toggle("strength", 1, 3, true, "2026-03-01")
		assert.ErrorIs(t, err, domain.ErrHabitNotFound)

		_, err = store.Toggle("yoga", 1, 0, true, "2026-03-01")
		assert.ErrorIs(t, err, domain.ErrProgramNotFound)

		assert.True(t, store.IsEmpty())
	})

	t.Run("Malformed date is rejected", func(t *testing.T) {
		store := domain.NewCompletionStore(catalog)

		_, err := store.Toggle("strength", 1, 0, true, "03/01/2026")
		assert.ErrorIs(t, err, domain.ErrInvalidDate)
	})
}

func TestCompletionStore_Queries(t *testing.T) {
	catalog := testCatalog(t)
	store := domain.NewCompletionStore(catalog)

	mark := func(program string, week, idx int, dates ...string) {
		for _, d := range dates {
			_, err := store.Toggle(program, week, idx, true, d)
			require.NoError(t, err)
		}
	}

	mark("strength", 1, 0, "2026-03-01", "2026-03-02")
	mark("strength", 1, 1, "2026-03-02", "2026-03-03")
	mark("strength", 1, 2, "2026-03-02")
	mark("strength", 4, 0, "2026-03-20")
	mark("strength", 5, 0, "2026-03-28")
	mark("cardio", 1, 0, "2026-03-02", "2026-03-10")

	t.Run("CompletionsForHabit returns empty, never nil", func(t *testing.T) {
		got := store.CompletionsForHabit("hybrid", 2, 1)
		assert.NotNil(t, got)
		assert.Empty(t, got)

		assert.NotNil(t, store.CompletionsForHabit("nope", 1, 0))
	})

	t.Run("TotalCompletions sums every set", func(t *testing.T) {
		assert.Equal(t, 9, store.TotalCompletions())
	})

	t.Run("CompletionsForWeek counts distinct check marks", func(t *testing.T) {
		assert.Equal(t, 5, store.CompletionsForWeek("strength", 1))
		assert.Equal(t, 2, store.CompletionsForWeek("cardio", 1))
		assert.Equal(t, 0, store.CompletionsForWeek("hybrid", 1))
	})

	t.Run("ActiveDaysForWeek unions calendar days", func(t *testing.T) {
		assert.Equal(t, 3, store.ActiveDaysForWeek("strength", 1))
	})

	t.Run("CompletionsForProgramWeeks restricts the range", func(t *testing.T) {
		assert.Equal(t, 6, store.CompletionsForProgramWeeks("strength", 1, 4))
		assert.Equal(t, 7, store.CompletionsForProgramWeeks("strength", 1, 8))
		assert.Equal(t, 1, store.CompletionsForProgramWeeks("strength", 5, 8))
		assert.Equal(t, 2, store.CompletionsForProgramWeeks("cardio", 1, 8))
	})

	t.Run("AllDates is a sorted union", func(t *testing.T) {
		assert.Equal(t, []string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-10", "2026-03-20", "2026-03-28"}, store.AllDates())
	})

	t.Run("DatesForHabitID", func(t *testing.T) {
		assert.Equal(t, []string{"2026-03-02", "2026-03-03"}, store.DatesForHabitID("strength-w1-h2"))
		assert.Empty(t, store.DatesForHabitID("ghost"))
	})

	t.Run("Clone is independent", func(t *testing.T) {
		clone := store.Clone()
		_, _ = clone.Toggle("hybrid", 1, 0, true, "2026-04-01")

		assert.Equal(t, 10, clone.TotalCompletions())
		assert.Equal(t, 9, store.TotalCompletions())
	})
}

func TestCompletionStore_SavedData(t *testing.T) {
	catalog := testCatalog(t)

	t.Run("Round trip through the persisted layout", func(t *testing.T) {
		store := domain.NewCompletionStore(catalog)
		_, _ = store.Toggle("strength", 1, 0, true, "2026-03-02")
		_, _ = store.Toggle("strength", 1, 0, true, "2026-03-01")
		_, _ = store.Toggle("hybrid", 3, 2, true, "2026-03-05")

		saved := store.ToSavedData()

		assert.Equal(t, []string{"2026-03-01", "2026-03-02"}, saved["strength"]["1"]["0"].CompletionDates)
		assert.Equal(t, []string{"2026-03-05"}, saved["hybrid"]["3"]["2"].CompletionDates)
		assert.Contains(t, saved, "cardio", "Every program is present even when empty")
		assert.Empty(t, saved["cardio"])

		restored, err := domain.LoadSavedData(catalog, saved)
		require.NoError(t, err)
		assert.Equal(t, saved, restored.ToSavedData())
	})

	t.Run("Emptied habits are dropped", func(t *testing.T) {
		store := domain.NewCompletionStore(catalog)
		_, _ = store.Toggle("strength", 2, 1, true, "2026-03-02")
		_, _ = store.Toggle("strength", 2, 1, false, "2026-03-02")

		saved := store.ToSavedData()
		assert.Empty(t, saved["strength"])
	})

	t.Run("Habit id keys are migrated to the same slot", func(t *testing.T) {
		saved := domain.SavedData{
			"strength": {"2": {"strength-w2-h3": {CompletionDates: []string{"2026-03-02", "2026-03-02"}}}},
		}

		store, err := domain.LoadSavedData(catalog, saved)
		require.NoError(t, err)
		assert.Equal(t, []string{"2026-03-02"}, store.CompletionsForHabit("strength", 2, 2))
	})

	t.Run("Rejects invalid documents", func(t *testing.T) {
		tests := []struct {
			name  string
			saved domain.SavedData
			want  error
		}{
			{"Unknown program", domain.SavedData{"yoga": {}}, domain.ErrProgramNotFound},
			{"Non numeric week", domain.SavedData{"strength": {"one": {}}}, domain.ErrHabitNotFound},
			{"Week out of range", domain.SavedData{"strength": {"9": {"0": {}}}}, domain.ErrHabitNotFound},
			{"Index out of range", domain.SavedData{"strength": {"1": {"3": {}}}}, domain.ErrHabitNotFound},
			{"Habit id from another week", domain.SavedData{"strength": {"1": {"strength-w2-h1": {}}}}, domain.ErrHabitNotFound},
			{"Malformed date", domain.SavedData{"strength": {"1": {"0": {CompletionDates: []string{"2026-3-1"}}}}}, domain.ErrInvalidDate},
			{"Timestamp instead of date", domain.SavedData{"strength": {"1": {"0": {CompletionDates: []string{"2026-03-01T10:00:00Z"}}}}}, domain.ErrInvalidDate},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := domain.LoadSavedData(catalog, tt.saved)
				assert.ErrorIs(t, err, tt.want)
			})
		}
	})
}
