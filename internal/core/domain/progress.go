package domain

import "time"

const PointsPerCompletion = 10

type UserProgressSnapshot struct {
	CurrentStreak    int                `json:"currentStreak"`
	LongestStreak    int                `json:"longestStreak"`
	TotalCompletions int                `json:"totalCompletions"`
	TotalPoints      int                `json:"totalPoints"`
	Achievements     []AchievementState `json:"achievements"`
	LastUpdated      time.Time          `json:"lastUpdated"`
}

type RecomputeResult struct {
	Snapshot UserProgressSnapshot
	Unlocked []AchievementState
}

// Recompute derives a fresh snapshot from the store and the prior snapshot.
// It has no side effects; persisting the result is up to the caller.
func Recompute(catalog *Catalog, store *CompletionStore, prior UserProgressSnapshot, now time.Time) RecomputeResult {
	global := StreakFromDates(store.AllDates(), now)
	total := store.TotalCompletions()

	states, unlocked := Evaluate(catalog.Achievements(), store, prior.Achievements, now)

	longest := global.Longest
	if prior.LongestStreak > longest {
		longest = prior.LongestStreak
	}

	return RecomputeResult{
		Snapshot: UserProgressSnapshot{
			CurrentStreak:    global.Current,
			LongestStreak:    longest,
			TotalCompletions: total,
			TotalPoints:      TotalPoints(total, states),
			Achievements:     states,
			LastUpdated:      now.UTC(),
		},
		Unlocked: unlocked,
	}
}

func TotalPoints(totalCompletions int, states []AchievementState) int {
	points := totalCompletions * PointsPerCompletion
	for _, st := range states {
		if st.Unlocked {
			points += st.Points
		}
	}
	return points
}

// DefaultSnapshot is the first-run state: nothing completed, every
// achievement locked at zero progress.
func DefaultSnapshot(catalog *Catalog, now time.Time) UserProgressSnapshot {
	return Recompute(catalog, NewCompletionStore(catalog), UserProgressSnapshot{}, now).Snapshot
}

type HabitProgress struct {
	HabitDefinition
	HabitIndex     int    `json:"habit_index"`
	Completions    int    `json:"completions"`
	CurrentStreak  int    `json:"current_streak"`
	LongestStreak  int    `json:"longest_streak"`
	CheckedToday   bool   `json:"checked_today"`
	LastCompletion string `json:"last_completion,omitempty"`
}

type WeekProgress struct {
	WeekNumber int             `json:"week"`
	Focus      string          `json:"focus"`
	CheckMarks int             `json:"check_marks"`
	ActiveDays int             `json:"active_days"`
	Habits     []HabitProgress `json:"habits"`
}

type ProgramProgress struct {
	Key         string         `json:"key"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Completions int            `json:"completions"`
	Weeks       []WeekProgress `json:"weeks"`
}

func HabitStatus(store *CompletionStore, habit HabitDefinition, habitIndex int, now time.Time) HabitProgress {
	dates := store.DatesForHabitID(habit.ID)
	streak := StreakFromDates(dates, now)

	hp := HabitProgress{
		HabitDefinition: habit,
		HabitIndex:      habitIndex,
		Completions:     len(dates),
		CurrentStreak:   streak.Current,
		LongestStreak:   streak.Longest,
	}

	today := DateKey(now)
	for _, d := range dates {
		if d == today {
			hp.CheckedToday = true
		}
	}
	if len(dates) > 0 {
		hp.LastCompletion = dates[len(dates)-1]
	}
	return hp
}

// BuildProgramProgress lays out one program with per-habit counters for
// display.
func BuildProgramProgress(program ProgramDefinition, store *CompletionStore, now time.Time) ProgramProgress {
	pp := ProgramProgress{
		Key:         program.Key,
		Title:       program.Title,
		Description: program.Description,
		Completions: store.CompletionsForProgramWeeks(program.Key, 1, len(program.Weeks)),
		Weeks:       make([]WeekProgress, 0, len(program.Weeks)),
	}

	for _, w := range program.Weeks {
		wp := WeekProgress{
			WeekNumber: w.WeekNumber,
			Focus:      w.Focus,
			CheckMarks: store.CompletionsForWeek(program.Key, w.WeekNumber),
			ActiveDays: store.ActiveDaysForWeek(program.Key, w.WeekNumber),
			Habits:     make([]HabitProgress, 0, len(w.Habits)),
		}
		for i, h := range w.Habits {
			wp.Habits = append(wp.Habits, HabitStatus(store, h, i, now))
		}
		pp.Weeks = append(pp.Weeks, wp)
	}

	return pp
}
