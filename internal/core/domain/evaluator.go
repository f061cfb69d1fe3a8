package domain

import "time"

// Evaluate computes the state of every definition against the store.
// Already unlocked states are carried over untouched (progress pinned to
// 100); states that unlock during this call are also returned in
// newlyUnlocked, in definition order. Calling Evaluate again with its own
// output never reports the same unlock twice.
func Evaluate(defs []AchievementDefinition, store *CompletionStore, prior []AchievementState, now time.Time) (states []AchievementState, newlyUnlocked []AchievementState) {
	priorByID := make(map[string]AchievementState, len(prior))
	for _, st := range prior {
		priorByID[st.ID] = st
	}

	var checkIn *Streak

	states = make([]AchievementState, 0, len(defs))
	for _, def := range defs {
		st := newAchievementState(def)

		if p, ok := priorByID[def.ID]; ok && p.Unlocked {
			st.Unlocked = true
			st.UnlockedAt = p.UnlockedAt
			st.Progress = 100
			states = append(states, st)
			continue
		}

		var value int
		switch {
		case def.IsHabitStreak():
			value = StreakFromDates(store.DatesForHabitID(def.TargetHabitID), now).Current
		case def.Rule == RuleCheckInStreak:
			if checkIn == nil {
				s := StreakFromDates(store.AllDates(), now)
				checkIn = &s
			}
			value = checkIn.Current
		default:
			value = aggregateValue(def, store)
		}

		threshold := def.Threshold()
		st.Progress = progressPercent(value, threshold)

		if value >= threshold {
			unlockedAt := now.UTC()
			st.Unlocked = true
			st.UnlockedAt = &unlockedAt
			st.Progress = 100
			newlyUnlocked = append(newlyUnlocked, st)
		}

		states = append(states, st)
	}

	return states, newlyUnlocked
}

func aggregateValue(def AchievementDefinition, store *CompletionStore) int {
	switch def.Rule {
	case RuleTotalCompletions:
		return store.TotalCompletions()
	case RuleWeekCompletions:
		return bestAcrossPrograms(def, store, func(program string) int {
			return store.CompletionsForWeek(program, def.WeekFrom)
		})
	case RuleProgramWeeks:
		return bestAcrossPrograms(def, store, func(program string) int {
			return store.CompletionsForProgramWeeks(program, def.WeekFrom, def.WeekTo)
		})
	}
	return 0
}

// bestAcrossPrograms evaluates count in the definition's program, or in
// every program when the definition is not scoped, keeping the maximum.
func bestAcrossPrograms(def AchievementDefinition, store *CompletionStore, count func(program string) int) int {
	if def.ProgramKey != "" {
		return count(def.ProgramKey)
	}
	best := 0
	for _, key := range store.Catalog().ProgramKeys() {
		if v := count(key); v > best {
			best = v
		}
	}
	return best
}

func progressPercent(value, threshold int) int {
	if threshold <= 0 {
		return 100
	}
	p := value * 100 / threshold
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
