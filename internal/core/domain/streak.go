package domain

import (
	"sort"
	"time"
)

type Streak struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// StreakFromDates computes the longest run of consecutive calendar days in
// dates and the run that is still alive, i.e. ending today or yesterday
// relative to the local calendar date of today.
func StreakFromDates(dates []string, today time.Time) Streak {
	uniqueDays := make(map[string]bool, len(dates))
	var sortedDates []time.Time

	for _, d := range dates {
		if uniqueDays[d] {
			continue
		}
		t, err := ParseDateKey(d)
		if err != nil {
			continue
		}
		uniqueDays[d] = true
		sortedDates = append(sortedDates, t)
	}

	if len(sortedDates) == 0 {
		return Streak{}
	}

	sort.Slice(sortedDates, func(i, j int) bool {
		return sortedDates[i].Before(sortedDates[j])
	})

	longestStreak := 1
	tempStreak := 1
	for i := 1; i < len(sortedDates); i++ {
		if daysBetween(sortedDates[i-1], sortedDates[i]) == 1 {
			tempStreak++
		} else {
			tempStreak = 1
		}
		if tempStreak > longestStreak {
			longestStreak = tempStreak
		}
	}

	currentStreak := 0
	last := len(sortedDates) - 1
	sinceLast := daysBetween(sortedDates[last], dayIndex(today))

	if sinceLast == 0 || sinceLast == 1 {
		currentStreak = 1
		for i := last; i > 0; i-- {
			if daysBetween(sortedDates[i-1], sortedDates[i]) != 1 {
				break
			}
			currentStreak++
		}
	}

	return Streak{Current: currentStreak, Longest: longestStreak}
}
