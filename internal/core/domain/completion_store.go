package domain

import (
	"fmt"
	"sort"
	"strconv"
)

type dateSet map[string]struct{}

// CompletionStore maps (program, week, habit id) to the set of calendar
// dates on which the habit was checked. Positional habit indexes are
// resolved through the catalog at the boundary.
type CompletionStore struct {
	catalog *Catalog
	data    map[string]map[int]map[string]dateSet
}

func NewCompletionStore(catalog *Catalog) *CompletionStore {
	return &CompletionStore{
		catalog: catalog,
		data:    make(map[string]map[int]map[string]dateSet),
	}
}

func (s *CompletionStore) Catalog() *Catalog {
	return s.catalog
}

// Toggle adds (checked) or removes (!checked) the date of today for one
// habit. It reports whether the set changed.
func (s *CompletionStore) Toggle(programKey string, weekNumber, habitIndex int, checked bool, today string) (bool, error) {
	if _, err := ParseDateKey(today); err != nil {
		return false, err
	}

	_, ref, err := s.catalog.Habit(programKey, weekNumber, habitIndex)
	if err != nil {
		return false, err
	}

	if checked {
		set := s.ensure(ref)
		if _, ok := set[today]; ok {
			return false, nil
		}
		set[today] = struct{}{}
		return true, nil
	}

	set := s.lookup(ref)
	if _, ok := set[today]; !ok {
		return false, nil
	}
	delete(set, today)
	if len(set) == 0 {
		delete(s.data[ref.ProgramKey][ref.WeekNumber], ref.HabitID)
	}
	return true, nil
}

func (s *CompletionStore) add(ref HabitRef, date string) {
	s.ensure(ref)[date] = struct{}{}
}

func (s *CompletionStore) ensure(ref HabitRef) dateSet {
	weeks, ok := s.data[ref.ProgramKey]
	if !ok {
		weeks = make(map[int]map[string]dateSet)
		s.data[ref.ProgramKey] = weeks
	}
	habits, ok := weeks[ref.WeekNumber]
	if !ok {
		habits = make(map[string]dateSet)
		weeks[ref.WeekNumber] = habits
	}
	set, ok := habits[ref.HabitID]
	if !ok {
		set = make(dateSet)
		habits[ref.HabitID] = set
	}
	return set
}

func (s *CompletionStore) lookup(ref HabitRef) dateSet {
	return s.data[ref.ProgramKey][ref.WeekNumber][ref.HabitID]
}

// CompletionsForHabit returns the sorted dates for a positional habit. An
// unknown or untouched habit yields an empty, non-nil slice.
func (s *CompletionStore) CompletionsForHabit(programKey string, weekNumber, habitIndex int) []string {
	_, ref, err := s.catalog.Habit(programKey, weekNumber, habitIndex)
	if err != nil {
		return []string{}
	}
	return sortedDates(s.lookup(ref))
}

func (s *CompletionStore) DatesForHabitID(habitID string) []string {
	ref, ok := s.catalog.LocateHabit(habitID)
	if !ok {
		return []string{}
	}
	return sortedDates(s.lookup(ref))
}

func (s *CompletionStore) TotalCompletions() int {
	total := 0
	for _, weeks := range s.data {
		for _, habits := range weeks {
			for _, set := range habits {
				total += len(set)
			}
		}
	}
	return total
}

// CompletionsForWeek counts distinct (habit, date) check marks across the
// habits of one program week.
func (s *CompletionStore) CompletionsForWeek(programKey string, weekNumber int) int {
	marks := make(map[string]struct{})
	for habitID, set := range s.data[programKey][weekNumber] {
		for d := range set {
			marks[habitID+"|"+d] = struct{}{}
		}
	}
	return len(marks)
}

// ActiveDaysForWeek counts the distinct calendar days on which at least one
// habit of the week was checked.
func (s *CompletionStore) ActiveDaysForWeek(programKey string, weekNumber int) int {
	days := make(dateSet)
	for _, set := range s.data[programKey][weekNumber] {
		for d := range set {
			days[d] = struct{}{}
		}
	}
	return len(days)
}

// CompletionsForProgramWeeks sums per-habit completion counts over the
// inclusive week range of one program.
func (s *CompletionStore) CompletionsForProgramWeeks(programKey string, weekFrom, weekTo int) int {
	total := 0
	for week, habits := range s.data[programKey] {
		if week < weekFrom || week > weekTo {
			continue
		}
		for _, set := range habits {
			total += len(set)
		}
	}
	return total
}

// AllDates is the union of every completion date in the store.
func (s *CompletionStore) AllDates() []string {
	union := make(dateSet)
	for _, weeks := range s.data {
		for _, habits := range weeks {
			for _, set := range habits {
				for d := range set {
					union[d] = struct{}{}
				}
			}
		}
	}
	return sortedDates(union)
}

func (s *CompletionStore) IsEmpty() bool {
	return s.TotalCompletions() == 0
}

func (s *CompletionStore) Clone() *CompletionStore {
	out := NewCompletionStore(s.catalog)
	for program, weeks := range s.data {
		for week, habits := range weeks {
			for habitID, set := range habits {
				ref := HabitRef{ProgramKey: program, WeekNumber: week, HabitID: habitID}
				for d := range set {
					out.add(ref, d)
				}
			}
		}
	}
	return out
}

func sortedDates(set dateSet) []string {
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// HabitCompletions is the persisted value for a single habit.
type HabitCompletions struct {
	CompletionDates []string `json:"completionDates"`
}

// SavedData is the persisted and exported layout of the store:
// programKey -> weekNumber -> habitIndex -> completions.
type SavedData map[string]map[string]map[string]HabitCompletions

// ToSavedData encodes the store with positional habit indexes. Every
// catalog program is present, empty habits are omitted.
func (s *CompletionStore) ToSavedData() SavedData {
	out := make(SavedData, len(s.catalog.programs))
	for _, key := range s.catalog.ProgramKeys() {
		out[key] = make(map[string]map[string]HabitCompletions)
	}

	for program, weeks := range s.data {
		for week, habits := range weeks {
			for habitID, set := range habits {
				if len(set) == 0 {
					continue
				}
				ref, ok := s.catalog.LocateHabit(habitID)
				if !ok {
					continue
				}
				weekKey := strconv.Itoa(week)
				if out[program][weekKey] == nil {
					out[program][weekKey] = make(map[string]HabitCompletions)
				}
				out[program][weekKey][strconv.Itoa(ref.HabitIndex)] = HabitCompletions{
					CompletionDates: sortedDates(set),
				}
			}
		}
	}
	return out
}

// LoadSavedData decodes a persisted layout. Habit keys may be positional
// indexes or habit ids. Any unknown key or malformed date rejects the whole
// document.
func LoadSavedData(catalog *Catalog, saved SavedData) (*CompletionStore, error) {
	store := NewCompletionStore(catalog)

	for program, weeks := range saved {
		if _, err := catalog.Program(program); err != nil {
			return nil, err
		}
		for weekKey, habits := range weeks {
			week, err := strconv.Atoi(weekKey)
			if err != nil {
				return nil, fmt.Errorf("%w: %s week %q", ErrHabitNotFound, program, weekKey)
			}
			for habitKey, completions := range habits {
				ref, err := resolveHabitKey(catalog, program, week, habitKey)
				if err != nil {
					return nil, err
				}
				for _, d := range completions.CompletionDates {
					t, err := ParseDateKey(d)
					if err != nil || DateKey(t) != d {
						return nil, fmt.Errorf("%w: %q in %s week %d habit %s", ErrInvalidDate, d, program, week, habitKey)
					}
					store.add(ref, d)
				}
			}
		}
	}

	return store, nil
}

func resolveHabitKey(catalog *Catalog, program string, week int, habitKey string) (HabitRef, error) {
	if idx, err := strconv.Atoi(habitKey); err == nil {
		_, ref, err := catalog.Habit(program, week, idx)
		return ref, err
	}

	ref, ok := catalog.LocateHabit(habitKey)
	if !ok || ref.ProgramKey != program || ref.WeekNumber != week {
		return HabitRef{}, fmt.Errorf("%w: %s week %d habit %q", ErrHabitNotFound, program, week, habitKey)
	}
	return ref, nil
}
