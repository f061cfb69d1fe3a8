package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidCatalog  = errors.New("invalid catalog")
	ErrProgramNotFound = errors.New("program not found")
	ErrHabitNotFound   = errors.New("habit not found")
)

const (
	WeeksPerProgram = 8
	HabitsPerWeek   = 3
)

type HabitDefinition struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Example string `json:"example" yaml:"example"`
	Why     string `json:"why,omitempty" yaml:"why"`
}

type WeekDefinition struct {
	WeekNumber int               `json:"week" yaml:"week"`
	Focus      string            `json:"focus" yaml:"focus"`
	Habits     []HabitDefinition `json:"habits" yaml:"habits"`
}

type ProgramDefinition struct {
	Key         string           `json:"key" yaml:"key"`
	Title       string           `json:"title" yaml:"title"`
	Description string           `json:"description,omitempty" yaml:"description"`
	Weeks       []WeekDefinition `json:"weeks" yaml:"weeks"`
}

// HabitRef locates a habit inside the catalog.
type HabitRef struct {
	ProgramKey string `json:"program"`
	WeekNumber int    `json:"week"`
	HabitIndex int    `json:"habit_index"`
	HabitID    string `json:"habit_id"`
}

// Catalog is the read-only program and achievement data shared by every
// component. Build it with NewCatalog so lookups are indexed and validated.
type Catalog struct {
	programs     []ProgramDefinition
	achievements []AchievementDefinition
	byKey        map[string]int
	byHabitID    map[string]HabitRef
}

func NewCatalog(programs []ProgramDefinition, achievements []AchievementDefinition) (*Catalog, error) {
	c := &Catalog{
		programs:     programs,
		achievements: achievements,
		byKey:        make(map[string]int, len(programs)),
		byHabitID:    make(map[string]HabitRef),
	}

	if len(programs) == 0 {
		return nil, fmt.Errorf("%w: no programs defined", ErrInvalidCatalog)
	}

	for pi, p := range programs {
		key := strings.TrimSpace(p.Key)
		if key == "" {
			return nil, fmt.Errorf("%w: program #%d has no key", ErrInvalidCatalog, pi)
		}
		if _, dup := c.byKey[key]; dup {
			return nil, fmt.Errorf("%w: duplicate program key %q", ErrInvalidCatalog, key)
		}
		c.byKey[key] = pi

		if len(p.Weeks) != WeeksPerProgram {
			return nil, fmt.Errorf("%w: program %q has %d weeks, want %d", ErrInvalidCatalog, key, len(p.Weeks), WeeksPerProgram)
		}

		for wi, w := range p.Weeks {
			if w.WeekNumber != wi+1 {
				return nil, fmt.Errorf("%w: program %q week #%d is numbered %d", ErrInvalidCatalog, key, wi+1, w.WeekNumber)
			}
			if len(w.Habits) != HabitsPerWeek {
				return nil, fmt.Errorf("%w: program %q week %d has %d habits, want %d", ErrInvalidCatalog, key, w.WeekNumber, len(w.Habits), HabitsPerWeek)
			}
			for hi, h := range w.Habits {
				if strings.TrimSpace(h.ID) == "" {
					return nil, fmt.Errorf("%w: program %q week %d habit #%d has no id", ErrInvalidCatalog, key, w.WeekNumber, hi)
				}
				if _, dup := c.byHabitID[h.ID]; dup {
					return nil, fmt.Errorf("%w: duplicate habit id %q", ErrInvalidCatalog, h.ID)
				}
				c.byHabitID[h.ID] = HabitRef{ProgramKey: key, WeekNumber: w.WeekNumber, HabitIndex: hi, HabitID: h.ID}
			}
		}
	}

	seen := make(map[string]bool, len(achievements))
	for _, a := range achievements {
		if seen[a.ID] {
			return nil, fmt.Errorf("%w: duplicate achievement id %q", ErrInvalidCatalog, a.ID)
		}
		seen[a.ID] = true

		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
		}
		if a.TargetHabitID != "" {
			if _, ok := c.byHabitID[a.TargetHabitID]; !ok {
				return nil, fmt.Errorf("%w: achievement %q targets unknown habit %q", ErrInvalidCatalog, a.ID, a.TargetHabitID)
			}
		}
		if a.ProgramKey != "" {
			if _, ok := c.byKey[a.ProgramKey]; !ok {
				return nil, fmt.Errorf("%w: achievement %q scoped to unknown program %q", ErrInvalidCatalog, a.ID, a.ProgramKey)
			}
		}
	}

	return c, nil
}

func (c *Catalog) Programs() []ProgramDefinition {
	return c.programs
}

func (c *Catalog) Achievements() []AchievementDefinition {
	return c.achievements
}

func (c *Catalog) ProgramKeys() []string {
	keys := make([]string, 0, len(c.programs))
	for _, p := range c.programs {
		keys = append(keys, p.Key)
	}
	return keys
}

func (c *Catalog) Program(key string) (ProgramDefinition, error) {
	i, ok := c.byKey[key]
	if !ok {
		return ProgramDefinition{}, fmt.Errorf("%w: %q", ErrProgramNotFound, key)
	}
	return c.programs[i], nil
}

// Habit resolves a positional (program, week, index) triple.
func (c *Catalog) Habit(programKey string, weekNumber, habitIndex int) (HabitDefinition, HabitRef, error) {
	p, err := c.Program(programKey)
	if err != nil {
		return HabitDefinition{}, HabitRef{}, err
	}
	if weekNumber < 1 || weekNumber > len(p.Weeks) {
		return HabitDefinition{}, HabitRef{}, fmt.Errorf("%w: %s week %d", ErrHabitNotFound, programKey, weekNumber)
	}
	w := p.Weeks[weekNumber-1]
	if habitIndex < 0 || habitIndex >= len(w.Habits) {
		return HabitDefinition{}, HabitRef{}, fmt.Errorf("%w: %s week %d index %d", ErrHabitNotFound, programKey, weekNumber, habitIndex)
	}
	h := w.Habits[habitIndex]
	return h, c.byHabitID[h.ID], nil
}

func (c *Catalog) LocateHabit(habitID string) (HabitRef, bool) {
	ref, ok := c.byHabitID[habitID]
	return ref, ok
}
