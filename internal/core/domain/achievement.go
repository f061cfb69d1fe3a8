package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

type AchievementRule string

const (
	RuleTotalCompletions AchievementRule = "total_completions"
	RuleWeekCompletions  AchievementRule = "week_completions"
	RuleProgramWeeks     AchievementRule = "program_weeks"
	RuleCheckInStreak    AchievementRule = "checkin_streak"
	RuleHabitStreak      AchievementRule = "habit_streak"
)

var (
	ErrInvalidAchievement = errors.New("invalid achievement definition")
)

// AchievementDefinition is either aggregate (Rule + Target, no habit) or
// habit-streak (TargetHabitID + StreakTarget).
type AchievementDefinition struct {
	ID          string          `json:"id" yaml:"id"`
	Title       string          `json:"title" yaml:"title"`
	Description string          `json:"description" yaml:"description"`
	Icon        string          `json:"icon,omitempty" yaml:"icon"`
	Condition   string          `json:"condition" yaml:"condition"`
	Points      int             `json:"points" yaml:"points"`
	Rule        AchievementRule `json:"rule" yaml:"rule"`
	Target      int             `json:"target,omitempty" yaml:"target"`

	ProgramKey string `json:"program,omitempty" yaml:"program"`
	WeekFrom   int    `json:"week_from,omitempty" yaml:"week_from"`
	WeekTo     int    `json:"week_to,omitempty" yaml:"week_to"`

	TargetHabitID string `json:"target_habit_id,omitempty" yaml:"target_habit_id"`
	StreakTarget  int    `json:"streak_target,omitempty" yaml:"streak_target"`
}

func (a AchievementDefinition) IsHabitStreak() bool {
	return a.TargetHabitID != ""
}

// Threshold is the count or streak length that unlocks the achievement.
func (a AchievementDefinition) Threshold() int {
	if a.IsHabitStreak() {
		return a.StreakTarget
	}
	return a.Target
}

func (a AchievementDefinition) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidAchievement)
	}
	if a.Points < 0 {
		return fmt.Errorf("%w: %s has negative points", ErrInvalidAchievement, a.ID)
	}

	if a.IsHabitStreak() {
		if a.Rule != "" && a.Rule != RuleHabitStreak {
			return fmt.Errorf("%w: %s mixes rule %q with a target habit", ErrInvalidAchievement, a.ID, a.Rule)
		}
		if a.StreakTarget < 1 {
			return fmt.Errorf("%w: %s needs a positive streak target", ErrInvalidAchievement, a.ID)
		}
		return nil
	}

	if a.Target < 1 {
		return fmt.Errorf("%w: %s needs a positive target", ErrInvalidAchievement, a.ID)
	}

	switch a.Rule {
	case RuleTotalCompletions, RuleCheckInStreak:
	case RuleWeekCompletions:
		if a.WeekFrom < 1 || a.WeekFrom > WeeksPerProgram {
			return fmt.Errorf("%w: %s has week %d out of range", ErrInvalidAchievement, a.ID, a.WeekFrom)
		}
	case RuleProgramWeeks:
		if a.WeekFrom < 1 || a.WeekTo > WeeksPerProgram || a.WeekFrom > a.WeekTo {
			return fmt.Errorf("%w: %s has week range %d-%d out of bounds", ErrInvalidAchievement, a.ID, a.WeekFrom, a.WeekTo)
		}
	case RuleHabitStreak:
		return fmt.Errorf("%w: %s has rule habit_streak without a target habit", ErrInvalidAchievement, a.ID)
	default:
		return fmt.Errorf("%w: %s has unknown rule %q", ErrInvalidAchievement, a.ID, a.Rule)
	}

	return nil
}

// AchievementState is the per-user evaluation result for one definition.
// Display fields are copied from the definition so exported documents are
// self-describing.
type AchievementState struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Icon        string     `json:"icon,omitempty"`
	Condition   string     `json:"condition,omitempty"`
	Points      int        `json:"points"`
	Unlocked    bool       `json:"unlocked"`
	UnlockedAt  *time.Time `json:"unlockedAt,omitempty"`
	Progress    int        `json:"progress"`
}

// UnmarshalJSON accepts a fractional progress, as older backups stored it,
// and floors it into 0..100.
func (s *AchievementState) UnmarshalJSON(data []byte) error {
	type plain AchievementState
	var aux struct {
		plain
		Progress float64 `json:"progress"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*s = AchievementState(aux.plain)
	s.Progress = int(math.Max(0, math.Min(100, math.Floor(aux.Progress))))
	return nil
}

func newAchievementState(def AchievementDefinition) AchievementState {
	return AchievementState{
		ID:          def.ID,
		Title:       def.Title,
		Description: def.Description,
		Icon:        def.Icon,
		Condition:   def.Condition,
		Points:      def.Points,
	}
}
