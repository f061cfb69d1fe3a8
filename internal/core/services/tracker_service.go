package services

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/comitanigiacomo/kanso-programs/internal/core/domain"
)

const (
	msgHabitCompleted   = "Habit completed today!"
	msgHabitIncomplete  = "Habit marked incomplete"
	msgSaveFailed       = "Failed to save progress. Changes are kept until the next successful save."
	msgExported         = "Progress data exported successfully!"
	msgImported         = "Progress data imported successfully!"
	msgImportFailed     = "Failed to import data. Invalid file format."
	msgReset            = "All progress has been reset."
	achievementTemplate = "Achievement Unlocked: %s (%d pts)"
)

// TrackerService owns the in-memory completion store and snapshot of one
// installation. Every operation holds the mutex for its whole
// mutate-recompute-persist cycle.
type TrackerService struct {
	catalog     *domain.Catalog
	persistence *PersistenceService
	clock       domain.Clock

	mu       sync.Mutex
	started  bool
	userID   string
	store    *domain.CompletionStore
	snapshot domain.UserProgressSnapshot
}

func NewTrackerService(catalog *domain.Catalog, persistence *PersistenceService, clock domain.Clock) *TrackerService {
	return &TrackerService{
		catalog:     catalog,
		persistence: persistence,
		clock:       clock,
	}
}

type ToggleInput struct {
	ProgramKey string
	WeekNumber int
	HabitIndex int
	Checked    bool
}

type ToggleResult struct {
	Changed       bool                        `json:"changed"`
	Saved         bool                        `json:"saved"`
	Habit         domain.HabitProgress        `json:"habit"`
	Snapshot      domain.UserProgressSnapshot `json:"progress"`
	Unlocked      []domain.AchievementState   `json:"unlocked"`
	Notifications []Notification              `json:"notifications"`
}

type StateResult struct {
	Saved         bool                        `json:"saved"`
	Snapshot      domain.UserProgressSnapshot `json:"progress"`
	Notifications []Notification              `json:"notifications"`
}

type ExportResult struct {
	Filename      string
	Data          []byte
	Notifications []Notification
}

func (s *TrackerService) Catalog() *domain.Catalog {
	return s.catalog
}

// Start loads the persisted state and recomputes it against the current
// date. Calling it again is a no-op.
func (s *TrackerService) Start(ctx context.Context) []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.startLocked(ctx)
}

func (s *TrackerService) startLocked(ctx context.Context) []Notification {
	if s.started {
		return nil
	}

	loaded := s.persistence.Load(ctx)
	s.userID = loaded.UserID
	s.store = loaded.Store
	s.started = true

	res := domain.Recompute(s.catalog, s.store, loaded.Snapshot, s.clock.Now())
	s.snapshot = res.Snapshot

	notes := loaded.Notifications
	notes = append(notes, achievementNotes(res.Unlocked)...)

	if s.userID != "" {
		if err := s.persistence.SaveSnapshot(ctx, s.userID, s.snapshot); err != nil {
			log.Printf("[TRACKER] Failed to persist snapshot on start: %v", err)
		}
	}

	log.Printf("[TRACKER] Loaded installation %s: %d completions, streak %d", s.userID, s.snapshot.TotalCompletions, s.snapshot.CurrentStreak)
	return notes
}

func (s *TrackerService) UserID(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startLocked(ctx)
	return s.userID
}

func (s *TrackerService) Toggle(ctx context.Context, input ToggleInput) (*ToggleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startLocked(ctx)

	now := s.clock.Now()
	habit, _, err := s.catalog.Habit(input.ProgramKey, input.WeekNumber, input.HabitIndex)
	if err != nil {
		return nil, err
	}

	changed, err := s.store.Toggle(input.ProgramKey, input.WeekNumber, input.HabitIndex, input.Checked, domain.DateKey(now))
	if err != nil {
		return nil, err
	}

	res := domain.Recompute(s.catalog, s.store, s.snapshot, now)
	s.snapshot = res.Snapshot

	result := &ToggleResult{
		Changed:       changed,
		Saved:         true,
		Habit:         domain.HabitStatus(s.store, habit, input.HabitIndex, now),
		Snapshot:      s.snapshot,
		Unlocked:      res.Unlocked,
		Notifications: []Notification{},
	}

	switch {
	case changed && input.Checked:
		result.Notifications = append(result.Notifications, successNote(msgHabitCompleted))
	case changed:
		result.Notifications = append(result.Notifications, successNote(msgHabitIncomplete))
	}
	result.Notifications = append(result.Notifications, achievementNotes(res.Unlocked)...)

	if changed || len(res.Unlocked) > 0 {
		if err := s.persistLocked(ctx); err != nil {
			log.Printf("[TRACKER] Toggle %s/%d/%d not saved: %v", input.ProgramKey, input.WeekNumber, input.HabitIndex, err)
			result.Saved = false
			result.Notifications = append(result.Notifications, errorNote(msgSaveFailed))
		}
	}

	return result, nil
}

// Progress recomputes the snapshot so that a day rollover is reflected.
func (s *TrackerService) Progress(ctx context.Context) StateResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes := s.startLocked(ctx)

	res := domain.Recompute(s.catalog, s.store, s.snapshot, s.clock.Now())
	s.snapshot = res.Snapshot

	result := StateResult{Saved: true, Snapshot: s.snapshot, Notifications: []Notification{}}
	result.Notifications = append(result.Notifications, notes...)
	result.Notifications = append(result.Notifications, achievementNotes(res.Unlocked)...)

	if len(res.Unlocked) > 0 {
		if err := s.saveSnapshotLocked(ctx); err != nil {
			log.Printf("[TRACKER] Snapshot not saved: %v", err)
			result.Saved = false
			result.Notifications = append(result.Notifications, errorNote(msgSaveFailed))
		}
	}
	return result
}

// Refresh recomputes the snapshot against the current date and persists it
// when the streaks or unlocks moved. It reports whether anything changed.
func (s *TrackerService) Refresh(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startLocked(ctx)

	before := s.snapshot
	res := domain.Recompute(s.catalog, s.store, s.snapshot, s.clock.Now())
	s.snapshot = res.Snapshot

	changed := len(res.Unlocked) > 0 ||
		before.CurrentStreak != s.snapshot.CurrentStreak ||
		before.LongestStreak != s.snapshot.LongestStreak
	if !changed {
		return false, nil
	}

	if err := s.saveSnapshotLocked(ctx); err != nil {
		return true, err
	}
	return true, nil
}

func (s *TrackerService) Program(ctx context.Context, programKey string) (domain.ProgramProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startLocked(ctx)

	program, err := s.catalog.Program(programKey)
	if err != nil {
		return domain.ProgramProgress{}, err
	}
	return domain.BuildProgramProgress(program, s.store, s.clock.Now()), nil
}

func (s *TrackerService) Export(ctx context.Context) (*ExportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startLocked(ctx)

	data, err := s.persistence.Export(s.userID, s.store, s.snapshot)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	return &ExportResult{
		Filename:      ExportFilename(s.clock.Now()),
		Data:          data,
		Notifications: []Notification{successNote(msgExported)},
	}, nil
}

// Import replaces the whole state with the document's, or changes nothing
// when the document is invalid.
func (s *TrackerService) Import(ctx context.Context, doc []byte) (StateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startLocked(ctx)

	store, imported, err := s.persistence.DecodeImport(doc)
	if err != nil {
		log.Printf("[TRACKER] Import rejected: %v", err)
		return StateResult{
			Saved:         true,
			Snapshot:      s.snapshot,
			Notifications: []Notification{errorNote(msgImportFailed)},
		}, err
	}

	res := domain.Recompute(s.catalog, store, imported, s.clock.Now())
	s.store = store
	s.snapshot = res.Snapshot

	result := StateResult{
		Saved:         true,
		Snapshot:      s.snapshot,
		Notifications: []Notification{successNote(msgImported)},
	}
	result.Notifications = append(result.Notifications, achievementNotes(res.Unlocked)...)

	err = s.adoptUserIDLocked(ctx)
	if err == nil {
		err = s.persistLocked(ctx)
	}
	if err != nil {
		log.Printf("[TRACKER] Imported state not saved: %v", err)
		result.Saved = false
		result.Notifications = append(result.Notifications, errorNote(msgSaveFailed))
	}
	return result, nil
}

func (s *TrackerService) Reset(ctx context.Context) StateResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.startLocked(ctx)

	store := domain.NewCompletionStore(s.catalog)
	snapshot := domain.DefaultSnapshot(s.catalog, s.clock.Now())
	err := s.adoptUserIDLocked(ctx)
	if err == nil {
		store, snapshot, err = s.persistence.Reset(ctx, s.userID)
	}
	s.store = store
	s.snapshot = snapshot

	result := StateResult{
		Saved:         true,
		Snapshot:      s.snapshot,
		Notifications: []Notification{successNote(msgReset)},
	}
	if err != nil {
		log.Printf("[TRACKER] Reset not saved: %v", err)
		result.Saved = false
		result.Notifications = append(result.Notifications, errorNote(msgSaveFailed))
	}
	return result
}

func (s *TrackerService) persistLocked(ctx context.Context) error {
	if err := s.ensureUserIDLocked(ctx); err != nil {
		return err
	}
	if err := s.persistence.SaveStore(ctx, s.userID, s.store); err != nil {
		return err
	}
	return s.persistence.SaveSnapshot(ctx, s.userID, s.snapshot)
}

func (s *TrackerService) saveSnapshotLocked(ctx context.Context) error {
	if err := s.ensureUserIDLocked(ctx); err != nil {
		return err
	}
	return s.persistence.SaveSnapshot(ctx, s.userID, s.snapshot)
}

// adoptUserIDLocked resolves the installation id for operations that replace
// the whole state, where overwriting unloaded progress is intended.
func (s *TrackerService) adoptUserIDLocked(ctx context.Context) error {
	if s.userID != "" {
		return nil
	}
	id, _, err := s.persistence.EnsureUserID(ctx)
	if err != nil {
		return err
	}
	s.userID = id
	return nil
}

// ensureUserIDLocked resolves the installation id when startup could not.
// If the id turns out to exist, its stored progress was never loaded, so
// nothing is written and the next operation reloads it instead.
func (s *TrackerService) ensureUserIDLocked(ctx context.Context) error {
	if s.userID != "" {
		return nil
	}

	id, created, err := s.persistence.EnsureUserID(ctx)
	if err != nil {
		return err
	}
	if !created {
		s.started = false
		return fmt.Errorf("%w: installation %s has unloaded progress, reloading", ErrStorage, id)
	}

	s.userID = id
	return nil
}

func achievementNotes(unlocked []domain.AchievementState) []Notification {
	notes := make([]Notification, 0, len(unlocked))
	for _, a := range unlocked {
		notes = append(notes, Notification{
			Level:   LevelAchievement,
			Message: fmt.Sprintf(achievementTemplate, a.Title, a.Points),
		})
	}
	return notes
}
