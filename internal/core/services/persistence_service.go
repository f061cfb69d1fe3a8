package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/comitanigiacomo/kanso-programs/internal/core/domain"
)

var (
	ErrInvalidImport = errors.New("invalid import document")
	ErrStorage       = errors.New("storage failure")
)

const (
	UserIDKey       = "habit_userId"
	userDataPrefix  = "habit_userData_"
	savedDataPrefix = "habit_savedData_"

	msgLoadFailed = "could not load previous progress"
)

func UserDataKey(userID string) string {
	return userDataPrefix + userID
}

func SavedDataKey(userID string) string {
	return savedDataPrefix + userID
}

type NotificationLevel string

const (
	LevelSuccess     NotificationLevel = "success"
	LevelError       NotificationLevel = "error"
	LevelAchievement NotificationLevel = "achievement"
)

// Notification is a one-time message meant to be shown once by the client.
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
}

func successNote(msg string) Notification {
	return Notification{Level: LevelSuccess, Message: msg}
}

func errorNote(msg string) Notification {
	return Notification{Level: LevelError, Message: msg}
}

// ExportDocument is the backup file layout. Import only requires UserData
// and SavedData.
type ExportDocument struct {
	UserID     string                      `json:"userId,omitempty"`
	UserData   domain.UserProgressSnapshot `json:"userData"`
	SavedData  domain.SavedData            `json:"savedData"`
	ExportDate time.Time                   `json:"exportDate"`
}

type LoadedState struct {
	UserID        string
	Store         *domain.CompletionStore
	Snapshot      domain.UserProgressSnapshot
	Notifications []Notification
}

type PersistenceService struct {
	kv      domain.KeyValueStore
	catalog *domain.Catalog
	clock   domain.Clock
	newID   func() string
}

func NewPersistenceService(kv domain.KeyValueStore, catalog *domain.Catalog, clock domain.Clock) *PersistenceService {
	return &PersistenceService{
		kv:      kv,
		catalog: catalog,
		clock:   clock,
		newID: func() string {
			return "user_" + uuid.NewString()
		},
	}
}

// Load rehydrates the installation. It never fails: absent blobs yield
// defaults, unreadable ones yield defaults plus an error notification.
// UserID stays empty when no installation id could be read or stored.
func (s *PersistenceService) Load(ctx context.Context) LoadedState {
	now := s.clock.Now()
	state := LoadedState{
		Store:    domain.NewCompletionStore(s.catalog),
		Snapshot: domain.DefaultSnapshot(s.catalog, now),
	}

	userID, _, err := s.EnsureUserID(ctx)
	if err != nil {
		log.Printf("[STORE] %v", err)
		state.Notifications = append(state.Notifications, errorNote(msgLoadFailed))
		return state
	}
	state.UserID = userID

	failed := false

	if raw, err := s.kv.Get(ctx, UserDataKey(userID)); err == nil {
		var snap domain.UserProgressSnapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			log.Printf("[STORE] Malformed progress snapshot for %s: %v", userID, err)
			failed = true
		} else {
			state.Snapshot = snap
		}
	} else if !errors.Is(err, domain.ErrKeyNotFound) {
		log.Printf("[STORE] Failed to read progress snapshot for %s: %v", userID, err)
		failed = true
	}

	if raw, err := s.kv.Get(ctx, SavedDataKey(userID)); err == nil {
		store, err := decodeSavedData(s.catalog, []byte(raw))
		if err != nil {
			log.Printf("[STORE] Malformed completion data for %s: %v", userID, err)
			failed = true
		} else {
			state.Store = store
		}
	} else if !errors.Is(err, domain.ErrKeyNotFound) {
		log.Printf("[STORE] Failed to read completion data for %s: %v", userID, err)
		failed = true
	}

	if failed {
		state.Notifications = append(state.Notifications, errorNote(msgLoadFailed))
	}
	return state
}

// EnsureUserID returns the stored installation id, generating and storing
// one when none exists. created reports whether it was generated now. An
// empty id is returned only with an error.
func (s *PersistenceService) EnsureUserID(ctx context.Context) (userID string, created bool, err error) {
	userID, err = s.kv.Get(ctx, UserIDKey)
	if err != nil && !errors.Is(err, domain.ErrKeyNotFound) {
		return "", false, fmt.Errorf("%w: read installation id: %v", ErrStorage, err)
	}
	if err == nil && userID != "" {
		return userID, false, nil
	}

	userID = s.newID()
	if err := s.kv.Set(ctx, UserIDKey, userID); err != nil {
		return "", false, fmt.Errorf("%w: store installation id: %v", ErrStorage, err)
	}
	log.Printf("[STORE] New installation %s", userID)
	return userID, true, nil
}

func decodeSavedData(catalog *domain.Catalog, raw []byte) (*domain.CompletionStore, error) {
	var saved domain.SavedData
	if err := json.Unmarshal(raw, &saved); err != nil {
		return nil, err
	}
	return domain.LoadSavedData(catalog, saved)
}

func (s *PersistenceService) SaveStore(ctx context.Context, userID string, store *domain.CompletionStore) error {
	return s.setJSON(ctx, SavedDataKey(userID), store.ToSavedData())
}

func (s *PersistenceService) SaveSnapshot(ctx context.Context, userID string, snapshot domain.UserProgressSnapshot) error {
	return s.setJSON(ctx, UserDataKey(userID), snapshot)
}

func (s *PersistenceService) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrStorage, key, err)
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStorage, key, err)
	}
	return nil
}

func (s *PersistenceService) Export(userID string, store *domain.CompletionStore, snapshot domain.UserProgressSnapshot) ([]byte, error) {
	doc := ExportDocument{
		UserID:     userID,
		UserData:   snapshot,
		SavedData:  store.ToSavedData(),
		ExportDate: s.clock.Now().UTC(),
	}
	return json.Marshal(doc)
}

// ExportFilename is the suggested download name for a backup taken at now.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("habit_tracker_export_%s.json", domain.DateKey(now))
}

// DecodeImport validates a backup document without touching storage. Any
// problem is reported as ErrInvalidImport.
func (s *PersistenceService) DecodeImport(doc []byte) (*domain.CompletionStore, domain.UserProgressSnapshot, error) {
	var envelope struct {
		UserData  json.RawMessage `json:"userData"`
		SavedData json.RawMessage `json:"savedData"`
	}
	if err := json.Unmarshal(doc, &envelope); err != nil {
		return nil, domain.UserProgressSnapshot{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if isMissing(envelope.UserData) {
		return nil, domain.UserProgressSnapshot{}, fmt.Errorf("%w: missing userData", ErrInvalidImport)
	}
	if isMissing(envelope.SavedData) {
		return nil, domain.UserProgressSnapshot{}, fmt.Errorf("%w: missing savedData", ErrInvalidImport)
	}

	var snapshot domain.UserProgressSnapshot
	if err := json.Unmarshal(envelope.UserData, &snapshot); err != nil {
		return nil, domain.UserProgressSnapshot{}, fmt.Errorf("%w: userData: %v", ErrInvalidImport, err)
	}

	store, err := decodeSavedData(s.catalog, envelope.SavedData)
	if err != nil {
		return nil, domain.UserProgressSnapshot{}, fmt.Errorf("%w: savedData: %w", ErrInvalidImport, err)
	}

	return store, snapshot, nil
}

func isMissing(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// Reset wipes both blobs of the installation and writes fresh defaults.
func (s *PersistenceService) Reset(ctx context.Context, userID string) (*domain.CompletionStore, domain.UserProgressSnapshot, error) {
	store := domain.NewCompletionStore(s.catalog)
	snapshot := domain.DefaultSnapshot(s.catalog, s.clock.Now())

	for _, key := range []string{UserDataKey(userID), SavedDataKey(userID)} {
		if err := s.kv.Remove(ctx, key); err != nil {
			return store, snapshot, fmt.Errorf("%w: remove %s: %v", ErrStorage, key, err)
		}
	}

	if err := s.SaveStore(ctx, userID, store); err != nil {
		return store, snapshot, err
	}
	if err := s.SaveSnapshot(ctx, userID, snapshot); err != nil {
		return store, snapshot, err
	}
	return store, snapshot, nil
}
