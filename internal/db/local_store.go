package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"nexaneuron-backend-go/internal/models"
)

// FileGuestStore persists guest state as JSON files under a base directory.
// It is the server-side analog of the browser's local storage: a guest
// profile, client preferences, and per-conversation chat history.
type FileGuestStore struct {
	basePath string
	mu       sync.Mutex
}

// NewFileGuestStore initializes a FileGuestStore rooted at basePath.
func NewFileGuestStore(basePath string) (*FileGuestStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("local store: base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("local store: ensure base path: %w", err)
	}
	return &FileGuestStore{basePath: basePath}, nil
}

const (
	guestProfileFile = "guest_profile.json"
	preferencesFile  = "preferences.json"
)

// LoadGuest returns the stored guest profile, or ErrNotFound when none has
// been saved yet.
func (s *FileGuestStore) LoadGuest() (*models.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var profile models.UserProfile
	if err := s.readJSON(guestProfileFile, &profile); err != nil {
		return nil, err
	}
	profile.IsGuest = true
	return &profile, nil
}

// SaveGuest overwrites the stored guest profile. The previous guest record,
// if any, is discarded.
func (s *FileGuestStore) SaveGuest(profile *models.UserProfile) error {
	if profile == nil {
		return errors.New("local store: nil guest profile")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(guestProfileFile, profile)
}

// ClearGuest removes the stored guest profile. Removing an absent record is
// not an error.
func (s *FileGuestStore) ClearGuest() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(filepath.Join(s.basePath, guestProfileFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("local store: clear guest: %w", err)
	}
	return nil
}

func (s *FileGuestStore) LoadPreferences() (*models.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var prefs models.Preferences
	if err := s.readJSON(preferencesFile, &prefs); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &models.Preferences{}, nil
		}
		return nil, err
	}
	return &prefs, nil
}

func (s *FileGuestStore) SavePreferences(prefs *models.Preferences) error {
	if prefs == nil {
		return errors.New("local store: nil preferences")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(preferencesFile, prefs)
}

// LoadHistory returns the ordered turns of a conversation; an unknown
// conversation yields an empty history.
func (s *FileGuestStore) LoadHistory(conversationID string) ([]models.ChatTurn, error) {
	key, err := historyKey(conversationID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var turns []models.ChatTurn
	if err := s.readJSON(key, &turns); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return turns, nil
}

// AppendHistory appends turns in call order. History is never reordered.
func (s *FileGuestStore) AppendHistory(conversationID string, turns ...models.ChatTurn) error {
	key, err := historyKey(conversationID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var existing []models.ChatTurn
	if err := s.readJSON(key, &existing); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	existing = append(existing, turns...)
	return s.writeJSON(key, existing)
}

func historyKey(conversationID string) (string, error) {
	id := strings.TrimSpace(conversationID)
	if id == "" || strings.ContainsAny(id, `/\.`) {
		return "", fmt.Errorf("local store: invalid conversation id %q", conversationID)
	}
	return "history_" + id + ".json", nil
}

func (s *FileGuestStore) readJSON(name string, out interface{}) error {
	data, err := os.ReadFile(filepath.Join(s.basePath, name))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("local store: read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("local store: decode %s: %w", name, err)
	}
	return nil
}

func (s *FileGuestStore) writeJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("local store: encode %s: %w", name, err)
	}
	tmp := filepath.Join(s.basePath, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("local store: write %s: %w", name, err)
	}
	if err := os.Rename(tmp, filepath.Join(s.basePath, name)); err != nil {
		return fmt.Errorf("local store: commit %s: %w", name, err)
	}
	return nil
}

var _ GuestStore = (*FileGuestStore)(nil)
