package db

import (
	"errors"
	"testing"

	"nexaneuron-backend-go/internal/models"
)

func newTestStore(t *testing.T) *FileGuestStore {
	t.Helper()
	store, err := NewFileGuestStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileGuestStore returned error: %v", err)
	}
	return store
}

func TestGuestProfileLifecycle(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.LoadGuest(); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound for an empty store", err)
	}

	guest := &models.UserProfile{ID: "guest-42", Coins: 10, IsGuest: true}
	if err := store.SaveGuest(guest); err != nil {
		t.Fatalf("SaveGuest returned error: %v", err)
	}

	loaded, err := store.LoadGuest()
	if err != nil {
		t.Fatalf("LoadGuest returned error: %v", err)
	}
	if loaded.ID != "guest-42" || loaded.Coins != 10 || !loaded.IsGuest {
		t.Errorf("loaded = %+v", loaded)
	}

	if err := store.ClearGuest(); err != nil {
		t.Fatalf("ClearGuest returned error: %v", err)
	}
	if _, err := store.LoadGuest(); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound after clear", err)
	}
	// Clearing twice is fine.
	if err := store.ClearGuest(); err != nil {
		t.Errorf("second ClearGuest returned error: %v", err)
	}
}

func TestPreferencesDefaultWhenMissing(t *testing.T) {
	store := newTestStore(t)

	prefs, err := store.LoadPreferences()
	if err != nil {
		t.Fatalf("LoadPreferences returned error: %v", err)
	}
	if prefs == nil {
		t.Fatal("expected zero-value preferences, got nil")
	}

	if err := store.SavePreferences(&models.Preferences{Theme: "dark", TTSVoice: "Kore"}); err != nil {
		t.Fatalf("SavePreferences returned error: %v", err)
	}
	prefs, err = store.LoadPreferences()
	if err != nil {
		t.Fatalf("LoadPreferences returned error: %v", err)
	}
	if prefs.Theme != "dark" || prefs.TTSVoice != "Kore" {
		t.Errorf("prefs = %+v", prefs)
	}
}

func TestHistoryAppendPreservesOrder(t *testing.T) {
	store := newTestStore(t)

	turns, err := store.LoadHistory("alpha")
	if err != nil {
		t.Fatalf("LoadHistory returned error: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("unknown conversation should be empty, got %d turns", len(turns))
	}

	if err := store.AppendHistory("alpha",
		models.ChatTurn{Role: models.RoleUser, Text: "hi"},
		models.ChatTurn{Role: models.RoleModel, Text: "hello"},
	); err != nil {
		t.Fatalf("AppendHistory returned error: %v", err)
	}
	if err := store.AppendHistory("alpha", models.ChatTurn{Role: models.RoleUser, Text: "more"}); err != nil {
		t.Fatalf("second AppendHistory returned error: %v", err)
	}

	turns, err = store.LoadHistory("alpha")
	if err != nil {
		t.Fatalf("LoadHistory returned error: %v", err)
	}
	want := []string{"hi", "hello", "more"}
	if len(turns) != len(want) {
		t.Fatalf("got %d turns, want %d", len(turns), len(want))
	}
	for i, text := range want {
		if turns[i].Text != text {
			t.Errorf("turn %d = %q, want %q", i, turns[i].Text, text)
		}
	}

	// Conversations are isolated.
	other, err := store.LoadHistory("beta")
	if err != nil {
		t.Fatalf("LoadHistory returned error: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("conversation beta should be empty, got %d turns", len(other))
	}
}

func TestHistoryRejectsUnsafeConversationIDs(t *testing.T) {
	store := newTestStore(t)
	for _, id := range []string{"", "../etc", "a/b", `a\b`, "a.b"} {
		if err := store.AppendHistory(id, models.ChatTurn{Role: models.RoleUser, Text: "x"}); err == nil {
			t.Errorf("id %q: expected error", id)
		}
	}
}
