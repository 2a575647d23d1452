package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"nexaneuron-backend-go/internal/models"
)

// memoryGuestStore is the in-memory db.GuestStore used by handler tests.
type memoryGuestStore struct {
	mu      sync.Mutex
	history map[string][]models.ChatTurn
}

func newMemoryGuestStore() *memoryGuestStore {
	return &memoryGuestStore{history: map[string][]models.ChatTurn{}}
}

func (s *memoryGuestStore) LoadGuest() (*models.UserProfile, error)       { return nil, nil }
func (s *memoryGuestStore) SaveGuest(profile *models.UserProfile) error   { return nil }
func (s *memoryGuestStore) ClearGuest() error                             { return nil }
func (s *memoryGuestStore) LoadPreferences() (*models.Preferences, error) { return &models.Preferences{}, nil }
func (s *memoryGuestStore) SavePreferences(prefs *models.Preferences) error { return nil }

func (s *memoryGuestStore) LoadHistory(conversationID string) ([]models.ChatTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history[conversationID], nil
}

func (s *memoryGuestStore) AppendHistory(conversationID string, turns ...models.ChatTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[conversationID] = append(s.history[conversationID], turns...)
	return nil
}

func newChatTestRouter(store *memoryGuestStore, ai *fakeAI) (*gin.Engine, *ChatHandler) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewChatHandler(ai, store)
	router.POST("/chat", handler.Chat)
	router.GET("/chat/:conversationId/history", handler.History)
	return router, handler
}

func TestChatAppendsBothTurns(t *testing.T) {
	store := newMemoryGuestStore()
	router, _ := newChatTestRouter(store, &fakeAI{})

	rec := postJSON(t, router, "/chat", gin.H{"conversationId": "c1", "message": "hello"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Reply != "analysis text" {
		t.Errorf("reply = %q", resp.Reply)
	}

	turns := store.history["c1"]
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want user + model", len(turns))
	}
	if turns[0].Role != models.RoleUser || turns[0].Text != "hello" {
		t.Errorf("first turn = %+v", turns[0])
	}
	if turns[1].Role != models.RoleModel {
		t.Errorf("second turn role = %q", turns[1].Role)
	}
}

func TestChatDefaultsConversationID(t *testing.T) {
	store := newMemoryGuestStore()
	router, _ := newChatTestRouter(store, &fakeAI{})

	rec := postJSON(t, router, "/chat", gin.H{"message": "hi"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(store.history["default"]) != 2 {
		t.Error("turns were not appended to the default conversation")
	}
}

func TestChatRejectsOverlappingRequest(t *testing.T) {
	store := newMemoryGuestStore()
	router, handler := newChatTestRouter(store, &fakeAI{})

	// Simulate an outstanding request holding the conversation.
	if !handler.acquire("c2") {
		t.Fatal("could not acquire the conversation for the test")
	}
	defer handler.release("c2")

	rec := postJSON(t, router, "/chat", gin.H{"conversationId": "c2", "message": "hi"})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if len(store.history["c2"]) != 0 {
		t.Error("rejected request must not touch history")
	}

	// Other conversations are unaffected.
	rec = postJSON(t, router, "/chat", gin.H{"conversationId": "c3", "message": "hi"})
	if rec.Code != http.StatusOK {
		t.Errorf("independent conversation blocked, status = %d", rec.Code)
	}
}

func postRecorder(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHistoryEndpointReturnsEmptyList(t *testing.T) {
	store := newMemoryGuestStore()
	router, _ := newChatTestRouter(store, &fakeAI{})

	req, _ := http.NewRequest(http.MethodGet, "/chat/none/history", nil)
	rec := postRecorder(router, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); body != "[]" {
		t.Errorf("body = %q, want an empty JSON array", body)
	}
}
