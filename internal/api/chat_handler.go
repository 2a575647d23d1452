package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"nexaneuron-backend-go/internal/db"
	"nexaneuron-backend-go/internal/gateway"
	"nexaneuron-backend-go/internal/media"
	"nexaneuron-backend-go/internal/models"
	"nexaneuron-backend-go/pkg/apperrors"
)

// ChatHandler runs conversational exchanges. History per conversation is
// appended strictly in call order; while a request for a conversation is
// outstanding, a second one is rejected rather than reordered.
type ChatHandler struct {
	ai    AIGateway
	store db.GuestStore

	mu   sync.Mutex
	busy map[string]bool
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(ai AIGateway, store db.GuestStore) *ChatHandler {
	return &ChatHandler{ai: ai, store: store, busy: map[string]bool{}}
}

type chatRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message" binding:"required"`
	System         string `json:"system"`
	ImageBase64    string `json:"imageBase64"`
	ImageMIME      string `json:"imageMime"`
}

type chatResponse struct {
	ConversationID string `json:"conversationId"`
	Reply          string `json:"reply"`
}

// Chat handles POST /api/v1/chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.BadRequest("message is required", err))
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = "default"
	}

	if !h.acquire(req.ConversationID) {
		respondError(c, apperrors.Conflict("a request for this conversation is still in progress"))
		return
	}
	defer h.release(req.ConversationID)

	history, err := h.store.LoadHistory(req.ConversationID)
	if err != nil {
		respondError(c, err)
		return
	}

	gwReq := gateway.ChatRequest{
		System:  req.System,
		Message: req.Message,
	}
	for _, turn := range history {
		gwReq.History = append(gwReq.History, gateway.ChatMessage{Role: turn.Role, Text: turn.Text})
	}
	if req.ImageBase64 != "" {
		imageData, err := media.DecodeBase64(req.ImageBase64)
		if err != nil {
			respondError(c, apperrors.BadRequest("imageBase64 is not valid base64", err))
			return
		}
		gwReq.ImageData = imageData
		gwReq.ImageMIME = req.ImageMIME
	}

	reply, err := h.ai.Chat(c.Request.Context(), gwReq)
	if err != nil {
		respondError(c, err)
		return
	}

	now := time.Now().UTC()
	if err := h.store.AppendHistory(req.ConversationID,
		models.ChatTurn{Role: models.RoleUser, Text: req.Message, CreatedAt: now},
		models.ChatTurn{Role: models.RoleModel, Text: reply.Text, CreatedAt: now},
	); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, chatResponse{ConversationID: req.ConversationID, Reply: reply.Text})
}

type generateRequest struct {
	Prompt         string          `json:"prompt" binding:"required"`
	ThinkingBudget int             `json:"thinkingBudget"`
	ResponseSchema json.RawMessage `json:"responseSchema"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// Generate handles POST /api/v1/chat/generate: a stateless single-shot
// generation with an optional thinking budget and response schema. Nothing is
// written to any conversation history.
func (h *ChatHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.BadRequest("prompt is required", err))
		return
	}
	text, err := h.ai.GenerateContent(c.Request.Context(), gateway.GenerateRequest{
		Prompt:         req.Prompt,
		ThinkingBudget: req.ThinkingBudget,
		ResponseSchema: req.ResponseSchema,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, generateResponse{Text: text})
}

// History handles GET /api/v1/chat/:conversationId/history.
func (h *ChatHandler) History(c *gin.Context) {
	turns, err := h.store.LoadHistory(c.Param("conversationId"))
	if err != nil {
		respondError(c, err)
		return
	}
	if turns == nil {
		turns = []models.ChatTurn{}
	}
	c.JSON(http.StatusOK, turns)
}

func (h *ChatHandler) acquire(conversationID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.busy[conversationID] {
		return false
	}
	h.busy[conversationID] = true
	return true
}

func (h *ChatHandler) release(conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.busy, conversationID)
}
