package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nexaneuron-backend-go/internal/gateway"
	"nexaneuron-backend-go/internal/media"
	"nexaneuron-backend-go/pkg/apperrors"
)

// SpeechHandler turns text into a downloadable WAV file.
type SpeechHandler struct {
	ai AIGateway
}

// NewSpeechHandler creates a new SpeechHandler.
func NewSpeechHandler(ai AIGateway) *SpeechHandler {
	return &SpeechHandler{ai: ai}
}

type speechRequest struct {
	Text  string `json:"text" binding:"required"`
	Voice string `json:"voice"`
}

// Synthesize handles POST /api/v1/speech. The upstream model returns raw
// PCM16; the response wraps it in a WAV container so browsers can play it
// directly.
func (h *SpeechHandler) Synthesize(c *gin.Context) {
	var req speechRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.BadRequest("text is required", err))
		return
	}

	result, err := h.ai.Speech(c.Request.Context(), gateway.SpeechRequest{Text: req.Text, Voice: req.Voice})
	if err != nil {
		respondError(c, err)
		return
	}

	wav := media.WAVContainer(result.PCM, result.SampleRate, result.Channels)
	filename := fmt.Sprintf("speech-%d.wav", time.Now().Unix())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "audio/wav", wav)
}
