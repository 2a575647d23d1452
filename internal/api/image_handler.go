package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nexaneuron-backend-go/internal/core"
	"nexaneuron-backend-go/internal/gateway"
	"nexaneuron-backend-go/internal/media"
	"nexaneuron-backend-go/pkg/apperrors"
)

// ImageHandler covers image generation and image analysis. Both are paid:
// affordability is checked before the gateway call, the debit lands only
// after it succeeds.
type ImageHandler struct {
	ai       AIGateway
	sessions core.SessionService
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(ai AIGateway, sessions core.SessionService) *ImageHandler {
	return &ImageHandler{ai: ai, sessions: sessions}
}

type generateImagesRequest struct {
	Prompt      string `json:"prompt" binding:"required"`
	AspectRatio string `json:"aspectRatio"`
	Count       int    `json:"count"`
}

type generatedImageResponse struct {
	DataBase64 string `json:"dataBase64"`
	MIMEType   string `json:"mimeType"`
}

type generateImagesResponse struct {
	Images []generatedImageResponse `json:"images"`
	Coins  int64                    `json:"coins"`
}

// Generate handles POST /api/v1/images/generate.
func (h *ImageHandler) Generate(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		respondError(c, apperrors.Generic(nil))
		return
	}
	var req generateImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.BadRequest("prompt is required", err))
		return
	}
	if !requireCoins(c, session, core.CostImageGeneration) {
		return
	}

	images, err := h.ai.GenerateImages(c.Request.Context(), gateway.ImageGenRequest{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Count:       req.Count,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.sessions.Debit(c.Request.Context(), session, core.CostImageGeneration); err != nil {
		respondError(c, err)
		return
	}

	resp := generateImagesResponse{Coins: session.Snapshot().Coins}
	for _, img := range images {
		resp.Images = append(resp.Images, generatedImageResponse{
			DataBase64: media.EncodeBase64(img.Data),
			MIMEType:   img.MIMEType,
		})
	}
	c.JSON(http.StatusOK, resp)
}

type analyzeImageRequest struct {
	Prompt      string `json:"prompt" binding:"required"`
	ImageBase64 string `json:"imageBase64" binding:"required"`
	ImageMIME   string `json:"imageMime"`
}

type analysisResponse struct {
	Analysis string `json:"analysis"`
	Coins    int64  `json:"coins"`
}

// Analyze handles POST /api/v1/images/analyze.
func (h *ImageHandler) Analyze(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		respondError(c, apperrors.Generic(nil))
		return
	}
	var req analyzeImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.BadRequest("prompt and imageBase64 are required", err))
		return
	}
	if !requireCoins(c, session, core.CostImageAnalysis) {
		return
	}

	imageData, err := media.DecodeBase64(req.ImageBase64)
	if err != nil {
		respondError(c, apperrors.BadRequest("imageBase64 is not valid base64", err))
		return
	}

	reply, err := h.ai.Chat(c.Request.Context(), gateway.ChatRequest{
		Message:   req.Prompt,
		ImageData: imageData,
		ImageMIME: req.ImageMIME,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.sessions.Debit(c.Request.Context(), session, core.CostImageAnalysis); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysisResponse{Analysis: reply.Text, Coins: session.Snapshot().Coins})
}
