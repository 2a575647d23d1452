package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nexaneuron-backend-go/internal/core"
	"nexaneuron-backend-go/internal/gateway"
	"nexaneuron-backend-go/internal/media"
	"nexaneuron-backend-go/pkg/apperrors"
)

// VideoHandler covers video generation (long-running, polled upstream) and
// video analysis (frame sampling plus model analysis).
type VideoHandler struct {
	ai        AIGateway
	sessions  core.SessionService
	extractor *media.FrameExtractor
	logger    *zap.Logger
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(ai AIGateway, sessions core.SessionService, logger *zap.Logger) *VideoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VideoHandler{ai: ai, sessions: sessions, extractor: &media.FrameExtractor{}, logger: logger}
}

type generateVideoRequest struct {
	Prompt          string   `json:"prompt" binding:"required"`
	AspectRatio     string   `json:"aspectRatio"`
	SeedImageBase64 string   `json:"seedImageBase64"`
	SeedImageMIME   string   `json:"seedImageMime"`
	ReferenceFrames []string `json:"referenceFrames"`
	DurationSeconds int      `json:"durationSeconds"`
}

type generateVideoResponse struct {
	VideoBase64 string `json:"videoBase64"`
	MIMEType    string `json:"mimeType"`
	Coins       int64  `json:"coins"`
}

// Generate handles POST /api/v1/videos/generate. The upstream operation is
// polled until done (bounded); there is no client-initiated cancellation.
func (h *VideoHandler) Generate(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		respondError(c, apperrors.Generic(nil))
		return
	}
	var req generateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.BadRequest("prompt is required", err))
		return
	}
	if !requireCoins(c, session, core.CostVideoGeneration) {
		return
	}

	gwReq := gateway.VideoRequest{
		Prompt:          req.Prompt,
		AspectRatio:     req.AspectRatio,
		ReferenceFrames: req.ReferenceFrames,
		DurationSeconds: req.DurationSeconds,
	}
	if req.SeedImageBase64 != "" {
		seed, err := media.DecodeBase64(req.SeedImageBase64)
		if err != nil {
			respondError(c, apperrors.BadRequest("seedImageBase64 is not valid base64", err))
			return
		}
		gwReq.SeedImage = seed
		gwReq.SeedImageMIME = req.SeedImageMIME
	}

	video, err := h.ai.GenerateVideo(c.Request.Context(), gwReq)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.sessions.Debit(c.Request.Context(), session, core.CostVideoGeneration); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, generateVideoResponse{
		VideoBase64: media.EncodeBase64(video.Data),
		MIMEType:    video.MIMEType,
		Coins:       session.Snapshot().Coins,
	})
}

// Analyze handles POST /api/v1/videos/analyze: a multipart upload carrying a
// motion-JPEG clip, with optional prompt, frames, fps, and response schema
// fields. Frames are sampled sequentially, then sent for analysis.
func (h *VideoHandler) Analyze(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		respondError(c, apperrors.Generic(nil))
		return
	}
	if !requireCoins(c, session, core.CostVideoAnalysis) {
		return
	}

	prompt := c.PostForm("prompt")
	if prompt == "" {
		prompt = "Describe what happens in this video."
	}
	schema := []byte(c.PostForm("schema"))
	if len(schema) == 0 {
		schema = nil
	}
	frameCount := media.DefaultAnalysisFrames
	if schema != nil {
		frameCount = media.SchemaAnalysisFrames
	}
	if raw := c.PostForm("frames"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			frameCount = v
		}
	}
	fps := 30.0
	if raw := c.PostForm("fps"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			fps = v
		}
	}

	decoder, err := h.openClip(c, fps)
	if err != nil {
		respondError(c, err)
		return
	}
	defer decoder.Close()

	frames, err := h.extractor.Extract(c.Request.Context(), decoder, frameCount, func(fraction float64) {
		h.logger.Debug("frame extraction progress", zap.Float64("fraction", fraction))
	})
	if err != nil {
		respondError(c, err)
		return
	}

	analysis, err := h.ai.AnalyzeFrames(c.Request.Context(), gateway.FrameAnalysisRequest{
		Prompt:         prompt,
		Frames:         frames,
		ResponseSchema: schema,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.sessions.Debit(c.Request.Context(), session, core.CostVideoAnalysis); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysisResponse{Analysis: analysis, Coins: session.Snapshot().Coins})
}

// openClip resolves the clip to analyze: an uploaded 'video' file, or a
// remote fetch when a 'videoUrl' field is given instead.
func (h *VideoHandler) openClip(c *gin.Context, fps float64) (*media.MJPEGDecoder, error) {
	if fileHeader, err := c.FormFile("video"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			return nil, apperrors.Media("the uploaded video could not be opened", err)
		}
		defer file.Close()
		return media.NewMJPEGDecoder(file, fps)
	}
	if videoURL := c.PostForm("videoUrl"); videoURL != "" {
		return media.OpenMJPEGURL(c.Request.Context(), nil, videoURL, fps)
	}
	return nil, apperrors.BadRequest("a 'video' file or 'videoUrl' field is required", nil)
}

type styleFramesResponse struct {
	Frames []string `json:"frames"`
}

// StyleFrames handles POST /api/v1/videos/style-frames: sample a small set of
// reference frames from an uploaded clip for use as style hints in a later
// generation request. Extraction is local, so the operation is free.
func (h *VideoHandler) StyleFrames(c *gin.Context) {
	fileHeader, err := c.FormFile("video")
	if err != nil {
		respondError(c, apperrors.BadRequest("a 'video' file is required", err))
		return
	}
	fps := 30.0
	if raw := c.PostForm("fps"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			fps = v
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, apperrors.Media("the uploaded video could not be opened", err))
		return
	}
	defer file.Close()

	decoder, err := media.NewMJPEGDecoder(file, fps)
	if err != nil {
		respondError(c, err)
		return
	}
	defer decoder.Close()

	frames, err := h.extractor.Extract(c.Request.Context(), decoder, media.StyleReferenceFrames, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, styleFramesResponse{Frames: frames})
}
