package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nexaneuron-backend-go/internal/gateway"
	"nexaneuron-backend-go/pkg/apperrors"
)

// SearchHandler exposes grounded search over the AI gateway.
type SearchHandler struct {
	ai AIGateway
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(ai AIGateway) *SearchHandler {
	return &SearchHandler{ai: ai}
}

type searchRequest struct {
	Query     string   `json:"query" binding:"required"`
	UseMaps   bool     `json:"useMaps"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type searchSourceResponse struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

type searchResponse struct {
	Text    string                 `json:"text"`
	Sources []searchSourceResponse `json:"sources"`
}

// Search handles POST /api/v1/search. Maps grounding requires coordinates;
// without them the request falls back to plain web grounding.
func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.BadRequest("query is required", err))
		return
	}
	if req.UseMaps && (req.Latitude == nil || req.Longitude == nil) {
		req.UseMaps = false
	}

	result, err := h.ai.GroundedSearch(c.Request.Context(), gateway.SearchRequest{
		Query:     req.Query,
		UseMaps:   req.UseMaps,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	sources := make([]searchSourceResponse, 0, len(result.Sources))
	for _, s := range result.Sources {
		sources = append(sources, searchSourceResponse{Title: s.Title, URI: s.URI})
	}
	c.JSON(http.StatusOK, searchResponse{Text: result.Text, Sources: sources})
}
