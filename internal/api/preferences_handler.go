package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nexaneuron-backend-go/internal/db"
	"nexaneuron-backend-go/internal/models"
	"nexaneuron-backend-go/pkg/apperrors"
)

// PreferencesHandler reads and writes the locally persisted client
// preferences (theme, TTS voice).
type PreferencesHandler struct {
	store db.GuestStore
}

// NewPreferencesHandler creates a new PreferencesHandler.
func NewPreferencesHandler(store db.GuestStore) *PreferencesHandler {
	return &PreferencesHandler{store: store}
}

// Get handles GET /api/v1/preferences.
func (h *PreferencesHandler) Get(c *gin.Context) {
	prefs, err := h.store.LoadPreferences()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// Put handles PUT /api/v1/preferences, replacing the stored preferences.
func (h *PreferencesHandler) Put(c *gin.Context) {
	var prefs models.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		respondError(c, apperrors.BadRequest("malformed preferences body", err))
		return
	}
	if err := h.store.SavePreferences(&prefs); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}
