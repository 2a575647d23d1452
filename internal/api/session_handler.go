package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nexaneuron-backend-go/internal/core"
	"nexaneuron-backend-go/pkg/apperrors"
)

// SessionHandler exposes the session/entitlement surface: who is using the
// app and what they can afford.
type SessionHandler struct {
	sessions core.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions core.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Me handles GET /api/v1/session/me: the profile the middleware resolved for
// this request (authenticated or guest).
func (h *SessionHandler) Me(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		respondError(c, apperrors.Generic(nil))
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

type signInRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

// SignIn handles POST /api/v1/session/resolve: verify the provider token and
// resolve the now-authenticated profile. Failure leaves the caller's
// session unchanged.
func (h *SessionHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.BadRequest("idToken is required", err))
		return
	}
	session, err := h.sessions.SignIn(c.Request.Context(), req.IDToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

// SignOut handles POST /api/v1/session/signout: end the authenticated
// identity and fall back to a fresh guest profile.
func (h *SessionHandler) SignOut(c *gin.Context) {
	session, _ := currentSession(c)
	guest, err := h.sessions.SignOut(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, guest.Snapshot())
}
