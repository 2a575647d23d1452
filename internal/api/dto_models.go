package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"nexaneuron-backend-go/internal/core"
	"nexaneuron-backend-go/internal/gateway"
	"nexaneuron-backend-go/internal/media"
	"nexaneuron-backend-go/internal/middleware"
	"nexaneuron-backend-go/pkg/apperrors"
)

// ErrorResponse is the inline error body rendered by every panel-facing
// endpoint.
type ErrorResponse struct {
	Error              string `json:"error"`
	Code               string `json:"code,omitempty"`
	Details            string `json:"details,omitempty"`
	ReselectCredential bool   `json:"reselectCredential,omitempty"`
}

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// respondError converts any failure into the inline error body, classifying
// well-known sentinel errors into the taxonomy first.
func respondError(c *gin.Context, err error) {
	appErr := classify(err)
	body := ErrorResponse{
		Error:              appErr.Message,
		Code:               appErr.Code,
		ReselectCredential: appErr.Reselect,
	}
	if appErr.Err != nil {
		body.Details = appErr.Err.Error()
	}
	c.JSON(appErr.StatusCode, body)
}

func classify(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, gateway.ErrCredentialInvalid):
		return apperrors.CredentialInvalid(err)
	case errors.Is(err, gateway.ErrVideoTimeout):
		return apperrors.Gateway("video generation timed out, please try again", err)
	case errors.Is(err, core.ErrInsufficientCoins):
		return apperrors.Entitlement("not enough coins for this operation")
	case errors.Is(err, media.ErrInvalidMedia):
		return apperrors.Media("the video could not be read", err)
	default:
		return apperrors.From(err)
	}
}

// currentSession pulls the session resolved by the middleware; resolution is
// guaranteed to have completed before any handler runs.
func currentSession(c *gin.Context) (*core.Session, bool) {
	raw, exists := c.Get(middleware.SessionKey)
	if !exists {
		return nil, false
	}
	session, ok := raw.(*core.Session)
	return session, ok && session != nil
}

// requireCoins checks affordability BEFORE the paid gateway call is issued.
// The actual debit happens only after the call succeeds.
func requireCoins(c *gin.Context, session *core.Session, cost int64) bool {
	profile := session.Snapshot()
	if profile.CanAfford(cost) {
		return true
	}
	respondError(c, apperrors.Entitlement("not enough coins for this operation"))
	return false
}
