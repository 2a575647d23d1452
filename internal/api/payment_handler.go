package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nexaneuron-backend-go/internal/core"
	"nexaneuron-backend-go/pkg/apperrors"
)

// PaymentHandler exposes the premium upgrade flow: a UPI deep link order,
// then a confirmation that unlocks premium on the session.
type PaymentHandler struct {
	payments core.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments core.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type orderResponse struct {
	Reference string `json:"reference"`
	Link      string `json:"link"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
}

// CreateOrder handles POST /api/v1/payment/order.
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		respondError(c, apperrors.Generic(nil))
		return
	}
	order, err := h.payments.CreateOrder(c.Request.Context(), session)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orderResponse{
		Reference: order.Reference,
		Link:      order.Link,
		Amount:    order.Amount,
		Currency:  order.Currency,
	})
}

type confirmRequest struct {
	Reference string `json:"reference" binding:"required"`
}

type confirmResponse struct {
	IsPremium bool  `json:"isPremium"`
	Coins     int64 `json:"coins"`
}

// Confirm handles POST /api/v1/payment/confirm.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		respondError(c, apperrors.Generic(nil))
		return
	}
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.BadRequest("reference is required", err))
		return
	}
	if err := h.payments.Confirm(c.Request.Context(), session, req.Reference); err != nil {
		respondError(c, err)
		return
	}
	snapshot := session.Snapshot()
	c.JSON(http.StatusOK, confirmResponse{IsPremium: snapshot.IsPremium, Coins: snapshot.Coins})
}
