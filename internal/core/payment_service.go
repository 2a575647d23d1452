package core

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nexaneuron-backend-go/internal/models"
	"nexaneuron-backend-go/pkg/apperrors"
)

// paymentService generates a scannable payment-link payload for a fixed payee
// against the premium plan amount. Payment is simulated: confirmation is
// user-asserted rather than verified by any gateway callback.
type paymentService struct {
	sessions  SessionService
	payeeVPA  string
	payeeName string
	amount    string
	logger    *zap.Logger

	mu     sync.Mutex
	orders map[string]time.Time // outstanding order references
}

// NewPaymentService creates the PaymentService for the premium-unlock flow.
func NewPaymentService(sessions SessionService, payeeVPA, payeeName, amount string, logger *zap.Logger) (PaymentService, error) {
	if sessions == nil {
		return nil, errors.New("session service is required")
	}
	if payeeVPA == "" {
		return nil, errors.New("payee VPA is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &paymentService{
		sessions:  sessions,
		payeeVPA:  payeeVPA,
		payeeName: payeeName,
		amount:    amount,
		logger:    logger,
		orders:    map[string]time.Time{},
	}, nil
}

// CreateOrder builds the UPI-style payment link the client renders as a QR
// code.
func (s *paymentService) CreateOrder(ctx context.Context, session *Session) (*models.PaymentOrder, error) {
	if session == nil || session.Profile == nil {
		return nil, apperrors.Generic(errors.New("no active session"))
	}
	if session.Snapshot().IsPremium {
		return nil, apperrors.BadRequest("this account is already premium", nil)
	}

	reference := uuid.NewString()
	link := fmt.Sprintf("upi://pay?pa=%s&pn=%s&am=%s&cu=INR&tn=%s",
		url.QueryEscape(s.payeeVPA),
		url.QueryEscape(s.payeeName),
		url.QueryEscape(s.amount),
		url.QueryEscape("nexaneuron-premium-"+reference),
	)

	s.mu.Lock()
	s.orders[reference] = time.Now()
	s.mu.Unlock()

	s.logger.Info("payment order created",
		zap.String("reference", reference), zap.String("user", session.Profile.ID))

	return &models.PaymentOrder{
		Reference: reference,
		PayeeVPA:  s.payeeVPA,
		PayeeName: s.payeeName,
		Amount:    s.amount,
		Currency:  "INR",
		Link:      link,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Confirm records the user-asserted payment and unlocks premium. The unlock
// is idempotent, so a duplicated confirmation is harmless.
func (s *paymentService) Confirm(ctx context.Context, session *Session, reference string) error {
	s.mu.Lock()
	_, known := s.orders[reference]
	delete(s.orders, reference)
	s.mu.Unlock()
	if !known {
		return apperrors.BadRequest("unknown payment reference", nil)
	}

	if err := s.sessions.UnlockPremium(ctx, session); err != nil {
		return apperrors.Generic(fmt.Errorf("premium unlock: %w", err))
	}
	s.logger.Info("premium unlocked",
		zap.String("reference", reference), zap.String("user", session.Profile.ID))
	return nil
}
