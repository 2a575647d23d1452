package core

import (
	"context"

	"nexaneuron-backend-go/internal/models"
)

// AuthIdentity is the verified identity produced by the identity provider.
type AuthIdentity struct {
	UID         string
	Email       string
	DisplayName string
	AvatarURL   string
}

// TokenVerifier abstracts the identity provider: verifying an interactive
// sign-in token and invalidating a user's session tokens on sign-out.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*AuthIdentity, error)
	RevokeTokens(ctx context.Context, uid string) error
}

// SessionService is the single source of truth for who is using the app and
// what they can afford.
type SessionService interface {
	// Resolve establishes the current session: the remote profile for an
	// authenticated identity (creating or backfilling it as needed), or a
	// local guest profile otherwise. It must complete before any paid
	// operation is issued.
	Resolve(ctx context.Context, identity *AuthIdentity) (*Session, error)
	// SignIn verifies an identity-provider token and resolves the session
	// for the now-authenticated identity. Failures are recoverable and leave
	// the session unchanged.
	SignIn(ctx context.Context, idToken string) (*Session, error)
	// SignOut ends the authenticated identity and resolves to a fresh guest.
	SignOut(ctx context.Context, session *Session) (*Session, error)
	// Debit decrements the balance after a paid operation has succeeded.
	// Premium sessions are left untouched.
	Debit(ctx context.Context, session *Session, amount int64) error
	// UnlockPremium sets the premium flag; idempotent.
	UnlockPremium(ctx context.Context, session *Session) error
}

// PaymentService builds the scannable payment-link payload for the premium
// plan and records the user-asserted (simulated) confirmation.
type PaymentService interface {
	CreateOrder(ctx context.Context, session *Session) (*models.PaymentOrder, error)
	Confirm(ctx context.Context, session *Session, reference string) error
}
