package db

import (
	"context"

	"nexaneuron-backend-go/internal/models"
)

// RemoteProfile is the decoded shape of a Firestore user document. Coins and
// IsPremium are pointers so the session layer can tell a genuinely missing
// field (backfill required) apart from a zero value.
type RemoteProfile struct {
	Profile   models.UserProfile
	Coins     *int64
	IsPremium *bool
}

// ProfileRepository defines the storage operations for the remote (canonical)
// user profile document.
type ProfileRepository interface {
	GetByID(ctx context.Context, userID string) (*RemoteProfile, error)
	Create(ctx context.Context, profile *models.UserProfile) error
	// Backfill persists default values for fields missing on an existing
	// document before the profile is used.
	Backfill(ctx context.Context, userID string, fields map[string]interface{}) error
	// IncrementCoins applies an atomic server-side increment to the coin
	// balance; negative deltas debit.
	IncrementCoins(ctx context.Context, userID string, delta int64) error
	SetPremium(ctx context.Context, userID string) error
	TouchLastLogin(ctx context.Context, userID string) error
}

// GuestStore persists the locally-held state that a browser would keep in
// local storage: the guest profile, client preferences, and per-conversation
// chat history.
type GuestStore interface {
	LoadGuest() (*models.UserProfile, error)
	SaveGuest(profile *models.UserProfile) error
	ClearGuest() error
	LoadPreferences() (*models.Preferences, error)
	SavePreferences(prefs *models.Preferences) error
	LoadHistory(conversationID string) ([]models.ChatTurn, error)
	AppendHistory(conversationID string, turns ...models.ChatTurn) error
}
