package models

import "time"

// Default coin allowances. A freshly signed-in user starts with 100 coins,
// an anonymous guest with 10.
const (
	DefaultSignedInCoins int64 = 100
	DefaultGuestCoins    int64 = 10
)

// UserProfile is the single persisted entity of consequence: who is using the
// app and what they can afford. For authenticated users the canonical copy is
// the Firestore document keyed by the Firebase Auth UID; a guest profile lives
// only in the local state store.
type UserProfile struct {
	ID          string    `json:"id" firestore:"-"` // Firebase Auth UID or "guest-<unix-ms>"
	DisplayName string    `json:"displayName,omitempty" firestore:"displayName,omitempty"`
	Email       string    `json:"email,omitempty" firestore:"email,omitempty"`
	AvatarURL   string    `json:"avatarUrl,omitempty" firestore:"avatarUrl,omitempty"`
	Coins       int64     `json:"coins" firestore:"coins"`
	IsPremium   bool      `json:"isPremium" firestore:"isPremium"`
	IsGuest     bool      `json:"isGuest" firestore:"-"` // never persisted remotely
	LastLogin   time.Time `json:"lastLogin,omitempty" firestore:"lastLogin,omitempty"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// CanAfford reports whether a debit of amount coins would be honored.
// Premium waives coin costs entirely.
func (p *UserProfile) CanAfford(amount int64) bool {
	if p.IsPremium {
		return true
	}
	return amount <= p.Coins
}
