package core

import (
	"context"
	"errors"

	"firebase.google.com/go/v4/auth"
)

// firebaseTokenVerifier adapts the Firebase Auth client to the TokenVerifier
// interface.
type firebaseTokenVerifier struct {
	client *auth.Client
}

// NewFirebaseTokenVerifier wraps a Firebase Auth client.
func NewFirebaseTokenVerifier(client *auth.Client) (TokenVerifier, error) {
	if client == nil {
		return nil, errors.New("firebase auth client is required")
	}
	return &firebaseTokenVerifier{client: client}, nil
}

func (v *firebaseTokenVerifier) VerifyIDToken(ctx context.Context, idToken string) (*AuthIdentity, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	identity := &AuthIdentity{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		identity.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		identity.DisplayName = name
	}
	if picture, ok := token.Claims["picture"].(string); ok {
		identity.AvatarURL = picture
	}
	return identity, nil
}

func (v *firebaseTokenVerifier) RevokeTokens(ctx context.Context, uid string) error {
	return v.client.RevokeRefreshTokens(ctx, uid)
}
