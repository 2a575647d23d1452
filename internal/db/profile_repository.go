package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"nexaneuron-backend-go/internal/models"
)

const usersCollection = "users"

// ErrNotFound is returned when a document does not exist in Firestore.
var ErrNotFound = errors.New("document not found")

// profileDoc mirrors the Firestore document shape with optional fields left
// as pointers so missing values survive decoding as nil.
type profileDoc struct {
	DisplayName string     `firestore:"displayName,omitempty"`
	Email       string     `firestore:"email,omitempty"`
	AvatarURL   string     `firestore:"avatarUrl,omitempty"`
	Coins       *int64     `firestore:"coins"`
	IsPremium   *bool      `firestore:"isPremium"`
	LastLogin   *time.Time `firestore:"lastLogin"`
	CreatedAt   time.Time  `firestore:"createdAt"`
	UpdatedAt   time.Time  `firestore:"updatedAt"`
}

// firestoreProfileRepository implements ProfileRepository using Firestore.
type firestoreProfileRepository struct {
	client *firestore.Client
}

// NewFirestoreProfileRepository creates a ProfileRepository backed by the
// users collection. The document ID is the Firebase Auth UID.
func NewFirestoreProfileRepository(client *firestore.Client) ProfileRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for ProfileRepository.")
	}
	return &firestoreProfileRepository{client: client}
}

func (r *firestoreProfileRepository) GetByID(ctx context.Context, userID string) (*RemoteProfile, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("profile with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile with ID '%s': %w", userID, err)
	}

	var doc profileDoc
	if err := docSnap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode profile data for ID '%s': %w", userID, err)
	}

	remote := &RemoteProfile{
		Profile: models.UserProfile{
			ID:          docSnap.Ref.ID,
			DisplayName: doc.DisplayName,
			Email:       doc.Email,
			AvatarURL:   doc.AvatarURL,
			CreatedAt:   doc.CreatedAt,
			UpdatedAt:   doc.UpdatedAt,
		},
		Coins:     doc.Coins,
		IsPremium: doc.IsPremium,
	}
	if doc.Coins != nil {
		remote.Profile.Coins = *doc.Coins
	}
	if doc.IsPremium != nil {
		remote.Profile.IsPremium = *doc.IsPremium
	}
	if doc.LastLogin != nil {
		remote.Profile.LastLogin = *doc.LastLogin
	}
	return remote, nil
}

func (r *firestoreProfileRepository) Create(ctx context.Context, profile *models.UserProfile) error {
	if profile.ID == "" {
		return errors.New("profile ID cannot be empty for Create operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(profile.ID).Create(ctx, profile)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("profile with ID '%s' already exists: %w", profile.ID, err)
		}
		return fmt.Errorf("failed to create profile with ID '%s': %w", profile.ID, err)
	}
	return nil
}

// Backfill writes default values for fields that were missing on an existing
// document, merging so the rest of the record is left untouched.
func (r *firestoreProfileRepository) Backfill(ctx context.Context, userID string, fields map[string]interface{}) error {
	if userID == "" {
		return errors.New("userID cannot be empty for Backfill operation")
	}
	if len(fields) == 0 {
		return nil
	}
	_, err := r.client.Collection(usersCollection).Doc(userID).Set(ctx, fields, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to backfill profile '%s': %w", userID, err)
	}
	return nil
}

// IncrementCoins applies firestore.Increment so concurrent clients never race
// on a read-modify-write of the balance.
func (r *firestoreProfileRepository) IncrementCoins(ctx context.Context, userID string, delta int64) error {
	if userID == "" {
		return errors.New("userID cannot be empty for IncrementCoins operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "coins", Value: firestore.Increment(delta)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("profile with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return fmt.Errorf("failed to adjust coins for profile '%s': %w", userID, err)
	}
	return nil
}

func (r *firestoreProfileRepository) SetPremium(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("userID cannot be empty for SetPremium operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "isPremium", Value: true},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("profile with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return fmt.Errorf("failed to set premium for profile '%s': %w", userID, err)
	}
	return nil
}

func (r *firestoreProfileRepository) TouchLastLogin(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("userID cannot be empty for TouchLastLogin operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(userID).Set(ctx, map[string]interface{}{
		"lastLogin": firestore.ServerTimestamp,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to stamp lastLogin for profile '%s': %w", userID, err)
	}
	return nil
}
