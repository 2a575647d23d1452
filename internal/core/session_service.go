package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"nexaneuron-backend-go/internal/db"
	"nexaneuron-backend-go/internal/models"
	"nexaneuron-backend-go/pkg/apperrors"
)

// ErrInsufficientCoins is returned when a debit exceeds the current balance
// of a non-premium session.
var ErrInsufficientCoins = errors.New("insufficient coin balance")

// Session is the active user context passed explicitly to every feature
// handler. Exactly one profile is active per session; the struct is the
// in-memory mirror of the canonical record (remote for authenticated users,
// local for guests).
type Session struct {
	mu      sync.Mutex
	Profile *models.UserProfile
}

// Snapshot returns a copy of the current profile for rendering.
func (s *Session) Snapshot() models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.Profile
}

type sessionService struct {
	profiles db.ProfileRepository
	guests   db.GuestStore
	verifier TokenVerifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionService creates the SessionService. The verifier may be nil only
// in tests that never sign in.
func NewSessionService(profiles db.ProfileRepository, guests db.GuestStore, verifier TokenVerifier, logger *zap.Logger) SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &sessionService{
		profiles: profiles,
		guests:   guests,
		verifier: verifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Resolve establishes the current session. With an authenticated identity it
// loads or creates the remote profile, backfilling missing defaults and
// persisting the correction before use, and discards any local guest record.
// Without one it loads the stored guest, or synthesizes a new guest profile
// and persists it locally. Remote I/O failure degrades to a guest session
// rather than blocking the app; spending checks still apply to the degraded
// session.
func (s *sessionService) Resolve(ctx context.Context, identity *AuthIdentity) (*Session, error) {
	if identity == nil {
		return s.resolveGuest()
	}

	session, err := s.resolveAuthenticated(ctx, identity)
	if err != nil {
		s.logger.Warn("remote profile resolution failed; degrading to guest session",
			zap.String("uid", identity.UID), zap.Error(err))
		return s.resolveGuest()
	}
	return session, nil
}

func (s *sessionService) resolveAuthenticated(ctx context.Context, identity *AuthIdentity) (*Session, error) {
	remote, err := s.profiles.GetByID(ctx, identity.UID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("load remote profile: %w", err)
		}
		profile := &models.UserProfile{
			ID:          identity.UID,
			DisplayName: identity.DisplayName,
			Email:       identity.Email,
			AvatarURL:   identity.AvatarURL,
			Coins:       models.DefaultSignedInCoins,
			IsPremium:   false,
			LastLogin:   s.now().UTC(),
		}
		if err := s.profiles.Create(ctx, profile); err != nil {
			return nil, fmt.Errorf("create remote profile: %w", err)
		}
		s.discardGuest()
		return &Session{Profile: profile}, nil
	}

	// Backfill defaults for fields missing on the existing record and
	// persist the correction before the profile is used.
	backfill := map[string]interface{}{}
	profile := remote.Profile
	if remote.Coins == nil {
		backfill["coins"] = models.DefaultSignedInCoins
		profile.Coins = models.DefaultSignedInCoins
	}
	if remote.IsPremium == nil {
		backfill["isPremium"] = false
		profile.IsPremium = false
	}
	if len(backfill) > 0 {
		if err := s.profiles.Backfill(ctx, identity.UID, backfill); err != nil {
			return nil, fmt.Errorf("backfill remote profile: %w", err)
		}
	}
	if err := s.profiles.TouchLastLogin(ctx, identity.UID); err != nil {
		// Not worth failing the session over.
		s.logger.Warn("failed to stamp lastLogin", zap.String("uid", identity.UID), zap.Error(err))
	}

	// Identity-provider fields win over stale document copies.
	if identity.DisplayName != "" {
		profile.DisplayName = identity.DisplayName
	}
	if identity.Email != "" {
		profile.Email = identity.Email
	}
	if identity.AvatarURL != "" {
		profile.AvatarURL = identity.AvatarURL
	}
	profile.IsGuest = false

	s.discardGuest()
	return &Session{Profile: &profile}, nil
}

func (s *sessionService) resolveGuest() (*Session, error) {
	if guest, err := s.guests.LoadGuest(); err == nil {
		return &Session{Profile: guest}, nil
	} else if !errors.Is(err, db.ErrNotFound) {
		s.logger.Warn("failed to load stored guest profile; synthesizing a new one", zap.Error(err))
	}

	guest := &models.UserProfile{
		ID:        fmt.Sprintf("guest-%d", s.now().UnixMilli()),
		Coins:     models.DefaultGuestCoins,
		IsPremium: false,
		IsGuest:   true,
		CreatedAt: s.now().UTC(),
	}
	if err := s.guests.SaveGuest(guest); err != nil {
		// The session still works in memory; persistence is best effort.
		s.logger.Warn("failed to persist guest profile", zap.Error(err))
	}
	return &Session{Profile: guest}, nil
}

// discardGuest drops any local guest record. The guest's coin balance is NOT
// transferred to the authenticated profile.
func (s *sessionService) discardGuest() {
	if err := s.guests.ClearGuest(); err != nil {
		s.logger.Warn("failed to discard guest profile", zap.Error(err))
	}
}

// SignIn verifies the identity-provider token and resolves the session for
// the now-authenticated identity. On failure the caller's session is left
// unchanged and a recoverable AuthError is returned; nothing propagates to
// the shell.
func (s *sessionService) SignIn(ctx context.Context, idToken string) (*Session, error) {
	if s.verifier == nil {
		return nil, apperrors.Auth("sign-in is not available", errors.New("no token verifier configured"))
	}
	identity, err := s.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		s.logger.Warn("sign-in token verification failed", zap.Error(err))
		return nil, apperrors.Auth("sign-in failed", err)
	}
	session, err := s.resolveAuthenticated(ctx, identity)
	if err != nil {
		s.logger.Warn("post-sign-in resolution failed", zap.String("uid", identity.UID), zap.Error(err))
		return nil, apperrors.Auth("sign-in failed", err)
	}
	return session, nil
}

// SignOut ends the authenticated identity and resolves a fresh guest profile
// (a surviving local guest record is reused).
func (s *sessionService) SignOut(ctx context.Context, session *Session) (*Session, error) {
	if session != nil && !session.Profile.IsGuest && s.verifier != nil {
		if err := s.verifier.RevokeTokens(ctx, session.Profile.ID); err != nil {
			// Best effort; the local session ends regardless.
			s.logger.Warn("failed to revoke provider tokens", zap.String("uid", session.Profile.ID), zap.Error(err))
		}
	}
	return s.resolveGuest()
}

// Debit applies a fixed-cost decrement after the corresponding paid operation
// has already succeeded (pay-on-success). Premium sessions keep their balance
// untouched. Authenticated debits are atomic server-side increments; guest
// debits rewrite the local record.
func (s *sessionService) Debit(ctx context.Context, session *Session, amount int64) error {
	if session == nil || session.Profile == nil {
		return errors.New("no active session")
	}
	if amount < 0 {
		return fmt.Errorf("debit amount %d cannot be negative", amount)
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	profile := session.Profile

	if profile.IsPremium {
		return nil
	}
	if amount > profile.Coins {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientCoins, amount, profile.Coins)
	}

	if profile.IsGuest {
		profile.Coins -= amount
		if err := s.guests.SaveGuest(profile); err != nil {
			return fmt.Errorf("persist guest debit: %w", err)
		}
		return nil
	}

	if err := s.profiles.IncrementCoins(ctx, profile.ID, -amount); err != nil {
		return fmt.Errorf("remote debit: %w", err)
	}
	profile.Coins -= amount
	return nil
}

// UnlockPremium flips the premium flag. For authenticated users the change is
// persisted remotely; for guests it is local-only and the coin balance is
// left alone. Calling it on an already-premium session is a no-op.
func (s *sessionService) UnlockPremium(ctx context.Context, session *Session) error {
	if session == nil || session.Profile == nil {
		return errors.New("no active session")
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	profile := session.Profile

	if profile.IsPremium {
		return nil
	}

	if profile.IsGuest {
		profile.IsPremium = true
		if err := s.guests.SaveGuest(profile); err != nil {
			return fmt.Errorf("persist guest premium unlock: %w", err)
		}
		return nil
	}

	if err := s.profiles.SetPremium(ctx, profile.ID); err != nil {
		return fmt.Errorf("remote premium unlock: %w", err)
	}
	profile.IsPremium = true
	return nil
}
