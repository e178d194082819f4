// Package auth validates credentials against profiles and manages login
// session records.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/werkzeit/werkzeit/internal/profiles"
	"github.com/werkzeit/werkzeit/internal/shared"
)

// ProfileStore exposes the profile lookups auth needs.
type ProfileStore interface {
	FindByEmail(ctx context.Context, email string) (profiles.Profile, error)
}

// SessionStore persists login session metadata for auditing.
type SessionStore interface {
	CreateSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// Service wraps authentication business rules.
type Service struct {
	store    ProfileStore
	sessions SessionStore
}

// NewService constructs a new Service.
func NewService(store ProfileStore, sessions SessionStore) *Service {
	return &Service{store: store, sessions: sessions}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (profiles.Profile, error) {
	profile, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return profiles.Profile{}, shared.ErrInvalidCredentials
	}
	if !profile.IsActive {
		return profiles.Profile{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return profiles.Profile{}, shared.ErrInvalidCredentials
	}
	return profile, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	return s.sessions.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.sessions.DeleteSession(ctx, id)
}
