package profiles

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/werkzeit/werkzeit/internal/rbac"
	"github.com/werkzeit/werkzeit/internal/shared"
)

// Store abstracts profile persistence for the service.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (Profile, error)
	FindByEmail(ctx context.Context, email string) (Profile, error)
	List(ctx context.Context) ([]Profile, error)
	Insert(ctx context.Context, p Profile) (Profile, error)
	Update(ctx context.Context, in UpdateInput) error
	SetRole(ctx context.Context, id uuid.UUID, role string) error
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Service wraps profile business rules.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Get returns a profile by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Profile, error) {
	return s.store.Get(ctx, id)
}

// List returns all live profiles.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	return s.store.List(ctx)
}

// Create registers a new profile with a hashed password.
func (s *Service) Create(ctx context.Context, in CreateInput) (Profile, error) {
	if err := in.Validate(); err != nil {
		return Profile{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return Profile{}, err
	}
	return s.store.Insert(ctx, Profile{
		ID:           uuid.New(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hash),
		Role:         in.Role,
		HourlyRate:   in.HourlyRate,
		IBAN:         in.IBAN,
		IsActive:     true,
	})
}

// Update mutates profile master data.
func (s *Service) Update(ctx context.Context, in UpdateInput) error {
	if in.ID == uuid.Nil {
		return ErrNotFound
	}
	return s.store.Update(ctx, in)
}

// AssignRole changes a profile role after enum validation.
func (s *Service) AssignRole(ctx context.Context, id uuid.UUID, raw string) error {
	role, err := rbac.ParseRole(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return s.store.SetRole(ctx, id, string(role))
}

// Delete soft-deletes a profile.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.SoftDelete(ctx, id, s.now())
}

// ResolveActor satisfies rbac.ActorResolver.
func (s *Service) ResolveActor(ctx context.Context, userID uuid.UUID) (shared.Actor, error) {
	p, err := s.store.Get(ctx, userID)
	if err != nil {
		return shared.Actor{}, err
	}
	return shared.Actor{ID: p.ID, Role: string(p.Role), Name: p.Name}, nil
}
