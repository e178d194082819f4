package profiles

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/werkzeit/werkzeit/internal/rbac"
)

// Profile represents a worker or staff account.
type Profile struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	Role         rbac.Role
	HourlyRate   float64
	IBAN         string
	IsActive     bool
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateInput captures fields for a new profile.
type CreateInput struct {
	Email      string
	Name       string
	Password   string
	Role       rbac.Role
	HourlyRate float64
	IBAN       string
}

// UpdateInput captures mutable profile fields.
type UpdateInput struct {
	ID         uuid.UUID
	Name       string
	HourlyRate float64
	IBAN       string
	IsActive   bool
}

// ErrEmailTaken indicates a duplicate email address.
var ErrEmailTaken = errors.New("profiles: email already registered")

// ErrNotFound indicates the profile does not exist.
var ErrNotFound = errors.New("profiles: not found")

// ErrInvalidInput wraps all create/update validation failures.
var ErrInvalidInput = errors.New("profiles: invalid input")

// Validate checks create input coherence.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Email) == "" {
		return fmt.Errorf("%w: email required", ErrInvalidInput)
	}
	if !strings.Contains(in.Email, "@") {
		return fmt.Errorf("%w: email malformed", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	if len(in.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}
	if _, err := rbac.ParseRole(string(in.Role)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.HourlyRate < 0 {
		return fmt.Errorf("%w: hourly rate cannot be negative", ErrInvalidInput)
	}
	return nil
}
