// Package masterdata manages the supporting records the timesheet and
// billing flows hang off: projects, worker accommodations, sanctions,
// wage advances and announcements.
package masterdata

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Project is a construction site workers book hours against.
type Project struct {
	ID         uuid.UUID
	Name       string
	Code       string
	Address    string
	ClientName string
	IsActive   bool
	DeletedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ProjectInput carries create and update fields for a project.
type ProjectInput struct {
	Name       string
	Code       string
	Address    string
	ClientName string
	IsActive   bool
}

// Validate checks required project fields.
func (in ProjectInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: project name required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Code) == "" {
		return fmt.Errorf("%w: project code required", ErrInvalidInput)
	}
	return nil
}

// Accommodation is shared worker housing the company pays for.
type Accommodation struct {
	ID          uuid.UUID
	Name        string
	Address     string
	Capacity    int
	MonthlyCost float64
	Note        string
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AccommodationInput carries create and update fields.
type AccommodationInput struct {
	Name        string
	Address     string
	Capacity    int
	MonthlyCost float64
	Note        string
}

// Validate checks required accommodation fields.
func (in AccommodationInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: accommodation name required", ErrInvalidInput)
	}
	if in.Capacity < 0 {
		return fmt.Errorf("%w: capacity must not be negative", ErrInvalidInput)
	}
	if in.MonthlyCost < 0 {
		return fmt.Errorf("%w: monthly cost must not be negative", ErrInvalidInput)
	}
	return nil
}

// Assignment places one worker in an accommodation for a date range.
// Cost is the amount charged to the worker for the stay.
type Assignment struct {
	ID              uuid.UUID
	AccommodationID uuid.UUID
	UserID          uuid.UUID
	StartsOn        time.Time
	EndsOn          *time.Time
	Cost            float64
	DeletedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AssignmentInput carries create fields for an assignment.
type AssignmentInput struct {
	AccommodationID uuid.UUID
	UserID          uuid.UUID
	StartsOn        time.Time
	EndsOn          *time.Time
	Cost            float64
}

// Validate checks assignment consistency.
func (in AssignmentInput) Validate() error {
	if in.AccommodationID == uuid.Nil || in.UserID == uuid.Nil {
		return fmt.Errorf("%w: accommodation and user required", ErrInvalidInput)
	}
	if in.StartsOn.IsZero() {
		return fmt.Errorf("%w: start date required", ErrInvalidInput)
	}
	if in.EndsOn != nil && in.EndsOn.Before(in.StartsOn) {
		return fmt.Errorf("%w: end date precedes start", ErrInvalidInput)
	}
	if in.Cost < 0 {
		return fmt.Errorf("%w: cost must not be negative", ErrInvalidInput)
	}
	return nil
}

// Sanction is a deduction levied against a worker's pay.
type Sanction struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Amount    float64
	Reason    string
	LeviedOn  time.Time
	CreatedBy uuid.UUID
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SanctionInput carries create fields for a sanction.
type SanctionInput struct {
	UserID   uuid.UUID
	Amount   float64
	Reason   string
	LeviedOn time.Time
}

// Validate checks sanction consistency. A sanction without a reason is
// not enforceable.
func (in SanctionInput) Validate() error {
	if in.UserID == uuid.Nil {
		return fmt.Errorf("%w: user required", ErrInvalidInput)
	}
	if in.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Reason) == "" {
		return fmt.Errorf("%w: reason required", ErrInvalidInput)
	}
	if in.LeviedOn.IsZero() {
		return fmt.Errorf("%w: levy date required", ErrInvalidInput)
	}
	return nil
}

// Advance is a wage payment made ahead of settlement.
type Advance struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Amount    float64
	Note      string
	PaidOn    time.Time
	CreatedBy uuid.UUID
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AdvanceInput carries create fields for an advance.
type AdvanceInput struct {
	UserID uuid.UUID
	Amount float64
	Note   string
	PaidOn time.Time
}

// Validate checks advance consistency.
func (in AdvanceInput) Validate() error {
	if in.UserID == uuid.Nil {
		return fmt.Errorf("%w: user required", ErrInvalidInput)
	}
	if in.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if in.PaidOn.IsZero() {
		return fmt.Errorf("%w: payment date required", ErrInvalidInput)
	}
	return nil
}

// Announcement is a company-wide notice shown to workers. An empty
// Audience means every role sees it.
type Announcement struct {
	ID          uuid.UUID
	Title       string
	Body        string
	Audience    string
	PublishedAt time.Time
	ExpiresAt   *time.Time
	CreatedBy   uuid.UUID
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AnnouncementInput carries create fields for an announcement.
type AnnouncementInput struct {
	Title     string
	Body      string
	Audience  string
	ExpiresAt *time.Time
}

// Validate checks announcement consistency.
func (in AnnouncementInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Body) == "" {
		return fmt.Errorf("%w: body required", ErrInvalidInput)
	}
	return nil
}

var (
	// ErrNotFound indicates a missing masterdata record.
	ErrNotFound = errors.New("masterdata: not found")
	// ErrInvalidInput indicates a validation failure.
	ErrInvalidInput = errors.New("masterdata: invalid input")
	// ErrCodeTaken indicates a duplicate project code.
	ErrCodeTaken = errors.New("masterdata: project code already in use")
)
