// Package timesheet manages daily performance records: one worker-day of
// work against one project, from draft entry through the weekly approval
// flow driven by the closing package.
package timesheet

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RecordStatus enumerates performance record lifecycle states.
type RecordStatus string

const (
	StatusDraft     RecordStatus = "draft"
	StatusSubmitted RecordStatus = "submitted"
	StatusApproved  RecordStatus = "approved"
	StatusRejected  RecordStatus = "rejected"
	StatusReturned  RecordStatus = "returned"
)

// Record represents one worker-day of work against one project.
type Record struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	ProjectID       uuid.UUID
	WorkDate        time.Time
	Start           string
	End             string
	Break1Start     string
	Break1End       string
	Break2Start     string
	Break2End       string
	Note            string
	TotalHours      float64
	HoursOverridden bool
	Status          RecordStatus
	DeletedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Editable reports whether the worker may still change the record.
// Submitted and approved records belong to the closing workflow.
func (r Record) Editable() bool {
	return r.Status == StatusDraft || r.Status == StatusReturned
}

// Input captures the fields a worker supplies for a record.
type Input struct {
	ProjectID   uuid.UUID
	WorkDate    time.Time
	Start       string
	End         string
	Break1Start string
	Break1End   string
	Break2Start string
	Break2End   string
	Note        string

	// TotalHours is honoured only when HoursOverridden is set; otherwise
	// the server recomputes it from the time fields.
	TotalHours      float64
	HoursOverridden bool
}

const maxNoteLength = 500

var (
	// ErrNotFound indicates the record does not exist.
	ErrNotFound = errors.New("timesheet: record not found")
	// ErrNotOwner indicates the actor does not own the record.
	ErrNotOwner = errors.New("timesheet: record belongs to another user")
	// ErrNotEditable indicates the record left the draft/returned states.
	ErrNotEditable = errors.New("timesheet: record can no longer be edited")
	// ErrWeekLocked indicates the record's week has a locked closing.
	ErrWeekLocked = errors.New("timesheet: week is locked")
	// ErrInvalidInput wraps field validation failures.
	ErrInvalidInput = errors.New("timesheet: invalid input")
	// ErrNonPositiveHours rejects records that would book zero or negative time.
	ErrNonPositiveHours = errors.New("timesheet: total hours must be greater than zero")
)

// Validate checks input coherence before any calculation.
func (in Input) Validate() error {
	if in.ProjectID == uuid.Nil {
		return fmt.Errorf("%w: project required", ErrInvalidInput)
	}
	if in.WorkDate.IsZero() {
		return fmt.Errorf("%w: work date required", ErrInvalidInput)
	}
	if _, err := parseClock(in.Start); err != nil {
		return fmt.Errorf("%w: start time: %v", ErrInvalidInput, err)
	}
	if _, err := parseClock(in.End); err != nil {
		return fmt.Errorf("%w: end time: %v", ErrInvalidInput, err)
	}
	for _, v := range []string{in.Break1Start, in.Break1End, in.Break2Start, in.Break2End} {
		if v == "" {
			continue
		}
		if _, err := parseClock(v); err != nil {
			return fmt.Errorf("%w: break time: %v", ErrInvalidInput, err)
		}
	}
	if len(strings.TrimSpace(in.Note)) > maxNoteLength {
		return fmt.Errorf("%w: note exceeds %d characters", ErrInvalidInput, maxNoteLength)
	}
	return nil
}
