// Package closing implements the weekly approval lifecycle. A closing
// pins one worker's ISO week and walks it through submission, review
// and the terminal lock.
package closing

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/werkzeit/werkzeit/internal/shared"
)

// Status enumerates the closing lifecycle states.
type Status string

const (
	// StatusOpen is the implicit state before a worker submits. A row
	// with this status exists only after an approval was undone or a
	// return was acknowledged.
	StatusOpen Status = "open"
	// StatusSubmitted means the week awaits review.
	StatusSubmitted Status = "submitted"
	// StatusApproved means a reviewer signed the week off.
	StatusApproved Status = "approved"
	// StatusReturned means the week went back to the worker with a comment.
	StatusReturned Status = "returned"
	// StatusLocked is terminal. No edits, no transitions.
	StatusLocked Status = "locked"
)

// Closing represents one worker-week in the approval lifecycle.
type Closing struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	ISOYear       int
	ISOWeek       int
	Status        Status
	SubmittedAt   *time.Time
	ApprovedAt    *time.Time
	ApprovedBy    *uuid.UUID
	ReturnComment string
	DeletedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Week returns the ISO week the closing covers.
func (c Closing) Week() shared.Week {
	return shared.Week{Year: c.ISOYear, Week: c.ISOWeek}
}

// UndoDeadline reports when an approval stops being reversible.
func (c Closing) UndoDeadline(window time.Duration) (time.Time, bool) {
	if c.Status != StatusApproved || c.ApprovedAt == nil {
		return time.Time{}, false
	}
	return c.ApprovedAt.Add(window), true
}

// Summary pairs a closing with reviewer-facing aggregates.
type Summary struct {
	Closing    Closing
	WorkerName string
	TotalHours float64
	DayCount   int
}

var (
	// ErrNotFound indicates the closing does not exist.
	ErrNotFound = errors.New("closing: not found")
	// ErrInvalidTransition indicates the closing is not in the state the
	// requested transition starts from.
	ErrInvalidTransition = errors.New("closing: invalid transition")
	// ErrUndoWindowExpired indicates the approval is too old to revert.
	ErrUndoWindowExpired = errors.New("closing: undo window expired")
	// ErrReturnCommentRequired indicates a return without a reason.
	ErrReturnCommentRequired = errors.New("closing: return comment required")
	// ErrNoRecords indicates a submit attempt on a week without entries.
	ErrNoRecords = errors.New("closing: week has no records to submit")
)
