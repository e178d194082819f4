// Package invoices issues and tracks invoices generated from approved
// worker-weeks.
package invoices

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status enumerates invoice payment states.
type Status string

const (
	// StatusPending is the initial state after issuing.
	StatusPending Status = "pending"
	// StatusDueSoon flags invoices approaching their due date.
	StatusDueSoon Status = "due_soon"
	// StatusOverdue flags invoices past their due date.
	StatusOverdue Status = "overdue"
	// StatusPaid is set manually once payment arrives.
	StatusPaid Status = "paid"
	// StatusVoid cancels an invoice. Terminal.
	StatusVoid Status = "void"
)

// Invoice bills one worker-week at the worker's hourly rate.
type Invoice struct {
	ID         uuid.UUID
	Number     string
	Sequence   int
	IssueYear  int
	UserID     uuid.UUID
	ClosingID  uuid.UUID
	ISOYear    int
	ISOWeek    int
	WorkerName string
	WorkerIBAN string
	Hours      float64
	HourlyRate float64
	Subtotal   float64
	TaxRate    float64
	TaxAmount  float64
	Total      float64
	Status     Status
	IssuedAt   time.Time
	DueAt      time.Time
	PaidAt     *time.Time
	DeletedAt  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FormatNumber renders the yearly sequence, e.g. "FA-2025-0042".
func FormatNumber(year, sequence int) string {
	return fmt.Sprintf("FA-%d-%04d", year, sequence)
}

// FinancialSummary aggregates one worker's money flow over a period.
// Net pay is the gross wage minus sanctions and advances, minus the
// worker's share of accommodation costs.
type FinancialSummary struct {
	UserID             uuid.UUID
	WorkerName         string
	From               time.Time
	To                 time.Time
	TotalHours         float64
	GrossWage          float64
	SanctionTotal      float64
	AdvanceTotal       float64
	AccommodationTotal float64
	NetPay             float64
}

var (
	// ErrNotFound indicates the invoice does not exist.
	ErrNotFound = errors.New("invoices: not found")
	// ErrClosingNotBillable indicates the closing is not approved or locked.
	ErrClosingNotBillable = errors.New("invoices: closing not approved or locked")
	// ErrAlreadyInvoiced indicates the closing already carries an invoice.
	ErrAlreadyInvoiced = errors.New("invoices: closing already invoiced")
	// ErrInvalidStatus indicates a transition the lifecycle forbids.
	ErrInvalidStatus = errors.New("invoices: invalid status transition")
	// ErrNoBillableHours indicates the week carries no approved hours.
	ErrNoBillableHours = errors.New("invoices: no billable hours")
	// ErrInvalidFilter indicates a malformed list or summary request.
	ErrInvalidFilter = errors.New("invoices: invalid filter")
)
